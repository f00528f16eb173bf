package presence

import "sort"

// Participant is the awareness handle of one connection in one room. Its own
// entry is the local state; every other entry is remote.
type Participant struct {
	registry *Registry
	room     string
	clientID string
	user     User
}

func (p *Participant) Room() string     { return p.room }
func (p *Participant) ClientID() string { return p.clientID }

func (p *Participant) SetLocalUser(user User) State {
	p.user = user
	var out State
	p.registry.withRoom(p.room, func(r *Room) {
		out = r.Join(p.clientID, user)
	})
	return out
}

// Apply merges u into the local state. A client that was swept away is
// rejoined first. It reports false for a stale clock.
func (p *Participant) Apply(u Update) (State, bool) {
	var (
		out     State
		applied bool
	)
	p.registry.withRoom(p.room, func(r *Room) {
		if _, ok := r.State(p.clientID); !ok {
			r.Join(p.clientID, p.user)
		}
		out, applied = r.Apply(p.clientID, u)
	})
	return out, applied
}

func (p *Participant) UpdateCursor(c Cursor) State {
	s, _ := p.Apply(Update{Cursor: &c})
	return s
}

func (p *Participant) UpdateSelection(sel Selection) State {
	s, _ := p.Apply(Update{Selection: &sel})
	return s
}

func (p *Participant) ClearSelection() State {
	s, _ := p.Apply(Update{ClearSelection: true})
	return s
}

// Touch records activity without changing anything else.
func (p *Participant) Touch() State {
	s, _ := p.Apply(Update{})
	return s
}

// Heartbeat keeps the local state from being swept as outdated.
func (p *Participant) Heartbeat() {
	p.registry.withRoom(p.room, func(r *Room) {
		if !r.Renew(p.clientID) {
			r.Join(p.clientID, p.user)
		}
	})
}

func (p *Participant) Leave() {
	p.registry.withRoom(p.room, func(r *Room) {
		r.Remove(p.clientID)
	})
}

func (p *Participant) states() []State {
	var out []State
	p.registry.withRoom(p.room, func(r *Room) {
		out = r.States()
	})
	return out
}

func (p *Participant) LocalState() (State, bool) {
	var (
		out State
		ok  bool
	)
	p.registry.withRoom(p.room, func(r *Room) {
		out, ok = r.State(p.clientID)
	})
	return out, ok
}

func (p *Participant) RemoteStates() []State {
	all := p.states()
	out := make([]State, 0, len(all))
	for _, s := range all {
		if s.ClientID != p.clientID {
			out = append(out, s)
		}
	}
	return out
}

// Users lists each user in the room once, local user included, ordered by
// name.
func (p *Participant) Users() []User {
	return uniqueUsers(p.states(), false)
}

func (p *Participant) ActiveUsers() []User {
	return uniqueUsers(p.states(), true)
}

func uniqueUsers(states []State, activeOnly bool) []User {
	seen := make(map[string]bool)
	out := make([]User, 0, len(states))
	for _, s := range states {
		if activeOnly && s.Status != StatusActive {
			continue
		}
		if seen[s.User.ID] {
			continue
		}
		seen[s.User.ID] = true
		out = append(out, s.User)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Cursors returns remote cursors keyed by client id.
func (p *Participant) Cursors() map[string]Cursor {
	out := make(map[string]Cursor)
	for _, s := range p.RemoteStates() {
		if s.Cursor != nil {
			out[s.ClientID] = *s.Cursor
		}
	}
	return out
}

// Selections returns remote selections keyed by client id.
func (p *Participant) Selections() map[string]Selection {
	out := make(map[string]Selection)
	for _, s := range p.RemoteStates() {
		if s.Selection != nil {
			out[s.ClientID] = *s.Selection
		}
	}
	return out
}
