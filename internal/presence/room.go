package presence

import (
	"sort"
	"sync"
	"time"
)

// Room holds the awareness map of one shared document or page, keyed by
// client id. Changes queue events; the registry broadcasts them once no lock
// is held.
type Room struct {
	name    string
	mu      sync.Mutex
	states  map[string]State
	pending []Event
	now     func() time.Time
}

func newRoom(name string, now func() time.Time) *Room {
	if now == nil {
		now = time.Now
	}
	return &Room{
		name:   name,
		states: make(map[string]State),
		now:    now,
	}
}

func (r *Room) Name() string { return r.name }

// drain returns and clears the queued events.
func (r *Room) drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}

func (r *Room) updateEvent(s State) Event {
	c := s.clone()
	return Event{Room: r.name, Type: EventUpdate, ClientID: s.ClientID, State: &c}
}

// Join adds or refreshes a client. The user's colour is kept when the same
// user is already in the room, otherwise a free palette colour is picked.
// The client's clock is left alone; only Revision moves.
func (r *Room) Join(clientID string, user User) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	cur, exists := r.states[clientID]

	user.Color = r.colorFor(clientID, user.ID)
	next := cur
	next.ClientID = clientID
	next.User = user
	next.Status = StatusActive
	next.Revision = cur.Revision + 1
	next.LastActivity = now
	next.UpdatedAt = now
	if !exists {
		next.Cursor, next.Selection = nil, nil
	}
	r.states[clientID] = next
	r.pending = append(r.pending, r.updateEvent(next))
	return next.clone()
}

// colorFor must be called with mu held.
func (r *Room) colorFor(clientID, userID string) string {
	used := make(map[string]bool)
	for id, s := range r.states {
		if id == clientID {
			continue
		}
		if s.User.ID == userID && s.User.Color != "" {
			return s.User.Color
		}
		used[s.User.Color] = true
	}
	return pickColor(userID, used)
}

// Apply merges an update into a joined client's state. It reports false
// when the client is unknown or the update's clock is stale. Every applied
// update counts as activity.
func (r *Room) Apply(clientID string, u Update) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, exists := r.states[clientID]
	if !exists {
		return State{}, false
	}
	if u.Clock != 0 && u.Clock <= cur.Clock {
		return cur.clone(), false
	}

	next := cur.clone()
	next.Revision = cur.Revision + 1
	next.Clock = cur.Clock + 1
	if u.Clock != 0 {
		next.Clock = u.Clock
	}
	switch {
	case u.ClearCursor:
		next.Cursor = nil
	case u.Cursor != nil:
		c := *u.Cursor
		next.Cursor = &c
	}
	switch {
	case u.ClearSelection:
		next.Selection = nil
	case u.Selection != nil:
		sel := *u.Selection
		next.Selection = &sel
	}
	now := r.now().UTC()
	next.Status = StatusActive
	next.LastActivity = now
	next.UpdatedAt = now
	r.states[clientID] = next
	r.pending = append(r.pending, r.updateEvent(next))
	return next.clone(), true
}

// Renew marks a client as still connected without counting as activity.
func (r *Room) Renew(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[clientID]
	if !ok {
		return false
	}
	s.UpdatedAt = r.now().UTC()
	r.states[clientID] = s
	return true
}

func (r *Room) Remove(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.states[clientID]
	if ok {
		delete(r.states, clientID)
		r.pending = append(r.pending, Event{Room: r.name, Type: EventRemove, ClientID: clientID})
	}
	return ok
}

func (r *Room) State(clientID string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[clientID]
	return s.clone(), ok
}

// States returns a copy of every state ordered by client id.
func (r *Room) States() []State {
	r.mu.Lock()
	out := make([]State, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.clone())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}

func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// sweep marks inactive clients idle and removes clients that stopped
// renewing. It returns the events to broadcast.
func (r *Room) sweep(idleAfter, outdatedAfter time.Duration) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	var events []Event
	for id, s := range r.states {
		if outdatedAfter > 0 && now.Sub(s.UpdatedAt) > outdatedAfter {
			delete(r.states, id)
			events = append(events, Event{Room: r.name, Type: EventRemove, ClientID: id})
			continue
		}
		if idleAfter > 0 && s.Status == StatusActive && now.Sub(s.LastActivity) > idleAfter {
			s.Status = StatusIdle
			s.Revision++
			r.states[id] = s
			events = append(events, r.updateEvent(s))
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ClientID < events[j].ClientID })
	return events
}
