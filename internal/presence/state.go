package presence

import "time"

type Status string

const (
	StatusActive Status = "active"
	StatusIdle   Status = "idle"
)

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Color  string `json:"color"`
}

type Cursor struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Target string  `json:"target,omitempty"`
}

type Selection struct {
	Target string `json:"target"`
	Anchor int    `json:"anchor"`
	Head   int    `json:"head"`
}

// State is what one connected client shares with the rest of its room.
// Clock belongs to the client and only moves with its updates; Revision
// counts every change the server makes, idle flips and rejoins included.
type State struct {
	ClientID     string     `json:"client_id"`
	User         User       `json:"user"`
	Cursor       *Cursor    `json:"cursor,omitempty"`
	Selection    *Selection `json:"selection,omitempty"`
	Status       Status     `json:"status"`
	Clock        uint64     `json:"clock"`
	Revision     uint64     `json:"revision"`
	LastActivity time.Time  `json:"last_activity"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (s State) clone() State {
	if s.Cursor != nil {
		c := *s.Cursor
		s.Cursor = &c
	}
	if s.Selection != nil {
		sel := *s.Selection
		s.Selection = &sel
	}
	return s
}

// Update is a partial change to a client's state. Clock 0 lets the room
// assign the next clock; any other clock must be greater than the stored one.
type Update struct {
	Clock          uint64     `json:"clock,omitempty"`
	Cursor         *Cursor    `json:"cursor,omitempty"`
	Selection      *Selection `json:"selection,omitempty"`
	ClearCursor    bool       `json:"clear_cursor,omitempty"`
	ClearSelection bool       `json:"clear_selection,omitempty"`
}

type EventType string

const (
	EventUpdate EventType = "update"
	EventRemove EventType = "remove"
)

// Event describes one change of a room, passed to the broadcast callback.
type Event struct {
	Room     string    `json:"room"`
	Type     EventType `json:"type"`
	ClientID string    `json:"client_id"`
	State    *State    `json:"state,omitempty"`
}

type BroadcastFunc func(Event)
