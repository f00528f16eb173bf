package presence

import (
	"regexp"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "freeflow/pkg/errors"
	"freeflow/pkg/metrics"
)

var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

type Options struct {
	IdleTimeout     time.Duration
	OutdatedTimeout time.Duration
	Now             func() time.Time
	Broadcast       BroadcastFunc
}

// Registry owns every room. Rooms are created on first join and dropped by
// Sweep once empty.
type Registry struct {
	opts   Options
	mu     sync.RWMutex
	rooms  map[string]*Room
	logger *zap.Logger
}

func NewRegistry(opts Options, logger *zap.Logger) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		opts:   opts,
		rooms:  make(map[string]*Room),
		logger: logger,
	}
}

func ValidRoomName(name string) bool {
	return roomNamePattern.MatchString(name)
}

// withRoom runs fn while the room cannot be dropped by a concurrent sweep.
// Events queued by fn are broadcast after the registry lock is released, so
// the broadcast callback may call back into the registry.
func (r *Registry) withRoom(name string, fn func(*Room)) {
	for {
		r.mu.RLock()
		room, ok := r.rooms[name]
		if ok {
			fn(room)
			r.mu.RUnlock()
			r.broadcast(room.drain())
			return
		}
		r.mu.RUnlock()

		r.mu.Lock()
		if _, ok := r.rooms[name]; !ok {
			r.rooms[name] = newRoom(name, r.opts.Now)
			metrics.PresenceRooms.Set(float64(len(r.rooms)))
			r.logger.Debug("presence room opened", zap.String("room", name))
		}
		r.mu.Unlock()
	}
}

// Join puts a client into a room and returns its participant handle.
func (r *Registry) Join(room, clientID string, user User) (*Participant, error) {
	if !ValidRoomName(room) {
		return nil, apperrors.NewInvalidInputError("invalid room name %q", room)
	}
	if clientID == "" || user.ID == "" {
		return nil, apperrors.NewInvalidInputError("presence needs a client and a user")
	}
	p := &Participant{registry: r, room: room, clientID: clientID}
	p.SetLocalUser(user)
	return p, nil
}

// Snapshot returns the states of a room without creating it.
func (r *Registry) Snapshot(room string) []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rm, ok := r.rooms[room]; ok {
		return rm.States()
	}
	return []State{}
}

func (r *Registry) Rooms() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Sweep applies the idle and outdated timeouts to every room and drops empty
// rooms.
func (r *Registry) Sweep() {
	var events []Event

	r.mu.Lock()
	for name, room := range r.rooms {
		events = append(events, room.sweep(r.opts.IdleTimeout, r.opts.OutdatedTimeout)...)
		if room.Len() == 0 {
			delete(r.rooms, name)
			r.logger.Debug("presence room closed", zap.String("room", name))
		}
	}
	metrics.PresenceRooms.Set(float64(len(r.rooms)))
	r.mu.Unlock()

	r.broadcast(events)
}

func (r *Registry) broadcast(events []Event) {
	if r.opts.Broadcast == nil {
		return
	}
	for _, e := range events {
		r.opts.Broadcast(e)
	}
}
