package room

import (
	"sync"
	"time"

	"github.com/livemeet/livemeet/cmd/server/internal/events"
)

// Registry is the bidirectional membership index: connection -> room and
// room -> participant set. It holds lookup references only; room ownership and
// lifecycle stay with the Manager.
type Registry struct {
	mgr *Manager

	mu    sync.Mutex
	conns map[string]string // connection id -> room id
}

// NewRegistry creates a membership registry backed by the given manager.
func NewRegistry(mgr *Manager) *Registry {
	return &Registry{
		mgr:   mgr,
		conns: make(map[string]string),
	}
}

// Join adds the participant to the room, creating the room in ACTIVE state on
// first join. Joining a room the participant is already in is idempotent and
// returns the existing membership without a duplicate presence event.
func (g *Registry) Join(roomID string, p Participant) (*Room, error) {
	r, err := g.mgr.roomForJoin(roomID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.state != StateActive {
		// Lost a race with a concurrent close.
		r.mu.Unlock()
		return nil, ErrRoomClosed
	}
	if _, exists := r.members[p.ID]; exists {
		r.mu.Unlock()
		return r, nil
	}

	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	// Take the snapshot before adding the joiner: the join notice goes to the
	// other members, the joiner catches up through the live-state pull.
	others := r.memberConnsLocked()
	r.members[p.ID] = p
	g.mgr.publishPresenceLocked(r, events.TypeUserJoined, p, others)
	r.mu.Unlock()

	g.mu.Lock()
	g.conns[p.ID] = roomID
	g.mu.Unlock()

	return r, nil
}

// Leave removes the participant from the room. Leaving a room the participant
// is not in, or leaving twice, is a no-op: duplicate disconnect signals are
// normal. When the last participant leaves, the room closes.
func (g *Registry) Leave(roomID, participantID string) {
	g.mu.Lock()
	// A stale signal naming the wrong room must not touch the reverse index
	// for the room the participant is actually in.
	if g.conns[participantID] == roomID {
		delete(g.conns, participantID)
	}
	g.mu.Unlock()

	r := g.mgr.Get(roomID)
	if r == nil {
		return
	}

	r.mu.Lock()
	p, ok := r.members[participantID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.members, participantID)
	empty := len(r.members) == 0
	if !empty {
		g.mgr.publishPresenceLocked(r, events.TypeUserLeft, p, r.memberConnsLocked())
	}
	r.mu.Unlock()

	if empty {
		_ = g.mgr.Close(roomID, "last participant left")
	}
}

// MembersOf returns the current participant set. Unknown rooms yield an empty
// slice; callers cannot distinguish unknown from empty.
func (g *Registry) MembersOf(roomID string) []Participant {
	r := g.mgr.Get(roomID)
	if r == nil {
		return []Participant{}
	}
	return r.Members()
}

// Member returns the participant's current membership record.
func (g *Registry) Member(roomID, participantID string) (Participant, bool) {
	r := g.mgr.Get(roomID)
	if r == nil {
		return Participant{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.members[participantID]
	return p, ok
}

// IsMember reports whether the participant is currently joined to the room.
func (g *Registry) IsMember(roomID, participantID string) bool {
	r := g.mgr.Get(roomID)
	if r == nil {
		return false
	}
	return r.IsMember(participantID)
}

// RoomOf returns the room a connection joined, for disconnect handling.
func (g *Registry) RoomOf(connID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.conns[connID]
	return id, ok
}

// End closes the room on an explicit end-meeting signal, regardless of
// remaining members. Their connection index entries are dropped.
func (g *Registry) End(roomID string) error {
	members := g.MembersOf(roomID)
	if err := g.mgr.Close(roomID, "meeting ended"); err != nil {
		return err
	}

	g.mu.Lock()
	for _, p := range members {
		delete(g.conns, p.ID)
	}
	g.mu.Unlock()
	return nil
}
