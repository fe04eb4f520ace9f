// Package room owns the mutable shared state of a meeting: membership,
// lifecycle, the per-room sequence counter and the bounded event log tail.
// All mutations go through the Registry and Manager; no other package touches
// room state directly.
package room

import (
	"errors"
	"sync"
	"time"

	"github.com/livemeet/livemeet/cmd/server/internal/events"
)

// State is a room's lifecycle state.
type State string

const (
	StateEmpty  State = "EMPTY"
	StateActive State = "ACTIVE"
	StateClosed State = "CLOSED"
)

var (
	// ErrRoomClosed is returned for operations on a closed room id. Closed ids
	// are never reused; a new meeting gets a new id.
	ErrRoomClosed = errors.New("room is closed")

	// ErrRoomNotFound is returned when an operation requires an existing room.
	ErrRoomNotFound = errors.New("room not found")

	// ErrSequencerFault marks a broken sequence invariant. Structurally this
	// cannot happen with the locked counter; observing it means a bug, and the
	// affected room is closed so a fresh one can be created.
	ErrSequencerFault = errors.New("sequencer fault: non-monotonic assignment")
)

// Participant is one live connection inside a room. A user on several devices
// holds several Participants; each connection is treated independently.
type Participant struct {
	ID       string    `json:"id"` // connection identifier
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
	Muted    bool      `json:"muted"`
	VideoOn  bool      `json:"video_on"`
}

// maxLogTail bounds the in-memory event log. The full stream is persisted by
// the archiver; memory only keeps what the live view can serve.
const maxLogTail = 256

// Room holds one meeting's collaboration state. Exported methods take the
// room's own lock; callers never lock it themselves.
type Room struct {
	ID string

	mu            sync.Mutex
	state         State
	members       map[string]Participant
	seq           uint64
	lastPublished uint64
	logTail       []events.LogLine
	currentAction string
	createdAt     time.Time
	updatedAt     time.Time
}

func newRoom(id string) *Room {
	now := time.Now()
	return &Room{
		ID:        id,
		state:     StateActive,
		members:   make(map[string]Participant),
		createdAt: now,
		updatedAt: now,
	}
}

// State returns the room's lifecycle state.
func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Members returns a snapshot of the current participant set.
func (r *Room) Members() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.membersLocked()
}

func (r *Room) membersLocked() []Participant {
	out := make([]Participant, 0, len(r.members))
	for _, p := range r.members {
		out = append(out, p)
	}
	return out
}

func (r *Room) memberConnsLocked() []string {
	out := make([]string, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	return out
}

// IsMember reports whether the participant is currently joined.
func (r *Room) IsMember(participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[participantID]
	return ok
}

// SetCurrentAction updates the short status line shown in the live view.
func (r *Room) SetCurrentAction(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentAction = action
	r.updatedAt = time.Now()
}

// LiveState renders the one-shot snapshot for a polling client: lifecycle
// status plus the last n log lines. It never replays the full backlog.
func (r *Room) LiveState(n int) events.LiveState {
	r.mu.Lock()
	defer r.mu.Unlock()

	tail := r.logTail
	if n > 0 && len(tail) > n {
		tail = tail[len(tail)-n:]
	}
	logs := make([]events.LogLine, len(tail))
	copy(logs, tail)

	return events.LiveState{
		Active:        r.state == StateActive,
		Status:        string(r.state),
		CurrentAction: r.currentAction,
		MemberCount:   len(r.members),
		Logs:          logs,
		UpdatedAt:     r.updatedAt,
	}
}

func (r *Room) appendLogLocked(line events.LogLine) {
	r.logTail = append(r.logTail, line)
	if len(r.logTail) > maxLogTail {
		r.logTail = r.logTail[len(r.logTail)-maxLogTail:]
	}
	r.updatedAt = line.Timestamp
}
