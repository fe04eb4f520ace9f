package room

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/livemeet/livemeet/cmd/server/internal/events"
	"github.com/livemeet/livemeet/cmd/server/internal/metrics"
)

// Broadcaster delivers an event to a set of connections. Delivery must not
// block the caller; the fan-out hub enqueues per connection and drops slow
// consumers instead of stalling the room.
type Broadcaster interface {
	Deliver(connIDs []string, ev events.Event)
}

// Archiver is the persistence collaborator: append-only writes for sequenced
// records and a final archive when the room closes.
type Archiver interface {
	AppendTranscript(t events.Transcript) error
	AppendActionItem(it events.ActionItem) error
	Archive(a Archive) error
}

// Archive is the final snapshot persisted when a room closes.
type Archive struct {
	RoomID    string           `json:"room_id"`
	CreatedAt time.Time        `json:"created_at"`
	ClosedAt  time.Time        `json:"closed_at"`
	LastSeq   uint64           `json:"last_seq"`
	Reason    string           `json:"reason"`
	EventTail []events.LogLine `json:"event_tail"`
}

// RoomInfo is the operator-facing summary of an active room.
type RoomInfo struct {
	ID          string    `json:"id"`
	State       State     `json:"state"`
	MemberCount int       `json:"member_count"`
	LastSeq     uint64    `json:"last_seq"`
	CreatedAt   time.Time `json:"created_at"`
}

// Manager owns room lifecycle (EMPTY -> ACTIVE -> CLOSED) and the per-room
// sequencer. Closed room ids are tombstoned and never reused.
type Manager struct {
	mu         sync.Mutex
	rooms      map[string]*Room
	tombstones map[string]time.Time

	broadcaster Broadcaster
	archiver    Archiver
	logger      *slog.Logger
	closeHooks  []func(roomID string)
}

// NewManager creates a lifecycle manager with injected collaborators.
func NewManager(b Broadcaster, a Archiver, logger *slog.Logger) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		tombstones:  make(map[string]time.Time),
		broadcaster: b,
		archiver:    a,
		logger:      logger,
	}
}

// OnClose registers a hook invoked after a room transitions to CLOSED.
// Used to release per-room state held elsewhere (dedup sets, hub groups).
func (m *Manager) OnClose(fn func(roomID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeHooks = append(m.closeHooks, fn)
}

// Get returns the live room or nil.
func (m *Manager) Get(roomID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[roomID]
}

// IsClosed reports whether the id belongs to a closed room.
func (m *Manager) IsClosed(roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tombstones[roomID]
	return ok
}

// ListActive returns summaries of all live rooms.
func (m *Manager) ListActive() []RoomInfo {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		out = append(out, RoomInfo{
			ID:          r.ID,
			State:       r.state,
			MemberCount: len(r.members),
			LastSeq:     r.seq,
			CreatedAt:   r.createdAt,
		})
		r.mu.Unlock()
	}
	return out
}

// roomForJoin returns the room for a join, creating it in ACTIVE state on
// first join. Joining a tombstoned id fails: a new meeting needs a new id.
func (m *Manager) roomForJoin(roomID string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, closed := m.tombstones[roomID]; closed {
		return nil, ErrRoomClosed
	}
	if r, ok := m.rooms[roomID]; ok {
		return r, nil
	}

	r := newRoom(roomID)
	m.rooms[roomID] = r
	metrics.OpenRooms.Inc()
	m.logger.Info("room created", "room_id", roomID)
	return r, nil
}

// PublishTranscript assigns the next sequence number to the draft, appends it
// to the room log, persists it and fans it out to the current members. The
// caller's draft must carry speaker and text; Seq, ID and RoomID are set here.
// Results for rooms no longer ACTIVE are discarded with ErrRoomClosed.
func (m *Manager) PublishTranscript(roomID string, draft events.Transcript) (events.Transcript, error) {
	r := m.Get(roomID)
	if r == nil {
		if m.IsClosed(roomID) {
			return events.Transcript{}, ErrRoomClosed
		}
		return events.Transcript{}, ErrRoomNotFound
	}

	r.mu.Lock()
	if r.state != StateActive {
		r.mu.Unlock()
		return events.Transcript{}, ErrRoomClosed
	}

	seq, err := r.nextSeqLocked()
	if err != nil {
		r.mu.Unlock()
		m.Close(roomID, "sequencer fault")
		return events.Transcript{}, err
	}

	draft.Seq = seq
	draft.RoomID = roomID
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}

	now := time.Now()
	r.appendLogLocked(events.LogLine{
		Seq:       seq,
		Kind:      "transcript",
		Speaker:   draft.Speaker,
		Text:      draft.Text,
		Timestamp: now,
	})

	if err := m.archiver.AppendTranscript(draft); err != nil {
		m.logger.Error("transcript persistence failed", "room_id", roomID, "seq", seq, "error", err)
	}

	conns := r.memberConnsLocked()
	ev := events.Event{
		Type:       events.TypeNewTranscript,
		RoomID:     roomID,
		Seq:        seq,
		Timestamp:  now,
		Transcript: &draft,
	}
	metrics.RecordBroadcast(string(ev.Type))
	m.broadcaster.Deliver(conns, ev)
	r.mu.Unlock()

	return draft, nil
}

// PublishActionItem sequences and fans out an extracted action item. Same
// ordering and discard semantics as PublishTranscript.
func (m *Manager) PublishActionItem(roomID string, draft events.ActionItem) (events.ActionItem, error) {
	r := m.Get(roomID)
	if r == nil {
		if m.IsClosed(roomID) {
			return events.ActionItem{}, ErrRoomClosed
		}
		return events.ActionItem{}, ErrRoomNotFound
	}

	r.mu.Lock()
	if r.state != StateActive {
		r.mu.Unlock()
		return events.ActionItem{}, ErrRoomClosed
	}

	seq, err := r.nextSeqLocked()
	if err != nil {
		r.mu.Unlock()
		m.Close(roomID, "sequencer fault")
		return events.ActionItem{}, err
	}

	draft.Seq = seq
	draft.RoomID = roomID
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now()
	}

	r.appendLogLocked(events.LogLine{
		Seq:       seq,
		Kind:      "action-item",
		Text:      draft.Description,
		Timestamp: draft.CreatedAt,
	})

	if err := m.archiver.AppendActionItem(draft); err != nil {
		m.logger.Error("action item persistence failed", "room_id", roomID, "seq", seq, "error", err)
	}

	conns := r.memberConnsLocked()
	ev := events.Event{
		Type:       events.TypeNewActionItem,
		RoomID:     roomID,
		Seq:        seq,
		Timestamp:  draft.CreatedAt,
		ActionItem: &draft,
	}
	metrics.RecordBroadcast(string(ev.Type))
	m.broadcaster.Deliver(conns, ev)
	r.mu.Unlock()

	return draft, nil
}

// publishPresenceLocked sequences a membership change and fans it out to the
// given connections. The caller holds r.mu.
func (m *Manager) publishPresenceLocked(r *Room, typ events.Type, p Participant, conns []string) {
	seq, err := r.nextSeqLocked()
	if err != nil {
		// Leave the room poisoned; the next publish closes it.
		m.logger.Error("presence sequencing failed", "room_id", r.ID, "error", err)
		return
	}

	now := time.Now()
	kindText := p.Name + " joined"
	if typ == events.TypeUserLeft {
		kindText = p.Name + " left"
	}
	r.appendLogLocked(events.LogLine{
		Seq:       seq,
		Kind:      "presence",
		Speaker:   p.Name,
		Text:      kindText,
		Timestamp: now,
	})

	ev := events.Event{
		Type:      typ,
		RoomID:    r.ID,
		Seq:       seq,
		Timestamp: now,
		Presence: &events.Presence{
			ParticipantID: p.ID,
			UserID:        p.UserID,
			UserName:      p.Name,
			MemberCount:   len(r.members),
		},
	}
	metrics.RecordBroadcast(string(typ))
	m.broadcaster.Deliver(conns, ev)
}

// Close transitions a room to CLOSED, writes the final archive, tombstones the
// id and releases in-memory state. Closing an unknown or already closed room
// is a no-op returning ErrRoomNotFound / ErrRoomClosed respectively.
func (m *Manager) Close(roomID, reason string) error {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		if _, closed := m.tombstones[roomID]; closed {
			m.mu.Unlock()
			return ErrRoomClosed
		}
		m.mu.Unlock()
		return ErrRoomNotFound
	}
	delete(m.rooms, roomID)
	m.tombstones[roomID] = time.Now()
	hooks := make([]func(string), len(m.closeHooks))
	copy(hooks, m.closeHooks)
	m.mu.Unlock()

	r.mu.Lock()
	r.state = StateClosed
	archive := Archive{
		RoomID:    r.ID,
		CreatedAt: r.createdAt,
		ClosedAt:  time.Now(),
		LastSeq:   r.seq,
		Reason:    reason,
		EventTail: append([]events.LogLine(nil), r.logTail...),
	}
	// Release membership and counters; the archive is the durable record.
	r.members = map[string]Participant{}
	r.logTail = nil
	r.mu.Unlock()

	metrics.OpenRooms.Dec()
	if err := m.archiver.Archive(archive); err != nil {
		m.logger.Error("room archive failed", "room_id", roomID, "error", err)
	}
	m.logger.Info("room closed", "room_id", roomID, "reason", reason, "last_seq", archive.LastSeq)

	for _, fn := range hooks {
		fn(roomID)
	}
	return nil
}

// CloseAll closes every live room; used during graceful shutdown.
func (m *Manager) CloseAll(reason string) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.Close(id, reason)
	}
}
