// Package events defines the wire-level event types exchanged with room clients
// and the immutable records appended to a room's event log.
package events

import "time"

// Type identifies an event on the wire.
type Type string

const (
	TypeUserJoined    Type = "user-joined"
	TypeUserLeft      Type = "user-left"
	TypeProcessing    Type = "transcription-processing"
	TypeNewTranscript Type = "new-transcript"
	TypeNewActionItem Type = "new-action-item"
	TypeLiveState     Type = "live-state"
	TypeError         Type = "error"
)

// Transcript is one sequenced utterance in a room. Immutable once sequenced.
// Seq reflects sequencer assignment order; CapturedAt is display metadata and
// may disagree with Seq order when chunks complete transcription out of order.
type Transcript struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"room_id"`
	ParticipantID string    `json:"participant_id"`
	UserID        string    `json:"user_id"`
	Speaker       string    `json:"speaker"`
	Text          string    `json:"text"`
	CapturedAt    time.Time `json:"captured_at"`
	Seq           uint64    `json:"seq"`
}

// ActionItem is one extracted actionable item. Immutable once emitted.
type ActionItem struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"room_id"`
	TranscriptID string    `json:"transcript_id"`
	Description  string    `json:"description"`
	Assignee     string    `json:"assignee,omitempty"`
	Deadline     string    `json:"deadline,omitempty"`
	DedupKey     string    `json:"dedup_key"`
	CreatedAt    time.Time `json:"created_at"`
	Seq          uint64    `json:"seq"`
}

// Presence describes a membership change.
type Presence struct {
	ParticipantID string `json:"participant_id"`
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	MemberCount   int    `json:"member_count"`
}

// Event is the envelope delivered to connected clients. Exactly one payload
// field is set, matching Type. Room-ordered events carry Seq; connection-scoped
// acks and errors do not.
type Event struct {
	Type       Type        `json:"type"`
	RoomID     string      `json:"room_id,omitempty"`
	Seq        uint64      `json:"seq,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Transcript *Transcript `json:"transcript,omitempty"`
	ActionItem *ActionItem `json:"action_item,omitempty"`
	Presence   *Presence   `json:"presence,omitempty"`
	LiveState  *LiveState  `json:"live_state,omitempty"`
	Message    string      `json:"message,omitempty"`
	Code       string      `json:"code,omitempty"`
}

// LiveState is the one-shot snapshot served to a polling or newly joined
// client: current status plus a bounded tail of recent log lines, never the
// full historical backlog.
type LiveState struct {
	Active        bool      `json:"active"`
	Status        string    `json:"status"`
	CurrentAction string    `json:"current_action,omitempty"`
	MemberCount   int       `json:"member_count"`
	Logs          []LogLine `json:"logs"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LogLine is one rendered entry of a room's recent activity.
type LogLine struct {
	Seq       uint64    `json:"seq"`
	Kind      string    `json:"kind"` // transcript, action-item, presence
	Speaker   string    `json:"speaker,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
