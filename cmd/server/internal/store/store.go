package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/livemeet/livemeet/cmd/server/internal/events"
	"github.com/livemeet/livemeet/cmd/server/internal/room"
)

// FileArchiver persists room history on local disk. Each room gets its own
// directory under the data root, with an append-only events.jsonl written as
// records are sequenced and an archive.json snapshot written when the room
// closes. The snapshot goes through a temp file and rename so a crash never
// leaves a half-written archive.
type FileArchiver struct {
	root   string
	logger *slog.Logger

	mu    sync.Mutex
	files map[string]*os.File // roomID -> open journal
}

// NewFileArchiver creates an archiver rooted at dir, creating it if needed.
func NewFileArchiver(dir string, logger *slog.Logger) (*FileArchiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create rooms dir: %w", err)
	}
	return &FileArchiver{
		root:   dir,
		logger: logger,
		files:  make(map[string]*os.File),
	}, nil
}

func (s *FileArchiver) roomDir(roomID string) string {
	return filepath.Join(s.root, roomID)
}

// journalFor returns the open journal for a room, opening it on first use.
// Caller must hold s.mu.
func (s *FileArchiver) journalFor(roomID string) (*os.File, error) {
	if f, ok := s.files[roomID]; ok {
		return f, nil
	}
	dir := s.roomDir(roomID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create room dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	s.files[roomID] = f
	return f, nil
}

type journalRecord struct {
	Kind       string             `json:"kind"`
	Transcript *events.Transcript `json:"transcript,omitempty"`
	ActionItem *events.ActionItem `json:"action_item,omitempty"`
}

func (s *FileArchiver) appendRecord(roomID string, rec journalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.journalFor(roomID)
	if err != nil {
		return err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode journal record: %w", err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	return nil
}

// AppendTranscript writes one sequenced transcript to the room journal.
func (s *FileArchiver) AppendTranscript(t events.Transcript) error {
	return s.appendRecord(t.RoomID, journalRecord{Kind: "transcript", Transcript: &t})
}

// AppendActionItem writes one sequenced action item to the room journal.
func (s *FileArchiver) AppendActionItem(it events.ActionItem) error {
	return s.appendRecord(it.RoomID, journalRecord{Kind: "action_item", ActionItem: &it})
}

// Archive writes the closing snapshot and closes the room journal.
func (s *FileArchiver) Archive(a room.Archive) error {
	s.mu.Lock()
	if f, ok := s.files[a.RoomID]; ok {
		if err := f.Close(); err != nil {
			s.logger.Warn("journal close failed", "room_id", a.RoomID, "error", err)
		}
		delete(s.files, a.RoomID)
	}
	s.mu.Unlock()

	dir := s.roomDir(a.RoomID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create room dir: %w", err)
	}

	path := filepath.Join(dir, "archive.json")
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		f.Close()
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return os.Rename(tmp, path)
}

// Close closes any journals still open, for shutdown.
func (s *FileArchiver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.files {
		if err := f.Close(); err != nil {
			s.logger.Warn("journal close failed", "room_id", id, "error", err)
		}
		delete(s.files, id)
	}
	return nil
}

// DiscardArchiver drops everything. Used when persistence is disabled.
type DiscardArchiver struct{}

func (DiscardArchiver) AppendTranscript(events.Transcript) error { return nil }
func (DiscardArchiver) AppendActionItem(events.ActionItem) error { return nil }
func (DiscardArchiver) Archive(room.Archive) error               { return nil }
