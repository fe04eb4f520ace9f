package store

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livemeet/livemeet/cmd/server/internal/events"
	"github.com/livemeet/livemeet/cmd/server/internal/room"
)

func newTestArchiver(t *testing.T) *FileArchiver {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewFileArchiver(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func readJournal(t *testing.T, s *FileArchiver, roomID string) []journalRecord {
	t.Helper()
	f, err := os.Open(filepath.Join(s.root, roomID, "events.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var recs []journalRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec journalRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.NoError(t, sc.Err())
	return recs
}

func TestJournalAppendsInOrder(t *testing.T) {
	s := newTestArchiver(t)

	require.NoError(t, s.AppendTranscript(events.Transcript{
		ID: "t1", RoomID: "room-1", Speaker: "Dana", Text: "first", Seq: 1,
	}))
	require.NoError(t, s.AppendActionItem(events.ActionItem{
		ID: "a1", RoomID: "room-1", Description: "send the report", Seq: 2,
	}))
	require.NoError(t, s.AppendTranscript(events.Transcript{
		ID: "t2", RoomID: "room-1", Speaker: "Sam", Text: "second", Seq: 3,
	}))

	recs := readJournal(t, s, "room-1")
	require.Len(t, recs, 3)
	assert.Equal(t, "transcript", recs[0].Kind)
	assert.Equal(t, "first", recs[0].Transcript.Text)
	assert.Equal(t, "action_item", recs[1].Kind)
	assert.Equal(t, "send the report", recs[1].ActionItem.Description)
	assert.Equal(t, uint64(3), recs[2].Transcript.Seq)
}

func TestRoomsJournalSeparately(t *testing.T) {
	s := newTestArchiver(t)

	require.NoError(t, s.AppendTranscript(events.Transcript{ID: "t1", RoomID: "room-a", Text: "alpha", Seq: 1}))
	require.NoError(t, s.AppendTranscript(events.Transcript{ID: "t2", RoomID: "room-b", Text: "bravo", Seq: 1}))

	assert.Equal(t, "alpha", readJournal(t, s, "room-a")[0].Transcript.Text)
	assert.Equal(t, "bravo", readJournal(t, s, "room-b")[0].Transcript.Text)
}

func TestArchiveWritesSnapshotAndClosesJournal(t *testing.T) {
	s := newTestArchiver(t)

	require.NoError(t, s.AppendTranscript(events.Transcript{ID: "t1", RoomID: "room-1", Text: "hello", Seq: 1}))

	closed := time.Now()
	require.NoError(t, s.Archive(room.Archive{
		RoomID:    "room-1",
		CreatedAt: closed.Add(-time.Hour),
		ClosedAt:  closed,
		LastSeq:   1,
		Reason:    "meeting ended",
		EventTail: []events.LogLine{{Seq: 1, Kind: "transcript", Text: "hello"}},
	}))

	b, err := os.ReadFile(filepath.Join(s.root, "room-1", "archive.json"))
	require.NoError(t, err)
	var a room.Archive
	require.NoError(t, json.Unmarshal(b, &a))
	assert.Equal(t, "room-1", a.RoomID)
	assert.Equal(t, uint64(1), a.LastSeq)
	assert.Equal(t, "meeting ended", a.Reason)
	require.Len(t, a.EventTail, 1)

	// No temp file left behind.
	_, err = os.Stat(filepath.Join(s.root, "room-1", "archive.json.tmp"))
	assert.True(t, os.IsNotExist(err))

	s.mu.Lock()
	_, open := s.files["room-1"]
	s.mu.Unlock()
	assert.False(t, open)
}

func TestArchiveWithoutJournalStillWrites(t *testing.T) {
	s := newTestArchiver(t)

	require.NoError(t, s.Archive(room.Archive{RoomID: "empty-room", Reason: "meeting ended"}))
	_, err := os.Stat(filepath.Join(s.root, "empty-room", "archive.json"))
	assert.NoError(t, err)
}
