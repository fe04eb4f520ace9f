package extract

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/livemeet/livemeet/cmd/server/internal/events"
	"github.com/livemeet/livemeet/cmd/server/internal/metrics"
	"github.com/livemeet/livemeet/cmd/server/internal/room"
)

// Publisher sequences and fans out an action item; the room manager
// implements it.
type Publisher interface {
	PublishActionItem(roomID string, draft events.ActionItem) (events.ActionItem, error)
}

// roomState is the per-session dedup memory of one room, released on close.
type roomState struct {
	prevWindow   string
	emitted      map[string]struct{}
	fingerprints []uint64
}

// Gateway runs the two-stage extraction flow: cheap pre-check, capability
// call with prior-window context, then dedup before publishing.
type Gateway struct {
	analyzer  Analyzer
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration

	mu    sync.Mutex
	rooms map[string]*roomState
}

// NewGateway creates an extractor gateway.
func NewGateway(analyzer Analyzer, publisher Publisher, logger *slog.Logger, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Gateway{
		analyzer:  analyzer,
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
		rooms:     make(map[string]*roomState),
	}
}

func (g *Gateway) stateFor(roomID string) *roomState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.rooms[roomID]
	if !ok {
		st = &roomState{emitted: make(map[string]struct{})}
		g.rooms[roomID] = st
	}
	return st
}

// MaybeExtract runs the extraction flow for one sequenced transcript. Errors
// from the capability are logged and swallowed: extraction is an enhancement,
// never a correctness path.
func (g *Gateway) MaybeExtract(ctx context.Context, roomID string, tr events.Transcript) {
	st := g.stateFor(roomID)

	g.mu.Lock()
	prior := st.prevWindow
	st.prevWindow = tr.Text
	g.mu.Unlock()

	if !looksActionable(tr.Text) {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	items, err := g.analyzer.Extract(callCtx, tr.Text, prior)
	metrics.RecordCapabilityCall("extract", err == nil)
	if err != nil {
		g.logger.Error("action item extraction failed",
			"room_id", roomID,
			"seq", tr.Seq,
			"analyzer", g.analyzer.Name(),
			"duration_ms", time.Since(started).Milliseconds(),
			"error", err,
		)
		return
	}

	for _, item := range items {
		if item.Description == "" {
			continue
		}
		g.emit(roomID, tr, item, st)
	}
}

// emit publishes one item unless its dedup key or fingerprint was already
// announced this session. Key reservation happens before publishing so two
// concurrent extractions cannot both emit the same item.
func (g *Gateway) emit(roomID string, tr events.Transcript, item Item, st *roomState) {
	key := DedupKey(item.Description)
	fp := fingerprint(item.Description)

	g.mu.Lock()
	if _, dup := st.emitted[key]; dup || isNearDuplicate(fp, st.fingerprints) {
		g.mu.Unlock()
		metrics.RecordActionItem(false)
		g.logger.Debug("action item suppressed as duplicate", "room_id", roomID, "dedup_key", key)
		return
	}
	st.emitted[key] = struct{}{}
	st.fingerprints = append(st.fingerprints, fp)
	g.mu.Unlock()

	_, err := g.publisher.PublishActionItem(roomID, events.ActionItem{
		TranscriptID: tr.ID,
		Description:  item.Description,
		Assignee:     item.Assignee,
		Deadline:     item.Deadline,
		DedupKey:     key,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomClosed) || errors.Is(err, room.ErrRoomNotFound) {
			// Room went away while extracting; result is discarded.
			return
		}
		g.logger.Error("action item publish failed", "room_id", roomID, "error", err)
		return
	}
	metrics.RecordActionItem(true)
}

// ReleaseRoom drops the room's dedup memory; wired to the lifecycle manager's
// close hook. Dedup scope is the room session.
func (g *Gateway) ReleaseRoom(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, roomID)
}
