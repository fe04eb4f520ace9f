package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/livemeet/livemeet/cmd/server/internal/events"
	"github.com/livemeet/livemeet/cmd/server/internal/metrics"
	"github.com/livemeet/livemeet/cmd/server/internal/room"
	"github.com/livemeet/livemeet/cmd/server/internal/transcribe"
	"github.com/livemeet/livemeet/pkg/logger"
)

// Outcome is the disposition of one submitted chunk.
type Outcome string

const (
	// OutcomeSequenced means the chunk produced a published transcript.
	OutcomeSequenced Outcome = "sequenced"
	// OutcomeFiltered means transcription succeeded but the result was
	// treated as silence or a known artifact. Not an error.
	OutcomeFiltered Outcome = "filtered"
	// OutcomeDropped means the chunk was discarded after a failure. Chunks
	// are never retried; the next chunk proceeds independently.
	OutcomeDropped Outcome = "dropped"
)

// Extractor receives sequenced transcripts for action item detection.
type Extractor interface {
	MaybeExtract(ctx context.Context, roomID string, tr events.Transcript)
}

// Pipeline drives one audio chunk from submission to a published transcript:
// membership check, transcription with a per-room concurrency cap, artifact
// filtering, sequencing, then asynchronous action item extraction.
type Pipeline struct {
	registry    *room.Registry
	manager     *room.Manager
	transcriber transcribe.Transcriber
	filter      *Filter
	extractor   Extractor
	logger      *slog.Logger

	timeout    time.Duration
	maxPerRoom int64

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// New creates a pipeline. maxPerRoom caps in-flight transcriptions per room;
// timeout bounds each transcription call.
func New(registry *room.Registry, manager *room.Manager, transcriber transcribe.Transcriber,
	filter *Filter, extractor Extractor, log *slog.Logger, maxPerRoom int64, timeout time.Duration) *Pipeline {
	if maxPerRoom < 1 {
		maxPerRoom = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pipeline{
		registry:    registry,
		manager:     manager,
		transcriber: transcriber,
		filter:      filter,
		extractor:   extractor,
		logger:      log,
		timeout:     timeout,
		maxPerRoom:  maxPerRoom,
		sems:        make(map[string]*semaphore.Weighted),
	}
}

func (p *Pipeline) semFor(roomID string) *semaphore.Weighted {
	p.mu.Lock()
	defer p.mu.Unlock()
	sem, ok := p.sems[roomID]
	if !ok {
		sem = semaphore.NewWeighted(p.maxPerRoom)
		p.sems[roomID] = sem
	}
	return sem
}

// ReleaseRoom drops the room's concurrency state; wired to the lifecycle
// manager's close hook.
func (p *Pipeline) ReleaseRoom(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sems, roomID)
}

// SubmitChunk processes one audio chunk end to end. It blocks for the
// transcription stage (bounded by the per-room cap and the call timeout) and
// returns once the transcript is sequenced; extraction continues in the
// background. A failed chunk is dropped, never retried.
func (p *Pipeline) SubmitChunk(ctx context.Context, roomID, participantID string,
	audio []byte, mimeType string, capturedAt time.Time) (Outcome, error) {

	member, ok := p.registry.Member(roomID, participantID)
	if !ok {
		metrics.RecordChunk("rejected")
		return OutcomeDropped, NewNotInRoomError(roomID, participantID)
	}

	sem := p.semFor(roomID)
	if err := sem.Acquire(ctx, 1); err != nil {
		metrics.RecordChunk("dropped")
		return OutcomeDropped, NewPipelineError(TRANSCRIBE_FAILED, "chunk submission cancelled", err)
	}
	defer sem.Release(1)

	if r := p.manager.Get(roomID); r != nil {
		r.SetCurrentAction(fmt.Sprintf("Transcribing audio from %s", member.Name))
		defer r.SetCurrentAction("")
	}

	started := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.transcriber.Transcribe(callCtx, audio, mimeType, &transcribe.Options{Timeout: p.timeout})
	metrics.RecordCapabilityCall("transcribe", err == nil)
	if err != nil {
		metrics.RecordChunk("dropped")
		logger.LogChunkProcessing(p.logger, "pipeline", "transcribe", roomID, 0,
			time.Since(started).Milliseconds(), string(TRANSCRIBE_FAILED))
		return OutcomeDropped, NewTranscribeError(roomID, err)
	}

	if reason, pass := p.filter.Check(res.Text); !pass {
		metrics.RecordFiltered(reason)
		metrics.RecordChunk("filtered")
		p.logger.Debug("transcription result filtered",
			"room_id", roomID,
			"participant_id", participantID,
			"reason", reason,
		)
		return OutcomeFiltered, nil
	}

	tr, err := p.manager.PublishTranscript(roomID, events.Transcript{
		ParticipantID: participantID,
		UserID:        member.UserID,
		Speaker:       member.Name,
		Text:          res.Text,
		CapturedAt:    capturedAt,
	})
	if err != nil {
		metrics.RecordChunk("dropped")
		if errors.Is(err, room.ErrRoomClosed) || errors.Is(err, room.ErrRoomNotFound) {
			// Room went away while transcribing; the result is discarded.
			return OutcomeDropped, NewRoomClosedError(roomID)
		}
		p.logger.Error("transcript publish failed", "room_id", roomID, "error", err)
		return OutcomeDropped, NewPipelineError(TRANSCRIBE_FAILED, "transcript publish failed", err)
	}

	go p.extractor.MaybeExtract(context.Background(), roomID, tr)

	metrics.RecordChunk("sequenced")
	metrics.RecordChunkDuration(time.Since(started).Seconds())
	logger.LogChunkProcessing(p.logger, "pipeline", "chunk_sequenced", roomID,
		int64(tr.Seq), time.Since(started).Milliseconds(), "")
	return OutcomeSequenced, nil
}
