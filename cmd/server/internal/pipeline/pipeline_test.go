package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livemeet/livemeet/cmd/server/internal/config"
	"github.com/livemeet/livemeet/cmd/server/internal/events"
	"github.com/livemeet/livemeet/cmd/server/internal/room"
	"github.com/livemeet/livemeet/cmd/server/internal/transcribe"
)

type recordingBroadcaster struct {
	mu        sync.Mutex
	delivered []events.Event
}

func (f *recordingBroadcaster) Deliver(connIDs []string, ev events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, ev)
}

func (f *recordingBroadcaster) transcripts() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, ev := range f.delivered {
		if ev.Type == events.TypeNewTranscript {
			out = append(out, ev)
		}
	}
	return out
}

type nullArchiver struct{}

func (nullArchiver) AppendTranscript(events.Transcript) error { return nil }
func (nullArchiver) AppendActionItem(events.ActionItem) error { return nil }
func (nullArchiver) Archive(room.Archive) error               { return nil }

type scriptedTranscriber struct {
	fn func(ctx context.Context, audio []byte) (*transcribe.Result, error)
}

func (s *scriptedTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string, opts *transcribe.Options) (*transcribe.Result, error) {
	return s.fn(ctx, audio)
}

func (s *scriptedTranscriber) HealthCheck(ctx context.Context) (bool, error) { return true, nil }
func (s *scriptedTranscriber) Name() string                                  { return "scripted" }

type recordingExtractor struct {
	mu    sync.Mutex
	calls []events.Transcript
}

func (r *recordingExtractor) MaybeExtract(ctx context.Context, roomID string, tr events.Transcript) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, tr)
}

func (r *recordingExtractor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestPipeline(t *testing.T, tr transcribe.Transcriber) (*Pipeline, *room.Registry, *recordingBroadcaster, *recordingExtractor) {
	t.Helper()
	b := &recordingBroadcaster{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := room.NewManager(b, nullArchiver{}, log)
	reg := room.NewRegistry(mgr)
	ext := &recordingExtractor{}
	p := New(reg, mgr, tr, NewFilter(config.DefaultFilterPolicy()), ext, log, 4, 5*time.Second)
	return p, reg, b, ext
}

func join(t *testing.T, reg *room.Registry, roomID, connID, name string) {
	t.Helper()
	_, err := reg.Join(roomID, room.Participant{ID: connID, UserID: "user-" + connID, Name: name})
	require.NoError(t, err)
}

func TestSubmitChunkSequencesTranscript(t *testing.T) {
	tr := &scriptedTranscriber{fn: func(context.Context, []byte) (*transcribe.Result, error) {
		return &transcribe.Result{Text: "Let's review the launch checklist"}, nil
	}}
	p, reg, b, ext := newTestPipeline(t, tr)
	join(t, reg, "room-1", "c1", "Dana")

	captured := time.Now().Add(-2 * time.Second)
	outcome, err := p.SubmitChunk(context.Background(), "room-1", "c1", []byte("pcm"), "audio/webm", captured)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSequenced, outcome)

	evs := b.transcripts()
	require.Len(t, evs, 1)
	got := evs[0].Transcript
	assert.Equal(t, "Let's review the launch checklist", got.Text)
	assert.Equal(t, "Dana", got.Speaker)
	assert.Equal(t, "user-c1", got.UserID)
	assert.True(t, got.CapturedAt.Equal(captured))
	assert.NotZero(t, got.Seq)
	assert.NotEmpty(t, got.ID)

	assert.Eventually(t, func() bool { return ext.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSubmitChunkRejectsNonMember(t *testing.T) {
	tr := &scriptedTranscriber{fn: func(context.Context, []byte) (*transcribe.Result, error) {
		t.Fatal("transcriber must not be called for non-members")
		return nil, nil
	}}
	p, reg, b, _ := newTestPipeline(t, tr)
	join(t, reg, "room-1", "c1", "Dana")

	outcome, err := p.SubmitChunk(context.Background(), "room-1", "intruder", []byte("pcm"), "audio/webm", time.Now())
	assert.Equal(t, OutcomeDropped, outcome)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, NOT_IN_ROOM, perr.Code)
	assert.Empty(t, b.transcripts())
}

func TestArtifactResultIsFiltered(t *testing.T) {
	tr := &scriptedTranscriber{fn: func(context.Context, []byte) (*transcribe.Result, error) {
		return &transcribe.Result{Text: " Thanks for watching! Please subscribe! "}, nil
	}}
	p, reg, b, ext := newTestPipeline(t, tr)
	join(t, reg, "room-1", "c1", "Dana")

	outcome, err := p.SubmitChunk(context.Background(), "room-1", "c1", []byte("pcm"), "audio/webm", time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFiltered, outcome)
	assert.Empty(t, b.transcripts())
	assert.Zero(t, ext.count())
}

func TestShortResultTreatedAsSilence(t *testing.T) {
	tr := &scriptedTranscriber{fn: func(context.Context, []byte) (*transcribe.Result, error) {
		return &transcribe.Result{Text: "uh"}, nil
	}}
	p, reg, b, _ := newTestPipeline(t, tr)
	join(t, reg, "room-1", "c1", "Dana")

	outcome, err := p.SubmitChunk(context.Background(), "room-1", "c1", []byte("pcm"), "audio/webm", time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFiltered, outcome)
	assert.Empty(t, b.transcripts())
}

func TestTranscriberFailureDropsChunk(t *testing.T) {
	var calls int
	tr := &scriptedTranscriber{fn: func(context.Context, []byte) (*transcribe.Result, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("upstream 503")
		}
		return &transcribe.Result{Text: "second chunk made it through"}, nil
	}}
	p, reg, b, _ := newTestPipeline(t, tr)
	join(t, reg, "room-1", "c1", "Dana")

	outcome, err := p.SubmitChunk(context.Background(), "room-1", "c1", []byte("one"), "audio/webm", time.Now())
	assert.Equal(t, OutcomeDropped, outcome)
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, TRANSCRIBE_FAILED, perr.Code)

	// Chunks are independent: the failure is not retried and the next chunk
	// proceeds normally.
	outcome, err = p.SubmitChunk(context.Background(), "room-1", "c1", []byte("two"), "audio/webm", time.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSequenced, outcome)
	assert.Equal(t, 2, calls)

	evs := b.transcripts()
	require.Len(t, evs, 1)
	assert.Equal(t, "second chunk made it through", evs[0].Transcript.Text)
}

func TestOutOfOrderCompletionStillSequenced(t *testing.T) {
	// The slow chunk is submitted first but finishes last; sequence numbers
	// follow completion order and stay strictly increasing in delivery order.
	tr := &scriptedTranscriber{fn: func(_ context.Context, audio []byte) (*transcribe.Result, error) {
		if string(audio) == "slow" {
			time.Sleep(150 * time.Millisecond)
			return &transcribe.Result{Text: "slow chunk finished last"}, nil
		}
		return &transcribe.Result{Text: fmt.Sprintf("fast chunk %s", audio)}, nil
	}}
	p, reg, b, _ := newTestPipeline(t, tr)
	join(t, reg, "room-1", "c1", "Dana")

	var wg sync.WaitGroup
	submit := func(payload string, delay time.Duration) {
		defer wg.Done()
		time.Sleep(delay)
		_, err := p.SubmitChunk(context.Background(), "room-1", "c1", []byte(payload), "audio/webm", time.Now())
		assert.NoError(t, err)
	}
	wg.Add(3)
	go submit("slow", 0)
	go submit("a", 20*time.Millisecond)
	go submit("b", 40*time.Millisecond)
	wg.Wait()

	evs := b.transcripts()
	require.Len(t, evs, 3)
	for i, ev := range evs {
		assert.Equal(t, uint64(i+1), ev.Transcript.Seq)
	}
	assert.Equal(t, "slow chunk finished last", evs[2].Transcript.Text)
}

func TestRoomClosedWhileTranscribing(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	tr := &scriptedTranscriber{fn: func(context.Context, []byte) (*transcribe.Result, error) {
		close(started)
		<-release
		return &transcribe.Result{Text: "result for a room that no longer exists"}, nil
	}}
	p, reg, b, ext := newTestPipeline(t, tr)
	join(t, reg, "room-1", "c1", "Dana")

	done := make(chan struct{})
	var outcome Outcome
	var err error
	go func() {
		defer close(done)
		outcome, err = p.SubmitChunk(context.Background(), "room-1", "c1", []byte("pcm"), "audio/webm", time.Now())
	}()

	<-started
	require.NoError(t, reg.End("room-1"))
	close(release)
	<-done

	assert.Equal(t, OutcomeDropped, outcome)
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ROOM_CLOSED, perr.Code)
	assert.Empty(t, b.transcripts())
	assert.Zero(t, ext.count())
}

func TestReleaseRoomDropsConcurrencyState(t *testing.T) {
	tr := &scriptedTranscriber{fn: func(context.Context, []byte) (*transcribe.Result, error) {
		return &transcribe.Result{Text: "after release the room state is rebuilt"}, nil
	}}
	p, reg, _, _ := newTestPipeline(t, tr)
	join(t, reg, "room-1", "c1", "Dana")

	_, err := p.SubmitChunk(context.Background(), "room-1", "c1", []byte("pcm"), "audio/webm", time.Now())
	require.NoError(t, err)

	p.ReleaseRoom("room-1")

	p.mu.Lock()
	_, ok := p.sems["room-1"]
	p.mu.Unlock()
	assert.False(t, ok)
}
