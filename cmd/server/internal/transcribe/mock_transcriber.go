package transcribe

import (
	"context"
	"log/slog"
)

// MockTranscriber is the degraded-mode fallback used when no transcription
// service is configured or reachable. It returns empty results without
// blocking, so rooms keep working (presence, membership, live view) while
// transcription is unavailable. Empty text is filtered as silence downstream,
// so no events are emitted.
type MockTranscriber struct {
	logger *slog.Logger
}

// NewMockTranscriber creates the degraded-mode transcriber.
func NewMockTranscriber(logger *slog.Logger) *MockTranscriber {
	return &MockTranscriber{logger: logger}
}

// Transcribe returns an empty result and never errors.
func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string, opts *Options) (*Result, error) {
	m.logger.Warn("mock transcriber invoked, transcription unavailable", "bytes", len(audio), "mime", mimeType)
	return &Result{Text: "", Language: "unknown"}, nil
}

// HealthCheck always reports unhealthy: the mock is a degraded state, and the
// health endpoint should say so.
func (m *MockTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	return false, nil
}

// Name identifies this implementation.
func (m *MockTranscriber) Name() string {
	return "mock-degraded"
}
