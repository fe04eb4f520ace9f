// Package transcribe abstracts the external transcription capability. The core
// treats transcription as an opaque call: audio bytes in, text out. Concrete
// implementations cover an HTTP whisper-style service and a degraded-mode mock
// so the room core keeps running when the service is down.
package transcribe

import (
	"context"
	"time"
)

// Result is the outcome of one transcription call.
type Result struct {
	// Text is the transcribed text for the submitted chunk.
	Text string `json:"text"`

	// Language is the detected language code (e.g. "en"), when reported.
	Language string `json:"language"`

	// Duration is the audio duration in seconds, when reported.
	Duration float64 `json:"duration"`
}

// Options carries optional transcription parameters.
type Options struct {
	// Model selects the model variant (e.g. "base", "small"). Empty uses the
	// service default.
	Model string

	// Language forces a language instead of auto-detection.
	Language string

	// Prompt provides context for domain terminology.
	Prompt string

	// Timeout overrides the client's default per-call timeout.
	Timeout time.Duration
}

// Transcriber is the transcription capability contract.
//
// Implementations must respect context cancellation and wrap transport errors
// with context. An empty transcription is a valid Result with empty Text, not
// an error; the pipeline's filter decides what counts as silence.
type Transcriber interface {
	// Transcribe converts one audio chunk to text. mimeType describes the
	// payload encoding (e.g. "audio/webm", "audio/wav").
	Transcribe(ctx context.Context, audio []byte, mimeType string, opts *Options) (*Result, error)

	// HealthCheck reports whether the capability is ready. Used by the health
	// endpoint; must be cheap.
	HealthCheck(ctx context.Context) (bool, error)

	// Name identifies the implementation in logs and health output.
	Name() string
}
