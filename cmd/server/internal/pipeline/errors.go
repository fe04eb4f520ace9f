package pipeline

import (
	"fmt"
	"time"
)

// ErrorCode classifies pipeline failures for logging and client error events.
type ErrorCode string

const (
	NOT_IN_ROOM       ErrorCode = "NOT_IN_ROOM"
	ROOM_CLOSED       ErrorCode = "ROOM_CLOSED"
	TRANSCRIBE_FAILED ErrorCode = "TRANSCRIBE_FAILED"
	EXTRACT_FAILED    ErrorCode = "EXTRACT_FAILED"
)

// PipelineError carries a stable code alongside the underlying cause.
type PipelineError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError creates a coded pipeline error.
func NewPipelineError(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewNotInRoomError reports a chunk submitted by a non-member.
func NewNotInRoomError(roomID, participantID string) *PipelineError {
	return NewPipelineError(NOT_IN_ROOM,
		fmt.Sprintf("participant %s is not a member of room %s", participantID, roomID), nil)
}

// NewRoomClosedError reports a chunk whose room closed mid-flight.
func NewRoomClosedError(roomID string) *PipelineError {
	return NewPipelineError(ROOM_CLOSED,
		fmt.Sprintf("room %s is closed", roomID), nil)
}

// NewTranscribeError reports a failed transcription capability call.
func NewTranscribeError(roomID string, cause error) *PipelineError {
	return NewPipelineError(TRANSCRIBE_FAILED,
		fmt.Sprintf("transcription failed for room %s", roomID), cause)
}
