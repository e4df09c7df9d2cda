package ports

import (
	"context"

	"intervox/domain/recording"
)

// Recorder drives one microphone-backed recording session: stream
// acquisition, the one-second elapsed clock, and defensive teardown.
type Recorder interface {
	// StartRecording acquires the microphone and begins capture. Device or
	// permission failures are terminal for the attempt; no retry happens
	// automatically and the session stays idle.
	StartRecording(ctx context.Context) error

	// TogglePause pauses or resumes capture and the elapsed clock in lockstep
	TogglePause() error

	// StopRecording finalizes the artifact and releases the microphone.
	// Stopping when nothing is recording is a no-op.
	StopRecording() error

	// Session exposes the underlying state machine for state/artifact reads
	Session() *recording.Session

	// Teardown defensively stops any active stream, clears the clock and
	// releases artifact references regardless of current state
	Teardown()
}
