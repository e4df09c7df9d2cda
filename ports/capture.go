package ports

import (
	"context"
	"io"
)

// CaptureConfig describes how the microphone should be captured
type CaptureConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// CaptureStream is a live microphone stream
type CaptureStream interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture acquires microphone capture streams. The microphone is an
// exclusive resource; callers must release a stream before starting another.
type AudioCapture interface {
	Start(ctx context.Context, cfg CaptureConfig) (CaptureStream, error)
}
