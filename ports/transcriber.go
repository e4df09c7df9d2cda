package ports

import (
	"context"

	"intervox/domain/recording"
	"intervox/models"
)

// TranscribeOptions tunes one transcription request
type TranscribeOptions struct {
	Language    string
	Temperature float64
}

// Transcriber converts one audio artifact into text. Every outcome,
// including transport failure, is normalized into the result shape; raw
// errors never escape this boundary.
type Transcriber interface {
	Transcribe(ctx context.Context, artifact recording.Artifact, opts TranscribeOptions) models.TranscriptionResult
}
