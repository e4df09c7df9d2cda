package ports

import (
	"context"

	"intervox/models"
)

// AnalyzeRequest carries one transcript plus its question context
type AnalyzeRequest struct {
	Transcript           string
	Question             models.Question
	AudioDurationSeconds int
	TranscriptionConf    float64
}

// Analyzer submits a transcript for AI evaluation. Implementations must
// always return a structurally valid analysis, substituting the
// deterministic fallback on any failure; that contract is what lets the
// pipeline proceed without special-casing analysis errors.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) *models.AnswerAnalysis
}
