package ports

import (
	"context"

	"intervox/models"

	"github.com/google/uuid"
)

// SessionStore persists interview sessions and their answers to an
// external document store. The boundary is at-least-once, best-effort:
// callers treat write failures as advisory warnings, not fatal errors.
type SessionStore interface {
	// CreateSession writes the initial durable record at session start
	CreateSession(ctx context.Context, session *models.InterviewSession) error

	// SaveAnswer appends one answer record as a discrete write so partial
	// progress survives a crash
	SaveAnswer(ctx context.Context, answer *models.AnswerRecord) error

	// CompleteSession writes the final aggregate fields
	CompleteSession(ctx context.Context, session *models.InterviewSession) error

	// GetSession retrieves a session with its answers
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.InterviewSession, error)
}
