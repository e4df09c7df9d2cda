package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"intervox/internal"
	"intervox/internal/errors"
	"intervox/internal/identity"
	"intervox/models"
	"intervox/ports"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
)

// SessionService coordinates one practice interview from start to
// completion: it owns the in-memory session record, advances through the
// question list and mirrors progress to the store. Persistence is
// best-effort: a failed write is downgraded to a warning and the session
// continues in memory, so a flaky database never interrupts an interview.
type SessionService struct {
	store  ports.SessionStore
	logger *internal.Logger

	mu        sync.Mutex
	who       identity.Context
	questions []models.Question
	current   int
	record    *models.InterviewSession
	warnings  []string
}

// NewSessionService creates a session coordinator
func NewSessionService(store ports.SessionStore, logger *internal.Logger) *SessionService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SessionService{store: store, logger: logger}
}

// StartSession mints a session identifier, creates the in-memory record
// and writes the initial durable row. Question order is fixed for the
// lifetime of the session.
func (s *SessionService) StartSession(ctx context.Context, who identity.Context, sessionType models.SessionType, questions []models.Question) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !who.Valid() {
		return uuid.Nil, errors.InvalidInput("a valid user identity is required")
	}
	if len(questions) == 0 {
		return uuid.Nil, errors.InvalidInput("a session needs at least one question")
	}
	if s.record != nil && s.record.State == models.SessionStateActive {
		return uuid.Nil, errors.InvalidInput("a session is already in progress")
	}

	s.who = who
	s.questions = questions
	s.current = 0
	s.warnings = nil
	s.record = models.NewInterviewSession(uuid.New(), who.UserID, sessionType, len(questions))

	s.logger.Info("[Session] started %s session %s with %d questions for user %s",
		sessionType, s.record.ID, len(questions), who.UserID)

	if err := s.store.CreateSession(ctx, s.record); err != nil {
		s.warnLocked("initial session write failed: %v", err)
	}
	return s.record.ID, nil
}

// CurrentQuestion returns the question awaiting an answer. ok is false
// once every question has been resolved or no session is active.
func (s *SessionService) CurrentQuestion() (models.Question, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil || s.record.State != models.SessionStateActive || s.current >= len(s.questions) {
		return models.Question{}, 0, false
	}
	return s.questions[s.current], s.current, true
}

// SubmitAnswer records a completed pipeline result against the current
// question and advances to the next one. Progression is forward-only.
func (s *SessionService) SubmitAnswer(ctx context.Context, result *AnswerResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActiveQuestionLocked(); err != nil {
		return err
	}
	if result == nil || result.Analysis == nil {
		return errors.InvalidInput("an answer needs a completed analysis")
	}

	transcription := result.Transcription
	rec := models.AnswerRecord{
		ID:                   uuid.New(),
		SessionID:            s.record.ID,
		QuestionIndex:        s.current,
		Question:             s.questions[s.current],
		Transcription:        &transcription,
		Analysis:             result.Analysis,
		AudioDurationSeconds: result.AudioDurationSeconds,
		CreatedAt:            time.Now(),
	}
	s.advanceLocked(ctx, rec)
	return nil
}

// SkipCurrentQuestion resolves the current question with a zero-score
// placeholder, touching neither audio capture nor the processing
// pipeline, and advances.
func (s *SessionService) SkipCurrentQuestion(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActiveQuestionLocked(); err != nil {
		return err
	}

	q := s.questions[s.current]
	rec := models.AnswerRecord{
		ID:            uuid.New(),
		SessionID:     s.record.ID,
		QuestionIndex: s.current,
		Question:      q,
		Analysis:      models.SkippedAnalysis(q),
		Skipped:       true,
		CreatedAt:     time.Now(),
	}
	s.logger.Info("[Session] question %d skipped in session %s", s.current, s.record.ID)
	s.advanceLocked(ctx, rec)
	return nil
}

// CompleteSession finalizes the record once every question is resolved.
// The average score is the arithmetic mean over all answers, skipped
// ones counting as zero, rounded to the nearest integer.
func (s *SessionService) CompleteSession(ctx context.Context) (*models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record == nil {
		return nil, errors.NotFound("active session")
	}
	if s.record.State == models.SessionStateComplete {
		return s.record, nil
	}
	if s.current < len(s.questions) {
		return nil, errors.InvalidInput(fmt.Sprintf("%d of %d questions still unresolved",
			len(s.questions)-s.current, len(s.questions)))
	}

	avg := 0
	if scores := s.record.Scores(); len(scores) > 0 {
		mean, err := stats.Mean(stats.Float64Data(scores))
		if err == nil {
			avg = int(math.Round(mean))
		}
	}
	totalDuration := int(time.Since(s.record.StartTime).Seconds())
	s.record.MarkComplete(avg, totalDuration)

	s.logger.Info("[Session] session %s complete: average score %d over %d answers",
		s.record.ID, avg, s.record.AnswerCount())

	if err := s.store.CompleteSession(ctx, s.record); err != nil {
		s.warnLocked("final session write failed: %v", err)
	}
	return s.record, nil
}

// Record returns the in-memory session record, or nil before StartSession
func (s *SessionService) Record() *models.InterviewSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Warnings returns accumulated non-fatal persistence warnings
func (s *SessionService) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

func (s *SessionService) requireActiveQuestionLocked() error {
	if s.record == nil || s.record.State != models.SessionStateActive {
		return errors.NotFound("active session")
	}
	if s.current >= len(s.questions) {
		return errors.InvalidInput("all questions already resolved")
	}
	return nil
}

// advanceLocked appends the record, mirrors it to the store and moves
// the cursor forward. Each answer is a discrete write so partial
// progress survives a crash.
func (s *SessionService) advanceLocked(ctx context.Context, rec models.AnswerRecord) {
	s.record.AppendAnswer(rec)
	s.current++
	if err := s.store.SaveAnswer(ctx, &rec); err != nil {
		s.warnLocked("answer %d write failed: %v", rec.QuestionIndex, err)
	}
}

func (s *SessionService) warnLocked(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.warnings = append(s.warnings, msg)
	s.logger.Warn("[Session] persistence degraded: %s", msg)
}
