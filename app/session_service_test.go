package app

import (
	"context"
	"errors"
	"testing"

	"intervox/internal/identity"
	"intervox/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore records every write; individual operations can be failed
type memoryStore struct {
	sessions  []*models.InterviewSession
	answers   []*models.AnswerRecord
	completed []*models.InterviewSession

	failCreate   bool
	failSave     bool
	failComplete bool
}

func (m *memoryStore) CreateSession(ctx context.Context, s *models.InterviewSession) error {
	if m.failCreate {
		return errors.New("connection reset")
	}
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memoryStore) SaveAnswer(ctx context.Context, a *models.AnswerRecord) error {
	if m.failSave {
		return errors.New("connection reset")
	}
	m.answers = append(m.answers, a)
	return nil
}

func (m *memoryStore) CompleteSession(ctx context.Context, s *models.InterviewSession) error {
	if m.failComplete {
		return errors.New("connection reset")
	}
	m.completed = append(m.completed, s)
	return nil
}

func (m *memoryStore) GetSession(ctx context.Context, id uuid.UUID) (*models.InterviewSession, error) {
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, errors.New("not found")
}

func threeQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", Text: "Tell me about yourself.", Type: models.QuestionBehavioral},
		{ID: "q2", Text: "Describe a conflict you resolved.", Type: models.QuestionBehavioral},
		{ID: "q3", Text: "Why this role?", Type: models.QuestionBehavioral},
	}
}

func answerScoring(score int) *AnswerResult {
	return &AnswerResult{
		Question:             models.Question{ID: "q"},
		Transcription:        models.TranscriptionResult{Transcript: "an answer", Success: true},
		Analysis:             &models.AnswerAnalysis{OverallScore: score},
		AudioDurationSeconds: 30,
	}
}

func TestSessionLifecycleWithAverages(t *testing.T) {
	store := &memoryStore{}
	svc := NewSessionService(store, nil)

	id, err := svc.StartSession(context.Background(), identity.Anonymous(), models.SessionHR, threeQuestions())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	require.Len(t, store.sessions, 1)

	q, idx, ok := svc.CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, "q1", q.ID)
	assert.Equal(t, 0, idx)

	require.NoError(t, svc.SubmitAnswer(context.Background(), answerScoring(80)))
	require.NoError(t, svc.SubmitAnswer(context.Background(), answerScoring(61)))
	require.NoError(t, svc.SubmitAnswer(context.Background(), answerScoring(90)))

	_, _, ok = svc.CurrentQuestion()
	assert.False(t, ok, "no question left after the last answer")

	record, err := svc.CompleteSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateComplete, record.State)
	assert.Equal(t, 77, record.AverageScore) // mean(80, 61, 90) = 77
	assert.Equal(t, 3, record.CompletedQuestions)
	require.Len(t, store.answers, 3)
	require.Len(t, store.completed, 1)
	assert.Empty(t, svc.Warnings())
}

func TestSkippedQuestionsCountAsZero(t *testing.T) {
	store := &memoryStore{}
	svc := NewSessionService(store, nil)

	_, err := svc.StartSession(context.Background(), identity.Anonymous(), models.SessionHR, threeQuestions())
	require.NoError(t, err)

	require.NoError(t, svc.SubmitAnswer(context.Background(), answerScoring(90)))
	require.NoError(t, svc.SkipCurrentQuestion(context.Background()))
	require.NoError(t, svc.SubmitAnswer(context.Background(), answerScoring(60)))

	record, err := svc.CompleteSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, record.AverageScore) // mean(90, 0, 60) = 50
	assert.Equal(t, 2, record.CompletedQuestions, "skips do not count as completed")
	assert.Equal(t, 3, record.AnswerCount())

	skipped := record.Answers[1]
	assert.True(t, skipped.Skipped)
	assert.Nil(t, skipped.Transcription)
	require.NotNil(t, skipped.Analysis)
	assert.Equal(t, 0, skipped.Analysis.OverallScore)
}

func TestPersistenceFailuresAreWarnings(t *testing.T) {
	store := &memoryStore{failCreate: true, failSave: true, failComplete: true}
	svc := NewSessionService(store, nil)

	_, err := svc.StartSession(context.Background(), identity.Anonymous(), models.SessionTechnical, threeQuestions()[:1])
	require.NoError(t, err, "session start survives a failed initial write")

	require.NoError(t, svc.SubmitAnswer(context.Background(), answerScoring(70)))

	record, err := svc.CompleteSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SessionStateComplete, record.State)
	assert.Equal(t, 70, record.AverageScore, "in-memory record keeps full fidelity")

	warnings := svc.Warnings()
	require.Len(t, warnings, 3)
	for _, w := range warnings {
		assert.Contains(t, w, "connection reset")
	}
}

func TestCompleteRequiresAllQuestionsResolved(t *testing.T) {
	svc := NewSessionService(&memoryStore{}, nil)
	_, err := svc.StartSession(context.Background(), identity.Anonymous(), models.SessionHR, threeQuestions())
	require.NoError(t, err)

	require.NoError(t, svc.SubmitAnswer(context.Background(), answerScoring(80)))
	_, err = svc.CompleteSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved")
}

func TestForwardOnlyProgression(t *testing.T) {
	svc := NewSessionService(&memoryStore{}, nil)
	_, err := svc.StartSession(context.Background(), identity.Anonymous(), models.SessionHR, threeQuestions())
	require.NoError(t, err)

	require.NoError(t, svc.SkipCurrentQuestion(context.Background()))
	q, idx, ok := svc.CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, "q2", q.ID)
	assert.Equal(t, 1, idx)

	// Once resolved, q1 cannot be revisited: the cursor only moves forward
	require.NoError(t, svc.SubmitAnswer(context.Background(), answerScoring(50)))
	_, idx, _ = svc.CurrentQuestion()
	assert.Equal(t, 2, idx)
}

func TestStartSessionValidation(t *testing.T) {
	svc := NewSessionService(&memoryStore{}, nil)

	_, err := svc.StartSession(context.Background(), identity.Context{}, models.SessionHR, threeQuestions())
	require.Error(t, err, "nil user identity rejected")

	_, err = svc.StartSession(context.Background(), identity.Anonymous(), models.SessionHR, nil)
	require.Error(t, err, "empty question list rejected")

	_, err = svc.StartSession(context.Background(), identity.Anonymous(), models.SessionHR, threeQuestions())
	require.NoError(t, err)
	_, err = svc.StartSession(context.Background(), identity.Anonymous(), models.SessionHR, threeQuestions())
	require.Error(t, err, "only one active session at a time")
}

func TestSubmitAfterCompletionRejected(t *testing.T) {
	svc := NewSessionService(&memoryStore{}, nil)
	_, err := svc.StartSession(context.Background(), identity.Anonymous(), models.SessionHR, threeQuestions()[:1])
	require.NoError(t, err)
	require.NoError(t, svc.SubmitAnswer(context.Background(), answerScoring(70)))
	_, err = svc.CompleteSession(context.Background())
	require.NoError(t, err)

	err = svc.SubmitAnswer(context.Background(), answerScoring(70))
	require.Error(t, err)
	err = svc.SkipCurrentQuestion(context.Background())
	require.Error(t, err)
}
