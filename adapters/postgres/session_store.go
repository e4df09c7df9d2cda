package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"intervox/internal"
	"intervox/internal/errors"
	"intervox/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS interview_sessions (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	session_type TEXT NOT NULL,
	state TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	completed_questions INT NOT NULL DEFAULT 0,
	total_questions INT NOT NULL,
	average_score INT NOT NULL DEFAULT 0,
	total_duration_seconds INT NOT NULL DEFAULT 0,
	metadata JSONB
);

CREATE TABLE IF NOT EXISTS interview_answers (
	id UUID PRIMARY KEY,
	session_id UUID NOT NULL REFERENCES interview_sessions(id),
	question_index INT NOT NULL,
	question JSONB NOT NULL,
	transcription JSONB,
	analysis JSONB NOT NULL,
	audio_duration_seconds INT NOT NULL DEFAULT 0,
	skipped BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (session_id, question_index)
);

CREATE INDEX IF NOT EXISTS idx_answers_session ON interview_answers(session_id);
`

// SessionStore persists interview sessions to PostgreSQL. Documents
// (question, transcription, analysis) are stored as JSONB so the schema
// survives evolution of the analysis shape.
type SessionStore struct {
	db     *sqlx.DB
	logger *internal.Logger
}

// NewSessionStore connects and ensures the schema exists
func NewSessionStore(db *sqlx.DB, logger *internal.Logger) (*SessionStore, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.DatabaseError("failed to ensure schema", err)
	}
	return &SessionStore{db: db, logger: logger}, nil
}

// Connect opens a PostgreSQL pool from a DSN
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to postgres", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// CreateSession writes the initial durable row at session start
func (s *SessionStore) CreateSession(ctx context.Context, session *models.InterviewSession) error {
	meta, err := session.Metadata.Value()
	if err != nil {
		return errors.PersistenceError("failed to encode session metadata", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interview_sessions
			(id, user_id, session_type, state, start_time, total_questions, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.UserID, session.SessionType, session.State,
		session.StartTime, session.TotalQuestions, meta)
	if err != nil {
		return errors.PersistenceError("failed to create session row", err)
	}
	s.logger.Debug("[Store] session %s created", session.ID)
	return nil
}

// SaveAnswer appends one answer as a discrete write
func (s *SessionStore) SaveAnswer(ctx context.Context, answer *models.AnswerRecord) error {
	question, err := json.Marshal(answer.Question)
	if err != nil {
		return errors.PersistenceError("failed to encode question", err)
	}
	var transcription []byte
	if answer.Transcription != nil {
		if transcription, err = json.Marshal(answer.Transcription); err != nil {
			return errors.PersistenceError("failed to encode transcription", err)
		}
	}
	analysis, err := json.Marshal(answer.Analysis)
	if err != nil {
		return errors.PersistenceError("failed to encode analysis", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interview_answers
			(id, session_id, question_index, question, transcription, analysis,
			 audio_duration_seconds, skipped, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		answer.ID, answer.SessionID, answer.QuestionIndex, question, transcription,
		analysis, answer.AudioDurationSeconds, answer.Skipped, answer.CreatedAt)
	if err != nil {
		return errors.PersistenceError("failed to save answer row", err)
	}

	// Mirror progress counters so a crash mid-session leaves usable state
	_, err = s.db.ExecContext(ctx, `
		UPDATE interview_sessions
		SET completed_questions = completed_questions + CASE WHEN $2 THEN 0 ELSE 1 END
		WHERE id = $1`, answer.SessionID, answer.Skipped)
	if err != nil {
		return errors.PersistenceError("failed to update session progress", err)
	}
	return nil
}

// CompleteSession writes the final aggregate fields
func (s *SessionStore) CompleteSession(ctx context.Context, session *models.InterviewSession) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE interview_sessions
		SET state = $2, completed_at = $3, average_score = $4, total_duration_seconds = $5
		WHERE id = $1`,
		session.ID, session.State, session.CompletedAt,
		session.AverageScore, session.TotalDurationSeconds)
	if err != nil {
		return errors.PersistenceError("failed to finalize session row", err)
	}
	s.logger.Debug("[Store] session %s finalized", session.ID)
	return nil
}

// GetSession retrieves a session with its answers in question order
func (s *SessionStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.InterviewSession, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, session_type, state, start_time, completed_at,
		       completed_questions, total_questions, average_score,
		       total_duration_seconds, metadata
		FROM interview_sessions WHERE id = $1`, sessionID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("session")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load session", err)
	}

	var answerRows []answerRow
	err = s.db.SelectContext(ctx, &answerRows, `
		SELECT id, session_id, question_index, question, transcription, analysis,
		       audio_duration_seconds, skipped, created_at
		FROM interview_answers WHERE session_id = $1 ORDER BY question_index`, sessionID)
	if err != nil {
		return nil, errors.DatabaseError("failed to load answers", err)
	}

	session := row.toModel()
	for _, ar := range answerRows {
		answer, err := ar.toModel()
		if err != nil {
			return nil, err
		}
		session.Answers = append(session.Answers, answer)
	}
	return session, nil
}

type sessionRow struct {
	ID                   uuid.UUID       `db:"id"`
	UserID               uuid.UUID       `db:"user_id"`
	SessionType          string          `db:"session_type"`
	State                string          `db:"state"`
	StartTime            time.Time       `db:"start_time"`
	CompletedAt          *time.Time      `db:"completed_at"`
	CompletedQuestions   int             `db:"completed_questions"`
	TotalQuestions       int             `db:"total_questions"`
	AverageScore         int             `db:"average_score"`
	TotalDurationSeconds int             `db:"total_duration_seconds"`
	Metadata             models.JSONBMap `db:"metadata"`
}

func (r sessionRow) toModel() *models.InterviewSession {
	return &models.InterviewSession{
		ID:                   r.ID,
		UserID:               r.UserID,
		SessionType:          models.SessionType(r.SessionType),
		State:                models.SessionState(r.State),
		StartTime:            r.StartTime,
		CompletedAt:          r.CompletedAt,
		CompletedQuestions:   r.CompletedQuestions,
		TotalQuestions:       r.TotalQuestions,
		AverageScore:         r.AverageScore,
		TotalDurationSeconds: r.TotalDurationSeconds,
		Metadata:             r.Metadata,
	}
}

type answerRow struct {
	ID                   uuid.UUID `db:"id"`
	SessionID            uuid.UUID `db:"session_id"`
	QuestionIndex        int       `db:"question_index"`
	Question             []byte    `db:"question"`
	Transcription        []byte    `db:"transcription"`
	Analysis             []byte    `db:"analysis"`
	AudioDurationSeconds int       `db:"audio_duration_seconds"`
	Skipped              bool      `db:"skipped"`
	CreatedAt            time.Time `db:"created_at"`
}

func (r answerRow) toModel() (models.AnswerRecord, error) {
	answer := models.AnswerRecord{
		ID:                   r.ID,
		SessionID:            r.SessionID,
		QuestionIndex:        r.QuestionIndex,
		AudioDurationSeconds: r.AudioDurationSeconds,
		Skipped:              r.Skipped,
		CreatedAt:            r.CreatedAt,
	}
	if err := json.Unmarshal(r.Question, &answer.Question); err != nil {
		return answer, errors.DatabaseError("failed to decode question", err)
	}
	if len(r.Transcription) > 0 {
		answer.Transcription = &models.TranscriptionResult{}
		if err := json.Unmarshal(r.Transcription, answer.Transcription); err != nil {
			return answer, errors.DatabaseError("failed to decode transcription", err)
		}
	}
	if len(r.Analysis) > 0 {
		answer.Analysis = &models.AnswerAnalysis{}
		if err := json.Unmarshal(r.Analysis, answer.Analysis); err != nil {
			return answer, errors.DatabaseError("failed to decode analysis", err)
		}
	}
	return answer, nil
}
