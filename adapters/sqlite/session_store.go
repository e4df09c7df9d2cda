package sqlite

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
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS interview_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	session_type TEXT NOT NULL,
	state TEXT NOT NULL,
	start_time TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	completed_questions INTEGER NOT NULL DEFAULT 0,
	total_questions INTEGER NOT NULL,
	average_score INTEGER NOT NULL DEFAULT 0,
	total_duration_seconds INTEGER NOT NULL DEFAULT 0,
	metadata TEXT
);

CREATE TABLE IF NOT EXISTS interview_answers (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES interview_sessions(id),
	question_index INTEGER NOT NULL,
	question TEXT NOT NULL,
	transcription TEXT,
	analysis TEXT NOT NULL,
	audio_duration_seconds INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (session_id, question_index)
);
`

// SessionStore persists interview sessions to a local SQLite file. It
// backs single-user installs that run without a PostgreSQL server;
// documents are stored as serialized JSON text.
type SessionStore struct {
	db     *sqlx.DB
	logger *internal.Logger
}

// Connect opens (or creates) a SQLite database at path. ":memory:" gives
// an ephemeral store for tests.
func Connect(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, errors.DatabaseError("failed to open sqlite database", err)
	}
	// The driver serializes writes; a single connection avoids table locks
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSessionStore ensures the schema exists
func NewSessionStore(db *sqlx.DB, logger *internal.Logger) (*SessionStore, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.DatabaseError("failed to ensure schema", err)
	}
	return &SessionStore{db: db, logger: logger}, nil
}

// CreateSession writes the initial durable row at session start
func (s *SessionStore) CreateSession(ctx context.Context, session *models.InterviewSession) error {
	meta, err := json.Marshal(session.Metadata)
	if err != nil {
		return errors.PersistenceError("failed to encode session metadata", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interview_sessions
			(id, user_id, session_type, state, start_time, total_questions, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID.String(), session.UserID.String(), session.SessionType,
		session.State, session.StartTime, session.TotalQuestions, string(meta))
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
	transcription := sql.NullString{}
	if answer.Transcription != nil {
		raw, err := json.Marshal(answer.Transcription)
		if err != nil {
			return errors.PersistenceError("failed to encode transcription", err)
		}
		transcription = sql.NullString{String: string(raw), Valid: true}
	}
	analysis, err := json.Marshal(answer.Analysis)
	if err != nil {
		return errors.PersistenceError("failed to encode analysis", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interview_answers
			(id, session_id, question_index, question, transcription, analysis,
			 audio_duration_seconds, skipped, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		answer.ID.String(), answer.SessionID.String(), answer.QuestionIndex,
		string(question), transcription, string(analysis),
		answer.AudioDurationSeconds, answer.Skipped, answer.CreatedAt)
	if err != nil {
		return errors.PersistenceError("failed to save answer row", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE interview_sessions
		SET completed_questions = completed_questions + (CASE WHEN ? THEN 0 ELSE 1 END)
		WHERE id = ?`, answer.Skipped, answer.SessionID.String())
	if err != nil {
		return errors.PersistenceError("failed to update session progress", err)
	}
	return nil
}

// CompleteSession writes the final aggregate fields
func (s *SessionStore) CompleteSession(ctx context.Context, session *models.InterviewSession) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE interview_sessions
		SET state = ?, completed_at = ?, average_score = ?, total_duration_seconds = ?
		WHERE id = ?`,
		session.State, session.CompletedAt, session.AverageScore,
		session.TotalDurationSeconds, session.ID.String())
	if err != nil {
		return errors.PersistenceError("failed to finalize session row", err)
	}
	return nil
}

// GetSession retrieves a session with its answers in question order
func (s *SessionStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.InterviewSession, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, session_type, state, start_time, completed_at,
		       completed_questions, total_questions, average_score,
		       total_duration_seconds, metadata
		FROM interview_sessions WHERE id = ?`, sessionID.String())
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
		FROM interview_answers WHERE session_id = ? ORDER BY question_index`,
		sessionID.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to load answers", err)
	}

	session, err := row.toModel()
	if err != nil {
		return nil, err
	}
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
	ID                   string         `db:"id"`
	UserID               string         `db:"user_id"`
	SessionType          string         `db:"session_type"`
	State                string         `db:"state"`
	StartTime            time.Time      `db:"start_time"`
	CompletedAt          *time.Time     `db:"completed_at"`
	CompletedQuestions   int            `db:"completed_questions"`
	TotalQuestions       int            `db:"total_questions"`
	AverageScore         int            `db:"average_score"`
	TotalDurationSeconds int            `db:"total_duration_seconds"`
	Metadata             sql.NullString `db:"metadata"`
}

func (r sessionRow) toModel() (*models.InterviewSession, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, errors.DatabaseError("corrupt session id", err)
	}
	userID, err := uuid.Parse(r.UserID)
	if err != nil {
		return nil, errors.DatabaseError("corrupt user id", err)
	}
	session := &models.InterviewSession{
		ID:                   id,
		UserID:               userID,
		SessionType:          models.SessionType(r.SessionType),
		State:                models.SessionState(r.State),
		StartTime:            r.StartTime,
		CompletedAt:          r.CompletedAt,
		CompletedQuestions:   r.CompletedQuestions,
		TotalQuestions:       r.TotalQuestions,
		AverageScore:         r.AverageScore,
		TotalDurationSeconds: r.TotalDurationSeconds,
		Metadata:             make(models.JSONBMap),
	}
	if r.Metadata.Valid && r.Metadata.String != "" {
		if err := json.Unmarshal([]byte(r.Metadata.String), &session.Metadata); err != nil {
			return nil, errors.DatabaseError("corrupt session metadata", err)
		}
	}
	return session, nil
}

type answerRow struct {
	ID                   string         `db:"id"`
	SessionID            string         `db:"session_id"`
	QuestionIndex        int            `db:"question_index"`
	Question             string         `db:"question"`
	Transcription        sql.NullString `db:"transcription"`
	Analysis             string         `db:"analysis"`
	AudioDurationSeconds int            `db:"audio_duration_seconds"`
	Skipped              bool           `db:"skipped"`
	CreatedAt            time.Time      `db:"created_at"`
}

func (r answerRow) toModel() (models.AnswerRecord, error) {
	answer := models.AnswerRecord{
		QuestionIndex:        r.QuestionIndex,
		AudioDurationSeconds: r.AudioDurationSeconds,
		Skipped:              r.Skipped,
		CreatedAt:            r.CreatedAt,
	}
	var err error
	if answer.ID, err = uuid.Parse(r.ID); err != nil {
		return answer, errors.DatabaseError("corrupt answer id", err)
	}
	if answer.SessionID, err = uuid.Parse(r.SessionID); err != nil {
		return answer, errors.DatabaseError("corrupt answer session id", err)
	}
	if err := json.Unmarshal([]byte(r.Question), &answer.Question); err != nil {
		return answer, errors.DatabaseError("failed to decode question", err)
	}
	if r.Transcription.Valid && r.Transcription.String != "" {
		answer.Transcription = &models.TranscriptionResult{}
		if err := json.Unmarshal([]byte(r.Transcription.String), answer.Transcription); err != nil {
			return answer, errors.DatabaseError("failed to decode transcription", err)
		}
	}
	if r.Analysis != "" {
		answer.Analysis = &models.AnswerAnalysis{}
		if err := json.Unmarshal([]byte(r.Analysis), answer.Analysis); err != nil {
			return answer, errors.DatabaseError("failed to decode analysis", err)
		}
	}
	return answer, nil
}
