package models

import (
	"database/sql/driver"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JSONBMap is a custom type for JSONB columns that maps to map[string]interface{}
type JSONBMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONBMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONBMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONBMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*j = make(JSONBMap)
		return nil
	}

	if len(bytes) == 0 {
		*j = make(JSONBMap)
		return nil
	}

	result := make(JSONBMap)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*j = result
	return nil
}

// QuestionType classifies interview questions
type QuestionType string

const (
	QuestionBehavioral  QuestionType = "behavioral"
	QuestionTechnical   QuestionType = "technical"
	QuestionSituational QuestionType = "situational"
	QuestionCaseStudy   QuestionType = "case-study"
)

// SessionType identifies the kind of interview being practiced
type SessionType string

const (
	SessionHR        SessionType = "hr"
	SessionTechnical SessionType = "technical"
	SessionAptitude  SessionType = "aptitude"
	SessionMixed     SessionType = "mixed"
)

// Question is one interview question presented to the candidate
type Question struct {
	ID                      string       `json:"id"`
	Text                    string       `json:"text"`
	Type                    QuestionType `json:"type"`
	Difficulty              string       `json:"difficulty"`
	SkillsEvaluated         []string     `json:"skillsEvaluated"`
	ExpectedDurationSeconds int          `json:"expectedDurationSeconds"`
	Category                string       `json:"category"`
}

// TranscriptionResult is the normalized output of one speech-to-text call
type TranscriptionResult struct {
	Transcript       string  `json:"transcript"`
	Confidence       float64 `json:"confidence"`
	Success          bool    `json:"success"`
	Error            string  `json:"error,omitempty"`
	ProcessingTimeMs int64   `json:"processingTimeMs"`
	WordCount        int     `json:"wordCount"`
	DetectedLanguage string  `json:"detectedLanguage,omitempty"`
	DurationSeconds  float64 `json:"durationSeconds"`
}

// SubScores holds the five named evaluation dimensions, each in [0,100]
type SubScores struct {
	Clarity      int `json:"clarity"`
	Relevance    int `json:"relevance"`
	Structure    int `json:"structure"`
	Completeness int `json:"completeness"`
	Confidence   int `json:"confidence"`
}

// Feedback holds qualitative evaluation output
type Feedback struct {
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	Suggestions      []string `json:"suggestions"`
	DetailedFeedback string   `json:"detailedFeedback"`
}

// KeyPoints records which expected points the answer covered or missed
type KeyPoints struct {
	Covered []string `json:"covered"`
	Missed  []string `json:"missed"`
}

// Efficiency rates how well the answer used the available time
type Efficiency string

const (
	EfficiencyExcellent Efficiency = "excellent"
	EfficiencyGood      Efficiency = "good"
	EfficiencyAverage   Efficiency = "average"
	EfficiencyPoor      Efficiency = "poor"
)

// TimeManagement describes pacing of the spoken answer
type TimeManagement struct {
	DurationSeconds int        `json:"duration"`
	Efficiency      Efficiency `json:"efficiency"`
	Pacing          string     `json:"pacing"`
}

// AnswerAnalysis is the structured, scored evaluation of one transcript
// against one question. Once persisted it is durable.
type AnswerAnalysis struct {
	OverallScore     int            `json:"overallScore"`
	Scores           SubScores      `json:"scores"`
	Feedback         Feedback       `json:"feedback"`
	KeyPoints        KeyPoints      `json:"keyPoints"`
	TimeManagement   TimeManagement `json:"timeManagement"`
	Transcript       string         `json:"transcript"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

// FallbackAnalysis builds the deterministic zero-score analysis substituted
// whenever the scoring provider fails or returns unparseable output.
func FallbackAnalysis(transcript string, durationSeconds int, detail string) *AnswerAnalysis {
	return &AnswerAnalysis{
		OverallScore: 0,
		Scores:       SubScores{},
		Feedback: Feedback{
			Strengths:        []string{},
			Weaknesses:       []string{},
			Suggestions:      []string{},
			DetailedFeedback: detail,
		},
		KeyPoints: KeyPoints{Covered: []string{}, Missed: []string{}},
		TimeManagement: TimeManagement{
			DurationSeconds: durationSeconds,
			Efficiency:      EfficiencyPoor,
			Pacing:          "unknown",
		},
		Transcript: transcript,
	}
}

// SkippedAnalysis builds the zero-score placeholder recorded when a
// question is skipped without invoking the pipeline.
func SkippedAnalysis(q Question) *AnswerAnalysis {
	a := FallbackAnalysis("", 0, "This question was skipped.")
	a.Feedback.Weaknesses = []string{"Question was skipped without an answer"}
	a.KeyPoints.Missed = append([]string{}, q.SkillsEvaluated...)
	return a
}

// AnswerRecord is the durable per-question entry in a session
type AnswerRecord struct {
	ID                   uuid.UUID            `json:"id" db:"id"`
	SessionID            uuid.UUID            `json:"sessionId" db:"session_id"`
	QuestionIndex        int                  `json:"questionIndex" db:"question_index"`
	Question             Question             `json:"question"`
	Transcription        *TranscriptionResult `json:"transcription,omitempty"`
	Analysis             *AnswerAnalysis      `json:"analysis"`
	AudioDurationSeconds int                  `json:"audioDurationSeconds" db:"audio_duration_seconds"`
	Skipped              bool                 `json:"skipped" db:"skipped"`
	CreatedAt            time.Time            `json:"createdAt" db:"created_at"`
}

// SessionState tracks the lifecycle of an interview session record
type SessionState string

const (
	SessionStateActive   SessionState = "active"
	SessionStateComplete SessionState = "complete"
)

// InterviewSession manages the lifecycle of one practice interview
type InterviewSession struct {
	ID                   uuid.UUID      `json:"id" db:"id"`
	UserID               uuid.UUID      `json:"userId" db:"user_id"`
	SessionType          SessionType    `json:"sessionType" db:"session_type"`
	State                SessionState   `json:"state" db:"state"`
	StartTime            time.Time      `json:"startTime" db:"start_time"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty" db:"completed_at"`
	Answers              []AnswerRecord `json:"answers"`
	CompletedQuestions   int            `json:"completedQuestions" db:"completed_questions"`
	TotalQuestions       int            `json:"totalQuestions" db:"total_questions"`
	AverageScore         int            `json:"averageScore" db:"average_score"`
	TotalDurationSeconds int            `json:"totalDurationSeconds" db:"total_duration_seconds"`
	Metadata             JSONBMap       `json:"metadata" db:"metadata"`

	mu sync.RWMutex
}

// NewInterviewSession creates a session record at session start
func NewInterviewSession(id, userID uuid.UUID, sessionType SessionType, totalQuestions int) *InterviewSession {
	return &InterviewSession{
		ID:             id,
		UserID:         userID,
		SessionType:    sessionType,
		State:          SessionStateActive,
		StartTime:      time.Now(),
		Answers:        make([]AnswerRecord, 0, totalQuestions),
		TotalQuestions: totalQuestions,
		Metadata:       make(JSONBMap),
	}
}

// AppendAnswer adds a completed or skipped answer record to the session
func (s *InterviewSession) AppendAnswer(rec AnswerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Answers = append(s.Answers, rec)
	if !rec.Skipped {
		s.CompletedQuestions++
	}
}

// AnswerCount returns how many questions have been resolved so far
func (s *InterviewSession) AnswerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Answers)
}

// Scores returns the overall score of every answer in order, skips included
func (s *InterviewSession) Scores() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scores := make([]float64, 0, len(s.Answers))
	for _, a := range s.Answers {
		if a.Analysis != nil {
			scores = append(scores, float64(a.Analysis.OverallScore))
		} else {
			scores = append(scores, 0)
		}
	}
	return scores
}

// MarkComplete finalizes the record with computed aggregates
func (s *InterviewSession) MarkComplete(averageScore, totalDurationSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.State = SessionStateComplete
	s.CompletedAt = &now
	s.AverageScore = averageScore
	s.TotalDurationSeconds = totalDurationSeconds
}
