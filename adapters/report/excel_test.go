package report

import (
	"bytes"
	"testing"
	"time"

	"intervox/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func completedSession(t *testing.T) *models.InterviewSession {
	t.Helper()
	session := models.NewInterviewSession(uuid.New(), uuid.New(), models.SessionHR, 2)
	session.AppendAnswer(models.AnswerRecord{
		ID:            uuid.New(),
		SessionID:     session.ID,
		QuestionIndex: 0,
		Question:      models.Question{ID: "q1", Text: "Tell me about yourself.", Type: models.QuestionBehavioral},
		Transcription: &models.TranscriptionResult{Transcript: "I build backend services.", Success: true},
		Analysis: &models.AnswerAnalysis{
			OverallScore: 80,
			Scores:       models.SubScores{Clarity: 85, Relevance: 78, Structure: 75, Completeness: 82, Confidence: 80},
			Feedback: models.Feedback{
				Strengths:  []string{"Concrete examples"},
				Weaknesses: []string{"Ran long"},
			},
		},
		AudioDurationSeconds: 95,
		CreatedAt:            time.Now(),
	})
	q2 := models.Question{ID: "q2", Text: "Why this role?"}
	session.AppendAnswer(models.AnswerRecord{
		ID:            uuid.New(),
		SessionID:     session.ID,
		QuestionIndex: 1,
		Question:      q2,
		Analysis:      models.SkippedAnalysis(q2),
		Skipped:       true,
		CreatedAt:     time.Now(),
	})
	session.MarkComplete(40, 180)
	return session
}

func TestRenderProducesReadableWorkbook(t *testing.T) {
	data, err := NewExcelReport().Render(completedSession(t))
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{summarySheet, answersSheet}, f.GetSheetList())

	avg, err := f.GetCellValue(summarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "40", avg)

	question, err := f.GetCellValue(answersSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Tell me about yourself.", question)

	score, err := f.GetCellValue(answersSheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "80", score)

	skipped, err := f.GetCellValue(answersSheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "TRUE", skipped)
}

func TestRenderNilSessionRejected(t *testing.T) {
	_, err := NewExcelReport().Render(nil)
	require.Error(t, err)
}
