package report

import (
	"bytes"
	"fmt"
	"strings"

	"intervox/internal/errors"
	"intervox/models"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	answersSheet = "Answers"
)

// ExcelReport renders a completed interview session as an .xlsx workbook
// with a summary sheet and a per-answer breakdown.
type ExcelReport struct{}

// NewExcelReport creates a report renderer
func NewExcelReport() *ExcelReport {
	return &ExcelReport{}
}

// Render builds the workbook in memory
func (r *ExcelReport) Render(session *models.InterviewSession) ([]byte, error) {
	if session == nil {
		return nil, errors.InvalidInput("no session to report on")
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), summarySheet)
	if err := r.writeSummary(f, session); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(answersSheet); err != nil {
		return nil, errors.Wrap(err, "failed to create answers sheet")
	}
	if err := r.writeAnswers(f, session); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to serialize workbook")
	}
	return buf.Bytes(), nil
}

func (r *ExcelReport) writeSummary(f *excelize.File, session *models.InterviewSession) error {
	scores := session.Scores()
	minScore, _ := stats.Min(stats.Float64Data(scores))
	maxScore, _ := stats.Max(stats.Float64Data(scores))
	median, _ := stats.Median(stats.Float64Data(scores))

	rows := [][]interface{}{
		{"Session ID", session.ID.String()},
		{"Session type", string(session.SessionType)},
		{"State", string(session.State)},
		{"Started", session.StartTime.Format("2006-01-02 15:04:05")},
		{"Questions", session.TotalQuestions},
		{"Answered", session.CompletedQuestions},
		{"Skipped", session.AnswerCount() - session.CompletedQuestions},
		{"Average score", session.AverageScore},
		{"Median score", median},
		{"Lowest score", minScore},
		{"Highest score", maxScore},
		{"Total duration (s)", session.TotalDurationSeconds},
	}
	if session.CompletedAt != nil {
		rows = append(rows, []interface{}{"Completed", session.CompletedAt.Format("2006-01-02 15:04:05")})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "failed to address summary cell")
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return errors.Wrap(err, "failed to write summary row")
		}
	}
	return nil
}

func (r *ExcelReport) writeAnswers(f *excelize.File, session *models.InterviewSession) error {
	header := []interface{}{
		"#", "Question", "Type", "Skipped", "Score",
		"Clarity", "Relevance", "Structure", "Completeness", "Confidence",
		"Duration (s)", "Strengths", "Weaknesses", "Suggestions", "Transcript",
	}
	if err := f.SetSheetRow(answersSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write answers header")
	}

	for i, a := range session.Answers {
		row := []interface{}{
			a.QuestionIndex + 1,
			a.Question.Text,
			string(a.Question.Type),
			a.Skipped,
		}
		if a.Analysis != nil {
			row = append(row,
				a.Analysis.OverallScore,
				a.Analysis.Scores.Clarity,
				a.Analysis.Scores.Relevance,
				a.Analysis.Scores.Structure,
				a.Analysis.Scores.Completeness,
				a.Analysis.Scores.Confidence,
				a.AudioDurationSeconds,
				strings.Join(a.Analysis.Feedback.Strengths, "; "),
				strings.Join(a.Analysis.Feedback.Weaknesses, "; "),
				strings.Join(a.Analysis.Feedback.Suggestions, "; "),
			)
		} else {
			row = append(row, 0, 0, 0, 0, 0, 0, a.AudioDurationSeconds, "", "", "")
		}
		transcript := ""
		if a.Transcription != nil {
			transcript = a.Transcription.Transcript
		}
		row = append(row, transcript)

		if err := f.SetSheetRow(answersSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return errors.Wrap(err, "failed to write answer row")
		}
	}
	return nil
}
