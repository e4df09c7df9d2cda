package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"intervox/internal"
	"intervox/models"
	"intervox/ports"
)

const fallbackDetail = "The AI analysis service was unavailable for this answer. " +
	"Your recording and transcript were saved, but no score could be computed. " +
	"Please review your answer manually or try another question."

// Analyzer scores one transcript against one question via an LLM.
// Its contract is that Analyze always returns a structurally valid
// analysis: any provider failure, malformed response or parse error is
// absorbed and replaced by the deterministic zero-score fallback.
type Analyzer struct {
	client    LLMClient
	model     string
	maxTokens int
	logger    *internal.Logger
}

// NewAnalyzer creates an analysis client
func NewAnalyzer(client LLMClient, model string, maxTokens int, logger *internal.Logger) *Analyzer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &Analyzer{client: client, model: model, maxTokens: maxTokens, logger: logger}
}

// analysisPayload is the JSON shape the provider must return: an
// AnswerAnalysis minus the fields filled in locally.
type analysisPayload struct {
	OverallScore   int                   `json:"overallScore"`
	Scores         models.SubScores      `json:"scores"`
	Feedback       models.Feedback       `json:"feedback"`
	KeyPoints      models.KeyPoints      `json:"keyPoints"`
	TimeManagement models.TimeManagement `json:"timeManagement"`
}

// Analyze submits the transcript for evaluation and never returns an
// error: on any failure the caller receives the fallback analysis with
// the elapsed attempt time recorded.
func (a *Analyzer) Analyze(ctx context.Context, req ports.AnalyzeRequest) *models.AnswerAnalysis {
	start := time.Now()

	prompt := buildPrompt(req)
	a.logger.Debug("[Analyzer] requesting evaluation, model=%s, promptLength=%d", a.model, len(prompt))

	content, err := a.client.ChatCompletion(ctx, a.model, prompt, a.maxTokens)
	if err != nil {
		a.logger.Error("[Analyzer] provider call failed: %v", err)
		return a.fallback(req, start)
	}

	// Providers occasionally wrap the JSON in a markdown code fence
	content = cleanJSONContent(content)

	var payload analysisPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		a.logger.Error("[Analyzer] unparseable evaluation response: %v", err)
		return a.fallback(req, start)
	}

	analysis := &models.AnswerAnalysis{
		OverallScore:     clampScore(payload.OverallScore),
		Scores:           clampSubScores(payload.Scores),
		Feedback:         normalizeFeedback(payload.Feedback),
		KeyPoints:        normalizeKeyPoints(payload.KeyPoints),
		TimeManagement:   normalizeTimeManagement(payload.TimeManagement, req.AudioDurationSeconds),
		Transcript:       req.Transcript,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	a.logger.Info("[Analyzer] evaluation complete: overall %d in %dms", analysis.OverallScore, analysis.ProcessingTimeMs)
	return analysis
}

func (a *Analyzer) fallback(req ports.AnalyzeRequest, start time.Time) *models.AnswerAnalysis {
	fb := models.FallbackAnalysis(req.Transcript, req.AudioDurationSeconds, fallbackDetail)
	fb.ProcessingTimeMs = time.Since(start).Milliseconds()
	return fb
}

func buildPrompt(req ports.AnalyzeRequest) string {
	var b strings.Builder
	b.WriteString("Evaluate this interview answer and return a single JSON object.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", req.Question.Text)
	fmt.Fprintf(&b, "Question type: %s\n", req.Question.Type)
	fmt.Fprintf(&b, "Difficulty: %s\n", req.Question.Difficulty)
	if len(req.Question.SkillsEvaluated) > 0 {
		fmt.Fprintf(&b, "Skills evaluated: %s\n", strings.Join(req.Question.SkillsEvaluated, ", "))
	}
	fmt.Fprintf(&b, "Expected answer duration: %d seconds\n\n", req.Question.ExpectedDurationSeconds)
	fmt.Fprintf(&b, "Candidate's answer (spoken, %d seconds, transcription confidence %.2f):\n%s\n\n",
		req.AudioDurationSeconds, req.TranscriptionConf, req.Transcript)
	b.WriteString(`Return exactly this JSON structure (all scores are integers 0-100):
{
  "overallScore": 0,
  "scores": {"clarity": 0, "relevance": 0, "structure": 0, "completeness": 0, "confidence": 0},
  "feedback": {"strengths": [], "weaknesses": [], "suggestions": [], "detailedFeedback": ""},
  "keyPoints": {"covered": [], "missed": []},
  "timeManagement": {"duration": 0, "efficiency": "excellent|good|average|poor", "pacing": ""}
}`)
	return b.String()
}

// cleanJSONContent removes markdown code fences and leading chatter so the
// payload parses as plain JSON
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	// Drop any prose line preceding the opening brace
	if idx := strings.Index(content, "{"); idx > 0 {
		prefix := content[:idx]
		if !strings.Contains(prefix, "}") {
			content = content[idx:]
		}
	}
	return strings.TrimSpace(content)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampSubScores(s models.SubScores) models.SubScores {
	return models.SubScores{
		Clarity:      clampScore(s.Clarity),
		Relevance:    clampScore(s.Relevance),
		Structure:    clampScore(s.Structure),
		Completeness: clampScore(s.Completeness),
		Confidence:   clampScore(s.Confidence),
	}
}

func normalizeFeedback(f models.Feedback) models.Feedback {
	if f.Strengths == nil {
		f.Strengths = []string{}
	}
	if f.Weaknesses == nil {
		f.Weaknesses = []string{}
	}
	if f.Suggestions == nil {
		f.Suggestions = []string{}
	}
	return f
}

func normalizeKeyPoints(k models.KeyPoints) models.KeyPoints {
	if k.Covered == nil {
		k.Covered = []string{}
	}
	if k.Missed == nil {
		k.Missed = []string{}
	}
	return k
}

func normalizeTimeManagement(tm models.TimeManagement, durationSeconds int) models.TimeManagement {
	tm.DurationSeconds = durationSeconds
	switch tm.Efficiency {
	case models.EfficiencyExcellent, models.EfficiencyGood, models.EfficiencyAverage, models.EfficiencyPoor:
	default:
		tm.Efficiency = models.EfficiencyAverage
	}
	return tm
}
