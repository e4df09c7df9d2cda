package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"intervox/domain/recording"
	"intervox/internal"
	"intervox/internal/config"
	"intervox/models"
	"intervox/ports"
)

// MaxUploadBytes is the provider-imposed ceiling on one audio payload
const MaxUploadBytes = 25 * 1024 * 1024

// WhisperClient submits audio artifacts to an OpenAI-compatible
// speech-to-text endpoint and normalizes every outcome into a
// models.TranscriptionResult. It performs exactly one network round-trip
// per call; retry policy belongs to the caller.
type WhisperClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *internal.Logger
}

// NewWhisperClient creates a transcription client from configuration
func NewWhisperClient(cfg config.TranscriptionConfig, logger *internal.Logger) *WhisperClient {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// verboseResponse matches the provider's verbose_json response format
type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe converts one audio artifact into text
func (c *WhisperClient) Transcribe(ctx context.Context, artifact recording.Artifact, opts ports.TranscribeOptions) models.TranscriptionResult {
	start := time.Now()

	if artifact.Size() == 0 {
		return c.failure(start, "No audio recorded. Please record an answer first.")
	}
	if artifact.Size() > MaxUploadBytes {
		c.logger.Warn("[Whisper] rejecting oversized payload: %d bytes", artifact.Size())
		return c.failure(start, "Audio file is too large. Maximum size is 25MB.")
	}

	body, contentType, err := c.buildMultipart(artifact, opts)
	if err != nil {
		return c.failure(start, "Failed to prepare audio for transcription.")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return c.failure(start, "Failed to prepare transcription request.")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("[Whisper] sending %d bytes, model=%s", artifact.Size(), c.model)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("[Whisper] transport error: %v", err)
		return c.failure(start, "Network error during transcription. Please check your connection and try again.")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.failure(start, "Failed to read transcription response.")
	}

	if resp.StatusCode != http.StatusOK {
		return c.failure(start, classifyStatus(resp.StatusCode, respBody))
	}

	var verbose verboseResponse
	if err := json.Unmarshal(respBody, &verbose); err != nil {
		c.logger.Error("[Whisper] unparseable success response: %v", err)
		return c.failure(start, "Transcription service returned an unreadable response.")
	}

	transcript := strings.TrimSpace(verbose.Text)
	if transcript == "" {
		return c.failure(start, "No speech detected. Please speak clearly and try again.")
	}

	wordCount := len(strings.Fields(transcript))
	result := models.TranscriptionResult{
		Transcript:       transcript,
		Confidence:       estimateConfidence(wordCount, verbose.Duration),
		Success:          true,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		WordCount:        wordCount,
		DetectedLanguage: verbose.Language,
		DurationSeconds:  verbose.Duration,
	}
	c.logger.Info("[Whisper] transcribed %d words in %dms (confidence %.2f)",
		wordCount, result.ProcessingTimeMs, result.Confidence)
	return result
}

func (c *WhisperClient) buildMultipart(artifact recording.Artifact, opts ports.TranscribeOptions) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "answer"+extensionFor(artifact.MIMEType))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(artifact.Data); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"model":           c.model,
		"response_format": "verbose_json",
		"temperature":     fmt.Sprintf("%g", opts.Temperature),
	}
	if opts.Language != "" {
		fields["language"] = opts.Language
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *WhisperClient) failure(start time.Time, message string) models.TranscriptionResult {
	return models.TranscriptionResult{
		Success:          false,
		Error:            message,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

// classifyStatus maps provider error statuses onto a small set of
// user-facing messages; raw provider errors never escape this boundary.
func classifyStatus(status int, body []byte) string {
	var provider errorResponse
	_ = json.Unmarshal(body, &provider)

	switch status {
	case http.StatusUnauthorized:
		return "Transcription failed: invalid API credentials."
	case http.StatusRequestEntityTooLarge:
		return "Audio file is too large. Maximum size is 25MB."
	case http.StatusTooManyRequests:
		return "Transcription service is rate-limited. Please wait a moment and try again."
	default:
		if provider.Error.Message != "" {
			return "Transcription failed: " + provider.Error.Message
		}
		return "Transcription failed. Please try recording again."
	}
}

// estimateConfidence derives a confidence score when the provider reports
// none, combining speaking density against a ~2.5 words-per-second target
// with absolute word count, clamped to [0.30, 0.95].
func estimateConfidence(wordCount int, durationSeconds float64) float64 {
	const targetWPS = 2.5

	density := 0.5
	if durationSeconds > 0 {
		wps := float64(wordCount) / durationSeconds
		density = 1 - math.Min(1, math.Abs(wps-targetWPS)/targetWPS)
	}
	volume := math.Min(1, float64(wordCount)/40.0)

	confidence := 0.30 + 0.65*(0.7*density+0.3*volume)
	return math.Min(0.95, math.Max(0.30, confidence))
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	default:
		return ".webm"
	}
}
