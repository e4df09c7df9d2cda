package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gomarkdown/markdown"
	"github.com/google/uuid"

	"intervox/app"
	"intervox/domain/recording"
	"intervox/internal/errors"
	"intervox/internal/identity"
	"intervox/internal/waveform"
	"intervox/models"
	"intervox/ports"
)

// maxUploadBytes bounds one answer upload; matches the transcription
// provider's 25MB payload ceiling
const maxUploadBytes = 25 * 1024 * 1024

type startSessionRequest struct {
	SessionType   string `json:"sessionType"`
	QuestionCount int    `json:"questionCount"`
	UserEmail     string `json:"userEmail"`
}

type questionView struct {
	Index    int             `json:"index"`
	Total    int             `json:"total"`
	Question models.Question `json:"question"`
}

type sessionView struct {
	Session         *models.InterviewSession `json:"session"`
	CurrentQuestion *questionView            `json:"currentQuestion,omitempty"`
	Warnings        []string                 `json:"warnings,omitempty"`
}

func (a *App) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, errors.InvalidInput("malformed request body"))
		return
	}
	if req.QuestionCount <= 0 {
		req.QuestionCount = 5
	}

	sessionType := models.SessionType(req.SessionType)
	qs, err := a.bank.Select(sessionType, req.QuestionCount, time.Now().UnixNano())
	if err != nil {
		a.writeError(w, err)
		return
	}

	who := identity.Anonymous()
	if req.UserEmail != "" {
		who = identity.New(uuid.New(), req.UserEmail)
	}

	coordinator := app.NewSessionService(a.store, a.logger)
	id, err := coordinator.StartSession(r.Context(), who, sessionType, qs)
	if err != nil {
		a.writeError(w, err)
		return
	}

	rt := &sessionRuntime{coordinator: coordinator}
	if a.newRecorder != nil {
		rt.recorder = a.newRecorder()
		rt.monitor = waveform.NewMonitor(waveform.DefaultBarCount)
	}
	pipeline := app.NewPipelineService(rt.recorder, a.transcriber, a.analyzer, a.logger)
	pipeline.SetTranscribeOptions(ports.TranscribeOptions{
		Language:    a.cfg.Transcription.Language,
		Temperature: a.cfg.Transcription.Temperature,
	})
	rt.pipeline = pipeline
	if q, idx, ok := coordinator.CurrentQuestion(); ok {
		pipeline.BeginQuestion(q)
		a.registerRuntime(id, rt)
		a.writeJSON(w, http.StatusCreated, sessionView{
			Session:         coordinator.Record(),
			CurrentQuestion: &questionView{Index: idx, Total: len(qs), Question: q},
		})
		return
	}
	a.writeError(w, errors.InvalidInput("session started with no questions"))
}

func (a *App) handleGetSession(w http.ResponseWriter, r *http.Request) {
	rt, id, err := a.runtimeFromRequest(r)
	if err != nil {
		// Fall back to the store for sessions from earlier runs
		if id != uuid.Nil {
			if session, lookupErr := a.store.GetSession(r.Context(), id); lookupErr == nil {
				a.writeJSON(w, http.StatusOK, sessionView{Session: session})
				return
			}
		}
		a.writeError(w, err)
		return
	}

	view := sessionView{Session: rt.coordinator.Record(), Warnings: rt.coordinator.Warnings()}
	if q, idx, ok := rt.coordinator.CurrentQuestion(); ok {
		view.CurrentQuestion = &questionView{Index: idx, Total: view.Session.TotalQuestions, Question: q}
	}
	a.writeJSON(w, http.StatusOK, view)
}

// handleSubmitAnswer accepts one recorded answer as a multipart upload,
// runs it through transcription and analysis, and advances the session.
// Transcription failures leave the session on the same question so the
// client can re-record.
func (a *App) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	rt, _, err := a.runtimeFromRequest(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.writeError(w, errors.InvalidInput("audio upload too large or malformed"))
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		a.writeError(w, errors.InvalidInput("missing audio file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.writeError(w, errors.InvalidInput("unreadable audio upload"))
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = a.cfg.Recording.MIMEType
	}
	durationSeconds, _ := strconv.Atoi(r.FormValue("durationSeconds"))

	artifact := recording.Artifact{Data: data, MIMEType: mimeType}
	if err := rt.pipeline.AttachArtifact(artifact, durationSeconds); err != nil {
		a.writeError(w, err)
		return
	}

	result, err := rt.pipeline.ProcessAnswer(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := rt.coordinator.SubmitAnswer(r.Context(), result); err != nil {
		a.writeError(w, err)
		return
	}
	a.advanceAndRespond(w, rt, result)
}

func (a *App) handleSkipQuestion(w http.ResponseWriter, r *http.Request) {
	rt, _, err := a.runtimeFromRequest(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := rt.coordinator.SkipCurrentQuestion(r.Context()); err != nil {
		a.writeError(w, err)
		return
	}
	a.advanceAndRespond(w, rt, nil)
}

func (a *App) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	rt, _, err := a.runtimeFromRequest(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	session, err := rt.coordinator.CompleteSession(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, sessionView{Session: session, Warnings: rt.coordinator.Warnings()})
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	rt, id, err := a.runtimeFromRequest(r)
	var session *models.InterviewSession
	if err == nil {
		session = rt.coordinator.Record()
	} else if id != uuid.Nil {
		if session, err = a.store.GetSession(r.Context(), id); err != nil {
			a.writeError(w, err)
			return
		}
	} else {
		a.writeError(w, err)
		return
	}

	data, err := a.reporter.Render(session)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=interview-%s.xlsx", session.ID))
	w.Write(data)
}

// handleFeedbackHTML renders one answer's detailed feedback, which the
// scoring provider writes as markdown, into an HTML fragment
func (a *App) handleFeedbackHTML(w http.ResponseWriter, r *http.Request) {
	rt, _, err := a.runtimeFromRequest(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.writeError(w, errors.InvalidInput("answer index must be a number"))
		return
	}
	record := rt.coordinator.Record()
	if index < 0 || index >= record.AnswerCount() {
		a.writeError(w, errors.NotFound("answer"))
		return
	}
	answer := record.Answers[index]
	if answer.Analysis == nil {
		a.writeError(w, errors.NotFound("analysis"))
		return
	}

	html := markdown.ToHTML([]byte(answer.Analysis.Feedback.DetailedFeedback), nil, nil)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) advanceAndRespond(w http.ResponseWriter, rt *sessionRuntime, result *app.AnswerResult) {
	view := struct {
		Result *app.AnswerResult `json:"result,omitempty"`
		sessionView
	}{Result: result}
	view.Session = rt.coordinator.Record()
	view.Warnings = rt.coordinator.Warnings()
	if q, idx, ok := rt.coordinator.CurrentQuestion(); ok {
		rt.pipeline.BeginQuestion(q)
		view.CurrentQuestion = &questionView{Index: idx, Total: view.Session.TotalQuestions, Question: q}
	}
	a.writeJSON(w, http.StatusOK, view)
}

func (a *App) runtimeFromRequest(r *http.Request) (*sessionRuntime, uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		return nil, uuid.Nil, errors.InvalidInput("malformed session id")
	}
	rt, ok := a.runtime(id)
	if !ok {
		return nil, id, errors.NotFound("session")
	}
	return rt, id, nil
}

func (a *App) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("[API] failed to encode response: %v", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeTranscriptionError:
		status = http.StatusUnprocessableEntity
	case errors.CodeCaptureError, errors.CodeExternalService:
		status = http.StatusBadGateway
	}
	a.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}
