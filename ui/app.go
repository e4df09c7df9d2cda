package ui

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"intervox/adapters/report"
	"intervox/app"
	"intervox/internal"
	"intervox/internal/config"
	"intervox/internal/questions"
	"intervox/internal/waveform"
	"intervox/ports"
)

// App is the JSON API surface: it exposes the interview session
// lifecycle over HTTP for a browser client that records audio locally
// and uploads finished artifacts.
type App struct {
	router      *chi.Mux
	cfg         *config.Config
	bank        *questions.Bank
	store       ports.SessionStore
	transcriber ports.Transcriber
	analyzer    ports.Analyzer
	reporter    *report.ExcelReport
	newRecorder func() ports.Recorder
	logger      *internal.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionRuntime
}

// sessionRuntime pairs a session coordinator with the answer pipeline
// driving its current question. In server-capture mode it also owns the
// microphone recorder and its amplitude monitor.
type sessionRuntime struct {
	coordinator *app.SessionService
	pipeline    *app.PipelineService
	recorder    ports.Recorder
	monitor     *waveform.Monitor
}

// Deps bundles the adapters the API needs. NewRecorder is only set in
// server-capture mode; when nil, answers arrive as browser uploads.
type Deps struct {
	Config      *config.Config
	Bank        *questions.Bank
	Store       ports.SessionStore
	Transcriber ports.Transcriber
	Analyzer    ports.Analyzer
	NewRecorder func() ports.Recorder
	Logger      *internal.Logger
}

// NewApp creates the API application
func NewApp(deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	a := &App{
		router:      chi.NewRouter(),
		cfg:         deps.Config,
		bank:        deps.Bank,
		store:       deps.Store,
		transcriber: deps.Transcriber,
		analyzer:    deps.Analyzer,
		reporter:    report.NewExcelReport(),
		newRecorder: deps.NewRecorder,
		logger:      logger,
		sessions:    make(map[uuid.UUID]*sessionRuntime),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Timeout(5 * time.Minute))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", a.handleStartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", a.handleGetSession)
			r.Post("/answers", a.handleSubmitAnswer)
			r.Post("/skip", a.handleSkipQuestion)
			r.Post("/complete", a.handleCompleteSession)
			r.Get("/report.xlsx", a.handleReport)
			r.Get("/answers/{index}/feedback", a.handleFeedbackHTML)
			r.Route("/recording", func(r chi.Router) {
				r.Post("/start", a.handleRecordingStart)
				r.Post("/pause", a.handleRecordingPause)
				r.Post("/stop", a.handleRecordingStop)
				r.Get("/status", a.handleRecordingStatus)
			})
		})
	})
	a.router.Get("/healthz", a.handleHealth)
}

// Router exposes the configured handler for the HTTP server
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) runtime(id uuid.UUID) (*sessionRuntime, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rt, ok := a.sessions[id]
	return rt, ok
}

func (a *App) registerRuntime(id uuid.UUID, rt *sessionRuntime) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[id] = rt
}
