package container

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"intervox/adapters/capture"
	"intervox/adapters/llm"
	"intervox/adapters/postgres"
	"intervox/adapters/sqlite"
	"intervox/adapters/stt"
	"intervox/domain/recording"
	"intervox/internal"
	"intervox/internal/config"
	"intervox/internal/questions"
	"intervox/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Adapters
	Store       ports.SessionStore
	Transcriber ports.Transcriber
	Analyzer    ports.Analyzer
	Capture     ports.AudioCapture

	// Question pool
	Bank *questions.Bank
}

// New wires every adapter from configuration
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
		Bank:   questions.NewBank(),
	}

	if err := c.initStore(); err != nil {
		return nil, err
	}

	llmClient, err := llm.NewLLMClient(llm.Config{
		APIKey:      cfg.Analysis.APIKey,
		BaseURL:     cfg.Analysis.BaseURL,
		Timeout:     cfg.Analysis.Timeout,
		Temperature: cfg.Analysis.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	c.Analyzer = llm.NewAnalyzer(llmClient, cfg.Analysis.Model, cfg.Analysis.MaxTokens, logger)
	c.Transcriber = stt.NewWhisperClient(cfg.Transcription, logger)
	c.Capture = capture.NewFFmpegCapture(cfg.Recording.FFmpegCommand)

	return c, nil
}

func (c *Container) initStore() error {
	switch c.Config.Database.Driver {
	case "sqlite":
		db, err := sqlite.Connect(c.Config.Database.URL)
		if err != nil {
			return err
		}
		store, err := sqlite.NewSessionStore(db, c.Logger)
		if err != nil {
			db.Close()
			return err
		}
		c.DB = db
		c.Store = store
	default:
		db, err := postgres.Connect(c.Config.Database.URL)
		if err != nil {
			return err
		}
		store, err := postgres.NewSessionStore(db, c.Logger)
		if err != nil {
			db.Close()
			return err
		}
		c.DB = db
		c.Store = store
	}
	c.Logger.Info("[Container] session store ready (%s)", c.Config.Database.Driver)
	return nil
}

// NewRecorder builds a fresh server-side recorder around an idle capture
// session; each interview session gets its own
func (c *Container) NewRecorder() ports.Recorder {
	session := recording.NewSession(recording.Config{
		MaxDurationSeconds: c.Config.Recording.MaxDurationSeconds,
		AutoStop:           c.Config.Recording.AutoStop,
		MIMEType:           c.Config.Recording.MIMEType,
	})
	return capture.NewRecorder(c.Capture, ports.CaptureConfig{
		SampleRate:  c.Config.Recording.SampleRate,
		Channels:    c.Config.Recording.Channels,
		InputFormat: c.Config.Recording.InputFormat,
		InputDevice: c.Config.Recording.InputDevice,
	}, session, c.Logger)
}

// Close releases held infrastructure
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
