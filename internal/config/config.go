package config

import (
	"os"
	"strconv"
	"time"

	"intervox/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database      DatabaseConfig
	Transcription TranscriptionConfig
	Analysis      AnalysisConfig
	Recording     RecordingConfig
	Server        ServerConfig
}

// DatabaseConfig holds session store settings
type DatabaseConfig struct {
	Driver string // "postgres" or "sqlite"
	URL    string // postgres DSN or sqlite file path
}

// TranscriptionConfig holds speech-to-text provider settings
type TranscriptionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Language    string
	Temperature float64
}

// AnalysisConfig holds answer-scoring provider settings
type AnalysisConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// RecordingConfig holds microphone capture settings. ServerCapture
// switches from browser-uploaded artifacts to capturing on the server
// host's microphone (kiosk installs).
type RecordingConfig struct {
	MaxDurationSeconds int
	AutoStop           bool
	SampleRate         int
	Channels           int
	InputFormat        string
	InputDevice        string
	FFmpegCommand      string
	MIMEType           string
	ServerCapture      bool
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "postgres"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		Transcription: TranscriptionConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("WHISPER_MODEL", "whisper-1"),
			Language:    getEnv("TRANSCRIPTION_LANGUAGE", "en"),
			Temperature: getEnvFloat("TRANSCRIPTION_TEMPERATURE", 0.0),
		},
		Analysis: AnalysisConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens:   getEnvInt("ANALYSIS_MAX_TOKENS", 2000),
			Temperature: getEnvFloat("ANALYSIS_TEMPERATURE", 0.3),
			Timeout:     time.Duration(getEnvInt("ANALYSIS_TIMEOUT_MS", 180000)) * time.Millisecond,
		},
		Recording: RecordingConfig{
			MaxDurationSeconds: getEnvInt("MAX_RECORDING_SECONDS", 300),
			AutoStop:           getEnvBool("RECORDING_AUTO_STOP", true),
			SampleRate:         getEnvInt("AUDIO_SAMPLE_RATE", 16000),
			Channels:           getEnvInt("AUDIO_CHANNELS", 1),
			InputFormat:        getEnv("AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:        getEnv("AUDIO_INPUT_DEVICE", "default"),
			FFmpegCommand:      getEnv("FFMPEG_COMMAND", "ffmpeg"),
			MIMEType:           getEnv("RECORDING_MIME_TYPE", "audio/webm"),
			ServerCapture:      getEnvBool("SERVER_CAPTURE", false),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return errors.ConfigInvalid("DATABASE_DRIVER must be postgres or sqlite")
	}
	if c.Transcription.APIKey == "" {
		return errors.ConfigInvalid("OPENAI_API_KEY is required")
	}
	if c.Recording.MaxDurationSeconds <= 0 {
		return errors.ConfigInvalid("MAX_RECORDING_SECONDS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
