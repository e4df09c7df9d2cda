package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"intervox/internal"
	"intervox/internal/config"
	"intervox/internal/container"
	"intervox/ui"
)

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	deps, err := container.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to wire dependencies: %v", err)
	}
	defer deps.Close()

	appDeps := ui.Deps{
		Config:      cfg,
		Bank:        deps.Bank,
		Store:       deps.Store,
		Transcriber: deps.Transcriber,
		Analyzer:    deps.Analyzer,
		Logger:      logger,
	}
	if cfg.Recording.ServerCapture {
		appDeps.NewRecorder = deps.NewRecorder
	}
	app := ui.NewApp(appDeps)

	addr := ":" + cfg.Server.Port
	logger.Info("[Main] interview practice API listening on %s", addr)
	if err := http.ListenAndServe(addr, app.Router()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
