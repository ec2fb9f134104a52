package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"news-podcast-agent/internal/api"
	"news-podcast-agent/internal/artifact"
	"news-podcast-agent/internal/config"
	"news-podcast-agent/internal/diagnostics"
	"news-podcast-agent/internal/domain"
	"news-podcast-agent/internal/jobs"
	"news-podcast-agent/internal/newsfeed"
	"news-podcast-agent/internal/observability"
	"news-podcast-agent/internal/podcast"
	"news-podcast-agent/internal/script"
	"news-podcast-agent/internal/tts"
)

const (
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 30 * time.Second
	eventHistory    = 1000
)

// Options overrides persisted settings from the command line. Empty
// fields keep the stored value.
type Options struct {
	ConfigPath   string
	ListenAddr   string
	OutputDir    string
	StoreBackend string
	SQLitePath   string
}

// App wires configuration, the job store, the pipeline, and the HTTP API.
type App struct {
	Settings    domain.Settings
	Diagnostics domain.DiagnosticReport

	server       *http.Server
	runner       *jobs.Runner
	closeTracing func(context.Context) error
	runnerCancel context.CancelFunc
}

// New builds the application with persisted settings and startup diagnostics.
func New(opts Options) (*App, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user home: %w", err)
		}
		configPath = filepath.Join(homeDir, ".news-podcast-agent", "settings.json")
	}

	store := config.NewJSONStore(configPath)
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = applyOverrides(settings, opts)

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)
	for _, item := range report.Items {
		if item.Status == domain.DiagnosticStatusFail {
			log.Printf("diagnostic %s: %s", item.ID, item.Message)
		}
	}

	jobStore, err := openJobStore(settings)
	if err != nil {
		return nil, err
	}

	closeTracing, err := observability.InitTracingFromEnv("news-podcast-agent")
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	runnerCtx, runnerCancel := context.WithCancel(context.Background())
	runner := jobs.NewRunner(runnerCtx)
	events := jobs.NewEventBus(eventHistory)
	artifacts := artifact.NewStore(settings.OutputDir)
	fetcher := newsfeed.NewHTTPFetcher(settings.NewsFeedURL)
	composer := script.NewTemplateComposer()
	synth := tts.NewLocalSynthesizer()

	pipeline := podcast.NewPipeline(jobStore, artifacts, fetcher, composer, synth, events)
	orch := podcast.NewOrchestrator(jobStore, artifacts, pipeline, runner, events, fetcher, synth, podcast.Defaults{
		City:         settings.DefaultCity,
		Voice:        settings.DefaultVoice,
		SpeakingRate: settings.SpeakingRate,
	})

	server := &http.Server{
		Addr:    settings.ListenAddr,
		Handler: api.NewServer(orch, report).Handler(),
	}

	return &App{
		Settings:     settings,
		Diagnostics:  report,
		server:       server,
		runner:       runner,
		closeTracing: closeTracing,
		runnerCancel: runnerCancel,
	}, nil
}

// Run serves the API until ctx is cancelled, then drains background
// jobs before returning.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", a.server.Addr)
		serveErr <- a.server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		a.stopBackground()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	<-serveErr

	a.stopBackground()
	return nil
}

// stopBackground drains running jobs and flushes tracing.
func (a *App) stopBackground() {
	if !a.runner.Shutdown(drainTimeout) {
		log.Printf("background jobs did not drain within %s", drainTimeout)
	}
	a.runnerCancel()

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.closeTracing(flushCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}

// applyOverrides layers non-empty command-line options over settings.
func applyOverrides(settings domain.Settings, opts Options) domain.Settings {
	if addr := strings.TrimSpace(opts.ListenAddr); addr != "" {
		settings.ListenAddr = addr
	}
	if dir := strings.TrimSpace(opts.OutputDir); dir != "" {
		settings.OutputDir = dir
	}
	if backend := strings.TrimSpace(opts.StoreBackend); backend != "" {
		settings.StoreBackend = backend
	}
	if path := strings.TrimSpace(opts.SQLitePath); path != "" {
		settings.SQLitePath = path
	}
	return settings
}

// openJobStore selects the configured job store backend.
func openJobStore(settings domain.Settings) (jobs.Store, error) {
	switch settings.StoreBackend {
	case "", "memory":
		return jobs.NewMemoryStore(), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(settings.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		store, err := jobs.OpenGormStore(settings.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite job store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", settings.StoreBackend)
	}
}
