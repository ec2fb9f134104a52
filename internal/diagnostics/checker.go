package diagnostics

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"news-podcast-agent/internal/domain"
	"news-podcast-agent/internal/podcast"
	"news-podcast-agent/internal/tts"
)

// Checker validates settings and required filesystem paths at startup.
type Checker struct {
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkOutputDir(settings.OutputDir),
		c.checkVoice(settings.DefaultVoice),
		c.checkSpeakingRate(settings.SpeakingRate),
		c.checkFeedURL(settings.NewsFeedURL),
		c.checkStoreBackend(settings.StoreBackend, settings.SQLitePath),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkOutputDir validates artifact directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory where podcast audio can be written."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for audio export."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// checkVoice verifies the configured default voice is in the catalog.
func (c *Checker) checkVoice(voice string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "default_voice",
		Name: "Default voice",
	}

	if strings.TrimSpace(voice) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Default voice is empty."
		item.Hint = "Set one of the catalog voice identifiers in settings."
		return item
	}

	if _, ok := tts.LookupVoice(voice); !ok {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Unknown voice: %s", voice)
		item.Hint = "Pick a voice from the /api/v1/voices catalog."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Voice available: %s", voice)
	return item
}

// checkSpeakingRate validates the configured rate against request bounds.
func (c *Checker) checkSpeakingRate(rate float64) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "speaking_rate",
		Name: "Speaking rate",
	}

	if rate < podcast.MinSpeakingRate || rate > podcast.MaxSpeakingRate {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Speaking rate %.2f is out of range.", rate)
		item.Hint = fmt.Sprintf("Use a rate between %.1f and %.1f.",
			podcast.MinSpeakingRate, podcast.MaxSpeakingRate)
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Speaking rate %.2f", rate)
	return item
}

// checkFeedURL validates the news feed endpoint is a usable HTTP URL.
func (c *Checker) checkFeedURL(feedURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "news_feed_url",
		Name: "News feed URL",
	}

	if strings.TrimSpace(feedURL) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "News feed URL is empty."
		item.Hint = "Configure the upstream news endpoint in settings."
		return item
	}

	parsed, err := url.Parse(feedURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("News feed URL is not a valid HTTP endpoint: %s", feedURL)
		item.Hint = "Use an absolute http:// or https:// URL."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Feed endpoint: %s", parsed.Host)
	return item
}

// checkStoreBackend validates the job store selection, including the
// database location when the sqlite backend is configured.
func (c *Checker) checkStoreBackend(backend, sqlitePath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "store_backend",
		Name: "Job store",
	}

	switch backend {
	case "memory":
		item.Status = domain.DiagnosticStatusPass
		item.Message = "In-memory job store."
		return item
	case "sqlite":
		if strings.TrimSpace(sqlitePath) == "" {
			item.Status = domain.DiagnosticStatusFail
			item.Message = "SQLite path is empty."
			item.Hint = "Set sqlitePath to the database file location."
			return item
		}
		if err := c.mkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Cannot create database directory for: %s", sqlitePath)
			item.Hint = "Choose a writable location for the database file."
			return item
		}
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("SQLite job store at %s", sqlitePath)
		return item
	default:
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Unknown store backend: %s", backend)
		item.Hint = `Use "memory" or "sqlite".`
		return item
	}
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}

// IsNotExist reports whether error represents file-not-found.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
