package config

import (
	"os"
	"path/filepath"

	"news-podcast-agent/internal/domain"
)

// DefaultSettings returns baseline service configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		ListenAddr:   ":8000",
		OutputDir:    "outputs",
		DefaultCity:  "San Francisco",
		DefaultVoice: "en-US-Studio-O",
		SpeakingRate: 0.95,
		NewsFeedURL:  "https://newsapi.org/v2/everything",
		StoreBackend: "memory",
		SQLitePath:   filepath.Join(homeDir, ".news-podcast-agent", "jobs.db"),
	}
}
