package domain

import (
	"errors"
	"time"
)

// JobStatus tracks the lifecycle of a single podcast production job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ErrJobNotFound is returned when a job id is absent from the store.
var ErrJobNotFound = errors.New("job not found")

// ErrDuplicateID is returned when creating a job whose id already exists.
var ErrDuplicateID = errors.New("job id already exists")

// ErrInvalidParameter is returned when a request value is out of bounds.
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrFileNotFound is returned when a requested artifact does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidFilename is returned for names that would escape the output directory.
var ErrInvalidFilename = errors.New("invalid filename")

// JobRecord is the complete state of one podcast production request.
type JobRecord struct {
	ID          string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	AudioFile   string     `json:"audio_file,omitempty"`
	Script      string     `json:"script,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// JobUpdate is a partial-field merge applied atomically by a job store.
// Nil fields leave the existing value unchanged.
type JobUpdate struct {
	Status      *JobStatus
	Progress    *int
	Message     *string
	CompletedAt *time.Time
	AudioFile   *string
	Script      *string
	Error       *string
}

// PodcastRequest holds parameters for one production job.
type PodcastRequest struct {
	City            string  `json:"city"`
	DurationMinutes int     `json:"duration_minutes"`
	Voice           string  `json:"voice"`
	SpeakingRate    float64 `json:"speaking_rate"`
}

// Article is one content item returned by the news collaborator.
type Article struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"published_at"`
}

// Settings contains service runtime configuration.
type Settings struct {
	ListenAddr   string  `json:"listenAddr"`
	OutputDir    string  `json:"outputDir"`
	DefaultCity  string  `json:"defaultCity"`
	DefaultVoice string  `json:"defaultVoice"`
	SpeakingRate float64 `json:"speakingRate"`
	NewsFeedURL  string  `json:"newsFeedUrl"`
	StoreBackend string  `json:"storeBackend"`
	SQLitePath   string  `json:"sqlitePath"`
}
