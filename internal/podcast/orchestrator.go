package podcast

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"news-podcast-agent/internal/artifact"
	"news-podcast-agent/internal/domain"
	"news-podcast-agent/internal/jobs"
	"news-podcast-agent/internal/newsfeed"
	"news-podcast-agent/internal/tts"
)

// Validation bounds for submitted requests. Out-of-range values are
// rejected, never clamped.
const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 30
	MinSpeakingRate    = 0.5
	MaxSpeakingRate    = 2.0
)

// Defaults applied to empty request fields at submission.
type Defaults struct {
	City         string
	Voice        string
	SpeakingRate float64
}

// Orchestrator is the public-facing coordinator: it creates jobs,
// dispatches pipelines, and answers status, list, delete, and download
// requests. It owns the job store; nothing else mutates it directly.
type Orchestrator struct {
	store     jobs.Store
	artifacts *artifact.Store
	pipeline  *Pipeline
	runner    *jobs.Runner
	events    *jobs.EventBus
	fetcher   newsfeed.Fetcher
	synth     tts.Synthesizer
	defaults  Defaults
	now       func() time.Time
	newID     func() string
}

// NewOrchestrator wires the coordinator with its stores and collaborators.
func NewOrchestrator(
	store jobs.Store,
	artifacts *artifact.Store,
	pipeline *Pipeline,
	runner *jobs.Runner,
	events *jobs.EventBus,
	fetcher newsfeed.Fetcher,
	synth tts.Synthesizer,
	defaults Defaults,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		artifacts: artifacts,
		pipeline:  pipeline,
		runner:    runner,
		events:    events,
		fetcher:   fetcher,
		synth:     synth,
		defaults:  defaults,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
	}
}

// Submit validates the request, persists a pending record, and
// dispatches its pipeline. It returns before any pipeline stage runs.
func (o *Orchestrator) Submit(req domain.PodcastRequest) (domain.JobRecord, error) {
	normalized, err := o.normalize(req)
	if err != nil {
		return domain.JobRecord{}, err
	}

	record := domain.JobRecord{
		ID:        o.newID(),
		Status:    domain.JobStatusPending,
		Progress:  0,
		Message:   "job queued for processing",
		CreatedAt: o.now(),
	}
	if err := o.store.Create(record); err != nil {
		return domain.JobRecord{}, fmt.Errorf("persist job: %w", err)
	}

	if o.events != nil {
		o.events.Publish(jobs.Event{
			JobID:   record.ID,
			Type:    jobs.EventTypeStatus,
			Status:  record.Status,
			Message: record.Message,
		})
	}

	if err := o.runner.Dispatch(func(ctx context.Context) {
		o.pipeline.Run(ctx, record.ID, normalized)
	}); err != nil {
		// The service is draining; surface the rejection synchronously
		// rather than leaving a pending record nobody will run.
		_ = o.store.Delete(record.ID)
		return domain.JobRecord{}, fmt.Errorf("dispatch job: %w", err)
	}

	return record, nil
}

// normalize applies defaults and enforces parameter bounds.
func (o *Orchestrator) normalize(req domain.PodcastRequest) (domain.PodcastRequest, error) {
	if strings.TrimSpace(req.City) == "" {
		req.City = o.defaults.City
	}
	if strings.TrimSpace(req.Voice) == "" {
		req.Voice = o.defaults.Voice
	}
	if req.SpeakingRate == 0 {
		req.SpeakingRate = o.defaults.SpeakingRate
	}

	if req.DurationMinutes < MinDurationMinutes || req.DurationMinutes > MaxDurationMinutes {
		return domain.PodcastRequest{}, fmt.Errorf(
			"%w: duration_minutes must be between %d and %d, got %d",
			domain.ErrInvalidParameter, MinDurationMinutes, MaxDurationMinutes, req.DurationMinutes,
		)
	}
	if req.SpeakingRate < MinSpeakingRate || req.SpeakingRate > MaxSpeakingRate {
		return domain.PodcastRequest{}, fmt.Errorf(
			"%w: speaking_rate must be between %g and %g, got %g",
			domain.ErrInvalidParameter, MinSpeakingRate, MaxSpeakingRate, req.SpeakingRate,
		)
	}
	return req, nil
}

// Status returns the current record for one job.
func (o *Orchestrator) Status(id string) (domain.JobRecord, error) {
	return o.store.Get(id)
}

// List returns all job records in creation order.
func (o *Orchestrator) List() ([]domain.JobRecord, error) {
	return o.store.List()
}

// Delete removes a job and its artifact. The artifact is removed first
// so the record never points at a file that outlives it.
func (o *Orchestrator) Delete(id string) error {
	record, err := o.store.Get(id)
	if err != nil {
		return err
	}

	if record.AudioFile != "" {
		if err := o.artifacts.Delete(record.AudioFile); err != nil {
			return fmt.Errorf("delete artifact: %w", err)
		}
	}
	return o.store.Delete(id)
}

// Download opens an artifact by filename, independent of job identity.
func (o *Orchestrator) Download(filename string) (io.ReadCloser, error) {
	return o.artifacts.Open(filename)
}

// Synthesize runs an ad-hoc text-to-speech conversion not tied to a
// job and returns the generated filename.
func (o *Orchestrator) Synthesize(ctx context.Context, text, voice string, rate float64) (string, error) {
	if strings.TrimSpace(voice) == "" {
		voice = o.defaults.Voice
	}
	if rate == 0 {
		rate = o.defaults.SpeakingRate
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text must not be empty", domain.ErrInvalidParameter)
	}
	if rate < MinSpeakingRate || rate > MaxSpeakingRate {
		return "", fmt.Errorf(
			"%w: speaking_rate must be between %g and %g, got %g",
			domain.ErrInvalidParameter, MinSpeakingRate, MaxSpeakingRate, rate,
		)
	}

	filename := fmt.Sprintf("tts_%s.mp3", strings.ReplaceAll(o.newID(), "-", "")[:8])
	outPath, err := o.artifacts.PathFor(filename)
	if err != nil {
		return "", err
	}

	if _, err := o.synth.Synthesize(ctx, tts.Request{
		Text:         text,
		OutputPath:   outPath,
		Voice:        voice,
		SpeakingRate: rate,
	}); err != nil {
		return "", err
	}
	return filename, nil
}

// News fetches raw articles for a city without creating a job.
func (o *Orchestrator) News(ctx context.Context, city string, limit int) ([]domain.Article, error) {
	return o.fetcher.Fetch(ctx, city, limit)
}

// Events returns bus events newer than seq for incremental polling.
func (o *Orchestrator) Events(seq int64) []jobs.Event {
	return o.events.Since(seq)
}

// WaitEvents returns a channel closed once events newer than seq exist.
func (o *Orchestrator) WaitEvents(seq int64) <-chan struct{} {
	return o.events.Wait(seq)
}
