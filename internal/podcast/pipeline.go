// Package podcast contains the production pipeline and its
// orchestrator: the asynchronous core that turns a submitted request
// into a generated audio artifact.
package podcast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"news-podcast-agent/internal/artifact"
	"news-podcast-agent/internal/domain"
	"news-podcast-agent/internal/jobs"
	"news-podcast-agent/internal/newsfeed"
	"news-podcast-agent/internal/observability"
	"news-podcast-agent/internal/script"
	"news-podcast-agent/internal/tts"
)

// newsLimit caps how many articles one episode draws from.
const newsLimit = 10

// PipelineError is a stage-aware error recorded into failed jobs.
type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

// Error formats pipeline failures for job records and logs.
func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Pipeline drives one job through intake, compose, and synthesize
// stages, reporting milestone progress into the job store as it
// advances. Collaborator failures never escape a run; they become the
// job's terminal failed state.
type Pipeline struct {
	store     jobs.Store
	artifacts *artifact.Store
	fetcher   newsfeed.Fetcher
	composer  script.Composer
	synth     tts.Synthesizer
	events    *jobs.EventBus
	now       func() time.Time
}

// NewPipeline wires the pipeline's store, artifact layer, and collaborators.
func NewPipeline(
	store jobs.Store,
	artifacts *artifact.Store,
	fetcher newsfeed.Fetcher,
	composer script.Composer,
	synth tts.Synthesizer,
	events *jobs.EventBus,
) *Pipeline {
	return &Pipeline{
		store:     store,
		artifacts: artifacts,
		fetcher:   fetcher,
		composer:  composer,
		synth:     synth,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AudioFileName returns the deterministic artifact name for a job.
func AudioFileName(jobID string) string {
	return "podcast_" + jobID + ".mp3"
}

// Run executes every stage for one job and always records a terminal
// state. It never returns an error to the scheduler; there is no caller
// waiting on it.
func (p *Pipeline) Run(ctx context.Context, jobID string, req domain.PodcastRequest) {
	ctx, span := observability.StartSpan(ctx, "pipeline.run",
		attribute.String("job.id", jobID),
		attribute.String("podcast.city", req.City),
	)
	defer span.End()

	if err := p.produce(ctx, jobID, req); err != nil {
		p.recordFailure(jobID, err)
	}
}

// produce runs the staged sequence, returning the first stage failure.
func (p *Pipeline) produce(ctx context.Context, jobID string, req domain.PodcastRequest) error {
	// Stage "intake": the job leaves pending only here.
	p.advance(jobID, "intake", domain.JobStatusProcessing, 10, "fetching local news")

	articles, err := p.fetchArticles(ctx, req.City)
	if err != nil {
		return err
	}

	// Stage "compose": the script becomes visible to status polls as
	// soon as it exists, before audio synthesis starts.
	p.advanceProgress(jobID, "compose", 30, "generating podcast script")

	text, err := p.composeScript(ctx, req, articles)
	if err != nil {
		return err
	}
	p.applyUpdate(jobID, domain.JobUpdate{Script: &text})

	// Stage "synthesize".
	p.advanceProgress(jobID, "synthesize", 70, "converting script to audio")

	filename := AudioFileName(jobID)
	if err := p.synthesizeAudio(ctx, req, text, filename); err != nil {
		// A partial file must not outlive the failed run.
		_ = p.artifacts.Delete(filename)
		return err
	}

	p.recordSuccess(jobID, filename)
	return nil
}

func (p *Pipeline) fetchArticles(ctx context.Context, city string) ([]domain.Article, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.intake")
	defer span.End()

	articles, err := p.fetcher.Fetch(ctx, city, newsLimit)
	if err != nil {
		return nil, &PipelineError{Stage: "intake", Message: "fetching local news failed", Err: err}
	}
	return articles, nil
}

func (p *Pipeline) composeScript(ctx context.Context, req domain.PodcastRequest, articles []domain.Article) (string, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.compose")
	defer span.End()

	text, err := p.composer.Compose(ctx, req.City, articles, req.DurationMinutes)
	if err != nil {
		return "", &PipelineError{Stage: "compose", Message: "generating podcast script failed", Err: err}
	}
	return text, nil
}

func (p *Pipeline) synthesizeAudio(ctx context.Context, req domain.PodcastRequest, text, filename string) error {
	ctx, span := observability.StartSpan(ctx, "pipeline.synthesize")
	defer span.End()

	outPath, err := p.artifacts.PathFor(filename)
	if err != nil {
		return &PipelineError{Stage: "synthesize", Message: "resolving output path failed", Err: err}
	}

	if _, err := p.synth.Synthesize(ctx, tts.Request{
		Text:         text,
		OutputPath:   outPath,
		Voice:        req.Voice,
		SpeakingRate: req.SpeakingRate,
	}); err != nil {
		return &PipelineError{Stage: "synthesize", Message: "converting script to audio failed", Err: err}
	}
	return nil
}

// advance writes a stage milestone including a status change.
func (p *Pipeline) advance(jobID, stage string, status domain.JobStatus, progress int, message string) {
	p.applyUpdate(jobID, domain.JobUpdate{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
	})
	p.publishStage(jobID, stage, progress, message)
}

// advanceProgress writes a stage milestone without changing status.
func (p *Pipeline) advanceProgress(jobID, stage string, progress int, message string) {
	p.applyUpdate(jobID, domain.JobUpdate{
		Progress: &progress,
		Message:  &message,
	})
	p.publishStage(jobID, stage, progress, message)
}

// recordSuccess writes the terminal completed state in one atomic update.
func (p *Pipeline) recordSuccess(jobID, filename string) {
	status := domain.JobStatusCompleted
	progress := 100
	message := "podcast generated successfully"
	completedAt := p.now()
	p.applyUpdate(jobID, domain.JobUpdate{
		Status:      &status,
		Progress:    &progress,
		Message:     &message,
		CompletedAt: &completedAt,
		AudioFile:   &filename,
	})
	if p.events != nil {
		p.events.Publish(jobs.Event{
			JobID:     jobID,
			Type:      jobs.EventTypeResult,
			Status:    status,
			Progress:  progress,
			Message:   message,
			AudioFile: filename,
		})
	}
}

// recordFailure writes the terminal failed state in one atomic update.
// Progress resets to 0; an already-captured script is kept.
func (p *Pipeline) recordFailure(jobID string, cause error) {
	status := domain.JobStatusFailed
	progress := 0
	message := fmt.Sprintf("failed to generate podcast: %v", cause)
	errText := cause.Error()
	completedAt := p.now()
	p.applyUpdate(jobID, domain.JobUpdate{
		Status:      &status,
		Progress:    &progress,
		Message:     &message,
		Error:       &errText,
		CompletedAt: &completedAt,
	})
	if p.events != nil {
		p.events.Publish(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeError,
			Status:  status,
			Message: errText,
		})
	}
}

// applyUpdate writes to the store, dropping updates for records deleted
// while the pipeline was still running.
func (p *Pipeline) applyUpdate(jobID string, update domain.JobUpdate) {
	err := p.store.Update(jobID, update)
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrJobNotFound) {
		log.Printf("job %s deleted mid-run, dropping update", jobID)
		return
	}
	log.Printf("job %s: store update failed: %v", jobID, err)
}

// publishStage emits a stage event for pollers and websocket clients.
func (p *Pipeline) publishStage(jobID, stage string, progress int, message string) {
	if p.events == nil {
		return
	}
	p.events.Publish(jobs.Event{
		JobID:    jobID,
		Type:     jobs.EventTypeStage,
		Status:   domain.JobStatusProcessing,
		Stage:    stage,
		Progress: progress,
		Message:  message,
	})
}
