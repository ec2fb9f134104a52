// Package api binds the orchestrator to HTTP. It is a thin transport
// layer: validation beyond JSON shape, state, and file handling all
// live behind the orchestrator.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/lo"

	"news-podcast-agent/internal/domain"
	"news-podcast-agent/internal/podcast"
	"news-podcast-agent/internal/tts"
)

// Version reported by the health and index endpoints.
const Version = "1.0.0"

// defaultDurationMinutes applies when a generate request omits the field.
const defaultDurationMinutes = 5

// Server exposes the podcast orchestrator over HTTP.
type Server struct {
	orch        *podcast.Orchestrator
	diagnostics domain.DiagnosticReport
}

// NewServer creates the HTTP binding for one orchestrator.
func NewServer(orch *podcast.Orchestrator, diagnostics domain.DiagnosticReport) *Server {
	return &Server{orch: orch, diagnostics: diagnostics}
}

// Handler builds the echo engine with all routes and middleware.
func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	e.GET("/", s.handleIndex)
	e.POST("/api/v1/podcast/generate", s.handleGenerate)
	e.GET("/api/v1/jobs", s.handleListJobs)
	e.GET("/api/v1/jobs/:id", s.handleJobStatus)
	e.DELETE("/api/v1/jobs/:id", s.handleDeleteJob)
	e.GET("/api/v1/files/:filename", s.handleDownload)
	e.POST("/api/v1/tts", s.handleTTS)
	e.GET("/api/v1/news/:city", s.handleNews)
	e.GET("/api/v1/voices", s.handleVoices)
	e.GET("/api/v1/events", s.handleEvents)
	e.GET("/api/v1/events/ws", s.handleEventsWS)
	e.GET("/api/v1/health", s.handleHealth)

	return e
}

// errorEnvelope is the error body shape shared by all endpoints.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorEnvelope{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message": "News Podcast Agent API",
		"version": Version,
		"endpoints": map[string]string{
			"generate_podcast": "/api/v1/podcast/generate",
			"job_status":       "/api/v1/jobs/{job_id}",
			"download_audio":   "/api/v1/files/{filename}",
			"text_to_speech":   "/api/v1/tts",
		},
	})
}

// generateResponse acknowledges an accepted production request.
type generateResponse struct {
	JobID   string           `json:"job_id"`
	Status  domain.JobStatus `json:"status"`
	Message string           `json:"message"`
}

func (s *Server) handleGenerate(c echo.Context) error {
	req := domain.PodcastRequest{DurationMinutes: defaultDurationMinutes}
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body")
	}

	record, err := s.orch.Submit(req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParameter) {
			return writeError(c, http.StatusBadRequest, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "could not start podcast generation")
	}

	return c.JSON(http.StatusOK, generateResponse{
		JobID:   record.ID,
		Status:  record.Status,
		Message: "Podcast generation started",
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	record, err := s.orch.Status(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return writeError(c, http.StatusNotFound, "Job not found")
		}
		return writeError(c, http.StatusInternalServerError, "could not read job")
	}
	return c.JSON(http.StatusOK, record)
}

// jobSummary augments a record with its download link once available.
type jobSummary struct {
	domain.JobRecord
	DownloadURL string `json:"download_url,omitempty"`
}

func (s *Server) handleListJobs(c echo.Context) error {
	records, err := s.orch.List()
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "could not list jobs")
	}

	summaries := lo.Map(records, func(record domain.JobRecord, _ int) jobSummary {
		summary := jobSummary{JobRecord: record}
		if record.AudioFile != "" {
			summary.DownloadURL = "/api/v1/files/" + record.AudioFile
		}
		return summary
	})
	return c.JSON(http.StatusOK, map[string]any{
		"jobs":  summaries,
		"total": len(summaries),
	})
}

func (s *Server) handleDeleteJob(c echo.Context) error {
	if err := s.orch.Delete(c.Param("id")); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return writeError(c, http.StatusNotFound, "Job not found")
		}
		return writeError(c, http.StatusInternalServerError, "could not delete job")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Job deleted successfully"})
}

func (s *Server) handleDownload(c echo.Context) error {
	filename := c.Param("filename")
	r, err := s.orch.Download(filename)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidFilename):
			return writeError(c, http.StatusBadRequest, "invalid filename")
		case errors.Is(err, domain.ErrFileNotFound):
			return writeError(c, http.StatusNotFound, "File not found")
		default:
			return writeError(c, http.StatusInternalServerError, "could not open file")
		}
	}
	defer r.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Stream(http.StatusOK, "audio/mpeg", r)
}

// ttsRequest is the ad-hoc conversion body.
type ttsRequest struct {
	Text         string  `json:"text"`
	Voice        string  `json:"voice"`
	SpeakingRate float64 `json:"speaking_rate"`
}

func (s *Server) handleTTS(c echo.Context) error {
	var req ttsRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid request body")
	}

	filename, err := s.orch.Synthesize(c.Request().Context(), req.Text, req.Voice, req.SpeakingRate)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParameter) {
			return writeError(c, http.StatusBadRequest, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "TTS generation failed")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message":      "Text converted to speech successfully",
		"filename":     filename,
		"download_url": "/api/v1/files/" + filename,
	})
}

func (s *Server) handleNews(c echo.Context) error {
	city := c.Param("city")
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return writeError(c, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	articles, err := s.orch.News(c.Request().Context(), city, limit)
	if err != nil {
		return writeError(c, http.StatusBadGateway, "failed to fetch news")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"city":     city,
		"articles": articles,
		"count":    len(articles),
	})
}

func (s *Server) handleVoices(c echo.Context) error {
	voices := tts.Voices()
	return c.JSON(http.StatusOK, map[string]any{
		"voices": voices,
		"count":  len(voices),
	})
}

func (s *Server) handleEvents(c echo.Context) error {
	var since int64
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return writeError(c, http.StatusBadRequest, "since must be a non-negative integer")
		}
		since = parsed
	}

	events := s.orch.Events(since)
	lastSeq := since
	if n := len(events); n > 0 {
		lastSeq = events[n-1].Seq
	}
	return c.JSON(http.StatusOK, map[string]any{
		"events":   events,
		"last_seq": lastSeq,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	status := "healthy"
	if s.diagnostics.HasFailures {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   Version,
	})
}
