package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"news-podcast-agent/internal/artifact"
	"news-podcast-agent/internal/domain"
	"news-podcast-agent/internal/jobs"
	"news-podcast-agent/internal/podcast"
	"news-podcast-agent/internal/script"
	"news-podcast-agent/internal/tts"
)

// stubFetcher serves canned articles, failing for the configured city.
type stubFetcher struct {
	failCity string
}

func (f *stubFetcher) Fetch(ctx context.Context, city string, limit int) ([]domain.Article, error) {
	if city == f.failCity {
		return nil, errors.New("feed unreachable")
	}
	return []domain.Article{
		{Title: "Council approves budget", Source: "City Desk", Summary: "The vote passed narrowly."},
	}, nil
}

// newTestServer builds a full stack on temp storage with a stub feed.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := jobs.NewMemoryStore()
	artifacts := artifact.NewStore(t.TempDir())
	events := jobs.NewEventBus(200)
	runner := jobs.NewRunner(context.Background())
	t.Cleanup(func() { runner.Shutdown(5 * time.Second) })

	fetcher := &stubFetcher{failCity: "Nowhere"}
	synth := tts.NewLocalSynthesizer()
	pipeline := podcast.NewPipeline(store, artifacts, fetcher, script.NewTemplateComposer(), synth, events)
	orch := podcast.NewOrchestrator(store, artifacts, pipeline, runner, events, fetcher, synth, podcast.Defaults{
		City:         "San Francisco",
		Voice:        "en-US-Studio-O",
		SpeakingRate: 0.95,
	})

	server := httptest.NewServer(NewServer(orch, domain.DiagnosticReport{}).Handler())
	t.Cleanup(server.Close)
	return server
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// pollUntilTerminal polls the status endpoint until a terminal state.
func pollUntilTerminal(t *testing.T, baseURL, jobID string) domain.JobRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/api/v1/jobs/" + jobID)
		if err != nil {
			t.Fatalf("GET status: %v", err)
		}
		var record domain.JobRecord
		decodeBody(t, resp, &record)
		if record.Status.Terminal() {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return domain.JobRecord{}
}

// TestGenerateLifecycleOverHTTP walks submit, poll, list, download, delete.
func TestGenerateLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/podcast/generate",
		`{"city": "Springfield", "duration_minutes": 5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}
	var generated struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &generated)
	if generated.JobID == "" || generated.Status != "pending" {
		t.Fatalf("generate response = %+v", generated)
	}

	record := pollUntilTerminal(t, server.URL, generated.JobID)
	if record.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s (%s), want completed", record.Status, record.Error)
	}
	if matched := regexp.MustCompile(`^podcast_.+\.mp3$`).MatchString(record.AudioFile); !matched {
		t.Fatalf("audio_file = %q", record.AudioFile)
	}

	// List shows the job with a download link.
	resp, err := http.Get(server.URL + "/api/v1/jobs")
	if err != nil {
		t.Fatalf("GET jobs: %v", err)
	}
	var listing struct {
		Jobs []struct {
			JobID       string `json:"job_id"`
			DownloadURL string `json:"download_url"`
		} `json:"jobs"`
		Total int `json:"total"`
	}
	decodeBody(t, resp, &listing)
	if listing.Total != 1 || listing.Jobs[0].JobID != generated.JobID {
		t.Fatalf("listing = %+v", listing)
	}
	if listing.Jobs[0].DownloadURL != "/api/v1/files/"+record.AudioFile {
		t.Fatalf("download_url = %q", listing.Jobs[0].DownloadURL)
	}

	// Download the artifact.
	resp, err = http.Get(server.URL + "/api/v1/files/" + record.AudioFile)
	if err != nil {
		t.Fatalf("GET file: %v", err)
	}
	body := make([]byte, 16)
	n, _ := resp.Body.Read(body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || n == 0 {
		t.Fatalf("download status = %d, read %d bytes", resp.StatusCode, n)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "audio/mpeg") {
		t.Fatalf("content type = %q", ct)
	}

	// Delete, then every lookup 404s.
	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/jobs/"+generated.JobID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE job: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	for _, path := range []string{
		"/api/v1/jobs/" + generated.JobID,
		"/api/v1/files/" + record.AudioFile,
	} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

// TestGenerateValidation checks boundary rejection over HTTP.
func TestGenerateValidation(t *testing.T) {
	server := newTestServer(t)

	for _, body := range []string{
		`{"city": "Springfield", "duration_minutes": 0}`,
		`{"city": "Springfield", "duration_minutes": 31}`,
		`{"city": "Springfield", "duration_minutes": 5, "speaking_rate": 2.5}`,
	} {
		resp := postJSON(t, server.URL+"/api/v1/podcast/generate", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("generate(%s) status = %d, want 400", body, resp.StatusCode)
		}
	}

	// Omitted duration falls back to the default of 5 minutes.
	resp := postJSON(t, server.URL+"/api/v1/podcast/generate", `{"city": "Springfield"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate without duration status = %d", resp.StatusCode)
	}
	var generated struct {
		JobID string `json:"job_id"`
	}
	decodeBody(t, resp, &generated)
	record := pollUntilTerminal(t, server.URL, generated.JobID)
	if record.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", record.Status)
	}
}

// TestFailedJobRemainsQueryable checks a failed job stays visible.
func TestFailedJobRemainsQueryable(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/podcast/generate",
		`{"city": "Nowhere", "duration_minutes": 5}`)
	var generated struct {
		JobID string `json:"job_id"`
	}
	decodeBody(t, resp, &generated)

	record := pollUntilTerminal(t, server.URL, generated.JobID)
	if record.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", record.Status)
	}
	if record.Error == "" || record.Progress != 0 || record.AudioFile != "" {
		t.Fatalf("failed record = %+v", record)
	}
}

// TestDownloadRejectsTraversal checks the path-escape guard end to end.
func TestDownloadRejectsTraversal(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/files/a..b.mp3")
	if err != nil {
		t.Fatalf("GET file: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("traversal download status = %d, want 400", resp.StatusCode)
	}
}

// TestTTSEndpoint covers ad-hoc conversion and its validation.
func TestTTSEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/tts", `{"text": "Hello there"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tts status = %d", resp.StatusCode)
	}
	var converted struct {
		Filename    string `json:"filename"`
		DownloadURL string `json:"download_url"`
	}
	decodeBody(t, resp, &converted)
	if matched := regexp.MustCompile(`^tts_[0-9a-f]{8}\.mp3$`).MatchString(converted.Filename); !matched {
		t.Fatalf("filename = %q", converted.Filename)
	}

	fileResp, err := http.Get(server.URL + converted.DownloadURL)
	if err != nil {
		t.Fatalf("GET converted file: %v", err)
	}
	fileResp.Body.Close()
	if fileResp.StatusCode != http.StatusOK {
		t.Fatalf("converted download status = %d", fileResp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/api/v1/tts", `{"text": "  "}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty text status = %d, want 400", resp.StatusCode)
	}
}

// TestNewsEndpoint covers passthrough success and upstream failure.
func TestNewsEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/news/Springfield?limit=3")
	if err != nil {
		t.Fatalf("GET news: %v", err)
	}
	var payload struct {
		City  string `json:"city"`
		Count int    `json:"count"`
	}
	decodeBody(t, resp, &payload)
	if payload.City != "Springfield" || payload.Count == 0 {
		t.Fatalf("news payload = %+v", payload)
	}

	resp, err = http.Get(server.URL + "/api/v1/news/Nowhere")
	if err != nil {
		t.Fatalf("GET news: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("failing news status = %d, want 502", resp.StatusCode)
	}
}

// TestHealthAndVoices checks the informational endpoints.
func TestHealthAndVoices(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	decodeBody(t, resp, &health)
	if health.Status != "healthy" || health.Version != Version {
		t.Fatalf("health = %+v", health)
	}

	resp, err = http.Get(server.URL + "/api/v1/voices")
	if err != nil {
		t.Fatalf("GET voices: %v", err)
	}
	var voices struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &voices)
	if voices.Count == 0 {
		t.Fatal("voice catalog is empty")
	}
}

// TestEventsEndpointAndWebsocket checks incremental polling and the
// websocket stream observe the same lifecycle.
func TestEventsEndpointAndWebsocket(t *testing.T) {
	server := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	resp := postJSON(t, server.URL+"/api/v1/podcast/generate",
		`{"city": "Springfield", "duration_minutes": 1}`)
	var generated struct {
		JobID string `json:"job_id"`
	}
	decodeBody(t, resp, &generated)
	pollUntilTerminal(t, server.URL, generated.JobID)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first jobs.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read websocket event: %v", err)
	}
	if first.JobID != generated.JobID {
		t.Fatalf("websocket event = %+v", first)
	}

	eventsResp, err := http.Get(fmt.Sprintf("%s/api/v1/events?since=0", server.URL))
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	var payload struct {
		Events  []jobs.Event `json:"events"`
		LastSeq int64        `json:"last_seq"`
	}
	decodeBody(t, eventsResp, &payload)
	if len(payload.Events) == 0 || payload.LastSeq == 0 {
		t.Fatalf("events payload = %+v", payload)
	}
}
