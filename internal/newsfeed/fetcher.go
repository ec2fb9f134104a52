// Package newsfeed fetches local news content for a city. The fetcher
// is the first external collaborator of the production pipeline.
package newsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"news-podcast-agent/internal/domain"
)

// FetchError wraps any failure while retrieving news content.
type FetchError struct {
	City string
	Err  error
}

// Error formats the failure with its target city.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch news for %q: %v", e.City, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves recent articles for a city.
type Fetcher interface {
	Fetch(ctx context.Context, city string, limit int) ([]domain.Article, error)
}

// HTTPFetcher queries a JSON news feed endpoint.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher against the given feed base URL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// feedResponse mirrors the feed's wire format.
type feedResponse struct {
	Articles []feedArticle `json:"articles"`
}

type feedArticle struct {
	Title       string    `json:"title"`
	Source      feedName  `json:"source"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"publishedAt"`
}

type feedName struct {
	Name string `json:"name"`
}

// Fetch queries the feed for up to limit articles about the city.
func (f *HTTPFetcher) Fetch(ctx context.Context, city string, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = 10
	}

	endpoint, err := url.Parse(f.baseURL)
	if err != nil {
		return nil, &FetchError{City: city, Err: err}
	}
	query := endpoint.Query()
	query.Set("q", city)
	query.Set("pageSize", strconv.Itoa(limit))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &FetchError{City: city, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{City: city, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{City: city, Err: fmt.Errorf("feed returned status %d", resp.StatusCode)}
	}

	var payload feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &FetchError{City: city, Err: fmt.Errorf("decode feed response: %w", err)}
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		if item.Title == "" {
			continue
		}
		articles = append(articles, domain.Article{
			Title:       item.Title,
			Source:      item.Source.Name,
			URL:         item.URL,
			Summary:     item.Description,
			PublishedAt: item.PublishedAt,
		})
		if len(articles) == limit {
			break
		}
	}

	if len(articles) == 0 {
		return nil, &FetchError{City: city, Err: fmt.Errorf("no articles found")}
	}
	return articles, nil
}
