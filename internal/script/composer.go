// Package script turns fetched articles into a narration script sized
// to a target duration. The composer is the second external
// collaborator of the production pipeline; any generation backend that
// satisfies Composer is a drop-in.
package script

import (
	"context"
	"fmt"
	"strings"

	"news-podcast-agent/internal/domain"
)

// wordsPerMinute is the narration pace the duration budget assumes.
const wordsPerMinute = 150

// CompositionError wraps any failure while generating a script.
type CompositionError struct {
	Err error
}

// Error formats the composition failure.
func (e *CompositionError) Error() string {
	return fmt.Sprintf("compose script: %v", e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *CompositionError) Unwrap() error {
	return e.Err
}

// Composer produces a narration script from articles.
type Composer interface {
	Compose(ctx context.Context, city string, articles []domain.Article, durationMinutes int) (string, error)
}

// TemplateComposer builds the script deterministically from article
// titles and summaries, trimming segments to fit the word budget.
type TemplateComposer struct{}

// NewTemplateComposer creates the default composer.
func NewTemplateComposer() *TemplateComposer {
	return &TemplateComposer{}
}

// Compose renders intro, one segment per article, and outro, dropping
// trailing segments once the duration's word budget is spent.
func (c *TemplateComposer) Compose(ctx context.Context, city string, articles []domain.Article, durationMinutes int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &CompositionError{Err: err}
	}
	if len(articles) == 0 {
		return "", &CompositionError{Err: fmt.Errorf("no articles to narrate")}
	}
	if durationMinutes <= 0 {
		return "", &CompositionError{Err: fmt.Errorf("duration must be positive, got %d", durationMinutes)}
	}

	budget := durationMinutes * wordsPerMinute

	var b strings.Builder
	intro := fmt.Sprintf(
		"Welcome to your %s news podcast. Here are today's top stories from around the city.",
		city,
	)
	b.WriteString(intro)
	used := wordCount(intro)

	for i, article := range articles {
		segment := renderSegment(i+1, article)
		words := wordCount(segment)
		if used+words > budget && i > 0 {
			break
		}
		b.WriteString("\n\n")
		b.WriteString(segment)
		used += words
	}

	outro := fmt.Sprintf("That's all for today's %s update. Thanks for listening.", city)
	b.WriteString("\n\n")
	b.WriteString(outro)

	return b.String(), nil
}

// renderSegment narrates one article with attribution.
func renderSegment(position int, article domain.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story %d: %s.", position, strings.TrimSuffix(article.Title, "."))
	if summary := strings.TrimSpace(article.Summary); summary != "" {
		b.WriteString(" ")
		b.WriteString(summary)
		if !strings.HasSuffix(summary, ".") {
			b.WriteString(".")
		}
	}
	if article.Source != "" {
		fmt.Fprintf(&b, " That report comes from %s.", article.Source)
	}
	return b.String()
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
