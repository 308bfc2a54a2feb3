// Package summarizer turns the aggregated briefing payload into finished text
// with a single call to a text-generation service.
package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/morning-brief/internal/briefing"
)

// ErrEmptyResponse is returned when the generator produced no text.
var ErrEmptyResponse = errors.New("summarizer: empty response")

// Request is one generation call.
type Request struct {
	Model     string
	MaxTokens int
	System    string
	User      string
}

// Generator is a text-generation backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Summarizer produces the briefing text for a payload.
type Summarizer struct {
	gen       Generator
	model     string
	maxTokens int
	system    string
}

// New returns a Summarizer. An empty system prompt selects the default template
// rendered for sources.
func New(gen Generator, model string, maxTokens int, system string, sources []string) (*Summarizer, error) {
	if system == "" {
		var err error
		if system, err = SystemPrompt(sources); err != nil {
			return nil, err
		}
	}
	return &Summarizer{gen: gen, model: model, maxTokens: maxTokens, system: system}, nil
}

// Summarize serializes the payload and asks the generator for the briefing.
func (s *Summarizer) Summarize(ctx context.Context, p briefing.Payload) (string, error) {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("summarizer: encode payload: %w", err)
	}

	start := time.Now()
	text, err := s.gen.Generate(ctx, Request{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    s.system,
		User:      UserMessage(p.Date, string(raw)),
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}

	zerolog.Ctx(ctx).Info().
		Str("model", s.model).
		Int("chars", len(text)).
		Dur("took", time.Since(start)).
		Msg("briefing summarized")
	return text, nil
}

// UserMessage frames the raw payload JSON with today's date.
func UserMessage(date time.Time, raw string) string {
	return fmt.Sprintf("Today is %s. Here is the raw briefing data:\n\n%s\n\nWrite the morning briefing now.",
		date.Format("Monday, January 02, 2006"), raw)
}
