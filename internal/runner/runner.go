package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/morning-brief/internal/briefing"
	"github.com/ryosukesatoh/morning-brief/internal/fetcher"
	"github.com/ryosukesatoh/morning-brief/internal/publisher"
)

// Summarizer turns the collected payload into briefing text.
type Summarizer interface {
	Summarize(ctx context.Context, p briefing.Payload) (string, error)
}

// Delivery records where the briefing went.
type Delivery struct {
	Publisher string
	ID        string
}

// Report describes one completed run.
type Report struct {
	RunID      string
	Payload    briefing.Payload
	Text       string
	Deliveries []Delivery
}

// Runner orchestrates the collect -> summarize -> publish pipeline.
type Runner struct {
	fetchers   []fetcher.Fetcher
	summarizer Summarizer
	publishers []publisher.Publisher
	loc        *time.Location
	now        func() time.Time
}

func New(fetchers []fetcher.Fetcher, s Summarizer, pubs []publisher.Publisher, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		fetchers:   fetchers,
		summarizer: s,
		publishers: pubs,
		loc:        loc,
		now:        time.Now,
	}
}

// Collect queries every source and folds the results. It never fails.
func (r *Runner) Collect(ctx context.Context) briefing.Payload {
	return briefing.Fold(r.now().In(r.loc), briefing.Collect(ctx, r.fetchers))
}

// Run executes the full pipeline once. Source failures are carried inside the
// payload; a summarize or publish failure aborts the run.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := zerolog.Ctx(ctx).With().Str("run_id", report.RunID).Logger()
	ctx = log.WithContext(ctx)

	log.Info().Int("sources", len(r.fetchers)).Msg("starting briefing")

	report.Payload = r.Collect(ctx)
	if failed := report.Payload.Failed(); len(failed) > 0 {
		log.Warn().Strs("failed", failed).Msg("some sources unavailable")
	}

	text, err := r.summarizer.Summarize(ctx, report.Payload)
	if err != nil {
		return report, fmt.Errorf("runner: summarize failed: %w", err)
	}
	report.Text = text

	for _, pub := range r.publishers {
		name := fmt.Sprintf("%T", pub)
		id, err := pub.Publish(ctx, text)
		if err != nil {
			return report, fmt.Errorf("runner: publish via %s failed: %w", name, err)
		}
		log.Info().Str("publisher", name).Str("id", id).Msg("briefing published")
		report.Deliveries = append(report.Deliveries, Delivery{Publisher: name, ID: id})
	}

	log.Info().Msg("pipeline completed")
	return report, nil
}
