// Package briefing collects fetch results into the payload handed to the summarizer.
package briefing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/morning-brief/internal/fetcher"
)

// Payload is the aggregated outcome of one run: one Result per source, in collection order.
type Payload struct {
	Date    time.Time
	Results []fetcher.Result
}

// Collect runs every fetcher in order, one at a time. A failing source never
// stops the others.
func Collect(ctx context.Context, fetchers []fetcher.Fetcher) []fetcher.Result {
	log := zerolog.Ctx(ctx)

	results := make([]fetcher.Result, 0, len(fetchers))
	for _, f := range fetchers {
		start := time.Now()
		r := f.Fetch(ctx)
		if r.Source == "" {
			r.Source = f.Name()
		}

		ev := log.Info()
		if r.Failed() {
			ev = log.Warn().Str("error", r.Err)
		}
		ev.Str("source", r.Source).Dur("took", time.Since(start)).Msg("source fetched")

		results = append(results, r)
	}
	return results
}

// Fold builds a Payload from results. A later result for an already seen
// source replaces the earlier one in place.
func Fold(date time.Time, results []fetcher.Result) Payload {
	p := Payload{Date: date, Results: make([]fetcher.Result, 0, len(results))}
	index := make(map[string]int, len(results))
	for _, r := range results {
		if i, ok := index[r.Source]; ok {
			p.Results[i] = r
			continue
		}
		index[r.Source] = len(p.Results)
		p.Results = append(p.Results, r)
	}
	return p
}

// Result returns the result recorded for source.
func (p Payload) Result(source string) (fetcher.Result, bool) {
	for _, r := range p.Results {
		if r.Source == source {
			return r, true
		}
	}
	return fetcher.Result{}, false
}

// Sources lists the source names in collection order.
func (p Payload) Sources() []string {
	names := make([]string, len(p.Results))
	for i, r := range p.Results {
		names[i] = r.Source
	}
	return names
}

// Failed lists the sources that ended in an error.
func (p Payload) Failed() []string {
	var names []string
	for _, r := range p.Results {
		if r.Failed() {
			names = append(names, r.Source)
		}
	}
	return names
}

// MarshalJSON emits an object keyed by source name, preserving collection order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range p.Results {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Source)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("briefing: marshal %s: %w", r.Source, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
