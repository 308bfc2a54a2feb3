// Package publisher delivers the finished briefing text.
package publisher

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by constructors when a destination is missing.
var ErrNotConfigured = errors.New("publisher: not configured")

// Publisher sends text verbatim and returns the destination's identifier for it.
type Publisher interface {
	Publish(ctx context.Context, text string) (string, error)
}
