package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
)

// StdoutPublisher prints the briefing. It backs --dry-run.
type StdoutPublisher struct {
	w io.Writer
}

func NewStdoutPublisher(w io.Writer) *StdoutPublisher {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutPublisher{w: w}
}

func (p *StdoutPublisher) Publish(_ context.Context, text string) (string, error) {
	if _, err := fmt.Fprintln(p.w, text); err != nil {
		return "", fmt.Errorf("stdout: %w", err)
	}
	return "stdout", nil
}
