// Package logx builds the process logger. Logs go to stderr so stdout only
// ever carries briefing text.
package logx

import (
	"fmt"
	"io"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config is read from LOG_DEBUG and LOG_PRETTY_FORMAT.
type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
}

func FromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process("log", &c); err != nil {
		return Config{}, fmt.Errorf("logx: %w", err)
	}
	return c, nil
}

// New returns a logger writing to w, or stderr when w is nil.
func New(w io.Writer, c Config) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if c.PrettyFormat {
		w = zerolog.ConsoleWriter{Out: w}
	}

	level := zerolog.InfoLevel
	if c.Debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).Level(level).With().Timestamp()
	if c.Debug {
		logger = logger.Caller()
	}
	return logger.Logger()
}
