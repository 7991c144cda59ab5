// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockade/internal/config"
)

var (
	mu     sync.Mutex
	output io.Writer = os.Stdout
	file   *sizeLimitedWriter
)

// Init sets the global level and output. With LOG_FILE set, records go to
// both stdout and a size-limited file.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var console io.Writer = os.Stdout
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	mu.Lock()
	defer mu.Unlock()
	out := console
	if cfg.File != "" {
		w, err := newSizeLimitedWriter(cfg.File, cfg.MaxMB)
		if err != nil {
			return err
		}
		if file != nil {
			_ = file.Close()
		}
		file = w
		out = zerolog.MultiLevelWriter(console, w)
	}
	output = out

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// Writer returns the destination chosen by Init, for loggers that are not
// zerolog (the HTTP request logger).
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}
