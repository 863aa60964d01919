package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lysyi3m/rss-herald/app/cfg"
)

const (
	maxFileSizeMB = 10
	maxBackups    = 3
	maxAgeDays    = 7
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the default slog logger from the loaded configuration. The
// returned closer releases the log file, if one is configured.
func Setup() io.Closer {
	return setup(cfg.Get(), os.Stderr)
}

func setup(c *cfg.Cfg, console io.Writer) io.Closer {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}

	var output io.Writer = console
	var closer io.Closer = nopCloser{}

	if c.LogFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    maxFileSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		output = io.MultiWriter(console, fileWriter)
		closer = fileWriter
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	slog.SetDefault(slog.New(handler))
	return closer
}
