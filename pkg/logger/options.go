package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger built by New.
type Option func(*config)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithPretty switches to the charmbracelet/log handler for terminal output.
// It takes precedence over WithJSON.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON switches to slog's JSON handler, used for the TUI's log file.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter replaces the output writer.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters writes every record to all of w.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource adds the caller's file:line to each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
