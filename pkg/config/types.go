package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent chatwidget configuration stored as
// config.toml in the .chatwidget/ directory.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Serve   ServeConfig  `toml:"serve"`
}

// ClientConfig holds settings for the chat frontends ("chatwidget chat" and
// "chatwidget send").
type ClientConfig struct {
	// Target is the backend base URL (scheme + host + port) that /api/chat
	// is resolved against.
	Target string `toml:"target,omitempty"`

	// Serial queues turns so only one request is in flight at a time.
	Serial bool `toml:"serial,omitempty"`

	// Markdown renders bot replies as markdown.
	Markdown bool `toml:"markdown,omitempty"`
}

// ServeConfig holds settings for the development backend ("chatwidget serve").
type ServeConfig struct {
	Listen    string `toml:"listen,omitempty"`
	Responder string `toml:"responder,omitempty"`
	Upstream  string `toml:"upstream,omitempty"`
	Model     string `toml:"model,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
	"client.serial":   boolKey("client.serial", func(c *Config) *bool { return &c.Client.Serial }),
	"client.markdown": boolKey("client.markdown", func(c *Config) *bool { return &c.Client.Markdown }),
	"serve.listen": {
		get: func(c *Config) string { return c.Serve.Listen },
		set: func(c *Config, v string) error { c.Serve.Listen = v; return nil },
	},
	"serve.responder": {
		get: func(c *Config) string { return c.Serve.Responder },
		set: func(c *Config, v string) error {
			if !IsValidResponder(v) {
				return fmt.Errorf("invalid value for serve.responder: %q (available: %s, %s)", v, ResponderEcho, ResponderOllama)
			}
			c.Serve.Responder = v
			return nil
		},
	},
	"serve.upstream": {
		get: func(c *Config) string { return c.Serve.Upstream },
		set: func(c *Config, v string) error { c.Serve.Upstream = v; return nil },
	},
	"serve.model": {
		get: func(c *Config) string { return c.Serve.Model },
		set: func(c *Config, v string) error { c.Serve.Model = v; return nil },
	},
}
