package config

const (
	ResponderEcho   = "echo"
	ResponderOllama = "ollama"
)

const (
	defaultClientTarget = "http://localhost:8080"

	defaultServeListen    = ":8080"
	defaultServeResponder = ResponderEcho
	defaultServeUpstream  = "http://localhost:11434"
	defaultServeModel     = "gemma3:latest"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
		Serve: ServeConfig{
			Listen:    defaultServeListen,
			Responder: defaultServeResponder,
			Upstream:  defaultServeUpstream,
			Model:     defaultServeModel,
		},
	}
}

// IsValidResponder reports whether name is a supported backend responder.
func IsValidResponder(name string) bool {
	return name == ResponderEcho || name == ResponderOllama
}
