package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/chatwidget/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable override, e.g.
// CHATWIDGET_CLIENT_TARGET.
const EnvPrefix = "CHATWIDGET"

// InitViper creates and returns a configured *viper.Viper.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CHATWIDGET_CLIENT_TARGET, CHATWIDGET_SERVE_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("client.target", d.Client.Target)
	v.SetDefault("client.serial", d.Client.Serial)
	v.SetDefault("client.markdown", d.Client.Markdown)

	v.SetDefault("serve.listen", d.Serve.Listen)
	v.SetDefault("serve.responder", d.Serve.Responder)
	v.SetDefault("serve.upstream", d.Serve.Upstream)
	v.SetDefault("serve.model", d.Serve.Model)
}
