package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so --target means the same
// thing on "chatwidget chat" and "chatwidget send".
type Flag struct {
	// Name is the long flag name (e.g. "target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "t"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of registry keys to Flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagTarget    = "target"
	FlagSerial    = "serial"
	FlagMarkdown  = "markdown"
	FlagListen    = "listen"
	FlagResponder = "responder"
	FlagUpstream  = "upstream"
	FlagModel     = "model"
)

// Flags is the registry shared by every chatwidget command.
var Flags = FlagSet{
	FlagTarget:    {Name: "target", Shorthand: "t", ViperKey: "client.target", Description: "Chat backend URL"},
	FlagSerial:    {Name: "serial", ViperKey: "client.serial", Description: "Send one turn at a time, queueing later submissions"},
	FlagMarkdown:  {Name: "markdown", ViperKey: "client.markdown", Description: "Render bot replies as markdown"},
	FlagListen:    {Name: "listen", Shorthand: "l", ViperKey: "serve.listen", Description: "Address for the backend to listen on"},
	FlagResponder: {Name: "responder", Shorthand: "r", ViperKey: "serve.responder", Description: "Backend responder (echo, ollama)"},
	FlagUpstream:  {Name: "upstream", Shorthand: "u", ViperKey: "serve.upstream", Description: "Ollama URL used by the ollama responder"},
	FlagModel:     {Name: "model", Shorthand: "m", ViperKey: "serve.model", Description: "Model name used by the ollama responder"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
