// Package configcmder provides the config command for managing persistent
// chatwidget configuration stored in the .chatwidget/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatwidget/pkg/cliui"
	"github.com/papercomputeco/chatwidget/pkg/config"
)

const configLongDesc string = `Manage persistent chatwidget configuration.

Configuration is stored as config.toml in the .chatwidget/ directory and
provides default values for command flags. CLI flags always take precedence
over environment variables, which take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.target, client.serial, client.markdown,
  serve.listen, serve.responder, serve.upstream, serve.model

Use subcommands to get, set, or list configuration values:
  chatwidget config set <key> <value>    Set a configuration value
  chatwidget config get <key>            Get a configuration value
  chatwidget config list                 List all configuration values

Examples:
  chatwidget config set client.target http://localhost:3000
  chatwidget config set serve.responder ollama
  chatwidget config get client.target
  chatwidget config list`

const configShortDesc string = "Manage persistent chatwidget configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(out io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
