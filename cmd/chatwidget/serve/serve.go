// Package servecmder provides the serve command, a development backend for
// the chat widget.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/chatwidget/pkg/backend"
	"github.com/papercomputeco/chatwidget/pkg/config"
	"github.com/papercomputeco/chatwidget/pkg/logger"
)

type serveCommander struct {
	listen    string
	responder string
	upstream  string
	model     string

	debug  bool
	viper  *viper.Viper
	logger *slog.Logger
}

const serveLongDesc string = `Run a development chat backend.

The backend answers POST /api/chat with {"result": "..."} so the chat and send
commands have something to talk to. Responders:
  echo     Reply with the last user message (default)
  ollama   Forward the conversation to an Ollama server

Edits to config.toml are picked up while running: the serve.responder,
serve.upstream and serve.model keys take effect for the next request.

Examples:
  chatwidget serve
  chatwidget serve --responder ollama --model llama3.2
  chatwidget serve --listen :3000`

const serveShortDesc string = "Run a development chat backend"

var serveFlags = []string{
	config.FlagListen,
	config.FlagResponder,
	config.FlagUpstream,
	config.FlagModel,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.viper = v
			cmder.listen = v.GetString("serve.listen")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.logger = logger.New(
				logger.WithWriter(cmd.ErrOrStderr()),
				logger.WithPretty(true),
				logger.WithDebug(cmder.debug),
			).With("command", "serve")

			listener, err := net.Listen("tcp", cmder.listen)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cmder.listen, err)
			}
			return cmder.run(cmd, listener)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagResponder, &cmder.responder)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command, listener net.Listener) error {
	responder, err := backend.NewResponder(serveConfig(c.viper))
	if err != nil {
		listener.Close()
		return err
	}

	srv := backend.NewServer(responder, c.logger)

	if file := c.viper.ConfigFileUsed(); file != "" {
		c.viper.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			if err := reload(c.viper, srv, c.logger); err != nil {
				c.logger.Warn("ignoring config change", "file", e.Name, "error", err)
			}
		})
		c.viper.WatchConfig()
		c.logger.Debug("watching config", "file", file)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.RunWithListener(listener)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("backend error: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
		c.logger.Info("shutting down", "reason", context.Cause(cmd.Context()))
		if err := srv.Shutdown(); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		if err := <-errChan; err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("backend error: %w", err)
		}
		return nil
	}
}

func serveConfig(v *viper.Viper) config.ServeConfig {
	return config.ServeConfig{
		Listen:    v.GetString("serve.listen"),
		Responder: v.GetString("serve.responder"),
		Upstream:  v.GetString("serve.upstream"),
		Model:     v.GetString("serve.model"),
	}
}

// reload applies the current serve settings to a running server. A model
// change on the same Ollama upstream is applied in place; anything else
// replaces the responder.
func reload(v *viper.Viper, srv *backend.Server, log *slog.Logger) error {
	cfg := serveConfig(v)

	if o, ok := srv.Responder().(*backend.OllamaResponder); ok &&
		cfg.Responder == config.ResponderOllama &&
		o.Upstream() == strings.TrimRight(cfg.Upstream, "/") {
		if o.Model() != cfg.Model {
			log.Info("switching model", "from", o.Model(), "to", cfg.Model)
			o.SetModel(cfg.Model)
		}
		return nil
	}

	responder, err := backend.NewResponder(cfg)
	if err != nil {
		return err
	}
	log.Info("switching responder", "from", srv.Responder().Name(), "to", responder.Name())
	srv.SetResponder(responder)
	return nil
}
