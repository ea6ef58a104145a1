// Package chatcmder provides the chat command: an interactive terminal chat
// widget backed by a /api/chat endpoint.
package chatcmder

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatwidget/pkg/chatclient"
	"github.com/papercomputeco/chatwidget/pkg/config"
	"github.com/papercomputeco/chatwidget/pkg/dotdir"
	"github.com/papercomputeco/chatwidget/pkg/logger"
)

type chatCommander struct {
	target   string
	serial   bool
	markdown bool

	configDir string
	debug     bool
}

const chatLongDesc string = `Start an interactive chat session.

Each message you send is posted on its own to the backend's /api/chat
endpoint; no earlier turns are included. The reply replaces the
"Thinking..." placeholder shown under your message.

By default several turns may be pending at once and each reply lands in its
own placeholder as soon as it arrives. Use --serial to send one turn at a
time.

Diagnostics are written to chatwidget.log in the .chatwidget/ directory.

Examples:
  chatwidget chat
  chatwidget chat --target http://localhost:3000 --markdown`

const chatShortDesc string = "Interactive chat in the terminal"

var chatFlags = []string{
	config.FlagTarget,
	config.FlagSerial,
	config.FlagMarkdown,
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)
			cmder.target = v.GetString("client.target")
			cmder.serial = v.GetBool("client.serial")
			cmder.markdown = v.GetBool("client.markdown")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	config.AddBoolFlag(cmd, config.Flags, config.FlagSerial, &cmder.serial)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMarkdown, &cmder.markdown)

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	logFile, err := dotdir.NewManager().OpenLog(c.configDir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	log := logger.New(
		logger.WithWriter(logFile),
		logger.WithJSON(true),
		logger.WithDebug(c.debug),
	).With("command", "chat")

	log.Info("starting chat session",
		"target", c.target,
		"serial", c.serial,
	)

	lipgloss.SetColorProfile(termenv.EnvColorProfile())

	model, err := newChatModel(cmd.Context(), modelConfig{
		client:   chatclient.New(c.target),
		logger:   log,
		serial:   c.serial,
		markdown: c.markdown,
	})
	if err != nil {
		return err
	}

	program := tea.NewProgram(model,
		tea.WithContext(cmd.Context()),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running chat: %w", err)
	}

	log.Info("chat session ended",
		"messages", model.widget.Log().Len(),
		"pending", model.widget.Log().Pending(),
	)
	return nil
}
