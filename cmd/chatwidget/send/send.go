// Package sendcmder provides the send command: a single chat turn in line mode.
package sendcmder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/chatwidget/pkg/chatclient"
	"github.com/papercomputeco/chatwidget/pkg/chatlog"
	"github.com/papercomputeco/chatwidget/pkg/cliui"
	"github.com/papercomputeco/chatwidget/pkg/config"
	"github.com/papercomputeco/chatwidget/pkg/dotdir"
	"github.com/papercomputeco/chatwidget/pkg/logger"
	"github.com/papercomputeco/chatwidget/pkg/widget"
)

type sendCommander struct {
	target   string
	markdown bool

	configDir string
	debug     bool
}

const sendLongDesc string = `Send one message and print the reply.

The message is taken from the arguments, or from stdin when no arguments are
given. Blank messages are ignored. On a terminal a spinner is shown on stderr
while waiting; the reply, or the fixed fallback text when the backend fails,
is printed to stdout.

Examples:
  chatwidget send "What is Go?"
  echo "hello" | chatwidget send --target http://localhost:3000`

const sendShortDesc string = "Send one message and print the reply"

var sendFlags = []string{
	config.FlagTarget,
	config.FlagMarkdown,
}

func NewSendCmd() *cobra.Command {
	cmder := &sendCommander{}

	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: sendShortDesc,
		Long:  sendLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, sendFlags)
			cmder.target = v.GetString("client.target")
			cmder.markdown = v.GetBool("client.markdown")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(data)
			}

			return cmder.run(cmd, text)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMarkdown, &cmder.markdown)

	return cmd
}

// textInput is a fixed input field holding the message to send.
type textInput struct {
	value string
}

func (t *textInput) Value() string { return t.value }
func (t *textInput) Reset()        { t.value = "" }

var errTurnFailed = errors.New("turn failed")

func (c *sendCommander) run(cmd *cobra.Command, text string) error {
	logFile, err := dotdir.NewManager().OpenLog(c.configDir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	log := logger.Multi(
		logger.New(
			logger.WithWriter(cmd.ErrOrStderr()),
			logger.WithPretty(true),
			logger.WithDebug(c.debug),
		),
		logger.New(
			logger.WithWriter(logFile),
			logger.WithJSON(true),
			logger.WithDebug(c.debug),
		),
	).With("command", "send")

	w, err := widget.New(widget.Config{
		Input:  &textInput{value: text},
		Client: chatclient.New(c.target),
		Logger: log,
	})
	if err != nil {
		return err
	}

	turns := w.Submit()
	if len(turns) == 0 {
		return nil
	}
	t := turns[0]

	exchange := func() error {
		r := w.Exchange(cmd.Context(), t)
		w.Settle(t, r)
		if r.Outcome == widget.OutcomeFailed {
			return errTurnFailed
		}
		return nil
	}

	stderr := cmd.ErrOrStderr()
	if isTerminal(stderr) {
		_ = cliui.Step(stderr, widget.PlaceholderText, exchange)
	} else {
		_ = exchange()
	}

	msg, _ := w.Log().At(t.Placeholder)
	return c.print(cmd.OutOrStdout(), msg, log)
}

func (c *sendCommander) print(out io.Writer, msg chatlog.Message, log *slog.Logger) error {
	text := msg.Text
	if c.markdown && isTerminal(out) {
		width := 80
		if f, ok := out.(*os.File); ok {
			if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
				width = w
			}
		}

		rendered, err := cliui.RenderMarkdown(text, width)
		if err != nil {
			log.Debug("markdown rendering failed", "error", err)
		}
		text = rendered
	}

	_, err := fmt.Fprintln(out, strings.TrimRight(text, "\n"))
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
