// Package chatwidgetcmder is the root chatwidget command.
package chatwidgetcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/chatwidget/cmd/chatwidget/chat"
	configcmder "github.com/papercomputeco/chatwidget/cmd/chatwidget/config"
	sendcmder "github.com/papercomputeco/chatwidget/cmd/chatwidget/send"
	servecmder "github.com/papercomputeco/chatwidget/cmd/chatwidget/serve"
	versioncmder "github.com/papercomputeco/chatwidget/cmd/version"
)

const chatwidgetLongDesc string = `chatwidget is a minimal terminal chat client.

Each message you submit is sent to a backend's POST /api/chat endpoint and the
reply replaces a "Thinking..." placeholder in the conversation.

Commands:
  chatwidget chat      Open the interactive chat
  chatwidget send      Send one message and print the reply
  chatwidget serve     Run a development backend
  chatwidget config    Manage persistent configuration`

const chatwidgetShortDesc string = "chatwidget - terminal chat client"

func NewChatwidgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "chatwidget",
		Short:        chatwidgetShortDesc,
		Long:         chatwidgetLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .chatwidget/ config directory")

	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(sendcmder.NewSendCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
