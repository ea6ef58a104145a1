package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	chatwidgetcmder "github.com/papercomputeco/chatwidget/cmd/chatwidget"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := chatwidgetcmder.NewChatwidgetCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
