package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"staffdesk/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}
