package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/opencivica/legisync/app/daemon"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := daemon.Initialize(ctx)
	app.Start(ctx)
}
