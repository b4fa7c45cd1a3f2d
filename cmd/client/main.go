package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophstream/internal/client/cli"
	"github.com/dmitrijs2005/gophstream/internal/client/config"
	"github.com/dmitrijs2005/gophstream/internal/logging"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, "warn")

	app := cli.NewApp(cfg, logger)
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}

}
