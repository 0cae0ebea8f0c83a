package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"sc-provisioner/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("Command failed")
		return 1
	}
	return 0
}
