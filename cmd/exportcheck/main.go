package main

import (
	"log/slog"
	"os"

	"github.com/healthsink/healthsink/cmd/exportcheck/app"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	config, err := app.NewConfigFromCLI()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	if err = app.Run(config, os.Stdout); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
