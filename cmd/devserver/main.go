package main

import (
	"context"
	"log"
	"os"

	"github.com/calyxlabs/accountkit/internal/buildinfo"
	"github.com/calyxlabs/accountkit/internal/devserver"
	"github.com/calyxlabs/accountkit/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := devserver.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := devserver.NewApp(cfg, logger)
	if err := app.Run(context.Background()); err != nil {
		logger.Error(context.Background(), "dev server stopped", "error", err)
		os.Exit(1)
	}

}
