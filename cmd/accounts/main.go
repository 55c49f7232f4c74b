package main

import (
	"context"
	"log"
	"os"

	"github.com/calyxlabs/accountkit/internal/buildinfo"
	"github.com/calyxlabs/accountkit/internal/client/accounts"
	"github.com/calyxlabs/accountkit/internal/client/cli"
	"github.com/calyxlabs/accountkit/internal/client/config"
	"github.com/calyxlabs/accountkit/internal/client/session"
	"github.com/calyxlabs/accountkit/internal/client/transport"
	"github.com/calyxlabs/accountkit/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	sess := session.New()
	tr, err := transport.New(transport.Config{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.RequestTimeout,
		AuthScheme:  cfg.AuthScheme,
		Credentials: sess,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer tr.CloseIdleConnections()

	ctx := context.Background()
	svc := accounts.NewService(tr, sess, logger)
	app := cli.NewApp(svc, sess, logger, os.Stdin, os.Stdout)
	app.Run(ctx)

}
