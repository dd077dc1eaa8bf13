// Package cmd is the process entrypoint: CLI surface, logger bootstrap and
// dependency graph assembly.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/quickroom/room-service/config"
)

const ServiceName = "room-service"

func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Ephemeral anonymous group chat backend",
		Commands: []*cli.Command{
			serverCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the HTTP and WebSocket server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			level := new(slog.LevelVar)
			logger := NewLogger(level)
			slog.SetDefault(logger)

			cfg, err := config.LoadConfig(c.String("config_file"), level, logger)
			if err != nil {
				return err
			}
			app := NewApp(cfg, logger)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			logger.Info("shutting down...")
			return app.Stop(context.Background())
		},
	}
}
