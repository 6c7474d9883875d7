package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/anonymort/whistle/internal/app"
	"github.com/anonymort/whistle/internal/config"
)

func getCommands(version string) []*cli.Command {
	var cmds []*cli.Command
	for _, group := range [][]*cli.Command{
		getSystemCommands(version),
		getKeyCommands(),
		getAccountCommands(),
		getAuditCommands(),
	} {
		cmds = append(cmds, group...)
	}
	return cmds
}

// withContainer loads configuration, builds the dependency container and tears it down after fn.
func withContainer(ctx context.Context, fn func(*app.Container) error) error {
	container := app.NewContainer(config.Load())
	defer func() { _ = container.Shutdown(ctx) }()
	return fn(container)
}

// formatFlag is shared by every command that prints a result.
func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}
