package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/anonymort/whistle/cmd/app/commands"
	"github.com/anonymort/whistle/internal/app"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server and the retention scheduler",
			Action: func(ctx context.Context, _ *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Apply pending database migrations",
			Action: func(ctx context.Context, _ *cli.Command) error {
				return withContainer(ctx, func(c *app.Container) error {
					db, err := c.DB()
					if err != nil {
						return err
					}
					dialect, err := c.Dialect()
					if err != nil {
						return err
					}
					return commands.RunMigrations(db, dialect, c.Logger())
				})
			},
		},
		{
			Name:  "purge",
			Usage: "Run the retention check now instead of waiting for the daily run",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(c *app.Container) error {
					scheduler, err := c.RetentionScheduler()
					if err != nil {
						return err
					}
					return commands.RunPurge(ctx, scheduler, c.Logger(), commands.DefaultIO().Writer, cmd.String("format"))
				})
			},
		},
	}
}
