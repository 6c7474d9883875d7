package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/anonymort/whistle/cmd/app/commands"
	"github.com/anonymort/whistle/internal/app"
)

func getAuditCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "export-audit-logs",
			Usage: "Write ledger entries in a time range as JSON lines",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "from",
					Aliases:  []string{"s", "start-date"},
					Required: true,
					Usage:    "Range start as YYYY-MM-DD or RFC3339",
				},
				&cli.StringFlag{
					Name:    "to",
					Aliases: []string{"e", "end-date"},
					Usage:   "Range end as YYYY-MM-DD or RFC3339 (default: now)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(c *app.Container) error {
					ledger, err := c.AuditLogUseCase()
					if err != nil {
						return err
					}
					return commands.RunExportAuditLogs(ctx, ledger, c.Logger(), commands.DefaultIO().Writer,
						cmd.String("from"), cmd.String("to"), time.Now().UTC())
				})
			},
		},
		{
			Name:  "verify-audit-logs",
			Usage: "Check ledger entry signatures over a time range",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "from",
					Aliases:  []string{"s", "start-date"},
					Required: true,
					Usage:    "Range start as YYYY-MM-DD or RFC3339",
				},
				&cli.StringFlag{
					Name:    "to",
					Aliases: []string{"e", "end-date"},
					Usage:   "Range end as YYYY-MM-DD or RFC3339 (default: now)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(c *app.Container) error {
					ledger, err := c.AuditLogUseCase()
					if err != nil {
						return err
					}
					return commands.RunVerifyAuditLogs(ctx, ledger, c.Logger(), commands.DefaultIO().Writer,
						cmd.String("from"), cmd.String("to"), time.Now().UTC(), cmd.String("format"))
				})
			},
		},
	}
}
