package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/anonymort/whistle/cmd/app/commands"
	"github.com/anonymort/whistle/internal/app"
)

func getAccountCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-account",
			Usage: "Create an admin or investigator account",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "username",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Login name",
				},
				&cli.StringFlag{
					Name:    "role",
					Aliases: []string{"r"},
					Value:   "investigator",
					Usage:   "Account role: 'admin' or 'investigator'",
				},
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					Usage:   "Account password (omit to be prompted)",
				},
				&cli.BoolFlag{
					Name:  "totp",
					Value: false,
					Usage: "Require a TOTP code at login and print the provisioning URI",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(c *app.Container) error {
					accountUseCase, err := c.AccountUseCase()
					if err != nil {
						return err
					}
					return commands.RunCreateAccount(
						ctx,
						accountUseCase,
						c.Logger(),
						cmd.String("username"),
						cmd.String("role"),
						cmd.String("password"),
						cmd.Bool("totp"),
						cmd.String("format"),
						commands.DefaultIO(),
					)
				})
			},
		},
	}
}
