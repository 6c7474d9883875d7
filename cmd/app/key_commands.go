package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/anonymort/whistle/cmd/app/commands"
	"github.com/anonymort/whistle/internal/app"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "generate-keys",
			Usage: "Print a fresh AUDIT_SIGNING_KEY and a local KMS_KEY_URI",
			Action: func(ctx context.Context, _ *cli.Command) error {
				return commands.RunGenerateKeys(ctx, commands.DefaultIO().Writer)
			},
		},
		{
			Name:  "rotate-keys",
			Usage: "Activate a new key pair; the previous one stays usable for the grace window",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(c *app.Container) error {
					keyManager, err := c.KeyManager()
					if err != nil {
						return err
					}
					return commands.RunRotateKeys(ctx, keyManager, c.Logger(), commands.DefaultIO().Writer, cmd.String("format"))
				})
			},
		},
	}
}
