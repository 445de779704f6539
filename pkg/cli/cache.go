package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:                  "cache",
		EnableShellCompletion: true,
		Usage:                 "Manage the local History Server response cache",
		Commands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "Remove all cached History Server responses",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}

					cache, err := openCache(cfg)
					if err != nil {
						return fmt.Errorf("opening cache: %w", err)
					}

					removed, err := cache.Clear()
					if err != nil {
						return fmt.Errorf("clearing cache: %w", err)
					}

					fmt.Fprintf(cmd.Writer, "removed %d cached entries\n", removed)
					return nil
				},
			},
		},
	}
}
