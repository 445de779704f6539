package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/warrenzhu25/spark-insight/pkg/serializer"
	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

func appsCmd() *cli.Command {
	return &cli.Command{
		Name:                  "apps",
		EnableShellCompletion: true,
		Usage:                 "List applications known to the History Server",
		Description: `List applications from the configured History Server, optionally
filtered by completion status and start time bounds.

# Examples

List the 20 most recent completed applications:
  sparkinsight apps --status completed --limit 20

List applications started in a date range:
  sparkinsight apps --min-date 2024-03-01 --max-date 2024-03-31`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by status (completed, running)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of applications to return",
			},
			&cli.StringFlag{
				Name:  "min-date",
				Usage: "Earliest application start date (e.g., 2024-03-01)",
			},
			&cli.StringFlag{
				Name:  "max-date",
				Usage: "Latest application start date (e.g., 2024-03-31)",
			},
			serverFlag,
			noCacheFlag,
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseFormat(cmd)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}

			apps, err := client.ListApplications(ctx, spark.ListApplicationsOptions{
				Status:  cmd.String("status"),
				Limit:   int(cmd.Int("limit")),
				MinDate: cmd.String("min-date"),
				MaxDate: cmd.String("max-date"),
			})
			if err != nil {
				return fmt.Errorf("listing applications: %w", err)
			}

			writer := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			if closer, ok := writer.(serializer.Closer); ok {
				defer closer.Close()
			}
			return writer.Serialize(ctx, apps)
		},
	}
}
