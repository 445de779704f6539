package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/warrenzhu25/spark-insight/pkg/comparator"
	"github.com/warrenzhu25/spark-insight/pkg/serializer"
	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

func summaryCmd() *cli.Command {
	return &cli.Command{
		Name:                  "summary",
		EnableShellCompletion: true,
		Usage:                 "Summarize a single application run",
		ArgsUsage:             "<app-id>",
		Description: `Aggregate one application's stages, executors, and jobs into a flat
metric summary: run time, GC time, I/O volumes, spill, task counts,
executor utilization, and job outcomes.

The summary can be output in JSON, YAML, or table format.`,
		Flags: []cli.Flag{
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

			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("expected exactly one application ID, got %d", args.Len())
			}
			appID := args.Get(0)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}

			app, err := client.GetApplication(ctx, appID)
			if err != nil {
				return fmt.Errorf("resolving application %s: %w", appID, err)
			}

			// Missing auxiliary datasets degrade the summary rather than
			// failing it.
			var stages []spark.StageData
			var executors []spark.ExecutorSummary
			var jobs []spark.JobData
			if stages, err = client.ListStages(ctx, appID); err != nil {
				stages = nil
			}
			if executors, err = client.ListAllExecutors(ctx, appID); err != nil {
				executors = nil
			}
			if jobs, err = client.ListJobs(ctx, appID); err != nil {
				jobs = nil
			}

			resp := map[string]any{
				"application": app,
				"summary":     comparator.Summarize(app, stages, executors, jobs),
			}

			writer := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			if closer, ok := writer.(serializer.Closer); ok {
				defer closer.Close()
			}
			return writer.Serialize(ctx, resp)
		},
	}
}
