package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/warrenzhu25/spark-insight/pkg/serializer"
	"github.com/warrenzhu25/spark-insight/pkg/timeline"
)

func timelineCmd() *cli.Command {
	return &cli.Command{
		Name:                  "timeline",
		EnableShellCompletion: true,
		Usage:                 "Build an executor allocation timeline for an application",
		ArgsUsage:             "<app-id>",
		Description: `Bucket one application's lifetime into fixed intervals and report,
per interval, the active executor count, granted cores, memory, and
running stages. Use --stage to restrict the timeline to the execution
window of a single stage.

The timeline can be output in JSON, YAML, or table format.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "stage",
				Usage: "Restrict the timeline to this stage ID",
				Value: -1,
			},
			&cli.IntFlag{
				Name:  "attempt",
				Usage: "Stage attempt ID, used with --stage",
			},
			&cli.IntFlag{
				Name:  "interval-minutes",
				Usage: "Bucket width in minutes",
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

			executors, err := client.ListAllExecutors(ctx, appID)
			if err != nil {
				return fmt.Errorf("listing executors for %s: %w", appID, err)
			}

			opts := timeline.Options{
				IntervalMinutes: int(cmd.Int("interval-minutes")),
			}
			if cfg.Engine.TimelineMaxIntervals > 0 {
				opts.MaxIntervals = cfg.Engine.TimelineMaxIntervals
			}

			var tl *timeline.Timeline
			if stageID := int(cmd.Int("stage")); stageID >= 0 {
				stage, err := client.GetStageAttempt(ctx, appID, stageID, int(cmd.Int("attempt")))
				if err != nil {
					return fmt.Errorf("fetching stage %d of %s: %w", stageID, appID, err)
				}
				tl = timeline.BuildStageTimeline(appID, stage, executors, opts)
			} else {
				app, err := client.GetApplication(ctx, appID)
				if err != nil {
					return fmt.Errorf("resolving application %s: %w", appID, err)
				}

				stages, err := client.ListStages(ctx, appID)
				if err != nil {
					stages = nil
				}
				tl = timeline.BuildAppTimeline(app, executors, stages, opts)
			}

			writer := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			if closer, ok := writer.(serializer.Closer); ok {
				defer closer.Close()
			}
			return writer.Serialize(ctx, tl)
		},
	}
}
