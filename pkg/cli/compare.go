package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/warrenzhu25/spark-insight/pkg/comparator"
	"github.com/warrenzhu25/spark-insight/pkg/serializer"
)

func compareCmd() *cli.Command {
	return &cli.Command{
		Name:                  "compare",
		EnableShellCompletion: true,
		Usage:                 "Compare two application runs and diagnose differences",
		ArgsUsage:             "<app-id-1> <app-id-2>",
		Description: `Produce a full comparison report for two Spark application runs:
  - Executor fleet overview with efficiency ratios
  - Top stage duration regressions across matched stages
  - Executor allocation timelines compared bucket by bucket
  - Spark property and JVM runtime differences
  - Aggregated application metric diffs
  - Prioritized recommendations

The report can be output in JSON, YAML, or table format.

# Examples

Compare two runs on the default History Server:
  sparkinsight compare app-20240310020000-0001 app-20240311020000-0001

Surface the five largest stage regressions with a tighter threshold:
  sparkinsight compare app-1 app-2 --top-stages 5 --significance-threshold 0.05

Write the report to a YAML file:
  sparkinsight compare app-1 app-2 --format yaml --output report.yaml`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "top-stages",
				Usage: "Number of stage regressions to surface in the deep dive",
			},
			&cli.FloatFlag{
				Name:  "significance-threshold",
				Usage: "Minimum relative metric change reported (0..1)",
			},
			&cli.FloatFlag{
				Name:  "similarity-threshold",
				Usage: "Minimum stage-name similarity for cross-run matching (0..1)",
			},
			&cli.BoolFlag{
				Name:  "require-overlap",
				Usage: "Only match stages whose execution windows overlap",
			},
			&cli.IntFlag{
				Name:  "interval-minutes",
				Usage: "Timeline bucket width in minutes",
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
			if args.Len() != 2 {
				return fmt.Errorf("expected exactly two application IDs, got %d", args.Len())
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}

			cmp, err := newComparator(client, cfg)
			if err != nil {
				return err
			}

			opts := comparator.Options{
				TopStages:             int(cmd.Int("top-stages")),
				SignificanceThreshold: float64(cmd.Float("significance-threshold")),
				SimilarityThreshold:   float64(cmd.Float("similarity-threshold")),
				RequireOverlap:        cmd.Bool("require-overlap"),
				IntervalMinutes:       int(cmd.Int("interval-minutes")),
			}

			report, err := cmp.Compare(ctx, args.Get(0), args.Get(1), opts)
			if err != nil {
				return fmt.Errorf("comparison failed: %w", err)
			}

			writer := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			if closer, ok := writer.(serializer.Closer); ok {
				defer closer.Close()
			}
			return writer.Serialize(ctx, report)
		},
	}
}
