// Package cli implements the sparkinsight command line interface using the
// urfave/cli/v3 framework. Commands delegate to the engine packages: compare
// runs the full comparison pipeline, summary and timeline inspect a single
// application, apps lists History Server applications, cache manages the
// local response cache, and serve starts the HTTP API.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/warrenzhu25/spark-insight/pkg/logging"
)

const (
	name           = "sparkinsight"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Root builds the top-level command with all subcommands attached.
func Root() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "Compare and diagnose Spark application runs",
		Version:               fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			configFlag,
			logLevelFlag,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
			slog.Debug("starting",
				"name", name,
				"version", version,
				"commit", commit,
				"date", date,
			)
			return ctx, nil
		},
		Commands: []*cli.Command{
			compareCmd(),
			summaryCmd(),
			timelineCmd(),
			appsCmd(),
			cacheCmd(),
			serveCmd(),
		},
	}
}

// Execute runs the CLI with signal-driven cancellation.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Root().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
