package cli

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/warrenzhu25/spark-insight/pkg/serializer"
)

// Flags shared across subcommands.
var (
	// Declared on the root command; subcommands resolve them through the
	// command lineage, so they are passed before the subcommand name.
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "config file (default is $HOME/.sparkinsight.yaml)",
		Sources: cli.EnvVars("SPARK_INSIGHT_CONFIG"),
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (debug, info, warn, error)",
		Value: "info",
	}

	serverFlag = &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "named History Server from config (default: the configured default server)",
		Sources: cli.EnvVars("SPARK_INSIGHT_SERVER"),
	}

	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output file path (default: stdout)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: fmt.Sprintf("output format (supported values: %s)", strings.Join(serializer.SupportedFormats(), ", ")),
		Value: string(serializer.FormatJSON),
	}

	noCacheFlag = &cli.BoolFlag{
		Name:  "no-cache",
		Usage: "bypass the local response cache",
	}
)

// parseFormat validates the --format flag value.
func parseFormat(cmd *cli.Command) (serializer.Format, error) {
	outFormat := serializer.Format(cmd.String("format"))
	if outFormat.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q", outFormat)
	}
	return outFormat, nil
}
