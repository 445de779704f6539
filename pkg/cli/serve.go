package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/warrenzhu25/spark-insight/pkg/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:                  "serve",
		EnableShellCompletion: true,
		Usage:                 "Start the comparison HTTP API server",
		Description: `Start the HTTP API exposing the comparison engine:

  GET /v1/compare?app1=...&app2=...       full comparison report
  GET /v1/applications/{id}/summary       single application summary
  GET /health, /ready, /metrics           operational endpoints

The server uses the same configuration file as the CLI for History
Server connections and engine defaults.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP listen port",
				Sources: cli.EnvVars("PORT"),
				Value:   8080,
			},
			serverFlag,
			noCacheFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
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

			srvCfg := server.NewConfig()
			srvCfg.Name = name
			srvCfg.Version = version
			srvCfg.Port = int(cmd.Int("port"))

			return server.Run(srvCfg, cmp, client)
		},
	}
}
