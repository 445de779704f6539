package api

import (
	"log/slog"
	"time"

	"github.com/warrenzhu25/spark-insight/pkg/comparator"
	"github.com/warrenzhu25/spark-insight/pkg/config"
	"github.com/warrenzhu25/spark-insight/pkg/logging"
	"github.com/warrenzhu25/spark-insight/pkg/server"
	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

const (
	name           = "sparkinsightd"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/warrenzhu25/spark-insight/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Serve starts the API server and blocks until shutdown.
// It configures logging, loads configuration, builds the History Server
// client and comparison engine, and handles graceful shutdown.
// Returns an error if the server fails to start or encounters a fatal error.
func Serve() error {
	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load configuration", "error", err.Error())
		return err
	}

	client, err := buildClient(cfg)
	if err != nil {
		slog.Error("failed to build history server client", "error", err.Error())
		return err
	}

	cmp, err := comparator.New(client,
		comparator.WithDefaults(comparator.OptionsFromEngine(cfg.Engine)),
	)
	if err != nil {
		return err
	}

	srvCfg := server.NewConfig()
	srvCfg.Name = name
	srvCfg.Version = version

	if err := server.Run(srvCfg, cmp, client); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}

	return nil
}

// buildClient constructs the History Server client from the default server
// entry in configuration.
func buildClient(cfg *config.Config) (*spark.Client, error) {
	serverName, srv, err := cfg.DefaultServer("")
	if err != nil {
		return nil, err
	}

	opts := []spark.ClientOption{}
	switch {
	case srv.Auth.Token != "":
		opts = append(opts, spark.WithToken(srv.Auth.Token))
	case srv.Auth.Username != "":
		opts = append(opts, spark.WithBasicAuth(srv.Auth.Username, srv.Auth.Password))
	}
	if srv.TimeoutSeconds > 0 {
		opts = append(opts, spark.WithTimeout(time.Duration(srv.TimeoutSeconds)*time.Second))
	}
	if srv.SkipTLSVerify() {
		opts = append(opts, spark.WithInsecureTLS())
	}

	if !cfg.DisableCache {
		dir := cfg.CacheDir
		if dir == "" {
			if dir, err = spark.DefaultCacheDir(); err != nil {
				dir = ""
			}
		}
		if dir != "" {
			if cache, err := spark.NewCache(dir); err == nil {
				opts = append(opts, spark.WithCache(cache))
			} else {
				slog.Warn("cache disabled", "error", err.Error())
			}
		}
	}

	slog.Info("using history server", "server", serverName, "url", srv.URL)
	return spark.NewClient(srv.URL, opts...)
}
