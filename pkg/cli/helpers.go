package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/warrenzhu25/spark-insight/pkg/comparator"
	"github.com/warrenzhu25/spark-insight/pkg/config"
	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

// loadConfig reads configuration honoring the --config flag.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// newClient builds a History Server client for the server selected by
// --server (or the configured default).
func newClient(cmd *cli.Command, cfg *config.Config) (*spark.Client, error) {
	serverName, srv, err := cfg.DefaultServer(cmd.String("server"))
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

	if !cfg.DisableCache && !cmd.Bool("no-cache") {
		if cache, err := openCache(cfg); err != nil {
			slog.Warn("cache disabled", "error", err.Error())
		} else {
			opts = append(opts, spark.WithCache(cache))
		}
	}

	slog.Debug("using history server", "server", serverName, "url", srv.URL)
	return spark.NewClient(srv.URL, opts...)
}

// openCache resolves the cache directory and opens the response cache.
func openCache(cfg *config.Config) (*spark.Cache, error) {
	dir := cfg.CacheDir
	if dir == "" {
		var err error
		if dir, err = spark.DefaultCacheDir(); err != nil {
			return nil, err
		}
	}
	return spark.NewCache(dir)
}

// newComparator wires the comparison engine with defaults from config.
func newComparator(client *spark.Client, cfg *config.Config) (*comparator.Comparator, error) {
	return comparator.New(client,
		comparator.WithDefaults(comparator.OptionsFromEngine(cfg.Engine)),
	)
}
