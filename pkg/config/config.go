// Package config loads Spark Insight configuration from a YAML file with
// environment overrides. A .env file in the working directory is honored so
// local credentials stay out of shell history.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	xerrors "github.com/warrenzhu25/spark-insight/pkg/errors"
)

// EnvPrefix is the prefix for all environment overrides.
const EnvPrefix = "SPARK_INSIGHT_"

// DefaultFileName is the config file looked up in the user home directory
// when no explicit path is given.
const DefaultFileName = ".sparkinsight.yaml"

// Engine defaults. All overridable per call through comparator options.
const (
	DefaultSignificanceThreshold   = 0.1
	DefaultStageMatchSimilarity    = 0.75
	DefaultTimelineIntervalMinutes = 1
	DefaultTimelineMaxIntervals    = 10000
	DefaultLargeStageDiffSeconds   = 60.0
	DefaultGCPressureThreshold     = 0.2
	DefaultServerTimeoutSeconds    = 30
)

// Auth holds History Server credentials. Token takes precedence when both
// token and basic credentials are set.
type Auth struct {
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// Server describes one Spark History Server connection.
type Server struct {
	URL            string `yaml:"url"`
	Auth           Auth   `yaml:"auth,omitempty"`
	Default        bool   `yaml:"default,omitempty"`
	VerifySSL      *bool  `yaml:"verify_ssl,omitempty"`
	TimeoutSeconds int    `yaml:"timeout,omitempty"`
}

// SkipTLSVerify reports whether certificate verification is disabled.
func (s Server) SkipTLSVerify() bool {
	return s.VerifySSL != nil && !*s.VerifySSL
}

// Engine holds the comparison engine tunables.
type Engine struct {
	SignificanceThreshold   float64 `yaml:"significance_threshold"`
	StageMatchSimilarity    float64 `yaml:"stage_match_similarity"`
	TimelineIntervalMinutes int     `yaml:"timeline_interval_minutes"`
	TimelineMaxIntervals    int     `yaml:"timeline_max_intervals"`
	LargeStageDiffSeconds   float64 `yaml:"large_stage_diff_seconds"`
	GCPressureThreshold     float64 `yaml:"gc_pressure_threshold"`
}

// Config is the top-level configuration.
type Config struct {
	Servers      map[string]Server `yaml:"servers"`
	Engine       Engine            `yaml:"engine"`
	CacheDir     string            `yaml:"cache_dir,omitempty"`
	DisableCache bool              `yaml:"disable_cache,omitempty"`
}

// New returns a Config populated with engine defaults and no servers.
func New() *Config {
	return &Config{
		Servers: map[string]Server{},
		Engine: Engine{
			SignificanceThreshold:   DefaultSignificanceThreshold,
			StageMatchSimilarity:    DefaultStageMatchSimilarity,
			TimelineIntervalMinutes: DefaultTimelineIntervalMinutes,
			TimelineMaxIntervals:    DefaultTimelineMaxIntervals,
			LargeStageDiffSeconds:   DefaultLargeStageDiffSeconds,
			GCPressureThreshold:     DefaultGCPressureThreshold,
		},
	}
}

// Load reads configuration from path (or the default location when path is
// empty), then applies environment overrides. A missing file is not an error;
// env-only configuration is a supported mode.
func Load(path string) (*Config, error) {
	// Best-effort .env load so SPARK_INSIGHT_* can live next to the project.
	_ = godotenv.Load()

	cfg := New()

	explicit := path != ""
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, DefaultFileName)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, xerrors.WrapWithContext(xerrors.ErrCodeInvalidRequest,
					"failed to parse config file", err, map[string]any{"path": path})
			}
		case os.IsNotExist(err) && !explicit:
			// Fine, run on env/defaults.
		default:
			return nil, xerrors.WrapWithContext(xerrors.ErrCodeInvalidRequest,
				"failed to read config file", err, map[string]any{"path": path})
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Servers == nil {
		c.Servers = map[string]Server{}
	}
	for name, srv := range c.Servers {
		if srv.TimeoutSeconds == 0 {
			srv.TimeoutSeconds = DefaultServerTimeoutSeconds
			c.Servers[name] = srv
		}
	}
	if c.Engine.SignificanceThreshold == 0 {
		c.Engine.SignificanceThreshold = DefaultSignificanceThreshold
	}
	if c.Engine.StageMatchSimilarity == 0 {
		c.Engine.StageMatchSimilarity = DefaultStageMatchSimilarity
	}
	if c.Engine.TimelineIntervalMinutes == 0 {
		c.Engine.TimelineIntervalMinutes = DefaultTimelineIntervalMinutes
	}
	if c.Engine.TimelineMaxIntervals == 0 {
		c.Engine.TimelineMaxIntervals = DefaultTimelineMaxIntervals
	}
	if c.Engine.LargeStageDiffSeconds == 0 {
		c.Engine.LargeStageDiffSeconds = DefaultLargeStageDiffSeconds
	}
	if c.Engine.GCPressureThreshold == 0 {
		c.Engine.GCPressureThreshold = DefaultGCPressureThreshold
	}
}

// applyEnv overlays SPARK_INSIGHT_* environment variables. SERVER_URL with
// optional AUTH_* credentials defines or overrides a server named "env" that
// becomes the default.
func (c *Config) applyEnv() {
	if url := os.Getenv(EnvPrefix + "SERVER_URL"); url != "" {
		for name, srv := range c.Servers {
			srv.Default = false
			c.Servers[name] = srv
		}
		c.Servers["env"] = Server{
			URL: url,
			Auth: Auth{
				Username: os.Getenv(EnvPrefix + "AUTH_USERNAME"),
				Password: os.Getenv(EnvPrefix + "AUTH_PASSWORD"),
				Token:    os.Getenv(EnvPrefix + "AUTH_TOKEN"),
			},
			Default:        true,
			TimeoutSeconds: DefaultServerTimeoutSeconds,
		}
	}

	if dir := os.Getenv(EnvPrefix + "CACHE_DIR"); dir != "" {
		c.CacheDir = dir
	}
	if v := os.Getenv(EnvPrefix + "DISABLE_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DisableCache = b
		}
	}
	if v := os.Getenv(EnvPrefix + "SIGNIFICANCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Engine.SignificanceThreshold = f
		}
	}
	if v := os.Getenv(EnvPrefix + "STAGE_MATCH_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Engine.StageMatchSimilarity = f
		}
	}
}

// Validate checks server and engine settings, accumulating all problems
// before reporting.
func (c *Config) Validate() error {
	var result *multierror.Error

	for name, srv := range c.Servers {
		if srv.URL == "" {
			result = multierror.Append(result, fmt.Errorf("server %q: url is required", name))
		}
		if srv.TimeoutSeconds < 0 {
			result = multierror.Append(result, fmt.Errorf("server %q: timeout must be non-negative", name))
		}
	}

	defaults := 0
	for _, srv := range c.Servers {
		if srv.Default {
			defaults++
		}
	}
	if defaults > 1 {
		result = multierror.Append(result, fmt.Errorf("at most one server may be marked default, found %d", defaults))
	}

	if c.Engine.SignificanceThreshold < 0 || c.Engine.SignificanceThreshold > 1 {
		result = multierror.Append(result, fmt.Errorf("significance_threshold must be within [0, 1], got %v", c.Engine.SignificanceThreshold))
	}
	if c.Engine.StageMatchSimilarity < 0 || c.Engine.StageMatchSimilarity > 1 {
		result = multierror.Append(result, fmt.Errorf("stage_match_similarity must be within [0, 1], got %v", c.Engine.StageMatchSimilarity))
	}
	if c.Engine.TimelineIntervalMinutes < 1 {
		result = multierror.Append(result, fmt.Errorf("timeline_interval_minutes must be positive, got %d", c.Engine.TimelineIntervalMinutes))
	}
	if c.Engine.TimelineMaxIntervals < 1 {
		result = multierror.Append(result, fmt.Errorf("timeline_max_intervals must be positive, got %d", c.Engine.TimelineMaxIntervals))
	}

	if err := result.ErrorOrNil(); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInvalidRequest, "invalid configuration", err)
	}
	return nil
}

// DefaultServer resolves the server to use: the one named, else the one
// flagged default, else a sole configured server.
func (c *Config) DefaultServer(name string) (string, Server, error) {
	if name != "" {
		srv, ok := c.Servers[name]
		if !ok {
			return "", Server{}, xerrors.NewWithContext(xerrors.ErrCodeNotFound,
				"server not found in configuration", map[string]any{"server": name})
		}
		return name, srv, nil
	}

	for n, srv := range c.Servers {
		if srv.Default {
			return n, srv, nil
		}
	}
	if len(c.Servers) == 1 {
		for n, srv := range c.Servers {
			return n, srv, nil
		}
	}
	return "", Server{}, xerrors.New(xerrors.ErrCodeInvalidRequest,
		"no default server configured; set servers.<name>.default or pass --server")
}
