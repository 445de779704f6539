package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
servers:
  local:
    url: http://localhost:18080
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultSignificanceThreshold, cfg.Engine.SignificanceThreshold)
	assert.Equal(t, DefaultStageMatchSimilarity, cfg.Engine.StageMatchSimilarity)
	assert.Equal(t, DefaultTimelineIntervalMinutes, cfg.Engine.TimelineIntervalMinutes)
	assert.Equal(t, DefaultTimelineMaxIntervals, cfg.Engine.TimelineMaxIntervals)
	assert.Equal(t, DefaultServerTimeoutSeconds, cfg.Servers["local"].TimeoutSeconds)
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
servers:
  production:
    url: https://shs.example.com:18080
    default: true
    timeout: 60
    auth:
      username: insight
      password: secret
  staging:
    url: http://staging:18080
    verify_ssl: false
engine:
  significance_threshold: 0.2
  stage_match_similarity: 0.8
`))
	require.NoError(t, err)

	name, srv, err := cfg.DefaultServer("")
	require.NoError(t, err)
	assert.Equal(t, "production", name)
	assert.Equal(t, "insight", srv.Auth.Username)
	assert.Equal(t, 60, srv.TimeoutSeconds)
	assert.False(t, srv.SkipTLSVerify())

	staging := cfg.Servers["staging"]
	assert.True(t, staging.SkipTLSVerify())

	assert.Equal(t, 0.2, cfg.Engine.SignificanceThreshold)
	assert.Equal(t, 0.8, cfg.Engine.StageMatchSimilarity)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "servers: [not a map"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"SERVER_URL", "http://env-server:18080")
	t.Setenv(EnvPrefix+"AUTH_TOKEN", "tok-123")
	t.Setenv(EnvPrefix+"SIGNIFICANCE_THRESHOLD", "0.25")

	cfg, err := Load(writeConfig(t, `
servers:
  file:
    url: http://file-server:18080
    default: true
`))
	require.NoError(t, err)

	name, srv, err := cfg.DefaultServer("")
	require.NoError(t, err)
	assert.Equal(t, "env", name)
	assert.Equal(t, "http://env-server:18080", srv.URL)
	assert.Equal(t, "tok-123", srv.Auth.Token)

	assert.Equal(t, 0.25, cfg.Engine.SignificanceThreshold)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name: "missing url",
			mutate: func(c *Config) {
				c.Servers["bad"] = Server{}
			},
			wantErr: true,
		},
		{
			name: "threshold out of range",
			mutate: func(c *Config) {
				c.Engine.SignificanceThreshold = 1.5
			},
			wantErr: true,
		},
		{
			name: "negative similarity",
			mutate: func(c *Config) {
				c.Engine.StageMatchSimilarity = -0.1
			},
			wantErr: true,
		},
		{
			name: "zero interval",
			mutate: func(c *Config) {
				c.Engine.TimelineIntervalMinutes = 0
			},
			wantErr: true,
		},
		{
			name: "two defaults",
			mutate: func(c *Config) {
				c.Servers["a"] = Server{URL: "http://a", Default: true}
				c.Servers["b"] = Server{URL: "http://b", Default: true}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.Engine.TimelineIntervalMinutes = DefaultTimelineIntervalMinutes
			cfg.Engine.TimelineMaxIntervals = DefaultTimelineMaxIntervals
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultServerResolution(t *testing.T) {
	cfg := New()
	cfg.Servers["only"] = Server{URL: "http://only:18080"}

	name, _, err := cfg.DefaultServer("")
	require.NoError(t, err)
	assert.Equal(t, "only", name)

	_, _, err = cfg.DefaultServer("missing")
	assert.Error(t, err)

	cfg.Servers["second"] = Server{URL: "http://second:18080"}
	_, _, err = cfg.DefaultServer("")
	assert.Error(t, err, "two servers and no default should be ambiguous")

	name, _, err = cfg.DefaultServer("second")
	require.NoError(t, err)
	assert.Equal(t, "second", name)
}
