package spark

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/warrenzhu25/spark-insight/pkg/errors"
)

const appJSON = `{
	"id": "app-20240115-0001",
	"name": "daily-etl",
	"attempts": [{
		"attemptId": "1",
		"startTime": "2024-01-15T10:00:00.000GMT",
		"endTime": "2024-01-15T11:30:00.000GMT",
		"duration": 5400000,
		"sparkUser": "etl",
		"completed": true,
		"appSparkVersion": "3.5.1"
	}]
}`

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid http", "http://localhost:18080", false},
		{"valid https", "https://shs.example.com", false},
		{"empty", "", true},
		{"bad scheme", "ftp://host", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetApplication(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/applications/app-20240115-0001", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(appJSON))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	app, err := client.GetApplication(context.Background(), "app-20240115-0001")
	require.NoError(t, err)

	assert.Equal(t, "app-20240115-0001", app.ID)
	assert.Equal(t, "daily-etl", app.Name)
	require.Len(t, app.Attempts, 1)
	assert.True(t, app.Attempts[0].Completed)
	assert.Equal(t, "3.5.1", app.Attempts[0].AppSparkVersion)

	want := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	require.NotNil(t, app.Attempts[0].StartTime)
	assert.True(t, app.Attempts[0].StartTime.Equal(want))
}

func TestGetApplicationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such app", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.GetApplication(context.Background(), "missing")
	require.Error(t, err)

	var structured *xerrors.StructuredError
	require.True(t, errors.As(err, &structured))
	assert.Equal(t, xerrors.ErrCodeNotFound, structured.Code)
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithRetries(5), WithRateLimit(1000, 1000))
	require.NoError(t, err)

	stages, err := client.ListStages(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Empty(t, stages)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetDoesNotRetryUnauthorized(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithRetries(5))
	require.NoError(t, err)

	_, err = client.ListStages(context.Background(), "app-1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var structured *xerrors.StructuredError
	require.True(t, errors.As(err, &structured))
	assert.Equal(t, xerrors.ErrCodeUnauthorized, structured.Code)
}

func TestGetUsesBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "insight", user)
		assert.Equal(t, "secret", pass)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithBasicAuth("insight", "secret"))
	require.NoError(t, err)

	_, err = client.ListJobs(context.Background(), "app-1")
	require.NoError(t, err)
}

func TestGetUsesBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithToken("tok-123"))
	require.NoError(t, err)

	_, err = client.ListAllExecutors(context.Background(), "app-1")
	require.NoError(t, err)
}

func TestGetServesFromCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(appJSON))
	}))
	defer srv.Close()

	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	client, err := NewClient(srv.URL, WithCache(cache))
	require.NoError(t, err)

	_, err = client.GetApplication(context.Background(), "app-20240115-0001")
	require.NoError(t, err)
	_, err = client.GetApplication(context.Background(), "app-20240115-0001")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "second fetch should hit the cache")
}

func TestListApplicationsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "completed", r.URL.Query().Get("status"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.ListApplications(context.Background(), ListApplicationsOptions{
		Status: "completed",
		Limit:  25,
	})
	require.NoError(t, err)
}

func TestGetEnvironment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"runtime": {"javaVersion": "17.0.9", "javaHome": "/usr/lib/jvm", "scalaVersion": "2.13.8"},
			"sparkProperties": [["spark.executor.memory", "8g"], ["spark.app.id", "app-1"]],
			"systemProperties": [["os.name", "Linux"]]
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	env, err := client.GetEnvironment(context.Background(), "app-1")
	require.NoError(t, err)

	assert.Equal(t, "17.0.9", env.Runtime.JavaVersion)
	props := PropertiesMap(env.SparkProperties)
	assert.Equal(t, "8g", props["spark.executor.memory"])
}
