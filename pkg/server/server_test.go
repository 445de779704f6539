package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/warrenzhu25/spark-insight/pkg/comparator"
	"github.com/warrenzhu25/spark-insight/pkg/spark"

	xerrors "github.com/warrenzhu25/spark-insight/pkg/errors"
)

// stubProvider serves two fixed applications.
type stubProvider struct{}

func (p *stubProvider) GetApplication(_ context.Context, appID string) (*spark.ApplicationInfo, error) {
	if appID != "app-1" && appID != "app-2" {
		return nil, xerrors.New(xerrors.ErrCodeNotFound, "application not found: "+appID)
	}
	start := spark.NewTimestamp(time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC))
	end := spark.NewTimestamp(time.Date(2024, 3, 10, 2, 10, 0, 0, time.UTC))
	return &spark.ApplicationInfo{
		ID:   appID,
		Name: "etl-nightly",
		Attempts: []spark.ApplicationAttemptInfo{
			{StartTime: start, EndTime: end, Duration: 600_000, Completed: true},
		},
	}, nil
}

func (p *stubProvider) ListStages(_ context.Context, _ string) ([]spark.StageData, error) {
	return []spark.StageData{
		{StageID: 0, Status: "COMPLETE", Name: "count at Pipeline.scala:42", ExecutorRunTime: 60_000},
	}, nil
}

func (p *stubProvider) ListAllExecutors(_ context.Context, _ string) ([]spark.ExecutorSummary, error) {
	return []spark.ExecutorSummary{
		{ID: "driver", TotalCores: 1},
		{ID: "1", TotalCores: 4, TotalDuration: 60_000},
	}, nil
}

func (p *stubProvider) ListJobs(_ context.Context, _ string) ([]spark.JobData, error) {
	return []spark.JobData{{JobID: 0, Status: "SUCCEEDED"}}, nil
}

func (p *stubProvider) GetEnvironment(_ context.Context, _ string) (*spark.ApplicationEnvironmentInfo, error) {
	return &spark.ApplicationEnvironmentInfo{
		Runtime: spark.RuntimeInfo{JavaVersion: "17.0.9"},
		SparkProperties: [][2]string{
			{"spark.executor.memory", "4g"},
		},
	}, nil
}

func (p *stubProvider) GetStageTaskSummary(_ context.Context, _ string, _, _ int, _ string) (*spark.TaskMetricDistributions, error) {
	return nil, xerrors.New(xerrors.ErrCodeNotFound, "no task summary")
}

func newAPITestServer(t *testing.T) *Server {
	t.Helper()

	provider := &stubProvider{}
	cmp, err := comparator.New(provider)
	if err != nil {
		t.Fatalf("comparator.New failed: %v", err)
	}

	s, err := NewServer(NewConfig(), cmp, provider)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

func TestNewServerValidation(t *testing.T) {
	provider := &stubProvider{}
	cmp, err := comparator.New(provider)
	if err != nil {
		t.Fatalf("comparator.New failed: %v", err)
	}

	if _, err := NewServer(nil, nil, provider); err == nil {
		t.Error("expected error for nil comparator")
	}
	if _, err := NewServer(nil, cmp, nil); err == nil {
		t.Error("expected error for nil provider")
	}
	if _, err := NewServer(nil, cmp, provider); err != nil {
		t.Errorf("expected nil config to default, got: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
}

func TestHandleReady(t *testing.T) {
	s := newAPITestServer(t)

	// Not ready at first
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.handleReady(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before SetReady, got %d", rec.Code)
	}

	s.SetReady(true)
	rec = httptest.NewRecorder()
	s.handleReady(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 after SetReady, got %d", rec.Code)
	}
}

func TestHandleCompare(t *testing.T) {
	s := newAPITestServer(t)
	s.SetReady(true)

	req := httptest.NewRequest(http.MethodGet, "/v1/compare?app1=app-1&app2=app-2", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to unmarshal report: %v", err)
	}
	for _, key := range []string{"schema_version", "applications", "recommendations"} {
		if _, ok := report[key]; !ok {
			t.Errorf("expected report key %s", key)
		}
	}

	if rec.Header().Get("Cache-Control") == "" {
		t.Error("expected Cache-Control header")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header")
	}
}

func TestHandleCompareMissingParams(t *testing.T) {
	s := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/compare?app1=app-1", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error: %v", err)
	}
	if resp.Code != ErrCodeInvalidRequest {
		t.Errorf("expected %s, got %s", ErrCodeInvalidRequest, resp.Code)
	}
}

func TestHandleCompareUnknownParam(t *testing.T) {
	s := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/compare?app1=app-1&app2=app-2&bogus=1", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown param, got %d", rec.Code)
	}
}

func TestHandleCompareNotFound(t *testing.T) {
	s := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/compare?app1=app-1&app2=missing", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleCompareMethodNotAllowed(t *testing.T) {
	s := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/compare?app1=app-1&app2=app-2", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != http.MethodGet {
		t.Errorf("expected Allow: GET header, got %s", rec.Header().Get("Allow"))
	}
}

func TestHandleSummary(t *testing.T) {
	s := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/applications/app-1/summary", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if _, ok := resp["application"]; !ok {
		t.Error("expected application in response")
	}
	summary, ok := resp["summary"].(map[string]any)
	if !ok {
		t.Fatal("expected summary object in response")
	}
	if summary["total_stages"] != 1.0 {
		t.Errorf("expected total_stages 1, got %v", summary["total_stages"])
	}
}

func TestHandleSummaryNotFound(t *testing.T) {
	s := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/applications/missing/summary", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleDefault(t *testing.T) {
	s := newAPITestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Name   string   `json:"name"`
		Routes []string `json:"routes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Routes) == 0 {
		t.Error("expected routes in descriptor")
	}
}

func TestParseCompareQueryOptions(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/v1/compare?app1=a&app2=b&top_stages=5&significance_threshold=0.25", nil)

	q, err := parseCompareQuery(req.URL.Query())
	if err != nil {
		t.Fatalf("parseCompareQuery failed: %v", err)
	}
	if q.App1 != "a" || q.App2 != "b" {
		t.Errorf("unexpected app IDs: %s, %s", q.App1, q.App2)
	}
	if q.Opts.TopStages != 5 {
		t.Errorf("expected TopStages 5, got %d", q.Opts.TopStages)
	}
	if q.Opts.SignificanceThreshold != 0.25 {
		t.Errorf("expected SignificanceThreshold 0.25, got %v", q.Opts.SignificanceThreshold)
	}
}

func TestServerStartShutdown(t *testing.T) {
	s := newAPITestServer(t)
	s.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
