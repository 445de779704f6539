package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mitchellh/mapstructure"

	"github.com/warrenzhu25/spark-insight/pkg/comparator"
	"github.com/warrenzhu25/spark-insight/pkg/serializer"
	"github.com/warrenzhu25/spark-insight/pkg/spark"

	xerrors "github.com/warrenzhu25/spark-insight/pkg/errors"
)

// compareQuery is the parsed form of a /v1/compare request.
type compareQuery struct {
	App1 string
	App2 string
	Opts comparator.Options
}

// parseCompareQuery extracts the two application IDs and any comparison
// option overrides from the request query string. Unknown parameters are
// rejected so typos surface instead of silently falling back to defaults.
func parseCompareQuery(values url.Values) (*compareQuery, error) {
	q := &compareQuery{
		App1: values.Get("app1"),
		App2: values.Get("app2"),
	}
	if q.App1 == "" || q.App2 == "" {
		return nil, fmt.Errorf("both app1 and app2 query parameters are required")
	}

	raw := map[string]any{}
	for key, vals := range values {
		if key == "app1" || key == "app2" || len(vals) == 0 {
			continue
		}
		raw[key] = vals[0]
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &q.Opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("building query decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid query parameters: %w", err)
	}

	return q, nil
}

// handleCompare processes GET /v1/compare requests end-to-end, ensuring
// structured error responses consistent with the rest of the server surface.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed,
			"Method not allowed", false, map[string]any{
				"method": r.Method,
			})
		return
	}

	q, err := parseCompareQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest,
			"Invalid comparison query", false, map[string]any{
				"error": err.Error(),
			})
		return
	}

	report, err := s.comparator.Compare(r.Context(), q.App1, q.App2, q.Opts)
	if err != nil {
		s.writeComparisonError(w, r, err)
		return
	}

	if maxAge := s.config.CacheMaxAge; maxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}

	serializer.RespondJSON(w, http.StatusOK, report)
}

// writeComparisonError maps engine errors onto HTTP statuses.
func (s *Server) writeComparisonError(w http.ResponseWriter, r *http.Request, err error) {
	details := map[string]any{"error": err.Error()}

	var structured *xerrors.StructuredError
	if errors.As(err, &structured) {
		switch structured.Code {
		case xerrors.ErrCodeNotFound:
			s.writeError(w, r, http.StatusNotFound, ErrCodeNotFound,
				"Application not found", false, details)
			return
		case xerrors.ErrCodeInvalidRequest:
			s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest,
				"Invalid comparison request", false, details)
			return
		case xerrors.ErrCodeUnavailable, xerrors.ErrCodeTimeout:
			s.writeError(w, r, http.StatusBadGateway, ErrCodeServiceUnavailable,
				"History Server unavailable", true, details)
			return
		}
	}

	s.writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError,
		"Failed to produce comparison", true, details)
}

// handleSummary processes GET /v1/applications/{id}/summary requests.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed,
			"Method not allowed", false, map[string]any{
				"method": r.Method,
			})
		return
	}

	appID := r.PathValue("id")
	if appID == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest,
			"Application ID is required", false, nil)
		return
	}

	ctx := r.Context()
	app, err := s.provider.GetApplication(ctx, appID)
	if err != nil {
		s.writeComparisonError(w, r, err)
		return
	}

	// Missing auxiliary datasets degrade the summary rather than failing it.
	var stages []spark.StageData
	var executors []spark.ExecutorSummary
	var jobs []spark.JobData
	if stages, err = s.provider.ListStages(ctx, appID); err != nil {
		stages = nil
	}
	if executors, err = s.provider.ListAllExecutors(ctx, appID); err != nil {
		executors = nil
	}
	if jobs, err = s.provider.ListJobs(ctx, appID); err != nil {
		jobs = nil
	}

	resp := map[string]any{
		"application": app,
		"summary":     comparator.Summarize(app, stages, executors, jobs),
	}

	serializer.RespondJSON(w, http.StatusOK, resp)
}
