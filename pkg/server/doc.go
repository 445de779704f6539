// Package server implements the HTTP API surface for run comparisons.
//
// Endpoints:
//   - GET /                                  service descriptor
//   - GET /health                            liveness probe
//   - GET /ready                             readiness probe
//   - GET /metrics                           Prometheus metrics
//   - GET /v1/compare                        full comparison report
//   - GET /v1/applications/{id}/summary      single application summary
//
// API endpoints run behind a middleware chain providing metrics, version
// negotiation, request IDs, panic recovery, rate limiting, and request
// logging. Probe endpoints bypass the chain so orchestration traffic is
// never rate limited.
package server
