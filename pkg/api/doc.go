// Package api provides the HTTP API entry point for the comparison service.
//
// This package acts as a thin wrapper around the reusable pkg/server package,
// wiring it to a configured History Server client and the comparison engine.
// The API server exposes run comparison and application summaries; snapshot
// inspection commands (timeline, apps, cache) remain CLI-only.
//
// # Usage
//
// To start the API server:
//
//	package main
//
//	import (
//	    "log"
//	    "github.com/warrenzhu25/spark-insight/pkg/api"
//	)
//
//	func main() {
//	    if err := api.Serve(); err != nil {
//	        log.Fatalf("server error: %v", err)
//	    }
//	}
//
// # Architecture
//
// The API layer is responsible for:
//   - Configuring structured logging with application name and version
//   - Loading configuration and building the History Server client
//   - Delegating server lifecycle management to pkg/server
//
// The pkg/server package handles:
//   - HTTP server setup and graceful shutdown
//   - Middleware (rate limiting, logging, metrics, panic recovery)
//   - Health and readiness endpoints
//   - Prometheus metrics
//
// # Configuration
//
// The server is configured via the same YAML file and SPARK_INSIGHT_*
// environment variables as the CLI, plus:
//   - PORT: HTTP server port (default: 8080)
//   - LOG_LEVEL: Logging level (debug, info, warn, error)
//
// Version information is set at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/warrenzhu25/spark-insight/pkg/api.version=1.0.0'"
package api
