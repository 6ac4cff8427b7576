// Package server provides the HTTP server for the jobforge daemon.
//
// The server uses the Gin web framework and supports two modes of
// operation: development and production.
//
// # Architecture Overview
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                         HTTP Server                           │
//	├───────────────────────────────────────────────────────────────┤
//	│                       Middleware Stack                        │
//	│  ┌─────────────────────────────────────────────────────────┐  │
//	│  │  Logger (request/response logging)                      │  │
//	│  │  Recovery (panic recovery with zap logging)             │  │
//	│  └─────────────────────────────────────────────────────────┘  │
//	├───────────────────────────────────────────────────────────────┤
//	│                       Router (/api/v1)                        │
//	│  ┌─────────────────────────────────────────────────────────┐  │
//	│  │  Handlers (registered via callback)                     │  │
//	│  └─────────────────────────────────────────────────────────┘  │
//	└───────────────────────────────────────────────────────────────┘
//
// # Server Modes
//
// Development Mode (Mode = "dev"):
//   - Gin runs in debug mode
//
// Production Mode (Mode = "prod"):
//   - Gin runs in release mode
//
// # Server Lifecycle
//
// Creation:
//
//	srv, err := server.NewServer(cfg, handler.RegisterRoutes)
//
// The register callback receives a RouterGroup prefixed with /api/v1.
//
// Starting:
//
//	// Blocks until error or shutdown
//	err := srv.Start(ctx)
//
// Stopping:
//
//	srv.Stop(ctx)
//
// Performs graceful shutdown, waiting for in-flight requests to
// complete until ctx expires.
//
// # Middleware
//
// The server applies two middleware to all routes:
//
// Logger Middleware (middlewares.Logger):
//   - Logs request start: method, path, query, IP, user-agent
//   - Logs request end: all above + status code, latency
//   - Errors logged separately if present
//   - Uses zap structured logging with "http" logger name
//
// Recovery Middleware (ginzap.RecoveryWithZap):
//   - Recovers from panics in handlers
//   - Logs panic details with stack trace
//   - Returns 500 Internal Server Error
//
// Unmatched routes return a JSON 404 body.
package server
