// Package server provides the HTTP server of the API process: gin behind
// an h2c-capable root mux, a net/http middleware stack, probe endpoints and
// a bootstrap component.
//
// # Middleware
//
// Applied around the root mux by ApplyMiddleware, outermost first:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation
//   - CORS: cross-origin headers and preflight
//   - BodySizeLimit: request body cap, 413 up front for a declared length
//   - RequestLogger: one log line per request tagged with its request id,
//     probes skipped
//
// middleware.Metrics is a gin middleware recording OTLP request metrics by
// route pattern.
//
// # Endpoints
//
//   - /health: folded component health, 503 when a critical component is down
//   - /alive, /ready: liveness and readiness probes
//   - /info: build information and uptime
//   - /metrics: runtime memory and goroutine counts
package server
