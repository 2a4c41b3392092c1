// Package server implements the HTTP server using Echo framework.
//
// Routes: realtime websocket transport (/ws), operational API (disconnect,
// connection counts), health/version/metrics. Handlers split by concern:
// handlers_ws.go, handlers_api.go, handlers_health.go.
package server
