package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Realtime transport; credentials travel in the token query param
	s.echo.GET("/ws/:orgID/:userID", s.handleWebSocket)

	// Operational API (admin token required)
	s.echo.POST("/api/orgs/:orgID/users/:userID/disconnect", s.handleDisconnectUser)
	s.echo.GET("/api/orgs/:orgID/connections", s.handleConnections)
}
