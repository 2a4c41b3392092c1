package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/domain"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // credentials are in the token, not the origin
	},
}

func (s *Server) handleWebSocket(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("orgID"))
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid org id")
	}
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid user id")
	}

	token := c.QueryParam("token")
	if _, err := s.auth.ValidateForUser(token, orgID, userID); err != nil {
		metrics.WebSocketAuthRejections.WithLabelValues("handshake").Inc()
		return c.String(http.StatusUnauthorized, "invalid credentials")
	}

	ip := c.RealIP()
	if ok, reason := s.limits.Acquire(ip); !ok {
		slog.Warn("Connection rejected by limiter",
			"ip", ip, "reason", string(reason),
			"org_id", orgID.String(),
		)
		return c.String(http.StatusTooManyRequests, "connection limit reached")
	}
	defer s.limits.Release(ip)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	if err := s.registry.Register(orgID, userID, conn); err != nil {
		slog.Warn("Registration refused", "org_id", orgID.String(), "error", err)
		conn.Close()
		return nil
	}

	ctx := c.Request().Context()
	s.sendSnapshot(ctx, conn, orgID, userID)

	done := make(chan struct{})
	go s.recheckCredentials(conn, orgID, userID, token, done)

	// Read pump - blocks until the connection closes.
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		switch strings.TrimSpace(string(msg)) {
		case "refresh":
			s.sendSnapshot(ctx, conn, orgID, userID)
		case "ping":
			s.registry.Send(conn, []byte("pong"))
		default:
			// Unknown client frames are ignored.
		}
	}
	close(done)

	s.registry.Unregister(orgID, userID, conn)
	return nil
}

// sendSnapshot builds the aggregate record from current state and delivers it
// on this connection only. Users without a staff record (administrative
// accounts) get nothing, silently.
func (s *Server) sendSnapshot(ctx context.Context, conn *websocket.Conn, orgID, userID uuid.UUID) {
	employeeID, err := s.reader.GetEmployeeByUser(ctx, orgID, userID)
	if errors.Is(err, domain.ErrEmployeeNotFound) {
		return
	}
	if err != nil {
		slog.WarnContext(ctx, "Snapshot lookup failed",
			"org_id", orgID.String(), "user_id", userID.String(), "error", err)
		return
	}

	data, err := s.dispatcher.EnvelopeFor(ctx, employeeID)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot build failed",
			"employee_id", employeeID.String(), "error", err)
		return
	}
	s.registry.Send(conn, data)
}

// recheckCredentials re-validates the handshake token on an interval for the
// lifetime of the connection. A token that expires or stops matching evicts
// the connection with a policy violation close.
func (s *Server) recheckCredentials(conn *websocket.Conn, orgID, userID uuid.UUID, token string, done <-chan struct{}) {
	ticker := s.clock.NewTicker(s.config.AuthRecheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if _, err := s.auth.ValidateForUser(token, orgID, userID); err != nil {
				metrics.WebSocketAuthRejections.WithLabelValues("recheck").Inc()
				slog.Info("Evicting connection with stale credentials",
					"org_id", orgID.String(), "user_id", userID.String())
				s.registry.Evict(conn, websocket.ClosePolicyViolation, "credentials no longer valid")
				return
			}
		case <-done:
			return
		}
	}
}
