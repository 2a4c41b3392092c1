package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/errors"
)

// handleDisconnectUser force-evicts every live connection of one user,
// sending a policy-violation close frame. Used when an administrator revokes
// a session.
func (s *Server) handleDisconnectUser(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("orgID"))
	if err != nil {
		return apperrors.ValidationError("invalid org id")
	}
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		return apperrors.ValidationError("invalid user id")
	}

	if err := s.requireAdmin(c, orgID); err != nil {
		return err
	}

	s.registry.UnregisterAll(orgID, userID)
	return c.JSON(http.StatusOK, map[string]string{"status": "disconnected"})
}

// handleConnections reports the live connection count for a tenant.
func (s *Server) handleConnections(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("orgID"))
	if err != nil {
		return apperrors.ValidationError("invalid org id")
	}

	if err := s.requireAdmin(c, orgID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"org_id":      orgID.String(),
		"connections": s.registry.ClientCount(orgID),
	})
}

func (s *Server) requireAdmin(c echo.Context, orgID uuid.UUID) error {
	token := bearerToken(c)
	if token == "" {
		return apperrors.UnauthorizedError("missing bearer token", nil)
	}
	if _, err := s.auth.ValidateAdmin(token, orgID); err != nil {
		if errors.Is(err, ErrNotAdmin) {
			return apperrors.ForbiddenError("admin claim required")
		}
		return apperrors.UnauthorizedError("invalid bearer token", err)
	}
	return nil
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
