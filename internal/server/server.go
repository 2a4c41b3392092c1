package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/config"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/correlation"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/domain"
	apperrors "github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/errors"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/realtime"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/registry"
)

// Pinger is the health-check surface of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo       *echo.Echo
	config     *config.Config
	registry   *registry.Registry
	dispatcher *realtime.Dispatcher
	reader     domain.EmployeeReader
	auth       *TokenValidator
	limits     *ConnectionLimits
	db         Pinger
	redis      Pinger // nil when no Redis is configured
	clock      clockwork.Clock
	startTime  time.Time
}

func New(cfg *config.Config, reg *registry.Registry, dispatcher *realtime.Dispatcher, reader domain.EmployeeReader, db, redis Pinger, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(correlationMiddleware())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:       e,
		config:     cfg,
		registry:   reg,
		dispatcher: dispatcher,
		reader:     reader,
		auth:       NewTokenValidator(cfg.JWTSecret),
		limits:     NewConnectionLimits(cfg.MaxConnections, cfg.MaxConnsPerIP),
		db:         db,
		redis:      redis,
		clock:      clock,
		startTime:  time.Now(),
	}

	srv.registerRoutes()
	return srv
}

// correlationMiddleware stamps every request context with a correlation id so
// log lines across the request can be tied together.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
