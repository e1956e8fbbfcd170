// Package api provides Houseflow's HTTP and WebSocket server: the auth
// handlers, the fulfillment handlers, and the /lighthouse/ws upgrade
// path into a device session.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/houseflow/houseflow/internal/clerk"
	"github.com/houseflow/houseflow/internal/codec"
	"github.com/houseflow/houseflow/internal/config"
	"github.com/houseflow/houseflow/internal/database"
	"github.com/houseflow/houseflow/internal/logging"
	"github.com/houseflow/houseflow/internal/registry"
	"github.com/houseflow/houseflow/internal/store"
	"github.com/houseflow/houseflow/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server, assembled by
// cmd/houseflow and passed in rather than built from package-level
// globals.
type Deps struct {
	Config       *config.Config
	Logger       *logging.Logger
	AccessCodec  *codec.Codec
	RefreshCodec *codec.Codec
	AuthCodeCodec *codec.Codec
	Store        *store.Store
	Clerk        *clerk.Clerk
	Registry     *registry.Registry
	Database     database.Database
	Telemetry    *telemetry.Recorder
	Mailer       Mailer
	Version      string
}

// Server is Houseflow's HTTP/WebSocket server.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg           *config.Config
	logger        *logging.Logger
	accessCodec   *codec.Codec
	refreshCodec  *codec.Codec
	authCodeCodec *codec.Codec
	store         *store.Store
	clerk         *clerk.Clerk
	registry      *registry.Registry
	db            database.Database
	telemetry     *telemetry.Recorder
	mailer        Mailer
	version       string

	startTime   time.Time
	server      *http.Server
	cancel      context.CancelFunc
	rateLimiter *rateLimiter
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.AccessCodec == nil || deps.RefreshCodec == nil || deps.AuthCodeCodec == nil {
		return nil, fmt.Errorf("all three token codecs are required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("refresh-token store is required")
	}
	if deps.Clerk == nil {
		return nil, fmt.Errorf("verification-code clerk is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if deps.Database == nil {
		return nil, fmt.Errorf("database is required")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}

	return &Server{
		cfg:           deps.Config,
		logger:        deps.Logger,
		accessCodec:   deps.AccessCodec,
		refreshCodec:  deps.RefreshCodec,
		authCodeCodec: deps.AuthCodeCodec,
		store:         deps.Store,
		clerk:         deps.Clerk,
		registry:      deps.Registry,
		db:            deps.Database,
		telemetry:     deps.Telemetry,
		mailer:        deps.Mailer,
		version:       deps.Version,
		startTime:     time.Now(),
		rateLimiter:   newRateLimiter(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router, starts the rate-limiter cleanup loop, and launches
// the HTTP listener in a background goroutine. The server can be stopped
// with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.rateLimiter.cleanupLoop(srvCtx, rateLimitWindow)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              s.cfg.Server.ListenAddress,
		Handler:           router,
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting up to
// gracefulShutdownTimeout for in-flight requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// HealthCheck verifies the server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("server health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("server not started")
	}
	return nil
}
