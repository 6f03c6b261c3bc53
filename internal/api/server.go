package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/alauto/internal/automation"
	"github.com/nerrad567/alauto/internal/infrastructure/config"
	"github.com/nerrad567/alauto/internal/infrastructure/logging"
	"github.com/nerrad567/alauto/internal/stats"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// StatsSource provides the live counters.
type StatsSource interface {
	Snapshot() stats.Snapshot
}

// RunLister reads the task-run journal.
type RunLister interface {
	ListRecent(ctx context.Context, limit int) ([]automation.TaskRun, error)
}

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Stats   StatsSource
	Runs    RunLister                // optional; nil when the journal is disabled
	Checks  map[string]HealthChecker // component name -> checker
	Hub     *Hub                     // optional; created when nil
	Version string
}

// Server is the read-only status server.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	stats   StatsSource
	runs    RunLister
	checks  map[string]HealthChecker
	version string
	server  *http.Server
	hub     *Hub
	cancel  context.CancelFunc
}

// New creates a new API server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Stats == nil {
		return nil, fmt.Errorf("stats source is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.Logger)
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		stats:   deps.Stats,
		runs:    deps.Runs,
		checks:  deps.Checks,
		version: deps.Version,
		hub:     hub,
	}, nil
}

// Hub returns the WebSocket hub, for wiring into the recorder.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in the background.
// A bind failure (port in use) is returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}

	s.logger.Info("API server listening", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close gracefully shuts down the API server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
