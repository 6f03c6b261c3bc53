package adb

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nerrad567/alauto/internal/process"
)

const (
	// readyTimeout is how long a freshly started server has to accept connections.
	readyTimeout = 30 * time.Second

	readyPollInterval = 100 * time.Millisecond
	dialTimeout       = 500 * time.Millisecond
)

// ServerConfig contains settings for a managed adb server.
type ServerConfig struct {
	// Managed starts a private server; otherwise an external one is assumed.
	Managed bool

	Binary string
	Port   int

	RestartOnFailure   bool
	RestartDelay       time.Duration
	MaxRestartAttempts int
	GracefulTimeout    time.Duration

	HealthCheckInterval time.Duration
}

// Server supervises an adb server process.
type Server struct {
	cfg     ServerConfig
	process *process.Manager
	logger  Logger
}

// NewServer creates a Server, filling in defaults for zero values.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Binary == "" {
		cfg.Binary = "adb"
	}
	if cfg.Port == 0 {
		cfg.Port = 5037
	}
	if cfg.RestartDelay == 0 {
		cfg.RestartDelay = 5 * time.Second
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}
	return &Server{cfg: cfg, logger: noopLogger{}}
}

// SetLogger sets the logger for the server.
func (s *Server) SetLogger(logger Logger) {
	s.logger = logger
}

// Args returns the server command line.
func (s *Server) Args() []string {
	return []string{"-P", strconv.Itoa(s.cfg.Port), "nodaemon", "server"}
}

// Address returns the local address the server listens on.
func (s *Server) Address() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(s.cfg.Port))
}

// IsManaged reports whether this process owns the server.
func (s *Server) IsManaged() bool {
	return s.cfg.Managed
}

// Start launches the server and blocks until it accepts connections.
// It is a no-op for unmanaged servers.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Managed {
		s.logger.Info("adb server management disabled, expecting external server")
		return nil
	}

	s.process = process.NewManager(process.Config{
		Name:               "adb-server",
		Binary:             s.cfg.Binary,
		Args:               s.Args(),
		RestartOnFailure:   s.cfg.RestartOnFailure,
		RestartDelay:       s.cfg.RestartDelay,
		MaxRestartAttempts: s.cfg.MaxRestartAttempts,
		GracefulTimeout:    s.cfg.GracefulTimeout,
		OnStop: func(err error) {
			if err != nil {
				s.logger.Warn("adb server stopped", "error", err)
			}
		},
		OnRestart: func(attempt int) {
			s.logger.Info("adb server restarting", "attempt", attempt)
		},
		HealthCheckInterval: s.cfg.HealthCheckInterval,
		HealthCheckFunc:     s.HealthCheck,
	})
	s.process.SetLogger(s.logger)

	if err := s.process.Start(ctx); err != nil {
		return fmt.Errorf("starting adb server: %w", err)
	}

	if err := s.waitForReady(ctx); err != nil {
		if stopErr := s.process.Stop(); stopErr != nil {
			s.logger.Warn("error stopping adb server after failed readiness check", "error", stopErr)
		}
		return err
	}

	s.logger.Info("adb server ready", "address", s.Address())
	return nil
}

func (s *Server) waitForReady(ctx context.Context) error {
	deadline := time.Now().Add(readyTimeout)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrServerNotReady, err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: no listener on %s after %v", ErrServerNotReady, s.Address(), readyTimeout)
		}
		if !s.process.IsRunning() {
			if lastErr := s.process.LastError(); lastErr != nil {
				return fmt.Errorf("%w: process exited: %w", ErrServerNotReady, lastErr)
			}
			return fmt.Errorf("%w: process exited unexpectedly", ErrServerNotReady)
		}

		if err := s.HealthCheck(ctx); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
		case <-time.After(readyPollInterval):
		}
	}
}

// HealthCheck dials the server port.
func (s *Server) HealthCheck(ctx context.Context) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", s.Address())
	if err != nil {
		return fmt.Errorf("dialing adb server: %w", err)
	}
	return conn.Close()
}

// Stop stops a managed server. It is a no-op for unmanaged servers.
func (s *Server) Stop() error {
	if !s.cfg.Managed || s.process == nil {
		return nil
	}
	s.logger.Info("stopping adb server")
	return s.process.Stop()
}

// Stats returns supervisor statistics, or a stopped placeholder when unmanaged.
func (s *Server) Stats() process.Stats {
	if s.process == nil {
		return process.Stats{Name: "adb-server", Status: process.StatusStopped}
	}
	return s.process.Stats()
}
