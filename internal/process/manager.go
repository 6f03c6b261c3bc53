package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of a supervised process.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusFailed   Status = "failed"
)

// maxConsecutiveHealthFailures is how many failed checks in a row kill the child.
const maxConsecutiveHealthFailures = 3

// ErrAlreadyRunning is returned by Start when the process is already up.
var ErrAlreadyRunning = errors.New("process already running")

// Config holds configuration for a supervised subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	Binary string
	Args   []string

	// Env are extra KEY=value pairs appended to the parent environment.
	Env []string

	RestartOnFailure bool
	RestartDelay     time.Duration

	// MaxRestartAttempts limits restart attempts. 0 means unlimited.
	MaxRestartAttempts int

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration

	// HealthCheckFunc is polled every HealthCheckInterval while the child runs.
	// If nil, the child is considered healthy while it is alive.
	HealthCheckFunc     func(ctx context.Context) error
	HealthCheckInterval time.Duration

	OnStart   func()
	OnStop    func(err error)
	OnRestart func(attempt int)
}

// DefaultConfig returns a Config with restart and shutdown defaults filled in.
func DefaultConfig(name, binary string, args []string) Config {
	return Config{
		Name:                name,
		Binary:              binary,
		Args:                args,
		RestartOnFailure:    true,
		RestartDelay:        5 * time.Second,
		MaxRestartAttempts:  10,
		GracefulTimeout:     10 * time.Second,
		HealthCheckInterval: 30 * time.Second,
	}
}

// Logger defines the logging interface for the process manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager supervises one subprocess: it starts it, restarts it on unexpected
// exit, kills it when the health check keeps failing and stops it on request.
type Manager struct {
	config Config
	logger Logger

	mu            sync.RWMutex
	cmd           *exec.Cmd
	status        Status
	restartCount  int
	lastError     error
	startTime     time.Time
	stopRequested bool

	done chan struct{}
}

// NewManager creates a new process manager with the given configuration.
func NewManager(cfg Config) *Manager {
	if cfg.RestartDelay == 0 {
		cfg.RestartDelay = 5 * time.Second
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}

	return &Manager{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Start launches the subprocess and a goroutine that supervises it.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.status == StatusRunning || m.status == StatusStarting {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", m.config.Name, ErrAlreadyRunning)
	}
	m.status = StatusStarting
	m.stopRequested = false
	m.done = make(chan struct{})
	m.mu.Unlock()

	if err := m.spawn(ctx); err != nil {
		m.mu.Lock()
		m.status = StatusFailed
		m.lastError = err
		done := m.done
		m.mu.Unlock()
		close(done)
		return err
	}

	go m.supervise(ctx)
	return nil
}

func (m *Manager) spawn(ctx context.Context) error {
	m.logger.Info("starting process",
		"name", m.config.Name,
		"binary", m.config.Binary,
		"args", m.config.Args,
	)

	cmd := exec.CommandContext(ctx, m.config.Binary, m.config.Args...) //nolint:gosec // Binary comes from validated config
	// A dedicated process group lets Stop signal the child's own children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if m.config.Env != nil {
		cmd.Env = append(os.Environ(), m.config.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", m.config.Name, err)
	}

	m.mu.Lock()
	m.cmd = cmd
	m.status = StatusRunning
	m.startTime = time.Now()
	m.mu.Unlock()

	go m.logLines("stdout", stdout)
	go m.logLines("stderr", stderr)

	m.logger.Info("process started", "name", m.config.Name, "pid", cmd.Process.Pid)

	if m.config.OnStart != nil {
		m.config.OnStart()
	}
	return nil
}

// logLines forwards child output to the debug log one line at a time.
func (m *Manager) logLines(stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m.logger.Debug("process output",
			"name", m.config.Name,
			"stream", stream,
			"line", scanner.Text(),
		)
	}
}

// waitOrUnhealthy blocks until the child exits, ctx ends, or the health
// check fails maxConsecutiveHealthFailures times in a row (the child is
// then killed).
func (m *Manager) waitOrUnhealthy(ctx context.Context, cmd *exec.Cmd) error {
	exitCh := make(chan error, 1)
	go func() {
		exitCh <- cmd.Wait()
	}()

	if m.config.HealthCheckFunc == nil {
		return <-exitCh
	}

	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case err := <-exitCh:
			return err

		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := m.config.HealthCheckFunc(checkCtx)
			cancel()

			if err == nil {
				if failures > 0 {
					m.logger.Info("health check recovered", "name", m.config.Name, "previous_failures", failures)
				}
				failures = 0
				continue
			}

			failures++
			m.logger.Warn("health check failed",
				"name", m.config.Name,
				"error", err,
				"consecutive_failures", failures,
			)
			if failures < maxConsecutiveHealthFailures {
				continue
			}

			m.logger.Error("health check failed repeatedly, killing process", "name", m.config.Name)
			if cmd.Process != nil {
				cmd.Process.Kill() //nolint:errcheck // Exit is observed on exitCh
			}
			select {
			case <-exitCh:
				return fmt.Errorf("killed after %d failed health checks: %w", failures, err)
			case <-time.After(5 * time.Second):
				return fmt.Errorf("process did not exit after kill: %w", err)
			}
		}
	}
}

// supervise waits on the child and restarts it until stopped or out of attempts.
func (m *Manager) supervise(ctx context.Context) {
	defer func() {
		m.mu.RLock()
		done := m.done
		m.mu.RUnlock()
		close(done)
	}()

	for {
		m.mu.RLock()
		cmd := m.cmd
		m.mu.RUnlock()
		if cmd == nil {
			return
		}

		err := m.waitOrUnhealthy(ctx, cmd)

		m.mu.Lock()
		stopRequested := m.stopRequested
		m.mu.Unlock()

		if stopRequested {
			m.logger.Info("process stopped as requested", "name", m.config.Name)
			m.setStatus(StatusStopped, nil)
			if m.config.OnStop != nil {
				m.config.OnStop(nil)
			}
			return
		}

		m.logger.Warn("process exited unexpectedly", "name", m.config.Name, "error", err)
		m.setStatus(StatusFailed, err)
		if m.config.OnStop != nil {
			m.config.OnStop(err)
		}

		if !m.config.RestartOnFailure {
			return
		}

		m.mu.Lock()
		m.restartCount++
		attempt := m.restartCount
		m.mu.Unlock()

		if m.config.MaxRestartAttempts > 0 && attempt > m.config.MaxRestartAttempts {
			m.logger.Error("max restart attempts reached", "name", m.config.Name, "attempts", attempt-1)
			return
		}

		m.logger.Info("restarting process",
			"name", m.config.Name,
			"attempt", attempt,
			"delay", m.config.RestartDelay,
		)
		if m.config.OnRestart != nil {
			m.config.OnRestart(attempt)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.config.RestartDelay):
		}

		m.mu.RLock()
		stopRequested = m.stopRequested
		m.mu.RUnlock()
		if stopRequested {
			m.setStatus(StatusStopped, nil)
			return
		}

		if err := m.spawn(ctx); err != nil {
			m.logger.Error("failed to restart process", "name", m.config.Name, "error", err)
			m.setStatus(StatusFailed, err)
			// A failed spawn leaves the previous cmd in place; its Wait
			// returns immediately, so the loop counts another attempt.
		}
	}
}

func (m *Manager) setStatus(s Status, err error) {
	m.mu.Lock()
	m.status = s
	if err != nil {
		m.lastError = err
	}
	m.mu.Unlock()
}

// Stop sends SIGTERM to the process group, then SIGKILL after GracefulTimeout.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.status != StatusRunning && m.status != StatusStarting {
		m.mu.Unlock()
		return nil
	}
	m.stopRequested = true
	cmd := m.cmd
	done := m.done
	m.mu.Unlock()

	if cmd == nil || cmd.Process == nil || done == nil {
		return nil
	}

	pid := cmd.Process.Pid
	m.logger.Info("stopping process", "name", m.config.Name, "pid", pid)

	// Negative PID addresses the whole process group.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		m.logger.Warn("failed to send SIGTERM", "name", m.config.Name, "error", err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(m.config.GracefulTimeout):
		m.logger.Warn("graceful shutdown timeout, sending SIGKILL", "name", m.config.Name)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing process group %s: %w", m.config.Name, err)
	}

	<-done
	return nil
}

// Status returns the current status of the supervised process.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsRunning reports whether the process is currently running.
func (m *Manager) IsRunning() bool {
	return m.Status() == StatusRunning
}

// LastError returns the error that last caused the process to exit.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// RestartCount returns how many restarts have been attempted.
func (m *Manager) RestartCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.restartCount
}

// Stats is a point-in-time view of the supervised process.
type Stats struct {
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	PID          int           `json:"pid,omitempty"`
	Uptime       time.Duration `json:"uptime,omitempty"`
	RestartCount int           `json:"restart_count"`
	LastError    string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the process.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Name:         m.config.Name,
		Status:       m.status,
		RestartCount: m.restartCount,
	}
	if m.cmd != nil && m.cmd.Process != nil {
		stats.PID = m.cmd.Process.Pid
	}
	if m.status == StatusRunning {
		stats.Uptime = time.Since(m.startTime)
	}
	if m.lastError != nil {
		stats.LastError = m.lastError.Error()
	}
	return stats
}
