package adb

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Runner executes one adb invocation and returns its stdout.
type Runner interface {
	Run(ctx context.Context, binary string, args ...string) ([]byte, error)
}

// ExecRunner runs adb as a child process.
type ExecRunner struct{}

// Run implements Runner. Stderr is folded into the returned error.
func (ExecRunner) Run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec // Binary comes from validated config
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Config contains device connection settings.
type Config struct {
	// Binary is the adb executable.
	Binary string

	// Port is the adb server port.
	Port int

	// Service is "host:port" for network devices or a device serial.
	Service string

	// CommandTimeout bounds each adb invocation.
	CommandTimeout time.Duration
}

// Logger defines the logging interface for the adb client.
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

// Client drives one device through the adb command line.
type Client struct {
	cfg    Config
	runner Runner
	logger Logger
}

// NewClient creates a Client. A nil runner uses ExecRunner.
func NewClient(cfg Config, runner Runner) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "adb"
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 15 * time.Second
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Client{cfg: cfg, runner: runner, logger: noopLogger{}}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Service returns the device the client targets.
func (c *Client) Service() string {
	return c.cfg.Service
}

// IsNetworkService reports whether the service is reached with `adb connect`.
func (c *Client) IsNetworkService() bool {
	return strings.Contains(c.cfg.Service, ":")
}

// Connect attaches to the device and checks it is online.
// Any failure wraps ErrConnectionFailed.
func (c *Client) Connect(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.Service) == "" {
		return fmt.Errorf("%w: no service configured", ErrConnectionFailed)
	}

	if c.IsNetworkService() {
		out, err := c.run(ctx, "connect", c.cfg.Service)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		}
		if !connectSucceeded(string(out)) {
			return fmt.Errorf("%w: %s", ErrConnectionFailed, strings.TrimSpace(string(out)))
		}
	}

	state, err := c.State(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if state != "device" {
		return fmt.Errorf("%w: %w (state %q)", ErrConnectionFailed, ErrDeviceOffline, state)
	}

	c.logger.Info("connected to device", "service", c.cfg.Service)
	return nil
}

// connectSucceeded interprets `adb connect` output, which exits zero even on failure.
func connectSucceeded(out string) bool {
	out = strings.ToLower(out)
	return strings.Contains(out, "connected to") && !strings.Contains(out, "unable") && !strings.Contains(out, "failed")
}

// State returns the device state reported by `adb get-state`.
func (c *Client) State(ctx context.Context) (string, error) {
	out, err := c.runDevice(ctx, "get-state")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// HealthCheck reports whether the device is still online.
func (c *Client) HealthCheck(ctx context.Context) error {
	state, err := c.State(ctx)
	if err != nil {
		return err
	}
	if state != "device" {
		return fmt.Errorf("%w (state %q)", ErrDeviceOffline, state)
	}
	return nil
}

// Screencap captures the current screen as an image.
func (c *Client) Screencap(ctx context.Context) (image.Image, error) {
	out, err := c.runDevice(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScreenshot, err)
	}
	return img, nil
}

// Tap sends a single tap at (x, y).
func (c *Client) Tap(ctx context.Context, x, y int) error {
	_, err := c.runDevice(ctx, "shell", "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// runDevice runs an adb command against the configured device.
func (c *Client) runDevice(ctx context.Context, args ...string) ([]byte, error) {
	return c.run(ctx, append([]string{"-s", c.cfg.Service}, args...)...)
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	full := c.commandArgs(args...)
	c.logger.Debug("adb", "args", full)

	out, err := c.runner.Run(ctx, c.cfg.Binary, full...)
	if err != nil {
		return out, fmt.Errorf("%w: adb %s: %w", ErrCommandFailed, strings.Join(args, " "), err)
	}
	return out, nil
}

// commandArgs prefixes the server port when one is configured.
func (c *Client) commandArgs(args ...string) []string {
	if c.cfg.Port == 0 {
		return args
	}
	return append([]string{"-P", strconv.Itoa(c.cfg.Port)}, args...)
}
