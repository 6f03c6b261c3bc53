package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/alauto/internal/infrastructure/config"
)

// A bot writes a few points a minute, so the flush interval rather than the
// batch size decides when points leave.
const (
	defaultBatchSize     = 20
	defaultFlushInterval = 10 * time.Second

	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

// Client writes task-run and statistics points to one bucket.
//
// Writes never block the scheduler. Failures surface through SetOnError
// and the next HealthCheck.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	closed   atomic.Bool

	mu       sync.Mutex
	onError  func(err error)
	lastErr  error
	failures int64
}

// Connect pings the server and prepares a batched write API.
// It returns ErrDisabled when influxdb.enabled is false.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, batchOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectionFailed, cfg.URL, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: %s not healthy", ErrConnectionFailed, cfg.URL)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go c.watchWriteErrors(c.writeAPI.Errors())
	return c, nil
}

// batchOptions applies config batching, falling back to the defaults for
// unset or negative values.
func batchOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize) //nolint:gosec // Positive
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) //nolint:gosec // Positive
}

// watchWriteErrors drains async write errors until the write API closes.
func (c *Client) watchWriteErrors(errs <-chan error) {
	for err := range errs {
		c.recordWriteError(err)
	}
}

func (c *Client) recordWriteError(err error) {
	c.mu.Lock()
	c.failures++
	c.lastErr = err
	callback := c.onError
	c.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}

// takeWriteError returns the newest write error since the last call.
func (c *Client) takeWriteError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.lastErr
	c.lastErr = nil
	return err
}

// WriteFailures returns how many batches failed to write since Connect.
func (c *Client) WriteFailures() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// SetOnError sets a callback for async write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// HealthCheck reports a write failure seen since the previous check, then
// pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.takeWriteError(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("influxdb ping: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb ping: server not healthy")
	}
	return nil
}

// IsConnected reports whether the client is open.
func (c *Client) IsConnected() bool {
	return c.client != nil && !c.closed.Load()
}

// Flush sends buffered points now. It is a no-op once closed.
func (c *Client) Flush() {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}

// Close flushes pending points and closes the client. Repeated calls are
// no-ops.
func (c *Client) Close() error {
	if c.client == nil || c.closed.Swap(true) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
