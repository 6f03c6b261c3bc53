package vision

import (
	"context"
	"fmt"
	"image"
	_ "image/png" // PNG decoder for marker assets
	"os"
	"path/filepath"
	"sync"
)

// Capturer grabs one screen frame from the device.
type Capturer interface {
	Screencap(ctx context.Context) (image.Image, error)
}

// Logger defines the logging interface for the oracle.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Config contains oracle settings.
type Config struct {
	// AssetsDir holds one PNG per marker named <marker>.png.
	AssetsDir string

	// DefaultThreshold is used by IsVisible.
	DefaultThreshold float64

	// Scale is the coarse-pass downsampling factor.
	Scale int
}

// Oracle answers "is marker X visible" against the most recently captured frame.
//
// Every query between two Refresh calls reads the same frame, and each
// marker is matched at most once per frame.
type Oracle struct {
	capturer Capturer
	cfg      Config
	logger   Logger

	mu        sync.Mutex
	frame     *Frame
	templates map[string]*Template
	broken    map[string]error
	scores    map[string]float64
}

// NewOracle creates an Oracle that captures through c.
func NewOracle(c Capturer, cfg Config) *Oracle {
	if cfg.Scale < 1 {
		cfg.Scale = 1
	}
	return &Oracle{
		capturer:  c,
		cfg:       cfg,
		logger:    noopLogger{},
		templates: make(map[string]*Template),
		broken:    make(map[string]error),
		scores:    make(map[string]float64),
	}
}

// SetLogger sets the logger for the oracle.
func (o *Oracle) SetLogger(logger Logger) {
	o.logger = logger
}

// Refresh captures a new frame and discards every score of the previous one.
func (o *Oracle) Refresh(ctx context.Context) error {
	img, err := o.capturer.Screencap(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	frame := NewFrame(img, o.cfg.Scale)

	o.mu.Lock()
	o.frame = frame
	clear(o.scores)
	o.mu.Unlock()
	return nil
}

// IsVisible reports whether marker matches the current frame at the default threshold.
func (o *Oracle) IsVisible(marker string) bool {
	return o.IsVisibleAt(marker, o.cfg.DefaultThreshold)
}

// IsVisibleAt reports whether marker matches the current frame at threshold or better.
// A marker whose asset cannot be loaded is never visible.
func (o *Oracle) IsVisibleAt(marker string, threshold float64) bool {
	score, err := o.Score(marker)
	if err != nil {
		return false
	}
	return score >= threshold
}

// Score returns the best similarity of marker in the current frame.
func (o *Oracle) Score(marker string) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.frame == nil {
		return 0, ErrNoFrame
	}
	if s, ok := o.scores[marker]; ok {
		return s, nil
	}

	tmpl, err := o.template(marker)
	if err != nil {
		return 0, err
	}

	m := o.frame.Match(tmpl)
	o.scores[marker] = m.Score
	o.logger.Debug("marker scored", "marker", marker, "score", m.Score, "x", m.X, "y", m.Y)
	return m.Score, nil
}

// template loads and caches a marker asset. Load failures are cached too and
// logged once.
func (o *Oracle) template(marker string) (*Template, error) {
	if t, ok := o.templates[marker]; ok {
		return t, nil
	}
	if err, ok := o.broken[marker]; ok {
		return nil, err
	}

	img, err := LoadImage(filepath.Join(o.cfg.AssetsDir, marker+".png"))
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrAssetNotFound, marker, err)
		o.broken[marker] = err
		o.logger.Warn("marker asset unavailable", "marker", marker, "error", err)
		return nil, err
	}

	t := NewTemplate(img, o.cfg.Scale)
	o.templates[marker] = t
	return t, nil
}

// LoadImage decodes an image file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // Asset paths come from config
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}
