package vision

import "errors"

// Domain-specific errors for the screen oracle.
var (
	// ErrNoFrame is returned when a marker is queried before the first Refresh.
	ErrNoFrame = errors.New("no frame captured")

	// ErrCaptureFailed wraps a failed screen capture.
	ErrCaptureFailed = errors.New("screen capture failed")

	// ErrAssetNotFound is returned when a marker image cannot be loaded.
	ErrAssetNotFound = errors.New("marker asset not found")
)
