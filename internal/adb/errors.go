package adb

import "errors"

// Domain-specific errors for the device channel.
var (
	// ErrConnectionFailed is returned when the device cannot be reached at startup.
	ErrConnectionFailed = errors.New("unable to connect to the service")

	// ErrDeviceOffline is returned when adb reports a state other than "device".
	ErrDeviceOffline = errors.New("device offline")

	// ErrCommandFailed wraps a failed adb invocation.
	ErrCommandFailed = errors.New("adb command failed")

	// ErrInvalidScreenshot is returned when screencap output is not a PNG.
	ErrInvalidScreenshot = errors.New("invalid screenshot")

	// ErrServerNotReady is returned when a managed server never accepts connections.
	ErrServerNotReady = errors.New("adb server not ready")
)
