package wlcanvas

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned by operations on a session after
	// Shutdown, or by Run after the transport is lost.
	ErrSessionClosed = errors.New("wlcanvas: session closed")

	// ErrConfigureTimeout is returned by CreateWindow when the compositor
	// never acknowledges the initial configure within the deadline.
	ErrConfigureTimeout = errors.New("wlcanvas: timed out waiting for initial configure")

	// ErrWindowClosed is returned by operations on a window that has
	// reached its terminal closed state.
	ErrWindowClosed = errors.New("wlcanvas: window closed")

	// ErrLoopRunning is returned by operations that must happen before
	// Run takes over the goroutine.
	ErrLoopRunning = errors.New("wlcanvas: loop already running")

	errInvalidSize = errors.New("width and height must be positive")
)

// ConnectionError reports an unreachable or failed compositor transport.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("wlcanvas: connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MissingCapabilityError reports a mandatory compositor global that was not
// advertised during the bootstrap roundtrip.
type MissingCapabilityError struct {
	Name string
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("wlcanvas: compositor does not advertise %s", e.Name)
}

// SurfaceError wraps a failure while creating or configuring the drawable
// surface or its toplevel role.
type SurfaceError struct {
	Op  string
	Err error
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("wlcanvas: surface %s: %v", e.Op, e.Err)
}

func (e *SurfaceError) Unwrap() error { return e.Err }

// BufferError wraps a shared-memory allocation or pool creation failure.
type BufferError struct {
	Op  string
	Err error
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("wlcanvas: buffer %s: %v", e.Op, e.Err)
}

func (e *BufferError) Unwrap() error { return e.Err }
