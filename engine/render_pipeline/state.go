package render_pipeline

import (
	"errors"
	"fmt"
)

// State is the lifecycle stage of a RenderPipeline.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitialized:
		return "Initialized"
	case StateRunning:
		return "Running"
	case StateShuttingDown:
		return "ShuttingDown"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Phase names the part of a frame a layer was executing when it failed.
type Phase uint8

const (
	PhaseInitialize Phase = iota
	PhaseUpdate
	PhaseCollect
	PhaseSubmit
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialize:
		return "initialize"
	case PhaseUpdate:
		return "update"
	case PhaseCollect:
		return "collect"
	case PhaseSubmit:
		return "submit"
	}
	return fmt.Sprintf("Phase(%d)", p)
}

var (
	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("render pipeline already initialized")

	// ErrNotInitialized is returned by Update and Render before Initialize.
	ErrNotInitialized = errors.New("render pipeline not initialized")

	// ErrShutDown is returned once Shutdown has been called.
	ErrShutDown = errors.New("render pipeline shut down")

	// ErrLayerConstruction is returned when a registered factory fails or returns nil.
	ErrLayerConstruction = errors.New("layer construction failed")

	// ErrLayerPanic wraps a value recovered from a panicking layer under fault isolation.
	ErrLayerPanic = errors.New("layer panicked")
)

// LayerError is a layer failure attributed to a phase and frame.
type LayerError struct {
	Layer string
	Phase Phase
	Frame uint64
	Err   error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("layer %q failed during %s on frame %d: %v", e.Layer, e.Phase, e.Frame, e.Err)
}

func (e *LayerError) Unwrap() error {
	return e.Err
}
