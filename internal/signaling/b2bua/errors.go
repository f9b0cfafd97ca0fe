package b2bua

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrNilLeg indicates a bridge was requested with a missing leg.
	ErrNilLeg = errors.New("leg is nil")

	// ErrSameLeg indicates a bridge was requested between a leg and itself.
	ErrSameLeg = errors.New("cannot bridge a leg to itself")

	// ErrAlreadyBridged indicates one of the legs is governed by a live bridge.
	ErrAlreadyBridged = errors.New("leg already bridged")

	// ErrInvalidURI indicates the SIP target of a forward could not be parsed.
	ErrInvalidURI = errors.New("invalid SIP URI")

	// ErrNoFactory indicates the service has no leg factory configured.
	ErrNoFactory = errors.New("no leg factory configured")

	// ErrNoDestination indicates an alert without a usable destination.
	ErrNoDestination = errors.New("alert has no destination")
)

// ForwardStage identifies where a forward attempt failed.
type ForwardStage string

const (
	StageTransform ForwardStage = "transform"
	StageCreateLeg ForwardStage = "create_leg"
	StageBridge    ForwardStage = "bridge"
)

// ForwardError provides detailed information about a failed forward.
type ForwardError struct {
	// Kind is the forwarder variant that handled the alert.
	Kind ForwardKind

	// Stage is where the attempt failed.
	Stage ForwardStage

	// Destination is the raw destination from the alert.
	Destination string

	// Cause is the underlying error.
	Cause error
}

// Error returns the error message.
func (e *ForwardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("forward %s to %s: %s: %v", e.Kind, e.Destination, e.Stage, e.Cause)
	}
	return fmt.Sprintf("forward %s to %s: %s failed", e.Kind, e.Destination, e.Stage)
}

// Unwrap returns the underlying error.
func (e *ForwardError) Unwrap() error {
	return e.Cause
}
