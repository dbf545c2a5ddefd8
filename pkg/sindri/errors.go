package sindri

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across components, checked with errors.Is at
// call sites.
var (
	ErrModelUnavailable   = errors.New("model backend unavailable")
	ErrModelProtocolError = errors.New("model backend returned a malformed response")
	ErrMaxIterations      = errors.New("iteration cap exceeded")
	ErrStuck              = errors.New("loop stuck: identical responses after nudges exhausted")
	ErrToolNotFound       = errors.New("tool not found")
	ErrToolInvalidArgs    = errors.New("tool arguments failed schema validation")
	ErrPathEscapesRoot    = errors.New("path escapes workspace root")
	ErrSessionNotFound    = errors.New("session not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrInvalidTransition  = errors.New("invalid task status transition")
	ErrNoCheckpoint       = errors.New("no checkpoint for session")
	ErrAgentNotFound      = errors.New("agent not found in registry")
)

// VRAMExhaustedError is returned by the model manager when a model cannot
// be admitted and no smaller fallback fits either.
type VRAMExhaustedError struct {
	Model          string
	RequestedGB    float64
	AvailableGB    float64
	FallbackTried  string
}

func (e *VRAMExhaustedError) Error() string {
	if e.FallbackTried != "" {
		return fmt.Sprintf("vram exhausted: %s needs %.1fGB, %.1fGB available, fallback %s also rejected",
			e.Model, e.RequestedGB, e.AvailableGB, e.FallbackTried)
	}
	return fmt.Sprintf("vram exhausted: %s needs %.1fGB, %.1fGB available", e.Model, e.RequestedGB, e.AvailableGB)
}

// ModelError wraps a model-client failure with the model id and the phase
// (chat vs. stream) it occurred in.
type ModelError struct {
	Model string
	Phase string
	Cause error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %q %s: %v", e.Model, e.Phase, e.Cause)
}

func (e *ModelError) Unwrap() error { return e.Cause }

// IsVRAMExhausted reports whether err is a *VRAMExhaustedError.
func IsVRAMExhausted(err error) bool {
	var v *VRAMExhaustedError
	return errors.As(err, &v)
}
