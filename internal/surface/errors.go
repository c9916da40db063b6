package surface

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures recovered at the boundary of an operator action.
type ErrorKind string

const (
	KindSurfaceUnavailable ErrorKind = "surface_unavailable"
	KindNoTemplateSelected ErrorKind = "no_template_selected"
	KindCaptureFailed      ErrorKind = "capture_failed"
	KindStoreUnavailable   ErrorKind = "store_unavailable"
	KindStorage            ErrorKind = "storage"
)

// Error is an operator-facing failure. Guidance is the message shown to the
// operator; Err carries the underlying cause, if any.
type Error struct {
	Kind     ErrorKind
	Op       string
	Guidance string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Guidance
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind of err, or "" when err is not a *Error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k ErrorKind) bool {
	return err != nil && KindOf(err) == k
}

// GuidanceOf returns the operator guidance carried by err, falling back to
// the error text.
func GuidanceOf(err error) string {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) && se.Guidance != "" {
		return se.Guidance
	}
	return err.Error()
}

var guidance = map[Kind]string{
	Challenge: "Open any SBC challenge (show the squad grid), then press the button again.",
	Inventory: "Open Club → Players first so your club loads, then try again.",
	Store:     "Open Store → My Packs first, then press the button again.",
}

// Unavailable builds the SurfaceUnavailable error for k.
func Unavailable(op string, k Kind) *Error {
	return &Error{Kind: KindSurfaceUnavailable, Op: op, Guidance: guidance[k]}
}

// NoTemplate is returned when a run starts without a usable template.
func NoTemplate(op string) *Error {
	return &Error{Kind: KindNoTemplateSelected, Op: op, Guidance: "No template selected!"}
}

// CaptureFailed is returned when a template cannot be captured from the live challenge.
func CaptureFailed(op string, err error) *Error {
	return &Error{
		Kind:     KindCaptureFailed,
		Op:       op,
		Guidance: "Could not save template. Make sure you are inside an SBC.",
		Err:      err,
	}
}

// StoreUnavailable is returned when the pack store accessor is missing.
func StoreUnavailable(op string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Op: op, Guidance: "Store not available", Err: err}
}

// Storage wraps a persistence failure.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Guidance: "Could not persist changes.", Err: err}
}
