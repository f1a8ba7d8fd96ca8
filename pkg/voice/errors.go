package voice

import (
	"errors"
	"fmt"
)

// Microphone failure kinds. Callers match them with errors.Is.
var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrDeviceNotFound   = errors.New("no microphone found")
	ErrDeviceInUse      = errors.New("microphone is in use by another application")
)

var (
	// ErrRecordingActive is returned when a recording is started while
	// another one is still running.
	ErrRecordingActive = errors.New("a recording is already in progress")

	// ErrRecorderClosed is returned by a recorder after Close.
	ErrRecorderClosed = errors.New("recorder closed")

	// ErrGateClosed is returned by Speak once the gate has been closed.
	ErrGateClosed = errors.New("audio gate closed")
)

// DeviceError reports a microphone acquisition failure with a specific kind.
type DeviceError struct {
	Kind   error  // one of ErrPermissionDenied, ErrDeviceNotFound, ErrDeviceInUse
	Device string // backend or device name, informational
	Err    error  // underlying cause, may be nil
}

// NewDeviceError builds a DeviceError.
func NewDeviceError(kind error, device string, err error) *DeviceError {
	return &DeviceError{Kind: kind, Device: device, Err: err}
}

func (e *DeviceError) Error() string {
	msg := e.Kind.Error()
	if e.Device != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Device)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeviceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsDeviceError reports whether err is one of the microphone failure kinds.
func IsDeviceError(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrDeviceNotFound) ||
		errors.Is(err, ErrDeviceInUse)
}
