package crazyradio

import (
	"errors"
	"fmt"
)

// Driver errors
var (
	// ErrDeviceIdentityMismatch indicates the device is not a supported Crazyradio
	ErrDeviceIdentityMismatch = errors.New("device is not a supported Crazyradio")

	// ErrNotOpen indicates an operation that needs an open dongle
	ErrNotOpen = errors.New("crazyradio is not open")

	// ErrTransferFailed indicates a USB transfer failure; see TransferError
	ErrTransferFailed = errors.New("usb transfer failed")

	// ErrInvalidConfiguration indicates a setting value outside its domain
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrTimeout indicates a USB transfer that did not complete in time
	ErrTimeout = errors.New("usb transfer timed out")

	// ErrDeviceNotFound indicates no matching dongle is attached
	ErrDeviceNotFound = errors.New("no Crazyradio found")
)

// TransferError carries the operation that failed and the transport error.
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Is makes every TransferError match ErrTransferFailed.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransferFailed
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
