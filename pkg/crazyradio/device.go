package crazyradio

import "context"

// DeviceInfo is the identity of an attached dongle, captured at enumeration.
type DeviceInfo struct {
	VendorID     uint16
	ProductID    uint16
	BCDDevice    uint16
	Serial       string
	Manufacturer string
	Product      string
	Bus          int
	Address      int
}

// Device is the USB handle a Driver owns. Open claims the configuration and
// interface; Close releases them and the handle. Both are idempotent.
type Device interface {
	Info() DeviceInfo
	IsOpen() bool
	Open() error
	Close() error

	// Control performs a vendor control transfer on endpoint 0.
	Control(requestType uint8, request uint8, value uint16, index uint16, data []byte) (int, error)

	InEndpoint(num int) (InEndpoint, error)
	OutEndpoint(num int) (OutEndpoint, error)
}

// InEndpoint reads from a bulk IN endpoint. A read that times out returns an
// error matching ErrTimeout.
type InEndpoint interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

// OutEndpoint writes to a bulk OUT endpoint.
type OutEndpoint interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}
