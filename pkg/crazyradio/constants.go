// Package crazyradio drives the Crazyradio nRF24 USB dongle.
package crazyradio

import "time"

// USB Device Identifiers
const (
	VendorID  = 0x1915
	ProductID = 0x7777
)

// USB Endpoint Configuration
const (
	ConfigurationNum = 1
	InterfaceNum     = 0
	AltSettingNum    = 0
	DataEndpointNum  = 0x01 // OUT 0x01, IN 0x81
	AckBufferSize    = 64   // ack header plus up to 32 payload bytes fits easily
	ScanResultSize   = 63   // firmware channel scan result buffer
)

// USB Timeouts
const (
	ControlTimeout      = 1000 * time.Millisecond
	DefaultWriteTimeout = 1000 * time.Millisecond
	DefaultAckTimeout   = 100 * time.Millisecond
)

// USB Request Types
const (
	RequestTypeVendorIn  = 0xC0 // Vendor request, device to host
	RequestTypeVendorOut = 0x40 // Vendor request, host to device
)

// Request is a Crazyradio vendor control request code.
type Request uint8

// Vendor requests understood by the dongle firmware
const (
	RequestSetChannel               Request = 0x01
	RequestSetAddress               Request = 0x02
	RequestSetDataRate              Request = 0x03
	RequestSetPowerLevel            Request = 0x04
	RequestSetAckRetryDelay         Request = 0x05
	RequestSetAckRetryCount         Request = 0x06
	RequestSetAutoAckEnabled        Request = 0x10
	RequestSetContinuousCarrierMode Request = 0x20
	RequestScanChannels             Request = 0x21
	RequestLaunchBootloader         Request = 0xFF
)

// Probe sent on every channel while scanning. A single 0xFF byte is a ping
// on PortAll channel 3 and is answered by any Crazyflie in range.
var scanProbe = []byte{0xFF}

// Firmware capability thresholds
var (
	// MinimumFirmware is the oldest dongle firmware the driver accepts.
	MinimumFirmware = FirmwareVersion{Major: 0, Minor: 3, Patch: 0}

	// FastScanFirmware is the first firmware that scans channels on-device.
	FastScanFirmware = FirmwareVersion{Major: 0, Minor: 5, Patch: 0}
)

func (r Request) String() string {
	switch r {
	case RequestSetChannel:
		return "SetChannel"
	case RequestSetAddress:
		return "SetAddress"
	case RequestSetDataRate:
		return "SetDataRate"
	case RequestSetPowerLevel:
		return "SetPowerLevel"
	case RequestSetAckRetryDelay:
		return "SetAckRetryDelay"
	case RequestSetAckRetryCount:
		return "SetAckRetryCount"
	case RequestSetAutoAckEnabled:
		return "SetAutoAckEnabled"
	case RequestSetContinuousCarrierMode:
		return "SetContinuousCarrierMode"
	case RequestScanChannels:
		return "ScanChannels"
	case RequestLaunchBootloader:
		return "LaunchBootloader"
	default:
		return "Unknown"
	}
}
