package crazyradio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// DeviceSelector specifies how to identify a Crazyradio
// Supported formats:
//   - ""           : Use first available dongle
//   - "serial"     : Match by serial number (e.g., "E1E5C0F3A2")
//   - "bus:addr"   : Match by USB bus and address (e.g., "1:10")
//   - "#N"         : Use Nth dongle, 0-indexed (e.g., "#0", "#1")
type DeviceSelector string

// SelectDevice enumerates attached dongles and returns the closed driver
// matching the selector.
func SelectDevice(context *gousb.Context, selector DeviceSelector, opts ...Option) (*Driver, error) {
	drivers, err := FindAll(context, opts...)
	if err != nil {
		return nil, err
	}
	return Select(drivers, selector)
}

// Select picks one driver out of drivers.
func Select(drivers []*Driver, selector DeviceSelector) (*Driver, error) {
	if len(drivers) == 0 {
		return nil, ErrDeviceNotFound
	}

	sel := string(selector)

	if sel == "" {
		return drivers[0], nil
	}

	// Index selector: #0, #1, etc.
	if strings.HasPrefix(sel, "#") {
		index, err := strconv.Atoi(sel[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid device index: %s", sel)
		}
		if index < 0 || index >= len(drivers) {
			return nil, fmt.Errorf("device index %d out of range (found %d devices)", index, len(drivers))
		}
		return drivers[index], nil
	}

	// Bus:Address selector: 1:10, 2:5, etc.
	if strings.Contains(sel, ":") {
		parts := strings.SplitN(sel, ":", 2)
		bus, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid bus number: %s", parts[0])
		}
		addr, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid address number: %s", parts[1])
		}
		for _, d := range drivers {
			if d.info.Bus == bus && d.info.Address == addr {
				return d, nil
			}
		}
		return nil, fmt.Errorf("%w at bus %d address %d", ErrDeviceNotFound, bus, addr)
	}

	var matches []*Driver
	for _, d := range drivers {
		if strings.EqualFold(d.info.Serial, sel) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w with serial %s", ErrDeviceNotFound, sel)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("multiple devices (%d) found with serial %s; use bus:addr format (e.g., 1:10) or index format (e.g., #0)", len(matches), sel)
	}
}

// DeviceFlagUsage returns usage text for the -d flag
func DeviceFlagUsage() string {
	return `Device selector. Formats:
    ""        - Use first available Crazyradio
    "serial"  - Match by serial number (e.g., "E1E5C0F3A2")
    "bus:addr"- Match by USB location (e.g., "1:10")
    "#N"      - Use Nth device, 0-indexed (e.g., "#0", "#1")`
}
