// Package crtp encodes and decodes the packets exchanged with a Crazyflie
// over a Crazyradio link.
package crtp

import "fmt"

// Port identifies the firmware subsystem a packet is addressed to.
type Port uint8

// CRTP ports
const (
	PortConsole     Port = 0x00
	PortParameters  Port = 0x02
	PortCommander   Port = 0x03
	PortLogging     Port = 0x05
	PortDebugging   Port = 0x0E
	PortLinkControl Port = 0x0F

	// PortAll is not a real 4 bit port. It encodes to nibble 0xF, the same
	// wire value as PortLinkControl, and is what ping packets are sent on.
	PortAll Port = 0xFF
)

// Channel is the 2 bit link-layer channel within a port.
type Channel uint8

const (
	Channel0 Channel = 0x00
	Channel1 Channel = 0x01
	Channel2 Channel = 0x02
	Channel3 Channel = 0x03
)

// Header layout
const (
	reservedBits  = 0x03 << 2 // always written as 1,1
	channelMask   = 0x03
	portMask      = 0x0F
	portShift     = 4
	retryShift    = 4
	powerDetBit   = 0x02
	ackRecvBit    = 0x01
	MaxRetryCount = 15
)

// CommanderPayloadSize is the size of a commander setpoint payload.
const CommanderPayloadSize = 14

// Valid reports whether p is one of the defined ports.
func (p Port) Valid() bool {
	switch p {
	case PortConsole, PortParameters, PortCommander, PortLogging,
		PortDebugging, PortLinkControl, PortAll:
		return true
	}
	return false
}

func (p Port) String() string {
	switch p {
	case PortConsole:
		return "Console"
	case PortParameters:
		return "Parameters"
	case PortCommander:
		return "Commander"
	case PortLogging:
		return "Logging"
	case PortDebugging:
		return "Debugging"
	case PortLinkControl:
		return "LinkControl"
	case PortAll:
		return "All"
	default:
		return fmt.Sprintf("Port(0x%02X)", uint8(p))
	}
}

// Valid reports whether c fits in the 2 bit channel field.
func (c Channel) Valid() bool {
	return c <= Channel3
}

func (c Channel) String() string {
	return fmt.Sprintf("Channel%d", uint8(c))
}

// portFromNibble maps a decoded 4 bit port value back to its Port.
func portFromNibble(n uint8) (Port, bool) {
	switch p := Port(n); p {
	case PortConsole, PortParameters, PortCommander, PortLogging,
		PortDebugging, PortLinkControl:
		return p, true
	}
	return 0, false
}
