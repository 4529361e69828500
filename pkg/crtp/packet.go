package crtp

import "fmt"

// Packet is a complete CRTP frame: one header byte followed by the payload.
// The set of packet kinds is closed: PingPacket, CommanderPacket, AckPacket.
type Packet interface {
	// Bytes returns the full frame. It is never empty.
	Bytes() []byte
	packet()
}

// PayloadDecoder turns the bytes following an ack header into a typed value.
type PayloadDecoder func(data []byte) (any, error)

// PingPacket is an empty packet used to poll the link.
type PingPacket struct {
	header OutputHeader
}

// NewPingPacket builds a ping on PortAll.
func NewPingPacket(channel Channel) (PingPacket, error) {
	h, err := NewOutputHeader(PortAll, channel)
	if err != nil {
		return PingPacket{}, err
	}
	return PingPacket{header: h}, nil
}

// ParsePingPacket reads a ping frame. Bytes after the header are ignored.
func ParsePingPacket(b []byte) (PingPacket, error) {
	if len(b) == 0 {
		return PingPacket{}, emptyFrame()
	}
	h, err := DecodeOutputHeader(b[0])
	if err != nil {
		return PingPacket{}, err
	}
	_ = DecodePing(b[1:])
	return PingPacket{header: h}, nil
}

func (p PingPacket) Header() OutputHeader { return p.header }

func (p PingPacket) Bytes() []byte {
	return append([]byte{p.header.Byte()}, EncodePing()...)
}

func (p PingPacket) String() string {
	return fmt.Sprintf("Ping%s", p.header)
}

func (PingPacket) packet() {}

// CommanderPacket carries a setpoint on the commander port.
type CommanderPacket struct {
	header  OutputHeader
	payload CommanderPayload
}

// NewCommanderPacket builds a commander packet on the given channel.
func NewCommanderPacket(channel Channel, payload CommanderPayload) (CommanderPacket, error) {
	h, err := NewOutputHeader(PortCommander, channel)
	if err != nil {
		return CommanderPacket{}, err
	}
	return CommanderPacket{header: h, payload: payload}, nil
}

// ParseCommanderPacket reads a commander frame of exactly 15 bytes.
func ParseCommanderPacket(b []byte) (CommanderPacket, error) {
	if len(b) == 0 {
		return CommanderPacket{}, emptyFrame()
	}
	h, err := DecodeOutputHeader(b[0])
	if err != nil {
		return CommanderPacket{}, err
	}
	if h.Port() != PortCommander {
		return CommanderPacket{}, fmt.Errorf("%w: header port %s is not %s", ErrMalformedFrame, h.Port(), PortCommander)
	}
	payload, err := DecodeCommander(b[1:])
	if err != nil {
		return CommanderPacket{}, err
	}
	return CommanderPacket{header: h, payload: payload}, nil
}

func (p CommanderPacket) Header() OutputHeader       { return p.header }
func (p CommanderPacket) Payload() CommanderPayload { return p.payload }

func (p CommanderPacket) Bytes() []byte {
	payload := EncodeCommander(p.payload)
	return append([]byte{p.header.Byte()}, payload[:]...)
}

func (p CommanderPacket) String() string {
	return fmt.Sprintf("Commander%s{%s}", p.header, p.payload)
}

func (CommanderPacket) packet() {}

// AckPacket is the dongle's response to a sent packet. Data holds whatever
// the Crazyflie piggybacked on the acknowledgement.
type AckPacket struct {
	header  AckHeader
	data    []byte
	payload any
}

// NewAckPacket builds an ack from its parts. data is copied.
func NewAckPacket(header AckHeader, data []byte) AckPacket {
	return AckPacket{header: header, data: append([]byte(nil), data...)}
}

// ParseAckPacket reads an ack frame. When decode is nil the payload is left
// absent; the raw bytes are still available through Data.
func ParseAckPacket(b []byte, decode PayloadDecoder) (AckPacket, error) {
	if len(b) == 0 {
		return AckPacket{}, emptyFrame()
	}
	ack := NewAckPacket(DecodeAckHeader(b[0]), b[1:])
	if decode != nil {
		payload, err := decode(ack.data)
		if err != nil {
			return AckPacket{}, fmt.Errorf("decode ack payload: %w", err)
		}
		ack.payload = payload
	}
	return ack, nil
}

func (p AckPacket) Header() AckHeader { return p.header }

// Data returns a copy of the bytes following the ack header.
func (p AckPacket) Data() []byte { return append([]byte(nil), p.data...) }

// Payload returns the decoded payload, or nil when none was decoded.
func (p AckPacket) Payload() any { return p.payload }

func (p AckPacket) Bytes() []byte {
	return append([]byte{p.header.Byte()}, p.data...)
}

func (p AckPacket) String() string {
	return fmt.Sprintf("Ack%s data=% X", p.header, p.data)
}

func (AckPacket) packet() {}

// AckPayloadAs returns the decoded ack payload as a T.
func AckPayloadAs[T any](p AckPacket) (T, bool) {
	v, ok := p.payload.(T)
	return v, ok
}

// CommanderDecoder decodes an ack payload as a commander setpoint.
func CommanderDecoder(data []byte) (any, error) {
	return DecodeCommander(data)
}

func emptyFrame() error {
	return fmt.Errorf("%w: a frame must contain at least one byte (header)", ErrMalformedFrame)
}
