package crtp

import "fmt"

// OutputHeader is the header of a packet sent to the Crazyflie.
// Layout: Port(4) | Reserved(2)=0b11 | Channel(2)
type OutputHeader struct {
	port    Port
	channel Channel
}

// NewOutputHeader validates port and channel and returns the header.
func NewOutputHeader(port Port, channel Channel) (OutputHeader, error) {
	if !port.Valid() {
		return OutputHeader{}, fmt.Errorf("%w: port 0x%02X", ErrInvalidField, uint8(port))
	}
	if !channel.Valid() {
		return OutputHeader{}, fmt.Errorf("%w: channel %d does not fit in 2 bits", ErrInvalidField, uint8(channel))
	}
	return OutputHeader{port: port, channel: channel}, nil
}

// EncodeOutputHeader packs port and channel into a header byte.
func EncodeOutputHeader(port Port, channel Channel) (byte, error) {
	h, err := NewOutputHeader(port, channel)
	if err != nil {
		return 0, err
	}
	return h.Byte(), nil
}

// DecodeOutputHeader unpacks a header byte. The reserved bits are ignored.
func DecodeOutputHeader(b byte) (OutputHeader, error) {
	nibble := (b >> portShift) & portMask
	port, ok := portFromNibble(nibble)
	if !ok {
		return OutputHeader{}, fmt.Errorf("%w: %w 0x%X in header 0x%02X", ErrMalformedFrame, ErrUnknownPort, nibble, b)
	}
	return OutputHeader{port: port, channel: Channel(b & channelMask)}, nil
}

func (h OutputHeader) Port() Port       { return h.port }
func (h OutputHeader) Channel() Channel { return h.channel }

// Byte returns the wire representation of the header.
func (h OutputHeader) Byte() byte {
	return (uint8(h.port)&portMask)<<portShift | reservedBits | uint8(h.channel)&channelMask
}

func (h OutputHeader) String() string {
	return fmt.Sprintf("[%s/%s 0x%02X]", h.port, h.channel, h.Byte())
}

// AckHeader is the status byte the dongle returns after a send.
// Layout: RetryCount(4) | Reserved(2)=0b11 | PowerDetector(1) | AckReceived(1)
type AckHeader struct {
	retryCount    uint8
	powerDetector bool
	ackReceived   bool
}

// NewAckHeader validates the retry count and returns the header.
func NewAckHeader(retryCount uint8, powerDetector, ackReceived bool) (AckHeader, error) {
	if retryCount > MaxRetryCount {
		return AckHeader{}, fmt.Errorf("%w: retry count %d exceeds %d", ErrInvalidField, retryCount, MaxRetryCount)
	}
	return AckHeader{retryCount: retryCount, powerDetector: powerDetector, ackReceived: ackReceived}, nil
}

// EncodeAckHeader packs the ack status fields into a header byte.
func EncodeAckHeader(retryCount uint8, powerDetector, ackReceived bool) (byte, error) {
	h, err := NewAckHeader(retryCount, powerDetector, ackReceived)
	if err != nil {
		return 0, err
	}
	return h.Byte(), nil
}

// DecodeAckHeader unpacks an ack status byte. Every byte value is valid.
func DecodeAckHeader(b byte) AckHeader {
	return AckHeader{
		retryCount:    b >> retryShift,
		powerDetector: b&powerDetBit != 0,
		ackReceived:   b&ackRecvBit != 0,
	}
}

func (h AckHeader) RetryCount() uint8   { return h.retryCount }
func (h AckHeader) PowerDetector() bool { return h.powerDetector }
func (h AckHeader) AckReceived() bool   { return h.ackReceived }

// Byte returns the wire representation of the header.
func (h AckHeader) Byte() byte {
	b := (h.retryCount&MaxRetryCount)<<retryShift | reservedBits
	if h.powerDetector {
		b |= powerDetBit
	}
	if h.ackReceived {
		b |= ackRecvBit
	}
	return b
}

func (h AckHeader) String() string {
	return fmt.Sprintf("[retry=%d power=%t ack=%t]", h.retryCount, h.powerDetector, h.ackReceived)
}
