package crazyradio

import (
	"fmt"
	"time"
)

// RadioChannel is an nRF24 RF channel, 2400 MHz + channel MHz.
type RadioChannel uint8

// MaxRadioChannel is the highest RF channel the dongle accepts.
const MaxRadioChannel RadioChannel = 125

func (c RadioChannel) Valid() bool { return c <= MaxRadioChannel }

// DataRate is the on-air bit rate. It must match between dongle and peer.
type DataRate uint8

const (
	DataRate250K DataRate = 0
	DataRate1M   DataRate = 1
	DataRate2M   DataRate = 2
)

// DataRates lists every data rate in scan order.
var DataRates = []DataRate{DataRate250K, DataRate1M, DataRate2M}

func (r DataRate) Valid() bool { return r <= DataRate2M }

func (r DataRate) String() string {
	switch r {
	case DataRate250K:
		return "250K"
	case DataRate1M:
		return "1M"
	case DataRate2M:
		return "2M"
	default:
		return fmt.Sprintf("DataRate(%d)", uint8(r))
	}
}

// ParseDataRate accepts "250K", "1M" or "2M".
func ParseDataRate(s string) (DataRate, error) {
	for _, r := range DataRates {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown data rate %q", ErrInvalidConfiguration, s)
}

// PowerLevel is the transmit power.
type PowerLevel uint8

const (
	PowerLevelMinus18dBm PowerLevel = 0
	PowerLevelMinus12dBm PowerLevel = 1
	PowerLevelMinus6dBm  PowerLevel = 2
	PowerLevel0dBm       PowerLevel = 3
)

func (p PowerLevel) Valid() bool { return p <= PowerLevel0dBm }

func (p PowerLevel) String() string {
	switch p {
	case PowerLevelMinus18dBm:
		return "-18dBm"
	case PowerLevelMinus12dBm:
		return "-12dBm"
	case PowerLevelMinus6dBm:
		return "-6dBm"
	case PowerLevel0dBm:
		return "0dBm"
	default:
		return fmt.Sprintf("PowerLevel(%d)", uint8(p))
	}
}

// Mode selects normal packet operation or a continuous carrier test signal.
type Mode uint8

const (
	ModeNormalFlight      Mode = 0
	ModeContinuousCarrier Mode = 1
)

func (m Mode) Valid() bool { return m <= ModeContinuousCarrier }

func (m Mode) String() string {
	switch m {
	case ModeNormalFlight:
		return "NormalFlight"
	case ModeContinuousCarrier:
		return "ContinuousCarrier"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// AckMode enables or disables hardware auto-acknowledgement.
type AckMode uint8

const (
	AckModeAutoAckOn  AckMode = 0
	AckModeAutoAckOff AckMode = 1
)

func (m AckMode) Valid() bool { return m <= AckModeAutoAckOff }

func (m AckMode) String() string {
	switch m {
	case AckModeAutoAckOn:
		return "AutoAckOn"
	case AckModeAutoAckOff:
		return "AutoAckOff"
	default:
		return fmt.Sprintf("AckMode(%d)", uint8(m))
	}
}

// AckRetryCount is the number of hardware retransmissions, 0-15.
type AckRetryCount uint8

const MaxAckRetryCount AckRetryCount = 15

func (c AckRetryCount) Valid() bool { return c <= MaxAckRetryCount }

// AckRetryDelay is the auto retransmit delay code. Code n waits 250us*(n+1).
// AckRetryDelayUseAckPacket means the delay is derived from the ack payload
// length instead; see AckPayloadLength.
type AckRetryDelay int

const (
	AckRetryDelayUseAckPacket AckRetryDelay = -1

	AckRetryDelayWait250us  AckRetryDelay = 0x00
	AckRetryDelayWait500us  AckRetryDelay = 0x01
	AckRetryDelayWait750us  AckRetryDelay = 0x02
	AckRetryDelayWait1000us AckRetryDelay = 0x03
	AckRetryDelayWait1250us AckRetryDelay = 0x04
	AckRetryDelayWait1500us AckRetryDelay = 0x05
	AckRetryDelayWait1750us AckRetryDelay = 0x06
	AckRetryDelayWait2000us AckRetryDelay = 0x07
	AckRetryDelayWait2250us AckRetryDelay = 0x08
	AckRetryDelayWait2500us AckRetryDelay = 0x09
	AckRetryDelayWait2750us AckRetryDelay = 0x0A
	AckRetryDelayWait3000us AckRetryDelay = 0x0B
	AckRetryDelayWait3250us AckRetryDelay = 0x0C
	AckRetryDelayWait3500us AckRetryDelay = 0x0D
	AckRetryDelayWait3750us AckRetryDelay = 0x0E
	AckRetryDelayWait4000us AckRetryDelay = 0x0F
)

func (d AckRetryDelay) Valid() bool {
	return d >= AckRetryDelayUseAckPacket && d <= AckRetryDelayWait4000us
}

// IsSentinel reports whether d defers to the ack payload length method.
func (d AckRetryDelay) IsSentinel() bool { return d == AckRetryDelayUseAckPacket }

// Duration returns the retransmit delay, or 0 for the sentinel.
func (d AckRetryDelay) Duration() time.Duration {
	if !d.Valid() || d.IsSentinel() {
		return 0
	}
	return time.Duration(d+1) * 250 * time.Microsecond
}

func (d AckRetryDelay) String() string {
	switch {
	case d.IsSentinel():
		return "UseAckPacket"
	case d.Valid():
		return d.Duration().String()
	default:
		return fmt.Sprintf("AckRetryDelay(%d)", int(d))
	}
}

// AckPayloadLength sets the retransmit delay from the expected ack payload
// size. Values are 0x80|length, length 0-32. AckPayloadLengthUseRetryDelay
// means an explicit AckRetryDelay is in effect.
type AckPayloadLength int

const (
	AckPayloadLengthUseRetryDelay AckPayloadLength = -1

	AckPayloadLength0Bytes  AckPayloadLength = 0x80
	AckPayloadLength1Byte   AckPayloadLength = 0x81
	AckPayloadLength10Bytes AckPayloadLength = 0x8A
	AckPayloadLength16Bytes AckPayloadLength = 0x90
	AckPayloadLength32Bytes AckPayloadLength = 0xA0

	ackPayloadLengthFlag = 0x80
	maxAckPayloadBytes   = 32
)

// NewAckPayloadLength returns the code for an ack payload of n bytes.
func NewAckPayloadLength(n int) (AckPayloadLength, error) {
	if n < 0 || n > maxAckPayloadBytes {
		return 0, fmt.Errorf("%w: ack payload length %d not in 0-%d", ErrInvalidConfiguration, n, maxAckPayloadBytes)
	}
	return AckPayloadLength(ackPayloadLengthFlag | n), nil
}

func (l AckPayloadLength) Valid() bool {
	return l == AckPayloadLengthUseRetryDelay ||
		(l >= AckPayloadLength0Bytes && l <= AckPayloadLength32Bytes)
}

// IsSentinel reports whether l defers to the retry delay method.
func (l AckPayloadLength) IsSentinel() bool { return l == AckPayloadLengthUseRetryDelay }

// Bytes returns the payload length in bytes, or -1 for the sentinel.
func (l AckPayloadLength) Bytes() int {
	if l.IsSentinel() {
		return -1
	}
	return int(l) &^ ackPayloadLengthFlag
}

func (l AckPayloadLength) String() string {
	switch {
	case l.IsSentinel():
		return "UseRetryDelay"
	case l.Valid():
		return fmt.Sprintf("%dB", l.Bytes())
	default:
		return fmt.Sprintf("AckPayloadLength(%d)", int(l))
	}
}
