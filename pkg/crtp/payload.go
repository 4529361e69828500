package crtp

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CommanderPayload is a roll/pitch/yaw/thrust setpoint.
// Layout (little-endian): Roll f32 | Pitch f32 | Yaw f32 | Thrust u16
type CommanderPayload struct {
	Roll   float32
	Pitch  float32
	Yaw    float32
	Thrust uint16
}

// EncodeCommander serializes a setpoint into its 14 byte wire form.
func EncodeCommander(p CommanderPayload) [CommanderPayloadSize]byte {
	var b [CommanderPayloadSize]byte
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(p.Roll))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(p.Pitch))
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(p.Yaw))
	binary.LittleEndian.PutUint16(b[12:14], p.Thrust)
	return b
}

// DecodeCommander parses a setpoint. The slice must be exactly 14 bytes.
func DecodeCommander(b []byte) (CommanderPayload, error) {
	if len(b) != CommanderPayloadSize {
		return CommanderPayload{}, fmt.Errorf("%w: commander payload is %d bytes, want %d", ErrMalformedFrame, len(b), CommanderPayloadSize)
	}
	return CommanderPayload{
		Roll:   math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		Pitch:  math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		Yaw:    math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
		Thrust: binary.LittleEndian.Uint16(b[12:14]),
	}, nil
}

func (p CommanderPayload) String() string {
	return fmt.Sprintf("roll=%.2f pitch=%.2f yaw=%.2f thrust=%d", p.Roll, p.Pitch, p.Yaw, p.Thrust)
}

// PingPayload is the empty payload of a ping packet.
type PingPayload struct{}

// EncodePing returns the zero-length ping payload.
func EncodePing() []byte {
	return []byte{}
}

// DecodePing accepts any bytes. Whatever the Crazyflie returns with a ping
// belongs to the ack payload, not to the ping itself.
func DecodePing(_ []byte) PingPayload {
	return PingPayload{}
}
