package crtp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Sender writes a frame to the radio and returns the raw acknowledgement.
// A nil or empty response means the peer did not acknowledge.
type Sender interface {
	SendData(ctx context.Context, data []byte) ([]byte, error)
}

// Messenger sends packets through a Sender and decodes the acknowledgements.
// It never retries; retries are configured on the radio.
type Messenger struct {
	sender Sender
	log    logrus.FieldLogger
}

// MessengerOption configures a Messenger.
type MessengerOption func(*Messenger)

// WithMessengerLogger sets the logger used by the messenger.
func WithMessengerLogger(log logrus.FieldLogger) MessengerOption {
	return func(m *Messenger) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMessenger creates a messenger on top of sender.
func NewMessenger(sender Sender, opts ...MessengerOption) *Messenger {
	m := &Messenger{
		sender: sender,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithField("component", "messenger")
	return m
}

// Send transmits p and returns the acknowledgement without decoding its payload.
func (m *Messenger) Send(ctx context.Context, p Packet) (AckPacket, error) {
	return m.SendWithDecoder(ctx, p, nil)
}

// SendWithDecoder transmits p and decodes the ack payload with decode.
func (m *Messenger) SendWithDecoder(ctx context.Context, p Packet, decode PayloadDecoder) (AckPacket, error) {
	frame := p.Bytes()
	m.log.Debugf("sending %v (% X)", p, frame)

	resp, err := m.sender.SendData(ctx, frame)
	if err != nil {
		return AckPacket{}, fmt.Errorf("send %v: %w", p, err)
	}
	if len(resp) == 0 {
		m.log.Debugf("no acknowledgement for %v", p)
		return AckPacket{}, ErrNoAcknowledgement
	}

	ack, err := ParseAckPacket(resp, decode)
	if err != nil {
		return AckPacket{}, fmt.Errorf("parse acknowledgement: %w", err)
	}
	m.log.Debugf("received %v", ack)
	return ack, nil
}

// Ping sends an empty packet on channel.
func (m *Messenger) Ping(ctx context.Context, channel Channel) (AckPacket, error) {
	p, err := NewPingPacket(channel)
	if err != nil {
		return AckPacket{}, err
	}
	return m.Send(ctx, p)
}

// SendCommander sends a setpoint on channel.
func (m *Messenger) SendCommander(ctx context.Context, channel Channel, setpoint CommanderPayload) (AckPacket, error) {
	p, err := NewCommanderPacket(channel, setpoint)
	if err != nil {
		return AckPacket{}, err
	}
	return m.Send(ctx, p)
}
