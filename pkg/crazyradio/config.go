package crazyradio

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Settings is one value for every configurable radio register.
type Settings struct {
	Mode             Mode             `json:"mode"`
	Channel          RadioChannel     `json:"channel"`
	Address          RadioAddress     `json:"address"`
	DataRate         DataRate         `json:"data_rate"`
	PowerLevel       PowerLevel       `json:"power_level"`
	AckMode          AckMode          `json:"ack_mode"`
	AckRetryCount    AckRetryCount    `json:"ack_retry_count"`
	AckRetryDelay    AckRetryDelay    `json:"ack_retry_delay"`
	AckPayloadLength AckPayloadLength `json:"ack_payload_length"`
}

// Config holds the driver defaults and transfer timeouts. It is never
// modified after the driver is created.
type Config struct {
	// Defaults are applied on the first Open and by ResetToDefaults.
	Defaults Settings

	WriteTimeout time.Duration // packet write to the data endpoint
	AckTimeout   time.Duration // wait for the acknowledgement
}

// Fallbacks used when a mechanism is re-selected but its configured default
// is the sentinel.
const (
	FallbackAckRetryDelay    = AckRetryDelayWait250us
	FallbackAckPayloadLength = AckPayloadLength32Bytes
)

// DefaultSettings returns the power-on settings used by the Crazyflie clients.
func DefaultSettings() Settings {
	return Settings{
		Mode:             ModeNormalFlight,
		Channel:          2,
		Address:          DefaultRadioAddress,
		DataRate:         DataRate2M,
		PowerLevel:       PowerLevel0dBm,
		AckMode:          AckModeAutoAckOn,
		AckRetryCount:    3,
		AckRetryDelay:    AckRetryDelayUseAckPacket,
		AckPayloadLength: AckPayloadLength32Bytes,
	}
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Defaults:     DefaultSettings(),
		WriteTimeout: DefaultWriteTimeout,
		AckTimeout:   DefaultAckTimeout,
	}
}

// Validate checks every field of s against its domain.
func (s Settings) Validate() error {
	var errs []error
	if !s.Mode.Valid() {
		errs = append(errs, invalid("mode %v", s.Mode))
	}
	if !s.Channel.Valid() {
		errs = append(errs, invalid("channel %d above %d", s.Channel, MaxRadioChannel))
	}
	if !s.DataRate.Valid() {
		errs = append(errs, invalid("data rate %v", s.DataRate))
	}
	if !s.PowerLevel.Valid() {
		errs = append(errs, invalid("power level %v", s.PowerLevel))
	}
	if !s.AckMode.Valid() {
		errs = append(errs, invalid("ack mode %v", s.AckMode))
	}
	if !s.AckRetryCount.Valid() {
		errs = append(errs, invalid("ack retry count %d above %d", s.AckRetryCount, MaxAckRetryCount))
	}
	if !s.AckRetryDelay.Valid() {
		errs = append(errs, invalid("ack retry delay %v", s.AckRetryDelay))
	}
	if !s.AckPayloadLength.Valid() {
		errs = append(errs, invalid("ack payload length %v", s.AckPayloadLength))
	}
	if s.AckRetryDelay.IsSentinel() == s.AckPayloadLength.IsSentinel() {
		errs = append(errs, invalid("exactly one of ack retry delay (%v) and ack payload length (%v) must be set", s.AckRetryDelay, s.AckPayloadLength))
	}
	return errors.Join(errs...)
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if err := c.Defaults.Validate(); err != nil {
		return err
	}
	if c.WriteTimeout <= 0 || c.AckTimeout <= 0 {
		return invalid("timeouts must be positive (write %v, ack %v)", c.WriteTimeout, c.AckTimeout)
	}
	return nil
}

// Option configures a Driver.
type Option func(*Driver)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(d *Driver) {
		d.cfg = cfg
	}
}

// WithLogger sets the logger used by the driver.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Driver) {
		if log != nil {
			d.log = log
		}
	}
}
