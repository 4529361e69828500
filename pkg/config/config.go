package config

import (
	"fmt"
	"time"

	"github.com/herlein/gocrazy/pkg/crazyradio"
)

// RadioProfile holds the configuration of one Crazyradio dongle
type RadioProfile struct {
	Serial       string              `json:"serial"`
	Manufacturer string              `json:"manufacturer,omitempty"`
	Product      string              `json:"product,omitempty"`
	Firmware     string              `json:"firmware"`
	Timestamp    time.Time           `json:"timestamp"`
	Settings     crazyradio.Settings `json:"settings"`
}

// DumpFromDriver captures the current configuration of an open driver
func DumpFromDriver(driver *crazyradio.Driver) (*RadioProfile, error) {
	if !driver.IsOpen() {
		return nil, fmt.Errorf("failed to dump configuration: %w", crazyradio.ErrNotOpen)
	}

	info := driver.Info()
	return &RadioProfile{
		Serial:       info.Serial,
		Manufacturer: info.Manufacturer,
		Product:      info.Product,
		Firmware:     driver.FirmwareVersion().String(),
		Timestamp:    time.Now(),
		Settings:     driver.Settings(),
	}, nil
}

// ApplyToDriver writes a profile's settings to an open driver
func ApplyToDriver(driver *crazyradio.Driver, profile *RadioProfile) error {
	if profile.Serial != "" && profile.Serial != driver.Serial() {
		return fmt.Errorf("profile is for serial %s, device is %s", profile.Serial, driver.Serial())
	}

	if err := driver.ApplySettings(profile.Settings); err != nil {
		return fmt.Errorf("failed to apply settings: %w", err)
	}

	return nil
}

// Validate checks the stored settings and firmware string
func (p *RadioProfile) Validate() error {
	if _, err := crazyradio.ParseFirmwareVersion(p.Firmware); err != nil {
		return err
	}
	return p.Settings.Validate()
}

// GetAckMethodString describes which retransmit delay mechanism is in use
func (p *RadioProfile) GetAckMethodString() string {
	if p.Settings.AckRetryDelay.IsSentinel() {
		return fmt.Sprintf("ack payload length %s", p.Settings.AckPayloadLength)
	}
	return fmt.Sprintf("retry delay %s", p.Settings.AckRetryDelay)
}

// GetLinkString returns the link parameters a Crazyflie must match
func (p *RadioProfile) GetLinkString() string {
	return fmt.Sprintf("radio://0/%d/%s/%s", p.Settings.Channel, p.Settings.DataRate, p.Settings.Address)
}
