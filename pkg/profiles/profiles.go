// Package profiles provides pre-defined Crazyradio configuration profiles.
// Each profile is a complete set of radio settings tuned for a particular
// use case.
package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/flynn/json5"
	"github.com/herlein/gocrazy/pkg/crazyradio"
)

// Profile is a named radio configuration
type Profile struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Settings    crazyradio.Settings `json:"settings"`
}

// ProfileConfig is the JSON format for storing profile configurations
type ProfileConfig struct {
	Profile   Profile   `json:"profile"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDefault is the factory Crazyflie link: channel 2 at 2Mbps.
func NewDefault() *Profile {
	return &Profile{
		Name:        "default",
		Description: "Factory Crazyflie link, channel 2 at 2Mbps",
		Settings:    crazyradio.DefaultSettings(),
	}
}

// NewLongRange trades throughput for range: 250Kbps, full power and the
// maximum number of retransmissions.
func NewLongRange(channel crazyradio.RadioChannel) *Profile {
	s := crazyradio.DefaultSettings()
	s.Channel = channel
	s.DataRate = crazyradio.DataRate250K
	s.PowerLevel = crazyradio.PowerLevel0dBm
	s.AckRetryCount = crazyradio.MaxAckRetryCount
	return &Profile{
		Name:        fmt.Sprintf("long-range-ch%d", channel),
		Description: "250Kbps at full power with 15 retransmissions",
		Settings:    s,
	}
}

// NewBench keeps transmit power low for work on a desk next to the dongle.
func NewBench(channel crazyradio.RadioChannel) *Profile {
	s := crazyradio.DefaultSettings()
	s.Channel = channel
	s.PowerLevel = crazyradio.PowerLevelMinus18dBm
	return &Profile{
		Name:        fmt.Sprintf("bench-ch%d", channel),
		Description: "2Mbps at -18dBm for short range testing",
		Settings:    s,
	}
}

// NewBroadcast disables acknowledgements, for sending the same packet to
// several Crazyflies sharing an address.
func NewBroadcast(channel crazyradio.RadioChannel, rate crazyradio.DataRate) *Profile {
	s := crazyradio.DefaultSettings()
	s.Channel = channel
	s.DataRate = rate
	s.AckMode = crazyradio.AckModeAutoAckOff
	s.AckRetryCount = 0
	s.AckRetryDelay = crazyradio.AckRetryDelayWait250us
	s.AckPayloadLength = crazyradio.AckPayloadLengthUseRetryDelay
	return &Profile{
		Name:        fmt.Sprintf("broadcast-ch%d-%s", channel, rate),
		Description: "No acknowledgements, no retransmissions",
		Settings:    s,
	}
}

// NewCarrierTest transmits an unmodulated carrier for RF measurements.
func NewCarrierTest(channel crazyradio.RadioChannel) *Profile {
	s := crazyradio.DefaultSettings()
	s.Mode = crazyradio.ModeContinuousCarrier
	s.Channel = channel
	return &Profile{
		Name:        fmt.Sprintf("carrier-ch%d", channel),
		Description: "Continuous carrier test signal",
		Settings:    s,
	}
}

// All returns the built-in profiles sorted by name
func All() []*Profile {
	profiles := []*Profile{
		NewDefault(),
		NewLongRange(80),
		NewLongRange(100),
		NewBench(2),
		NewBroadcast(80, crazyradio.DataRate2M),
		NewCarrierTest(2),
		NewCarrierTest(40),
		NewCarrierTest(80),
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles
}

// Get returns the built-in profile with the given name
func Get(name string) (*Profile, error) {
	for _, p := range All() {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown profile %q", name)
}

// SaveToFile saves a profile configuration to a JSON file
func (p *Profile) SaveToFile(filepath string) error {
	config := ProfileConfig{
		Profile:   *p,
		Timestamp: time.Now(),
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	return os.WriteFile(filepath, data, 0644)
}

// LoadProfileFromFile loads a profile configuration from a JSON file
func LoadProfileFromFile(path string) (*ProfileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var config ProfileConfig
	if err := json5.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	if err := config.Profile.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", config.Profile.Name, err)
	}

	return &config, nil
}

// Generate writes every built-in profile to basePath/<name>.json
func Generate(basePath string) error {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	for _, p := range All() {
		filename := filepath.Join(basePath, p.Name+".json")
		if err := p.SaveToFile(filename); err != nil {
			return fmt.Errorf("failed to save profile %s: %w", p.Name, err)
		}
	}

	return nil
}
