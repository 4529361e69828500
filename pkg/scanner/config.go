package scanner

import (
	"fmt"
	"time"

	"github.com/herlein/gocrazy/pkg/crazyradio"
)

// Scan defaults
const (
	DefaultScanInterval = 500 * time.Millisecond
	DefaultLostAfter    = 3
)

// ScanConfig defines runtime scanning parameters
type ScanConfig struct {
	StartChannel crazyradio.RadioChannel
	StopChannel  crazyradio.RadioChannel

	// DataRate restricts the scan to one rate; nil scans all three.
	DataRate *crazyradio.DataRate

	ScanInterval time.Duration // Delay between scan passes

	// LostAfter is the number of consecutive passes a link may be missing
	// before it is reported lost.
	LostAfter int

	// Callbacks (optional)
	OnLinkDetected func(info LinkInfo)
	OnLinkLost     func(info LinkInfo)
}

// DefaultConfig returns a ScanConfig with default values
func DefaultConfig() *ScanConfig {
	return &ScanConfig{
		StartChannel: 0,
		StopChannel:  crazyradio.MaxRadioChannel,
		ScanInterval: DefaultScanInterval,
		LostAfter:    DefaultLostAfter,
	}
}

// Validate checks the configuration for errors
func (c *ScanConfig) Validate() error {
	if c.StartChannel > c.StopChannel || !c.StopChannel.Valid() {
		return fmt.Errorf("%w: channel range %d-%d", ErrInvalidConfig, c.StartChannel, c.StopChannel)
	}
	if c.DataRate != nil && !c.DataRate.Valid() {
		return fmt.Errorf("%w: data rate %v", ErrInvalidConfig, *c.DataRate)
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("%w: scan interval must be positive", ErrInvalidConfig)
	}
	if c.LostAfter < 1 {
		return fmt.Errorf("%w: lost-after must be at least 1 pass", ErrInvalidConfig)
	}
	return nil
}
