package crazyradio

import (
	"fmt"
	"strings"
)

// ScanResult lists the channels that acknowledged a probe at one data rate,
// in the order the scan found them.
type ScanResult struct {
	DataRate DataRate       `json:"data_rate"`
	Channels []RadioChannel `json:"channels"`
}

// Found reports whether any channel answered.
func (r ScanResult) Found() bool { return len(r.Channels) > 0 }

// Equal compares data rate and channel sequence.
func (r ScanResult) Equal(o ScanResult) bool {
	if r.DataRate != o.DataRate || len(r.Channels) != len(o.Channels) {
		return false
	}
	for i := range r.Channels {
		if r.Channels[i] != o.Channels[i] {
			return false
		}
	}
	return true
}

func (r ScanResult) String() string {
	channels := make([]string, len(r.Channels))
	for i, ch := range r.Channels {
		channels[i] = fmt.Sprintf("%d", ch)
	}
	return fmt.Sprintf("%s: [%s]", r.DataRate, strings.Join(channels, " "))
}
