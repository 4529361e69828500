package crazyradio

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// FirmwareVersion is the dongle firmware version, read from bcdDevice.
type FirmwareVersion struct {
	Major int
	Minor int
	Patch int
}

// FirmwareVersionFromBCD decodes a USB bcdDevice field: the high byte is the
// major version, then one nibble each for minor and patch.
func FirmwareVersionFromBCD(bcd uint16) FirmwareVersion {
	return FirmwareVersion{
		Major: int(bcd&0xFF00) >> 8,
		Minor: int(bcd&0x00F0) >> 4,
		Patch: int(bcd & 0x000F),
	}
}

// ParseFirmwareVersion parses "[v]major[.minor[.patch]]". Missing components
// are zero, and an empty string is 0.0.0.
func ParseFirmwareVersion(s string) (FirmwareVersion, error) {
	var v FirmwareVersion
	s = strings.TrimSpace(s)
	if s == "" {
		return v, nil
	}

	parts := strings.Split(strings.TrimPrefix(s, "v"), ".")
	if len(parts) > 3 {
		return v, fmt.Errorf("invalid firmware version %q: too many components", s)
	}
	fields := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return FirmwareVersion{}, fmt.Errorf("invalid firmware version %q: component %q", s, part)
		}
		*fields[i] = n
	}
	return v, nil
}

// Compare returns -1, 0 or +1 ordering by major, then minor, then patch.
func (v FirmwareVersion) Compare(o FirmwareVersion) int {
	return semver.Compare(v.Semver(), o.Semver())
}

// AtLeast reports whether v >= o.
func (v FirmwareVersion) AtLeast(o FirmwareVersion) bool {
	return v.Compare(o) >= 0
}

// Semver returns the version in "vMAJOR.MINOR.PATCH" form.
func (v FirmwareVersion) Semver() string {
	return "v" + v.String()
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
