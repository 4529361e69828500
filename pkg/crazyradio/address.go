package crazyradio

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// RadioAddressSize is the length of an nRF24 pipe address.
const RadioAddressSize = 5

// RadioAddress is the 5 byte address the dongle transmits to.
type RadioAddress [RadioAddressSize]byte

// DefaultRadioAddress is the factory address of every Crazyflie.
var DefaultRadioAddress = RadioAddress{0xE7, 0xE7, 0xE7, 0xE7, 0xE7}

// NewRadioAddress builds an address from exactly five bytes.
func NewRadioAddress(b ...byte) (RadioAddress, error) {
	var a RadioAddress
	if len(b) != RadioAddressSize {
		return a, invalid("address must be exactly %d bytes, got %d", RadioAddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseRadioAddress parses a hex address such as "E7E7E7E7E7" or "0xE7E7E7E7E7".
func ParseRadioAddress(s string) (RadioAddress, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return RadioAddress{}, invalid("address %q: %v", s, err)
	}
	return NewRadioAddress(b...)
}

// Bytes returns a copy of the address bytes.
func (a RadioAddress) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

func (a RadioAddress) String() string {
	return fmt.Sprintf("%X", a[:])
}

func (a RadioAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *RadioAddress) UnmarshalText(text []byte) error {
	parsed, err := ParseRadioAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
