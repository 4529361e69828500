package crazyradio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDrivers(t *testing.T) []*Driver {
	t.Helper()
	infos := []DeviceInfo{
		{Serial: "AAAA", Bus: 1, Address: 4},
		{Serial: "BBBB", Bus: 1, Address: 9},
		{Serial: "BBBB", Bus: 2, Address: 3},
	}
	drivers := make([]*Driver, 0, len(infos))
	for _, info := range infos {
		d, dev := newTestDriver(t, bcdFastScan)
		d.info = info
		dev.info = info
		drivers = append(drivers, d)
	}
	return drivers
}

func TestSelect(t *testing.T) {
	drivers := testDrivers(t)

	tests := []struct {
		selector DeviceSelector
		want     int
	}{
		{"", 0},
		{"#1", 1},
		{"#2", 2},
		{"1:9", 1},
		{"2:3", 2},
		{"AAAA", 0},
		{"aaaa", 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.selector), func(t *testing.T) {
			d, err := Select(drivers, tt.selector)
			require.NoError(t, err)
			assert.Same(t, drivers[tt.want], d)
		})
	}
}

func TestSelectErrors(t *testing.T) {
	drivers := testDrivers(t)

	for _, sel := range []DeviceSelector{"#3", "#x", "x:1", "1:x", "3:3", "CCCC", "BBBB"} {
		_, err := Select(drivers, sel)
		assert.Error(t, err, string(sel))
	}

	_, err := Select(drivers, "CCCC")
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = Select(nil, "")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}
