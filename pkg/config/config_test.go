package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/herlein/gocrazy/pkg/crazyradio"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDevice accepts every transfer.
type stubDevice struct {
	open     bool
	requests []uint8
}

func (s *stubDevice) Info() crazyradio.DeviceInfo {
	return crazyradio.DeviceInfo{
		VendorID:     crazyradio.VendorID,
		ProductID:    crazyradio.ProductID,
		BCDDevice:    0x0053,
		Serial:       "E1E5C0F3A2",
		Manufacturer: "Bitcraze AB",
		Product:      "Crazyradio PA USB dongle",
	}
}

func (s *stubDevice) IsOpen() bool { return s.open }
func (s *stubDevice) Open() error  { s.open = true; return nil }
func (s *stubDevice) Close() error { s.open = false; return nil }

func (s *stubDevice) Control(_ uint8, request uint8, _ uint16, _ uint16, data []byte) (int, error) {
	s.requests = append(s.requests, request)
	return len(data), nil
}

func (s *stubDevice) InEndpoint(int) (crazyradio.InEndpoint, error)   { return s, nil }
func (s *stubDevice) OutEndpoint(int) (crazyradio.OutEndpoint, error) { return s, nil }

func (s *stubDevice) ReadContext(context.Context, []byte) (int, error) {
	return 0, crazyradio.ErrTimeout
}

func (s *stubDevice) WriteContext(_ context.Context, buf []byte) (int, error) {
	return len(buf), nil
}

func openDriver(t *testing.T) *crazyradio.Driver {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	driver, err := crazyradio.NewDriver(&stubDevice{}, crazyradio.WithLogger(log))
	require.NoError(t, err)
	require.NoError(t, driver.Open())
	t.Cleanup(func() { driver.Close() })
	return driver
}

func TestDumpFromDriver(t *testing.T) {
	driver := openDriver(t)
	require.NoError(t, driver.SetChannel(80))

	profile, err := DumpFromDriver(driver)
	require.NoError(t, err)

	assert.Equal(t, "E1E5C0F3A2", profile.Serial)
	assert.Equal(t, "Bitcraze AB", profile.Manufacturer)
	assert.Equal(t, "0.5.3", profile.Firmware)
	assert.Equal(t, crazyradio.RadioChannel(80), profile.Settings.Channel)
	assert.False(t, profile.Timestamp.IsZero())
	assert.Equal(t, "radio://0/80/2M/E7E7E7E7E7", profile.GetLinkString())
	assert.Equal(t, "ack payload length 32B", profile.GetAckMethodString())
}

func TestDumpRequiresOpenDriver(t *testing.T) {
	driver, err := crazyradio.NewDriver(&stubDevice{})
	require.NoError(t, err)

	_, err = DumpFromDriver(driver)
	assert.ErrorIs(t, err, crazyradio.ErrNotOpen)
}

func TestApplyToDriver(t *testing.T) {
	driver := openDriver(t)

	profile, err := DumpFromDriver(driver)
	require.NoError(t, err)
	profile.Settings.DataRate = crazyradio.DataRate250K
	profile.Settings.AckRetryDelay = crazyradio.AckRetryDelayWait500us
	profile.Settings.AckPayloadLength = crazyradio.AckPayloadLengthUseRetryDelay

	require.NoError(t, ApplyToDriver(driver, profile))
	assert.Equal(t, profile.Settings, driver.Settings())
	assert.Equal(t, "retry delay 500µs", profile.GetAckMethodString())

	profile.Serial = "0000000000"
	assert.Error(t, ApplyToDriver(driver, profile))
}

func TestSaveAndLoad(t *testing.T) {
	driver := openDriver(t)
	profile, err := DumpFromDriver(driver)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), GetConfigPath(profile.Serial))
	require.NoError(t, SaveToFile(profile, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, profile.Serial, loaded.Serial)
	assert.Equal(t, profile.Settings, loaded.Settings)
	assert.True(t, profile.Timestamp.Equal(loaded.Timestamp))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"address": "E7E7E7E7E7"`)
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"serial":"x","firmware":"0.5.3","settings":{"channel":200}}`), 0644))

	_, err := LoadFromFile(path)
	assert.ErrorIs(t, err, crazyradio.ErrInvalidConfiguration)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadAcceptsCommentsAndTrailingCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edited.json")
	data := `{
  // edited by hand
  "serial": "E1E5C0F3A2",
  "firmware": "0.5.3",
  "settings": {
    "mode": 0,
    "channel": 80,
    "address": "E7E7E7E7E7",
    "data_rate": 0, // 250K
    "power_level": 3,
    "ack_mode": 0,
    "ack_retry_count": 15,
    "ack_retry_delay": -1,
    "ack_payload_length": 160,
  },
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	profile, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, crazyradio.RadioChannel(80), profile.Settings.Channel)
	assert.Equal(t, crazyradio.DataRate250K, profile.Settings.DataRate)
	assert.Equal(t, crazyradio.AckRetryCount(15), profile.Settings.AckRetryCount)
	assert.Equal(t, crazyradio.DefaultRadioAddress, profile.Settings.Address)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, filepath.Join("etc", "crazyradios", "E1E5C0F3A2.json"), GetConfigPath("E1E5C0F3A2"))
}
