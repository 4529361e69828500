package crazyradio

import (
	"context"
	"errors"
	"testing"

	"github.com/herlein/gocrazy/pkg/crtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriverRejectsUnsupportedDevices(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*DeviceInfo)
	}{
		{"wrong vendor", func(i *DeviceInfo) { i.VendorID = 0x1d50 }},
		{"wrong product", func(i *DeviceInfo) { i.ProductID = 0x605b }},
		{"firmware too old", func(i *DeviceInfo) { i.BCDDevice = 0x0029 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice(bcdFastScan)
			tt.modify(&dev.info)

			d, err := NewDriver(dev, WithLogger(quietLogger()))
			assert.Nil(t, d)
			assert.ErrorIs(t, err, ErrDeviceIdentityMismatch)
			assert.Zero(t, dev.transfers())
		})
	}
}

func TestNewDriverRejectsNilDevice(t *testing.T) {
	_, err := NewDriver(nil)
	assert.ErrorIs(t, err, ErrDeviceIdentityMismatch)
}

func TestNewDriverClosesOpenHandle(t *testing.T) {
	dev := newFakeDevice(bcdFastScan)
	dev.opened = true

	d, err := NewDriver(dev, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, 1, dev.closeCalls)
	assert.False(t, dev.IsOpen())
	assert.False(t, d.IsOpen())
}

func TestNewDriverRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults.Channel = 200

	_, err := NewDriver(newFakeDevice(bcdFastScan), WithConfig(cfg), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestDriverIdentity(t *testing.T) {
	d, _ := newTestDriver(t, bcdFastScan)

	assert.Equal(t, "E1E5C0F3A2", d.Serial())
	assert.Equal(t, FirmwareVersion{Major: 0, Minor: 5, Patch: 3}, d.FirmwareVersion())
	assert.Equal(t, 7, d.Info().Address)
	assert.Contains(t, d.String(), "E1E5C0F3A2")
}

func TestOpenAppliesDefaults(t *testing.T) {
	d, dev := newTestDriver(t, bcdFastScan)

	_, ok := d.Channel()
	assert.False(t, ok, "nothing is written before Open")

	require.NoError(t, d.Open())
	assert.True(t, d.IsOpen())
	assert.Equal(t, DefaultSettings(), d.Settings())

	expected := []controlCall{
		{RequestTypeVendorOut, RequestSetContinuousCarrierMode, 0, 0, []byte{}},
		{RequestTypeVendorOut, RequestSetChannel, 2, 0, []byte{}},
		{RequestTypeVendorOut, RequestSetAddress, 0, 0, []byte{0xE7, 0xE7, 0xE7, 0xE7, 0xE7}},
		{RequestTypeVendorOut, RequestSetDataRate, uint16(DataRate2M), 0, []byte{}},
		{RequestTypeVendorOut, RequestSetPowerLevel, uint16(PowerLevel0dBm), 0, []byte{}},
		{RequestTypeVendorOut, RequestSetAutoAckEnabled, 1, 0, []byte{}},
		{RequestTypeVendorOut, RequestSetAckRetryCount, 3, 0, []byte{}},
		{RequestTypeVendorOut, RequestSetAckRetryDelay, 0xA0, 0, []byte{}},
	}
	require.Len(t, dev.controls, len(expected))
	for i, want := range expected {
		got := dev.controls[i]
		assert.Equal(t, want.RequestType, got.RequestType, "call %d", i)
		assert.Equal(t, want.Request, got.Request, "call %d", i)
		assert.Equal(t, want.Value, got.Value, "call %d", i)
		assert.Equal(t, want.Index, got.Index, "call %d", i)
		assert.Equal(t, len(want.Data), len(got.Data), "call %d", i)
	}
	assert.Equal(t, DefaultRadioAddress.Bytes(), dev.controls[2].Data)

	delay, ok := d.AckRetryDelay()
	assert.True(t, ok)
	assert.Equal(t, AckRetryDelayUseAckPacket, delay)
}

func TestOpenTwiceIsNoop(t *testing.T) {
	d, dev := openTestDriver(t, bcdFastScan)
	require.NoError(t, d.Open())
	assert.Empty(t, dev.controls)
}

func TestOpenRestoresSessionSettings(t *testing.T) {
	d, dev := openTestDriver(t, bcdFastScan)

	require.NoError(t, d.SetChannel(80))
	require.NoError(t, d.SetAckRetryDelay(AckRetryDelayWait1500us))
	require.NoError(t, d.Close())

	dev.controls = nil
	require.NoError(t, d.Open())

	channels := dev.controlsFor(RequestSetChannel)
	require.Len(t, channels, 1)
	assert.Equal(t, uint16(80), channels[0].Value)

	delays := dev.controlsFor(RequestSetAckRetryDelay)
	require.Len(t, delays, 1)
	assert.Equal(t, uint16(AckRetryDelayWait1500us), delays[0].Value)

	length, _ := d.AckPayloadLength()
	assert.Equal(t, AckPayloadLengthUseRetryDelay, length)
}

func TestOpenFailureReleasesDevice(t *testing.T) {
	t.Run("claim", func(t *testing.T) {
		d, dev := newTestDriver(t, bcdFastScan)
		dev.openErr = errPipe

		err := d.Open()
		assert.ErrorIs(t, err, ErrTransferFailed)
		assert.ErrorIs(t, err, errPipe)
		assert.False(t, d.IsOpen())
		assert.Equal(t, 1, dev.closeCalls)
	})

	t.Run("endpoint", func(t *testing.T) {
		d, dev := newTestDriver(t, bcdFastScan)
		dev.inErr = errPipe

		assert.ErrorIs(t, d.Open(), ErrTransferFailed)
		assert.False(t, d.IsOpen())
		assert.False(t, dev.IsOpen())
	})

	t.Run("configuration", func(t *testing.T) {
		d, dev := newTestDriver(t, bcdFastScan)
		dev.failControl = func(c controlCall) error {
			if c.Request == RequestSetAddress {
				return errPipe
			}
			return nil
		}

		err := d.Open()
		var transferErr *TransferError
		require.ErrorAs(t, err, &transferErr)
		assert.Contains(t, transferErr.Op, "SetAddress")
		assert.False(t, d.IsOpen())
		assert.False(t, dev.IsOpen())

		_, ok := d.Address()
		assert.False(t, ok)
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	d, dev := openTestDriver(t, bcdFastScan)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.False(t, d.IsOpen())
	assert.False(t, dev.IsOpen())
}

func TestAckMutualExclusion(t *testing.T) {
	d, dev := openTestDriver(t, bcdFastScan)

	require.NoError(t, d.SetAckRetryDelay(AckRetryDelayWait1000us))
	length, ok := d.AckPayloadLength()
	require.True(t, ok)
	assert.Equal(t, AckPayloadLengthUseRetryDelay, length)
	assert.Equal(t, RequestSetAckRetryDelay, dev.lastControl().Request)
	assert.Equal(t, uint16(0x03), dev.lastControl().Value)

	require.NoError(t, d.SetAckPayloadLength(AckPayloadLength10Bytes))
	delay, ok := d.AckRetryDelay()
	require.True(t, ok)
	assert.Equal(t, AckRetryDelayUseAckPacket, delay)
	assert.Equal(t, RequestSetAckRetryDelay, dev.lastControl().Request)
	assert.Equal(t, uint16(0x8A), dev.lastControl().Value)
}

func TestAckSentinelReappliesOtherDefault(t *testing.T) {
	t.Run("payload length default", func(t *testing.T) {
		d, dev := openTestDriver(t, bcdFastScan)

		require.NoError(t, d.SetAckRetryDelay(AckRetryDelayWait1000us))
		require.NoError(t, d.SetAckRetryDelay(AckRetryDelayUseAckPacket))

		length, _ := d.AckPayloadLength()
		assert.Equal(t, AckPayloadLength32Bytes, length)
		assert.Equal(t, uint16(0xA0), dev.lastControl().Value)
	})

	t.Run("retry delay fallback", func(t *testing.T) {
		d, dev := openTestDriver(t, bcdFastScan)

		require.NoError(t, d.SetAckPayloadLength(AckPayloadLengthUseRetryDelay))

		delay, _ := d.AckRetryDelay()
		assert.Equal(t, FallbackAckRetryDelay, delay)
		length, _ := d.AckPayloadLength()
		assert.Equal(t, AckPayloadLengthUseRetryDelay, length)
		assert.Equal(t, uint16(FallbackAckRetryDelay), dev.lastControl().Value)
	})

	t.Run("retry delay default", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Defaults.AckRetryDelay = AckRetryDelayWait500us
		cfg.Defaults.AckPayloadLength = AckPayloadLengthUseRetryDelay
		d, _ := openTestDriver(t, bcdFastScan, WithConfig(cfg))

		require.NoError(t, d.SetAckPayloadLength(AckPayloadLength16Bytes))
		require.NoError(t, d.SetAckPayloadLength(AckPayloadLengthUseRetryDelay))

		delay, _ := d.AckRetryDelay()
		assert.Equal(t, AckRetryDelayWait500us, delay)
	})
}

func TestSettersUseTheirOwnRequests(t *testing.T) {
	d, dev := openTestDriver(t, bcdFastScan)

	require.NoError(t, d.SetPowerLevel(PowerLevelMinus12dBm))
	assert.Equal(t, RequestSetPowerLevel, dev.lastControl().Request)
	assert.Equal(t, uint16(1), dev.lastControl().Value)

	require.NoError(t, d.SetAckRetryCount(15))
	assert.Equal(t, RequestSetAckRetryCount, dev.lastControl().Request)

	require.NoError(t, d.SetMode(ModeContinuousCarrier))
	assert.Equal(t, RequestSetContinuousCarrierMode, dev.lastControl().Request)
	assert.Equal(t, uint16(1), dev.lastControl().Value)

	require.NoError(t, d.SetAckMode(AckModeAutoAckOff))
	assert.Equal(t, RequestSetAutoAckEnabled, dev.lastControl().Request)
	assert.Equal(t, uint16(0), dev.lastControl().Value)

	addr := RadioAddress{1, 2, 3, 4, 5}
	require.NoError(t, d.SetAddress(addr))
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, dev.lastControl().Data)

	got, ok := d.Address()
	assert.True(t, ok)
	assert.Equal(t, addr, got)
}

func TestSetterWriteThenCommit(t *testing.T) {
	d, dev := openTestDriver(t, bcdFastScan)
	dev.failControl = func(c controlCall) error { return errPipe }

	err := d.SetChannel(99)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.ErrorIs(t, err, errPipe)
	ch, _ := d.Channel()
	assert.Equal(t, RadioChannel(2), ch)

	assert.Error(t, d.SetAckRetryDelay(AckRetryDelayWait1000us))
	delay, _ := d.AckRetryDelay()
	length, _ := d.AckPayloadLength()
	assert.Equal(t, AckRetryDelayUseAckPacket, delay)
	assert.Equal(t, AckPayloadLength32Bytes, length)
}

func TestSettersRejectInvalidValues(t *testing.T) {
	d, dev := openTestDriver(t, bcdFastScan)

	tests := []struct {
		name string
		set  func() error
	}{
		{"channel", func() error { return d.SetChannel(126) }},
		{"data rate", func() error { return d.SetDataRate(3) }},
		{"power level", func() error { return d.SetPowerLevel(4) }},
		{"mode", func() error { return d.SetMode(2) }},
		{"ack mode", func() error { return d.SetAckMode(2) }},
		{"ack retry count", func() error { return d.SetAckRetryCount(16) }},
		{"ack retry delay high", func() error { return d.SetAckRetryDelay(0x10) }},
		{"ack retry delay negative", func() error { return d.SetAckRetryDelay(-2) }},
		{"ack payload length no flag", func() error { return d.SetAckPayloadLength(0x1F) }},
		{"ack payload length too long", func() error { return d.SetAckPayloadLength(0xA1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.set(), ErrInvalidConfiguration)
		})
	}
	assert.Empty(t, dev.controls)
}

func TestSettersRequireOpen(t *testing.T) {
	d, dev := newTestDriver(t, bcdFastScan)

	assert.ErrorIs(t, d.SetChannel(10), ErrNotOpen)
	assert.ErrorIs(t, d.SetAckPayloadLength(AckPayloadLength1Byte), ErrNotOpen)
	assert.ErrorIs(t, d.ResetToDefaults(), ErrNotOpen)
	assert.ErrorIs(t, d.ApplySettings(DefaultSettings()), ErrNotOpen)
	assert.Zero(t, dev.transfers())
}

func TestResetToDefaults(t *testing.T) {
	d, _ := openTestDriver(t, bcdFastScan)

	require.NoError(t, d.SetChannel(100))
	require.NoError(t, d.SetDataRate(DataRate250K))
	require.NoError(t, d.ResetToDefaults())

	assert.Equal(t, DefaultSettings(), d.Settings())
}

func TestApplySettings(t *testing.T) {
	d, _ := openTestDriver(t, bcdFastScan)

	s := DefaultSettings()
	s.Channel = 80
	s.DataRate = DataRate250K
	s.AckRetryDelay = AckRetryDelayWait750us
	s.AckPayloadLength = AckPayloadLengthUseRetryDelay
	require.NoError(t, d.ApplySettings(s))
	assert.Equal(t, s, d.Settings())

	s.AckPayloadLength = AckPayloadLength10Bytes
	assert.ErrorIs(t, d.ApplySettings(s), ErrInvalidConfiguration)
}

func TestSendDataNotOpen(t *testing.T) {
	d, dev := newTestDriver(t, bcdFastScan)

	resp, err := d.SendData(context.Background(), []byte{0xFF})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.Zero(t, dev.transfers())
}

func TestSendData(t *testing.T) {
	d, dev := openTestDriver(t, bcdFastScan)
	dev.ackOn = func(rate DataRate, ch RadioChannel) bool { return rate == DataRate2M && ch == 2 }

	resp, err := d.SendData(context.Background(), []byte{0xFF})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, resp)
	assert.Equal(t, [][]byte{{0xFF}}, dev.writes)

	require.NoError(t, d.SetChannel(3))
	resp, err = d.SendData(context.Background(), []byte{0xFF})
	assert.NoError(t, err)
	assert.Nil(t, resp, "a read timeout is no acknowledgement")
}

func TestSendDataErrors(t *testing.T) {
	t.Run("write", func(t *testing.T) {
		d, dev := openTestDriver(t, bcdFastScan)
		dev.writeErr = errPipe

		_, err := d.SendData(context.Background(), []byte{0xFF})
		var transferErr *TransferError
		require.ErrorAs(t, err, &transferErr)
		assert.Equal(t, "write data", transferErr.Op)
		assert.Zero(t, dev.reads)
	})

	t.Run("read", func(t *testing.T) {
		d, dev := openTestDriver(t, bcdFastScan)
		dev.readErr = errPipe

		_, err := d.SendData(context.Background(), []byte{0xFF})
		assert.ErrorIs(t, err, ErrTransferFailed)
	})

	t.Run("canceled", func(t *testing.T) {
		d, _ := openTestDriver(t, bcdFastScan)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := d.SendData(ctx, []byte{0xFF})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, ErrTransferFailed))
	})
}

func TestDriverAsMessengerTransport(t *testing.T) {
	d, dev := openTestDriver(t, bcdFastScan)
	m := crtp.NewMessenger(d, crtp.WithMessengerLogger(quietLogger()))

	_, err := m.Ping(context.Background(), crtp.Channel0)
	assert.ErrorIs(t, err, crtp.ErrNoAcknowledgement)

	dev.ackOn = func(DataRate, RadioChannel) bool { return true }
	ack, err := m.Ping(context.Background(), crtp.Channel0)
	require.NoError(t, err)
	assert.True(t, ack.Header().AckReceived())
}

func TestLaunchBootloader(t *testing.T) {
	d, dev := openTestDriver(t, bcdFastScan)

	require.NoError(t, d.LaunchBootloader())
	assert.Equal(t, RequestLaunchBootloader, dev.lastControl().Request)
	assert.False(t, d.IsOpen())
}
