package crazyradio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// setting is a register value the driver has pushed to the dongle. ok is
// false until the first successful write.
type setting[T any] struct {
	value T
	ok    bool
}

func (s *setting[T]) set(v T) {
	s.value = v
	s.ok = true
}

func (s setting[T]) get() (T, bool) {
	return s.value, s.ok
}

// Driver owns one Crazyradio dongle. Every USB transfer, configuration
// change included, runs under a single mutex.
type Driver struct {
	mu       sync.Mutex
	dev      Device
	info     DeviceInfo
	cfg      Config
	log      logrus.FieldLogger
	firmware FirmwareVersion

	in   InEndpoint
	out  OutEndpoint
	open bool

	mode             setting[Mode]
	channel          setting[RadioChannel]
	address          setting[RadioAddress]
	dataRate         setting[DataRate]
	powerLevel       setting[PowerLevel]
	ackMode          setting[AckMode]
	ackRetryCount    setting[AckRetryCount]
	ackRetryDelay    setting[AckRetryDelay]
	ackPayloadLength setting[AckPayloadLength]
}

// NewDriver verifies that dev is a Crazyradio with supported firmware and
// returns a closed driver for it. A device handle that is already open is
// closed first.
func NewDriver(dev Device, opts ...Option) (*Driver, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrDeviceIdentityMismatch)
	}

	info := dev.Info()
	if info.VendorID != VendorID || info.ProductID != ProductID {
		return nil, fmt.Errorf("%w: vendor %04x product %04x", ErrDeviceIdentityMismatch, info.VendorID, info.ProductID)
	}

	firmware := FirmwareVersionFromBCD(info.BCDDevice)
	if !firmware.AtLeast(MinimumFirmware) {
		return nil, fmt.Errorf("%w: firmware %s is older than %s", ErrDeviceIdentityMismatch, firmware, MinimumFirmware)
	}

	d := &Driver{
		dev:      dev,
		info:     info,
		cfg:      DefaultConfig(),
		log:      logrus.StandardLogger(),
		firmware: firmware,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}
	d.log = d.log.WithField("serial", info.Serial)

	if dev.IsOpen() {
		if err := dev.Close(); err != nil {
			return nil, fmt.Errorf("failed to reset device handle: %w", err)
		}
	}

	return d, nil
}

// Open claims the dongle and pushes the configuration to it: the values set
// during an earlier session, or the configured defaults on first use.
func (d *Driver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil
	}

	if err := d.dev.Open(); err != nil {
		d.dev.Close()
		return &TransferError{Op: "open device", Err: err}
	}

	in, err := d.dev.InEndpoint(DataEndpointNum)
	if err != nil {
		d.dev.Close()
		return &TransferError{Op: "open IN endpoint", Err: err}
	}
	out, err := d.dev.OutEndpoint(DataEndpointNum)
	if err != nil {
		d.dev.Close()
		return &TransferError{Op: "open OUT endpoint", Err: err}
	}

	d.in = in
	d.out = out
	d.open = true

	if err := d.applyLocked(d.pendingSettings()); err != nil {
		d.closeLocked()
		return err
	}

	d.log.Debugf("opened %s", d.describe())
	return nil
}

// Close releases the endpoints and the device handle. Closing a closed
// driver is not an error.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *Driver) closeLocked() error {
	d.in = nil
	d.out = nil
	wasOpen := d.open
	d.open = false

	if err := d.dev.Close(); err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	if wasOpen {
		d.log.Debug("closed")
	}
	return nil
}

// IsOpen reports whether the driver can transfer data.
func (d *Driver) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// ResetToDefaults pushes the configured defaults to the dongle.
func (d *Driver) ResetToDefaults() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ErrNotOpen
	}
	return d.applyLocked(d.cfg.Defaults)
}

// ApplySettings validates s and pushes every field to the dongle.
func (d *Driver) ApplySettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ErrNotOpen
	}
	return d.applyLocked(s)
}

// pendingSettings overlays the values already written on the defaults.
func (d *Driver) pendingSettings() Settings {
	s := d.cfg.Defaults
	if v, ok := d.mode.get(); ok {
		s.Mode = v
	}
	if v, ok := d.channel.get(); ok {
		s.Channel = v
	}
	if v, ok := d.address.get(); ok {
		s.Address = v
	}
	if v, ok := d.dataRate.get(); ok {
		s.DataRate = v
	}
	if v, ok := d.powerLevel.get(); ok {
		s.PowerLevel = v
	}
	if v, ok := d.ackMode.get(); ok {
		s.AckMode = v
	}
	if v, ok := d.ackRetryCount.get(); ok {
		s.AckRetryCount = v
	}
	// The two ack fields are always written together.
	if d.ackRetryDelay.ok && d.ackPayloadLength.ok {
		s.AckRetryDelay = d.ackRetryDelay.value
		s.AckPayloadLength = d.ackPayloadLength.value
	}
	return s
}

func (d *Driver) applyLocked(s Settings) error {
	steps := []func() error{
		func() error { return d.setModeLocked(s.Mode) },
		func() error { return d.setChannelLocked(s.Channel) },
		func() error { return d.setAddressLocked(s.Address) },
		func() error { return d.setDataRateLocked(s.DataRate) },
		func() error { return d.setPowerLevelLocked(s.PowerLevel) },
		func() error { return d.setAckModeLocked(s.AckMode) },
		func() error { return d.setAckRetryCountLocked(s.AckRetryCount) },
		func() error {
			if s.AckRetryDelay.IsSentinel() {
				return d.setAckPayloadLengthLocked(s.AckPayloadLength)
			}
			return d.setAckRetryDelayLocked(s.AckRetryDelay)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// controlOut issues a vendor OUT request. Callers commit the new value only
// when it returns nil.
func (d *Driver) controlOut(req Request, value, index uint16, data []byte) error {
	d.log.Debugf("control out %s value=%#x index=%#x len=%d", req, value, index, len(data))

	if _, err := d.dev.Control(RequestTypeVendorOut, uint8(req), value, index, data); err != nil {
		d.log.Errorf("control out %s failed: %v", req, err)
		return &TransferError{Op: fmt.Sprintf("%s(%#x)", req, value), Err: err}
	}
	return nil
}

func (d *Driver) controlIn(req Request, value, index uint16, buf []byte) (int, error) {
	n, err := d.dev.Control(RequestTypeVendorIn, uint8(req), value, index, buf)
	if err != nil {
		d.log.Errorf("control in %s failed: %v", req, err)
		return 0, &TransferError{Op: req.String(), Err: err}
	}
	d.log.Debugf("control in %s returned %d bytes", req, n)
	return n, nil
}

// Setters

func (d *Driver) SetMode(m Mode) error {
	if !m.Valid() {
		return invalid("mode %v", m)
	}
	return d.locked(func() error { return d.setModeLocked(m) })
}

func (d *Driver) SetChannel(c RadioChannel) error {
	if !c.Valid() {
		return invalid("channel %d above %d", c, MaxRadioChannel)
	}
	return d.locked(func() error { return d.setChannelLocked(c) })
}

func (d *Driver) SetAddress(a RadioAddress) error {
	return d.locked(func() error { return d.setAddressLocked(a) })
}

func (d *Driver) SetDataRate(r DataRate) error {
	if !r.Valid() {
		return invalid("data rate %v", r)
	}
	return d.locked(func() error { return d.setDataRateLocked(r) })
}

func (d *Driver) SetPowerLevel(p PowerLevel) error {
	if !p.Valid() {
		return invalid("power level %v", p)
	}
	return d.locked(func() error { return d.setPowerLevelLocked(p) })
}

func (d *Driver) SetAckMode(m AckMode) error {
	if !m.Valid() {
		return invalid("ack mode %v", m)
	}
	return d.locked(func() error { return d.setAckModeLocked(m) })
}

func (d *Driver) SetAckRetryCount(c AckRetryCount) error {
	if !c.Valid() {
		return invalid("ack retry count %d above %d", c, MaxAckRetryCount)
	}
	return d.locked(func() error { return d.setAckRetryCountLocked(c) })
}

// SetAckRetryDelay selects a fixed retransmit delay and marks the ack
// payload length as unused. AckRetryDelayUseAckPacket switches back to the
// configured default payload length.
func (d *Driver) SetAckRetryDelay(delay AckRetryDelay) error {
	if !delay.Valid() {
		return invalid("ack retry delay %v", delay)
	}
	return d.locked(func() error { return d.setAckRetryDelayLocked(delay) })
}

// SetAckPayloadLength derives the retransmit delay from the ack payload size
// and marks the retry delay as unused. AckPayloadLengthUseRetryDelay
// switches back to the configured default delay.
func (d *Driver) SetAckPayloadLength(length AckPayloadLength) error {
	if !length.Valid() {
		return invalid("ack payload length %v", length)
	}
	return d.locked(func() error { return d.setAckPayloadLengthLocked(length) })
}

func (d *Driver) locked(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ErrNotOpen
	}
	return fn()
}

func (d *Driver) setModeLocked(m Mode) error {
	var enable uint16
	if m == ModeContinuousCarrier {
		enable = 1
	}
	if err := d.controlOut(RequestSetContinuousCarrierMode, enable, 0, nil); err != nil {
		return err
	}
	d.mode.set(m)
	return nil
}

func (d *Driver) setChannelLocked(c RadioChannel) error {
	if err := d.controlOut(RequestSetChannel, uint16(c), 0, nil); err != nil {
		return err
	}
	d.channel.set(c)
	return nil
}

func (d *Driver) setAddressLocked(a RadioAddress) error {
	if err := d.controlOut(RequestSetAddress, 0, 0, a.Bytes()); err != nil {
		return err
	}
	d.address.set(a)
	return nil
}

func (d *Driver) setDataRateLocked(r DataRate) error {
	if err := d.controlOut(RequestSetDataRate, uint16(r), 0, nil); err != nil {
		return err
	}
	d.dataRate.set(r)
	return nil
}

func (d *Driver) setPowerLevelLocked(p PowerLevel) error {
	if err := d.controlOut(RequestSetPowerLevel, uint16(p), 0, nil); err != nil {
		return err
	}
	d.powerLevel.set(p)
	return nil
}

func (d *Driver) setAckModeLocked(m AckMode) error {
	var enable uint16
	if m == AckModeAutoAckOn {
		enable = 1
	}
	if err := d.controlOut(RequestSetAutoAckEnabled, enable, 0, nil); err != nil {
		return err
	}
	d.ackMode.set(m)
	return nil
}

func (d *Driver) setAckRetryCountLocked(c AckRetryCount) error {
	if err := d.controlOut(RequestSetAckRetryCount, uint16(c), 0, nil); err != nil {
		return err
	}
	d.ackRetryCount.set(c)
	return nil
}

func (d *Driver) setAckRetryDelayLocked(delay AckRetryDelay) error {
	if delay.IsSentinel() {
		length := d.cfg.Defaults.AckPayloadLength
		if length.IsSentinel() {
			length = FallbackAckPayloadLength
		}
		return d.setAckPayloadLengthLocked(length)
	}

	if err := d.controlOut(RequestSetAckRetryDelay, uint16(delay), 0, nil); err != nil {
		return err
	}
	d.ackRetryDelay.set(delay)
	d.ackPayloadLength.set(AckPayloadLengthUseRetryDelay)
	return nil
}

// Both mechanisms share the firmware's retry delay register; bit 7 selects
// the payload length encoding.
func (d *Driver) setAckPayloadLengthLocked(length AckPayloadLength) error {
	if length.IsSentinel() {
		delay := d.cfg.Defaults.AckRetryDelay
		if delay.IsSentinel() {
			delay = FallbackAckRetryDelay
		}
		return d.setAckRetryDelayLocked(delay)
	}

	if err := d.controlOut(RequestSetAckRetryDelay, uint16(length), 0, nil); err != nil {
		return err
	}
	d.ackPayloadLength.set(length)
	d.ackRetryDelay.set(AckRetryDelayUseAckPacket)
	return nil
}

// Getters report false until the value has been written to the dongle.

func (d *Driver) Mode() (Mode, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode.get()
}

func (d *Driver) Channel() (RadioChannel, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel.get()
}

func (d *Driver) Address() (RadioAddress, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.address.get()
}

func (d *Driver) DataRate() (DataRate, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dataRate.get()
}

func (d *Driver) PowerLevel() (PowerLevel, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.powerLevel.get()
}

func (d *Driver) AckMode() (AckMode, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ackMode.get()
}

func (d *Driver) AckRetryCount() (AckRetryCount, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ackRetryCount.get()
}

func (d *Driver) AckRetryDelay() (AckRetryDelay, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ackRetryDelay.get()
}

func (d *Driver) AckPayloadLength() (AckPayloadLength, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ackPayloadLength.get()
}

// Settings returns the current configuration. Fields never written yet hold
// the configured defaults.
func (d *Driver) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pendingSettings()
}

// SendData writes one packet to the data endpoint and returns the
// acknowledgement bytes. A nil response with a nil error means no
// acknowledgement arrived before the ack timeout.
func (d *Driver) SendData(ctx context.Context, data []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil, ErrNotOpen
	}
	return d.sendLocked(ctx, data)
}

func (d *Driver) sendLocked(ctx context.Context, data []byte) ([]byte, error) {
	writeCtx, cancel := context.WithTimeout(ctx, d.cfg.WriteTimeout)
	n, err := d.out.WriteContext(writeCtx, data)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransferError{Op: "write data", Err: err}
	}
	if n != len(data) {
		return nil, &TransferError{Op: "write data", Err: fmt.Errorf("short write: %d of %d bytes", n, len(data))}
	}

	buf := make([]byte, AckBufferSize)
	readCtx, cancel := context.WithTimeout(ctx, d.cfg.AckTimeout)
	n, err = d.in.ReadContext(readCtx, buf)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrTimeout) {
			return nil, nil
		}
		return nil, &TransferError{Op: "read ack", Err: err}
	}
	if n == 0 {
		return nil, nil
	}

	return buf[:n], nil
}

// LaunchBootloader restarts the dongle into its bootloader. The driver is
// closed afterwards since the device re-enumerates.
func (d *Driver) LaunchBootloader() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ErrNotOpen
	}
	if err := d.controlOut(RequestLaunchBootloader, 0, 0, nil); err != nil {
		return err
	}
	return d.closeLocked()
}

// Info returns the USB identity captured at enumeration.
func (d *Driver) Info() DeviceInfo { return d.info }

func (d *Driver) Serial() string { return d.info.Serial }

func (d *Driver) FirmwareVersion() FirmwareVersion { return d.firmware }

func (d *Driver) String() string { return d.describe() }

func (d *Driver) describe() string {
	return fmt.Sprintf("Crazyradio %s (firmware %s) at bus %d address %d", d.info.Serial, d.firmware, d.info.Bus, d.info.Address)
}
