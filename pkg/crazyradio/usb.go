package crazyradio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/gousb"
	"github.com/sirupsen/logrus"
)

// usbDevice implements Device on top of gousb. The handle is reopened by
// bus and address after Close, so a driver can be opened again.
type usbDevice struct {
	context *gousb.Context
	info    DeviceInfo

	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface
}

func isCrazyradio(desc *gousb.DeviceDesc) bool {
	return desc.Vendor == gousb.ID(VendorID) && desc.Product == gousb.ID(ProductID)
}

func wrapDevice(context *gousb.Context, usbDev *gousb.Device) *usbDevice {
	manufacturer, _ := usbDev.Manufacturer()
	product, _ := usbDev.Product()
	serial, _ := usbDev.SerialNumber()

	desc := usbDev.Desc
	return &usbDevice{
		context:   context,
		usbDevice: usbDev,
		info: DeviceInfo{
			VendorID:     uint16(desc.Vendor),
			ProductID:    uint16(desc.Product),
			BCDDevice:    uint16(desc.Device),
			Serial:       serial,
			Manufacturer: manufacturer,
			Product:      product,
			Bus:          desc.Bus,
			Address:      desc.Address,
		},
	}
}

func (u *usbDevice) Info() DeviceInfo { return u.info }

func (u *usbDevice) IsOpen() bool { return u.usbDevice != nil }

func (u *usbDevice) Open() error {
	if u.usbInterface != nil {
		return nil
	}
	if u.usbDevice == nil {
		if err := u.reopen(); err != nil {
			return err
		}
	}

	u.usbDevice.SetAutoDetach(true)
	u.usbDevice.ControlTimeout = ControlTimeout

	config, err := u.usbDevice.Config(ConfigurationNum)
	if err != nil {
		return fmt.Errorf("failed to set configuration %d: %w", ConfigurationNum, err)
	}

	iface, err := config.Interface(InterfaceNum, AltSettingNum)
	if err != nil {
		config.Close()
		return fmt.Errorf("failed to claim interface %d: %w", InterfaceNum, err)
	}

	u.usbConfig = config
	u.usbInterface = iface
	return nil
}

// reopen finds the same physical dongle again by bus and address.
func (u *usbDevice) reopen() error {
	devices, err := u.context.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return isCrazyradio(desc) && desc.Bus == u.info.Bus && desc.Address == u.info.Address
	})
	if len(devices) == 0 {
		if err != nil {
			return fmt.Errorf("failed to reopen device at %d:%d: %w", u.info.Bus, u.info.Address, err)
		}
		return fmt.Errorf("%w at bus %d address %d", ErrDeviceNotFound, u.info.Bus, u.info.Address)
	}
	for _, extra := range devices[1:] {
		extra.Close()
	}
	u.usbDevice = devices[0]
	return nil
}

func (u *usbDevice) Close() error {
	if u.usbInterface != nil {
		u.usbInterface.Close()
		u.usbInterface = nil
	}
	var errs []error
	if u.usbConfig != nil {
		errs = append(errs, u.usbConfig.Close())
		u.usbConfig = nil
	}
	if u.usbDevice != nil {
		errs = append(errs, u.usbDevice.Close())
		u.usbDevice = nil
	}
	return errors.Join(errs...)
}

func (u *usbDevice) Control(requestType uint8, request uint8, value uint16, index uint16, data []byte) (int, error) {
	if u.usbDevice == nil {
		return 0, ErrNotOpen
	}
	return u.usbDevice.Control(requestType, request, value, index, data)
}

func (u *usbDevice) InEndpoint(num int) (InEndpoint, error) {
	if u.usbInterface == nil {
		return nil, ErrNotOpen
	}
	ep, err := u.usbInterface.InEndpoint(num)
	if err != nil {
		return nil, err
	}
	return usbInEndpoint{ep: ep}, nil
}

func (u *usbDevice) OutEndpoint(num int) (OutEndpoint, error) {
	if u.usbInterface == nil {
		return nil, ErrNotOpen
	}
	ep, err := u.usbInterface.OutEndpoint(num)
	if err != nil {
		return nil, err
	}
	return usbOutEndpoint{ep: ep}, nil
}

type usbInEndpoint struct {
	ep *gousb.InEndpoint
}

func (e usbInEndpoint) ReadContext(ctx context.Context, buf []byte) (int, error) {
	n, err := e.ep.ReadContext(ctx, buf)
	if err != nil && isTimeout(ctx, err) {
		return n, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return n, err
}

type usbOutEndpoint struct {
	ep *gousb.OutEndpoint
}

func (e usbOutEndpoint) WriteContext(ctx context.Context, buf []byte) (int, error) {
	n, err := e.ep.WriteContext(ctx, buf)
	if err != nil && isTimeout(ctx, err) {
		return n, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return n, err
}

// isTimeout reports whether err is libusb giving up on a transfer rather
// than a real pipe failure.
func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, gousb.ErrorTimeout) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "cancel")
}

// FindAll returns a driver for every attached Crazyradio. Dongles whose
// firmware is too old are skipped with a warning.
func FindAll(context *gousb.Context, opts ...Option) ([]*Driver, error) {
	usbDevices, err := context.OpenDevices(isCrazyradio)
	if err != nil && len(usbDevices) == 0 {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	drivers := make([]*Driver, 0, len(usbDevices))
	for _, usbDev := range usbDevices {
		dev := wrapDevice(context, usbDev)
		driver, err := NewDriver(dev, opts...)
		if err != nil {
			dev.Close()
			logrus.WithField("serial", dev.info.Serial).Warnf("skipping dongle: %v", err)
			continue
		}
		drivers = append(drivers, driver)
	}
	return drivers, nil
}
