package crazyradio

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	bcdManualScan = 0x0030 // 0.3.0, no on-device scan
	bcdFastScan   = 0x0053 // 0.5.3
)

var errPipe = errors.New("libusb: pipe error [code -9]")

type controlCall struct {
	RequestType uint8
	Request     Request
	Value       uint16
	Index       uint16
	Data        []byte
}

// fakeDevice models a dongle and a single Crazyflie in range. ackOn decides
// which rate and channel combinations acknowledge a packet.
type fakeDevice struct {
	info   DeviceInfo
	opened bool

	openErr    error
	closeErr   error
	inErr      error
	writeErr   error
	readErr    error
	closeCalls int

	// failControl returns a non-nil error to make that control transfer fail.
	failControl func(call controlCall) error

	controls []controlCall
	writes   [][]byte
	reads    int

	ackOn      func(rate DataRate, ch RadioChannel) bool
	rate       DataRate
	channel    RadioChannel
	acked      bool
	scanResult []byte
}

func newFakeDevice(bcd uint16) *fakeDevice {
	return &fakeDevice{
		info: DeviceInfo{
			VendorID:  VendorID,
			ProductID: ProductID,
			BCDDevice: bcd,
			Serial:    "E1E5C0F3A2",
			Bus:       1,
			Address:   7,
		},
		ackOn: func(DataRate, RadioChannel) bool { return false },
	}
}

func (f *fakeDevice) transfers() int {
	return len(f.controls) + len(f.writes) + f.reads
}

func (f *fakeDevice) lastControl() controlCall {
	return f.controls[len(f.controls)-1]
}

func (f *fakeDevice) controlsFor(req Request) []controlCall {
	var calls []controlCall
	for _, c := range f.controls {
		if c.Request == req {
			calls = append(calls, c)
		}
	}
	return calls
}

func (f *fakeDevice) Info() DeviceInfo { return f.info }

func (f *fakeDevice) IsOpen() bool { return f.opened }

func (f *fakeDevice) Open() error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = true
	return nil
}

func (f *fakeDevice) Close() error {
	f.closeCalls++
	f.opened = false
	return f.closeErr
}

func (f *fakeDevice) Control(requestType uint8, request uint8, value uint16, index uint16, data []byte) (int, error) {
	call := controlCall{
		RequestType: requestType,
		Request:     Request(request),
		Value:       value,
		Index:       index,
		Data:        append([]byte(nil), data...),
	}
	f.controls = append(f.controls, call)

	if f.failControl != nil {
		if err := f.failControl(call); err != nil {
			return 0, err
		}
	}

	switch {
	case call.Request == RequestSetChannel:
		f.channel = RadioChannel(value)
	case call.Request == RequestSetDataRate:
		f.rate = DataRate(value)
	case call.Request == RequestScanChannels && requestType == RequestTypeVendorOut:
		f.scanResult = f.scanResult[:0]
		for ch := int(value); ch <= int(index); ch++ {
			if f.ackOn(f.rate, RadioChannel(ch)) {
				f.scanResult = append(f.scanResult, byte(ch))
			}
		}
		f.channel = RadioChannel(index)
	case call.Request == RequestScanChannels && requestType == RequestTypeVendorIn:
		for i := range data {
			data[i] = 0
		}
		copy(data, f.scanResult)
		return len(data), nil
	}
	return len(data), nil
}

func (f *fakeDevice) InEndpoint(num int) (InEndpoint, error) {
	if !f.opened {
		return nil, ErrNotOpen
	}
	if f.inErr != nil {
		return nil, f.inErr
	}
	return fakeIn{f}, nil
}

func (f *fakeDevice) OutEndpoint(num int) (OutEndpoint, error) {
	if !f.opened {
		return nil, ErrNotOpen
	}
	return fakeOut{f}, nil
}

type fakeIn struct{ f *fakeDevice }

func (e fakeIn) ReadContext(ctx context.Context, buf []byte) (int, error) {
	e.f.reads++
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if e.f.readErr != nil {
		return 0, e.f.readErr
	}
	if !e.f.acked {
		return 0, ErrTimeout
	}
	buf[0] = 0x01
	return 1, nil
}

type fakeOut struct{ f *fakeDevice }

func (e fakeOut) WriteContext(ctx context.Context, buf []byte) (int, error) {
	e.f.writes = append(e.f.writes, append([]byte(nil), buf...))
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if e.f.writeErr != nil {
		return 0, e.f.writeErr
	}
	e.f.acked = e.f.ackOn(e.f.rate, e.f.channel)
	return len(buf), nil
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestDriver returns a closed driver on a fresh fake device.
func newTestDriver(t *testing.T, bcd uint16, opts ...Option) (*Driver, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice(bcd)
	d, err := NewDriver(dev, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return d, dev
}

// openTestDriver returns an open driver with the recorded transfers cleared.
func openTestDriver(t *testing.T, bcd uint16, opts ...Option) (*Driver, *fakeDevice) {
	t.Helper()
	d, dev := newTestDriver(t, bcd, opts...)
	require.NoError(t, d.Open())
	dev.controls = nil
	return d, dev
}
