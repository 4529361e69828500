package crazyradio

import (
	"context"
	"errors"
	"fmt"
)

// ScanDataRate probes every channel from start to stop inclusive at one data
// rate. The driver's channel and data rate are restored afterwards, also
// when the scan fails.
func (d *Driver) ScanDataRate(ctx context.Context, rate DataRate, start, stop RadioChannel) (ScanResult, error) {
	if !rate.Valid() {
		return ScanResult{}, invalid("data rate %v", rate)
	}
	if err := checkScanRange(start, stop); err != nil {
		return ScanResult{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ScanResult{}, ErrNotOpen
	}
	return d.scanLocked(ctx, rate, start, stop)
}

// ScanChannels scans the range at 250K, 1M and 2M in that order and returns
// only the data rates where at least one channel answered.
func (d *Driver) ScanChannels(ctx context.Context, start, stop RadioChannel) ([]ScanResult, error) {
	if err := checkScanRange(start, stop); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil, ErrNotOpen
	}

	var results []ScanResult
	for _, rate := range DataRates {
		result, err := d.scanLocked(ctx, rate, start, stop)
		if err != nil {
			return results, err
		}
		if result.Found() {
			results = append(results, result)
		}
	}
	return results, nil
}

func checkScanRange(start, stop RadioChannel) error {
	if start > stop {
		return invalid("scan range start %d is above stop %d", start, stop)
	}
	if !stop.Valid() {
		return invalid("scan range stop %d above %d", stop, MaxRadioChannel)
	}
	return nil
}

func (d *Driver) scanLocked(ctx context.Context, rate DataRate, start, stop RadioChannel) (result ScanResult, err error) {
	savedChannel := d.channel
	savedRate := d.dataRate

	defer func() {
		if restoreErr := d.restoreLocked(savedChannel, savedRate); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to restore radio after scan: %w", restoreErr))
		}
	}()

	result = ScanResult{DataRate: rate}
	if err = ctx.Err(); err != nil {
		return result, err
	}
	if err = d.setDataRateLocked(rate); err != nil {
		return result, err
	}

	d.log.Debugf("scanning channels %d-%d at %s", start, stop, rate)
	if d.firmware.AtLeast(FastScanFirmware) {
		result.Channels, err = d.fastScanLocked(start, stop)
	} else {
		result.Channels, err = d.manualScanLocked(ctx, start, stop)
	}
	return result, err
}

// fastScanLocked lets the firmware probe the range and reads back the
// channels that answered. A zero byte marks an unused result slot.
func (d *Driver) fastScanLocked(start, stop RadioChannel) ([]RadioChannel, error) {
	if err := d.controlOut(RequestScanChannels, uint16(start), uint16(stop), scanProbe); err != nil {
		return nil, err
	}

	buf := make([]byte, ScanResultSize)
	n, err := d.controlIn(RequestScanChannels, 0, 0, buf)
	if err != nil {
		return nil, err
	}

	var channels []RadioChannel
	for _, b := range buf[:n] {
		if b != 0 {
			channels = append(channels, RadioChannel(b))
		}
	}
	return channels, nil
}

func (d *Driver) manualScanLocked(ctx context.Context, start, stop RadioChannel) ([]RadioChannel, error) {
	var channels []RadioChannel
	for ch := int(start); ch <= int(stop); ch++ {
		if err := ctx.Err(); err != nil {
			return channels, err
		}
		if err := d.setChannelLocked(RadioChannel(ch)); err != nil {
			return channels, err
		}

		ack, err := d.sendLocked(ctx, scanProbe)
		if err != nil {
			return channels, err
		}
		if len(ack) > 0 && ack[0]&0x01 != 0 {
			channels = append(channels, RadioChannel(ch))
		}
	}
	return channels, nil
}

// restoreLocked writes back the channel and data rate saved before a scan.
// Values that were never set are left alone.
func (d *Driver) restoreLocked(channel setting[RadioChannel], rate setting[DataRate]) error {
	var errs []error
	if v, ok := channel.get(); ok {
		errs = append(errs, d.setChannelLocked(v))
	}
	if v, ok := rate.get(); ok {
		errs = append(errs, d.setDataRateLocked(v))
	}
	return errors.Join(errs...)
}
