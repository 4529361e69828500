// radio-ping: Find a Crazyflie and exchange packets with it
//
// This tool opens a Crazyradio, optionally scans for a Crazyflie, then sends
// ping (or commander) packets in a loop and prints every acknowledgement.
//
// Examples:
//
//	# Scan, then ping the first Crazyflie found
//	./radio-ping -scan
//
//	# Ping a known link 20 times
//	./radio-ping -channel 80 -rate 2M -count 20
//
//	# Ping at low transmit power on channel 80
//	./radio-ping -profile bench-ch2 -channel 80
//
//	# Apply a saved dongle profile, then send a zero-thrust setpoint
//	./radio-ping -c etc/crazyradios/E1E5C0F3A2.json -commander -thrust 0
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gousb"
	"github.com/herlein/gocrazy/pkg/config"
	"github.com/herlein/gocrazy/pkg/crazyradio"
	"github.com/herlein/gocrazy/pkg/crtp"
	"github.com/herlein/gocrazy/pkg/profiles"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse command line flags
	deviceSel := flag.String("d", "", crazyradio.DeviceFlagUsage())
	configPath := flag.String("c", "", "Profile to apply before sending (optional)")
	profileName := flag.String("profile", "", "Built-in profile to apply before sending (optional)")
	scan := flag.Bool("scan", false, "Scan for a Crazyflie and use the first link found")
	channel := flag.Int("channel", 2, "Radio channel (0-125), ignored with -scan")
	rate := flag.String("rate", "2M", "Data rate (250K, 1M or 2M), ignored with -scan")
	count := flag.Int("count", 0, "Number of packets to send (0 = until interrupted)")
	interval := flag.Duration("interval", 100*time.Millisecond, "Delay between packets")
	commander := flag.Bool("commander", false, "Send commander setpoints instead of pings")
	roll := flag.Float64("roll", 0, "Commander roll")
	pitch := flag.Float64("pitch", 0, "Commander pitch")
	yaw := flag.Float64("yaw", 0, "Commander yaw rate")
	thrust := flag.Uint("thrust", 0, "Commander thrust (0-65535)")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *thrust > 0xFFFF {
		fmt.Fprintln(os.Stderr, "Error: thrust must be 0-65535")
		os.Exit(1)
	}

	opts := options{
		selector:   crazyradio.DeviceSelector(*deviceSel),
		configPath: *configPath,
		profile:    *profileName,
		scan:       *scan,
		channel:    *channel,
		rate:       *rate,
		count:      *count,
		interval:   *interval,
		commander:  *commander,
		setpoint: crtp.CommanderPayload{
			Roll:   float32(*roll),
			Pitch:  float32(*pitch),
			Yaw:    float32(*yaw),
			Thrust: uint16(*thrust),
		},
	}

	if err := run(log, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	selector   crazyradio.DeviceSelector
	configPath string
	profile    string
	scan       bool
	channel    int
	rate       string
	count      int
	interval   time.Duration
	commander  bool
	setpoint   crtp.CommanderPayload
}

func run(log logrus.FieldLogger, opts options) error {
	usb := gousb.NewContext()
	defer usb.Close()

	driver, err := crazyradio.SelectDevice(usb, opts.selector, crazyradio.WithLogger(log))
	if err != nil {
		return err
	}
	if err := driver.Open(); err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer driver.Close()

	log.Infof("Connected to %s", driver)

	if opts.configPath != "" {
		profile, err := config.LoadFromFile(opts.configPath)
		if err != nil {
			return err
		}
		if err := config.ApplyToDriver(driver, profile); err != nil {
			return err
		}
		log.Infof("Applied profile %s", opts.configPath)
	}

	if opts.profile != "" {
		p, err := profiles.Get(opts.profile)
		if err != nil {
			return err
		}
		if err := driver.ApplySettings(p.Settings); err != nil {
			return err
		}
		log.Infof("Applied built-in profile %s", p.Name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := selectLink(ctx, log, driver, opts); err != nil {
		return err
	}

	messenger := crtp.NewMessenger(driver, crtp.WithMessengerLogger(log))
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	sent, acked := 0, 0
	for opts.count == 0 || sent < opts.count {
		var ack crtp.AckPacket
		if opts.commander {
			ack, err = messenger.SendCommander(ctx, crtp.Channel0, opts.setpoint)
		} else {
			ack, err = messenger.Ping(ctx, crtp.Channel0)
		}
		sent++

		switch {
		case ctx.Err() != nil:
			sent--
			fmt.Println("\nStopping...")
			goto done
		case errors.Is(err, crtp.ErrNoAcknowledgement):
			fmt.Printf("%4d  no acknowledgement\n", sent)
		case err != nil:
			return err
		default:
			acked++
			fmt.Printf("%4d  %s  %s\n", sent, ack.Header(), hex.EncodeToString(ack.Data()))
		}

		select {
		case <-ctx.Done():
			goto done
		case <-ticker.C:
		}
	}

done:
	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Sent:  %d\n", sent)
	fmt.Printf("Acked: %d\n", acked)
	return nil
}

// selectLink points the driver at the Crazyflie to talk to.
func selectLink(ctx context.Context, log logrus.FieldLogger, driver *crazyradio.Driver, opts options) error {
	if !opts.scan {
		rate, err := crazyradio.ParseDataRate(opts.rate)
		if err != nil {
			return err
		}
		if opts.channel < 0 || opts.channel > int(crazyradio.MaxRadioChannel) {
			return fmt.Errorf("channel must be 0-%d", crazyradio.MaxRadioChannel)
		}
		if err := driver.SetDataRate(rate); err != nil {
			return err
		}
		return driver.SetChannel(crazyradio.RadioChannel(opts.channel))
	}

	log.Info("Scanning for Crazyflies...")
	results, err := driver.ScanChannels(ctx, 0, crazyradio.MaxRadioChannel)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(results) == 0 {
		return errors.New("no Crazyflie found")
	}

	first := results[0]
	log.Infof("Found Crazyflie on channel %d at %s", first.Channels[0], first.DataRate)
	if err := driver.SetDataRate(first.DataRate); err != nil {
		return err
	}
	return driver.SetChannel(first.Channels[0])
}
