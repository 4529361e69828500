// radio-reset resets Crazyradio dongles to recover from USB errors
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/gousb"
	"github.com/herlein/gocrazy/pkg/crazyradio"
	"github.com/sirupsen/logrus"
)

func main() {
	bootloader := flag.Bool("bootloader", false, "Launch the bootloader instead of a USB reset")
	deviceSel := flag.String("d", "", crazyradio.DeviceFlagUsage())
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := gousb.NewContext()
	defer ctx.Close()

	if *bootloader {
		if err := launchBootloader(ctx, crazyradio.DeviceSelector(*deviceSel)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Try multiple times to find devices
	for attempt := 0; attempt < 3; attempt++ {
		devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
			return desc.Vendor == crazyradio.VendorID && desc.Product == crazyradio.ProductID
		})

		if err != nil && len(devs) == 0 {
			fmt.Printf("Attempt %d: Error finding devices: %v\n", attempt+1, err)
			time.Sleep(time.Second)
			continue
		}

		if len(devs) == 0 {
			fmt.Printf("Attempt %d: No devices found\n", attempt+1)
			time.Sleep(time.Second)
			continue
		}

		fmt.Printf("Found %d device(s)\n", len(devs))
		for i, dev := range devs {
			serial, _ := dev.SerialNumber()
			fmt.Printf("  Device %d: %s\n", i, serial)

			// Reset the device
			if err := dev.Reset(); err != nil {
				fmt.Printf("    Reset failed: %v\n", err)
			} else {
				fmt.Printf("    Reset OK\n")
			}
			dev.Close()
		}
		os.Exit(0)
	}

	fmt.Println("Failed to find/reset devices after 3 attempts")
	os.Exit(1)
}

func launchBootloader(ctx *gousb.Context, selector crazyradio.DeviceSelector) error {
	driver, err := crazyradio.SelectDevice(ctx, selector)
	if err != nil {
		return err
	}
	if err := driver.Open(); err != nil {
		return fmt.Errorf("failed to open %s: %w", driver, err)
	}
	defer driver.Close()

	if err := driver.LaunchBootloader(); err != nil {
		return fmt.Errorf("failed to launch bootloader: %w", err)
	}
	fmt.Printf("%s restarted into its bootloader\n", driver.Serial())
	return nil
}
