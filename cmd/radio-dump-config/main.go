// radio-dump-config: Dump Crazyradio configuration to JSON file
//
// This tool opens a Crazyradio, pushes the session settings to it, and saves
// them to a JSON profile. The profile can later be loaded using
// radio-load-config or radio-ping -c.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/gousb"
	"github.com/herlein/gocrazy/pkg/config"
	"github.com/herlein/gocrazy/pkg/crazyradio"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse command line flags
	outputFile := flag.String("o", "", "Output file path (default: etc/crazyradios/<serial>.json)")
	deviceSel := flag.String("d", "", crazyradio.DeviceFlagUsage())
	verbose := flag.Bool("v", false, "Verbose output")
	listOnly := flag.Bool("l", false, "List devices only, don't dump config")
	jsonOutput := flag.Bool("json", false, "Output config to stdout as JSON instead of file")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// Create USB context
	context := gousb.NewContext()
	defer context.Close()

	if *listOnly {
		listDevices(context)
		return
	}

	// Select device
	driver, err := crazyradio.SelectDevice(context, crazyradio.DeviceSelector(*deviceSel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := driver.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open device: %v\n", err)
		os.Exit(1)
	}
	defer driver.Close()

	if *verbose {
		fmt.Printf("Connected to: %s\n", driver)
	}

	profile, err := config.DumpFromDriver(driver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to dump configuration: %v\n", err)
		os.Exit(1)
	}

	// Output to stdout as JSON
	if *jsonOutput {
		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to marshal configuration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	// Determine output path
	path := *outputFile
	if path == "" {
		path = config.GetConfigPath(driver.Serial())
	}

	// Save to file
	if err := config.SaveToFile(profile, path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to save configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration saved to: %s\n", path)

	// Print summary
	if *verbose {
		printConfigSummary(profile)
	}
}

func listDevices(context *gousb.Context) {
	drivers, err := crazyradio.FindAll(context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to enumerate devices: %v\n", err)
		os.Exit(1)
	}

	if len(drivers) == 0 {
		fmt.Println("No Crazyradio dongles found")
		return
	}

	fmt.Printf("Found %d Crazyradio dongle(s):\n\n", len(drivers))

	for i, driver := range drivers {
		info := driver.Info()
		fmt.Printf("Device %d:\n", i+1)
		fmt.Printf("  Manufacturer: %s\n", info.Manufacturer)
		fmt.Printf("  Product:      %s\n", info.Product)
		fmt.Printf("  Serial:       %s\n", info.Serial)
		fmt.Printf("  Firmware:     %s\n", driver.FirmwareVersion())
		fmt.Println()
	}
}

func printConfigSummary(profile *config.RadioProfile) {
	s := profile.Settings
	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("  Firmware:     %s\n", profile.Firmware)
	fmt.Printf("  Link:         %s\n", profile.GetLinkString())
	fmt.Printf("  Mode:         %s\n", s.Mode)
	fmt.Printf("  Power:        %s\n", s.PowerLevel)
	fmt.Printf("  Ack Mode:     %s\n", s.AckMode)
	fmt.Printf("  Retries:      %d\n", s.AckRetryCount)
	fmt.Printf("  Ack Method:   %s\n", profile.GetAckMethodString())
}
