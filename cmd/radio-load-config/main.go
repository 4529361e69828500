// radio-load-config: Load configuration to a Crazyradio from JSON file
//
// This tool reads a previously saved profile, or one of the built-in
// profiles, and applies it to a Crazyradio. The dongle keeps the settings
// until it is unplugged or reset.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/gousb"
	"github.com/herlein/gocrazy/pkg/config"
	"github.com/herlein/gocrazy/pkg/crazyradio"
	"github.com/herlein/gocrazy/pkg/profiles"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse command line flags
	deviceSel := flag.String("d", "", crazyradio.DeviceFlagUsage())
	verbose := flag.Bool("v", false, "Verbose output")
	verify := flag.Bool("verify", false, "Verify configuration after writing")
	profileName := flag.String("profile", "", "Apply a built-in profile instead of a file")
	listProfiles := flag.Bool("list-profiles", false, "List built-in profiles")
	generate := flag.String("generate", "", "Write all built-in profiles as JSON to this directory")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *listProfiles {
		for _, p := range profiles.All() {
			fmt.Printf("  %-22s %s\n", p.Name, p.Description)
		}
		return
	}

	if *generate != "" {
		if err := profiles.Generate(*generate); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Profiles written to: %s\n", *generate)
		return
	}

	profile, err := loadProfile(*profileName, flag.Args(), *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Configuration loaded:\n")
		fmt.Printf("  Original Serial:    %s\n", profile.Serial)
		fmt.Printf("  Original Product:   %s %s\n", profile.Manufacturer, profile.Product)
		fmt.Printf("  Original Timestamp: %s\n", profile.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Firmware:           %s\n", profile.Firmware)
		fmt.Printf("  Link:               %s\n", profile.GetLinkString())
		fmt.Printf("  Ack Method:         %s\n", profile.GetAckMethodString())
	}

	// Create USB context
	context := gousb.NewContext()
	defer context.Close()

	selector := *deviceSel
	if selector == "" {
		selector = profile.Serial
	}

	driver, err := crazyradio.SelectDevice(context, crazyradio.DeviceSelector(selector))
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
		fmt.Printf("\nConnected to: %s\n", driver)
		fmt.Println("Applying configuration...")
	}

	// A profile saved from another dongle is applied as-is when -d was given
	if *deviceSel != "" {
		profile.Serial = ""
	}
	if err := config.ApplyToDriver(driver, profile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to apply configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration applied successfully")

	// Verify if requested
	if *verify {
		readBack, err := config.DumpFromDriver(driver)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to read back configuration for verification: %v\n", err)
			return
		}
		if readBack.Settings != profile.Settings {
			fmt.Fprintf(os.Stderr, "Verification failed:\n  expected %+v\n  got      %+v\n", profile.Settings, readBack.Settings)
			os.Exit(1)
		}
		fmt.Println("Verification: OK")
	}
}

// loadProfile returns the named built-in profile, or the profile file given
// as the first argument.
func loadProfile(name string, args []string, verbose bool) (*config.RadioProfile, error) {
	if name != "" {
		p, err := profiles.Get(name)
		if err != nil {
			return nil, err
		}
		return &config.RadioProfile{
			Product:   p.Description,
			Timestamp: time.Now(),
			Settings:  p.Settings,
		}, nil
	}

	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <config-file>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s etc/crazyradios/E1E5C0F3A2.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -profile long-range-ch80\n", os.Args[0])
		os.Exit(1)
	}

	if verbose {
		fmt.Printf("Loading configuration from: %s\n", args[0])
	}

	profile, err := config.LoadFromFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return profile, nil
}
