// lsradio: List all connected Crazyradio dongles
//
// This tool enumerates all Crazyradio dongles connected to the system
// and displays their serial numbers and basic information.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/gousb"
	"github.com/herlein/gocrazy/pkg/crazyradio"
	"github.com/sirupsen/logrus"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output (show additional device details)")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.WarnLevel)

	// Create USB context
	context := gousb.NewContext()
	defer context.Close()

	// Find all Crazyradio dongles
	drivers, err := crazyradio.FindAll(context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to enumerate devices: %v\n", err)
		os.Exit(1)
	}

	if len(drivers) == 0 {
		fmt.Println("No Crazyradio dongles found")
		os.Exit(0)
	}

	fmt.Printf("Found %d Crazyradio dongle(s):\n", len(drivers))
	fmt.Println()

	for i, driver := range drivers {
		info := driver.Info()
		firmware := driver.FirmwareVersion()

		if *verbose {
			fastScan := "no"
			if firmware.AtLeast(crazyradio.FastScanFirmware) {
				fastScan = "yes"
			}

			fmt.Printf("Device #%d:\n", i)
			fmt.Printf("  Serial:       %s\n", info.Serial)
			fmt.Printf("  Bus:Address:  %d:%d\n", info.Bus, info.Address)
			fmt.Printf("  Manufacturer: %s\n", info.Manufacturer)
			fmt.Printf("  Product:      %s\n", info.Product)
			fmt.Printf("  Firmware:     %s (bcdDevice 0x%04X)\n", firmware, info.BCDDevice)
			fmt.Printf("  Fast scan:    %s\n", fastScan)
			fmt.Println()
		} else {
			fmt.Printf("  #%d  %s  %d:%d  fw %s\n", i, info.Serial, info.Bus, info.Address, firmware)
		}
	}

	if !*verbose {
		fmt.Println()
		fmt.Println("Use -d flag with other tools to select device:")
		fmt.Println("  -d \"#0\"          Select by index")
		fmt.Println("  -d \"1:10\"        Select by bus:address")
		fmt.Println("  -d \"E1E5C0F3A2\"  Select by serial (if unique)")
	}
}
