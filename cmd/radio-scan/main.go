// radio-scan looks for Crazyflies by probing every channel and data rate
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gousb"
	"github.com/herlein/gocrazy/pkg/crazyradio"
	"github.com/herlein/gocrazy/pkg/linklog"
	"github.com/herlein/gocrazy/pkg/scanner"
	"github.com/sirupsen/logrus"
)

var (
	startChan  = flag.Int("start", 0, "First channel to scan (0-125)")
	stopChan   = flag.Int("stop", 125, "Last channel to scan (0-125)")
	rate       = flag.String("rate", "", "Scan only this data rate (250K, 1M or 2M); default all")
	address    = flag.String("addr", "E7E7E7E7E7", "Radio address to probe")
	repeat     = flag.Int("repeat", 1, "Number of scan passes (0 = until interrupted)")
	interval   = flag.Duration("interval", scanner.DefaultScanInterval, "Delay between scan passes")
	lostAfter  = flag.Int("lost-after", scanner.DefaultLostAfter, "Missed passes before a link is reported lost")
	deviceSel  = flag.String("d", "", crazyradio.DeviceFlagUsage())
	listOnly   = flag.Bool("l", false, "List devices only")
	verbose    = flag.Bool("v", false, "Verbose output - log every USB transfer")
	jsonOutput = flag.Bool("json", false, "Print results as JSON")
	dbPath     = flag.String("db", "", "Record found and lost links in this SQLite database")
	history    = flag.Bool("history", false, "Print the links recorded in -db and exit")
	redisAddr  = flag.String("redis", "", "Publish found and lost links to this Redis server (host:port)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Channel scanner for the Crazyradio\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                        # Scan all channels at all data rates\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -rate 2M -start 60     # Scan channels 60-125 at 2Mbps\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -repeat 0 -json        # Scan continuously, JSON output\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -repeat 0 -db links.db # Keep a history of found and lost links\n", os.Args[0])
	}
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *history {
		return printHistory()
	}

	usb := gousb.NewContext()
	defer usb.Close()

	if *listOnly {
		return listDevices(usb)
	}

	// Validate parameters
	if *startChan < 0 || *stopChan > int(crazyradio.MaxRadioChannel) || *startChan > *stopChan {
		return fmt.Errorf("channel range must satisfy 0 <= start <= stop <= %d", crazyradio.MaxRadioChannel)
	}
	addr, err := crazyradio.ParseRadioAddress(*address)
	if err != nil {
		return err
	}

	cfg := scanner.DefaultConfig()
	cfg.StartChannel = crazyradio.RadioChannel(*startChan)
	cfg.StopChannel = crazyradio.RadioChannel(*stopChan)
	cfg.ScanInterval = *interval
	cfg.LostAfter = *lostAfter
	if *rate != "" {
		r, err := crazyradio.ParseDataRate(*rate)
		if err != nil {
			return err
		}
		cfg.DataRate = &r
	}
	if !*jsonOutput && *repeat != 1 {
		cfg.OnLinkDetected = func(info scanner.LinkInfo) {
			fmt.Printf("  FOUND  radio://0/%d/%s\n", info.Channel, info.DataRate)
		}
		cfg.OnLinkLost = func(info scanner.LinkInfo) {
			fmt.Printf("  LOST   radio://0/%d/%s (last seen %s)\n", info.Channel, info.DataRate, info.LastSeen.Format("15:04:05"))
		}
	}

	if *dbPath != "" {
		db, err := linklog.Open(context.Background(), *dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		linklog.Attach(context.Background(), cfg, linklog.NewStore(db), func(err error) {
			logrus.WithError(err).Warn("Failed to record link event")
		})
	}

	if *redisAddr != "" {
		pub, err := linklog.NewPublisher(context.Background(), *redisAddr, linklog.DefaultRedisChannel)
		if err != nil {
			return err
		}
		defer pub.Close()
		linklog.Attach(context.Background(), cfg, pub, func(err error) {
			logrus.WithError(err).Warn("Failed to publish link event")
		})
	}

	// Open device
	driver, err := crazyradio.SelectDevice(usb, crazyradio.DeviceSelector(*deviceSel))
	if err != nil {
		return fmt.Errorf("failed to select device: %w", err)
	}
	if err := driver.Open(); err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer driver.Close()

	if !*jsonOutput {
		fmt.Printf("Connected to: %s\n", driver)
	}

	if err := driver.SetAddress(addr); err != nil {
		return err
	}

	s, err := scanner.New(driver, cfg, logrus.StandardLogger())
	if err != nil {
		return err
	}

	// Set up signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	passes := make(chan *scanner.Pass, 1)
	done := make(chan error, 1)
	go func() { done <- s.ScanContinuous(ctx, passes) }()

	for pass := range passes {
		if *repeat > 0 && pass.Number > *repeat {
			continue
		}
		if err := printResults(pass); err != nil {
			s.Stop()
			<-done
			return err
		}
		if *repeat > 0 && pass.Number >= *repeat {
			s.Stop()
		}
	}

	err = <-done
	if ctx.Err() != nil {
		fmt.Println("\nStopping...")
		return nil
	}
	if err != nil {
		return err
	}

	if *repeat != 1 && !*jsonOutput {
		fmt.Printf("\n--- Summary ---\n")
		for _, info := range s.Tracker().GetAllLinks() {
			fmt.Printf("  radio://0/%d/%s  seen %d time(s), active=%v\n", info.Channel, info.DataRate, info.DetectionCount, info.Active)
		}
	}
	return nil
}

func printResults(pass *scanner.Pass) error {
	results := pass.Results
	if *jsonOutput {
		data, err := json.Marshal(struct {
			Pass    int                     `json:"pass"`
			Results []crazyradio.ScanResult `json:"results"`
		}{pass.Number, results})
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("\nPass %d (%v):\n", pass.Number, pass.Duration.Round(time.Millisecond))
	if len(results) == 0 {
		fmt.Println("  No Crazyflie answered")
		return nil
	}
	for _, r := range results {
		for _, ch := range r.Channels {
			fmt.Printf("  radio://0/%d/%s\n", ch, r.DataRate)
		}
	}
	return nil
}

func printHistory() error {
	if *dbPath == "" {
		return fmt.Errorf("-history needs -db")
	}
	ctx := context.Background()
	db, err := linklog.Open(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	links, err := linklog.NewStore(db).Links(ctx)
	if err != nil {
		return err
	}
	if *jsonOutput {
		data, err := json.MarshalIndent(links, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(links) == 0 {
		fmt.Println("No links recorded")
		return nil
	}
	for _, l := range links {
		fmt.Printf("  radio://0/%d/%s  found %d, lost %d, first %s, last %s\n",
			l.Link.Channel, l.Link.DataRate, l.Found, l.Lost,
			l.FirstSeen.Format("2006-01-02 15:04:05"), l.LastSeen.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func listDevices(usb *gousb.Context) error {
	drivers, err := crazyradio.FindAll(usb)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(drivers) == 0 {
		fmt.Println("No Crazyradio dongles found")
		return nil
	}

	fmt.Printf("Found %d Crazyradio dongle(s):\n\n", len(drivers))
	for i, d := range drivers {
		info := d.Info()
		fmt.Printf("  #%d  %s  %d:%d\n", i, info.Serial, info.Bus, info.Address)
	}
	return nil
}
