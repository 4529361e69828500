// Package scanner repeatedly scans for Crazyflies and tracks which links
// appear and disappear between passes.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/herlein/gocrazy/pkg/crazyradio"
	"github.com/sirupsen/logrus"
)

// Radio is the part of crazyradio.Driver the scanner drives.
type Radio interface {
	ScanChannels(ctx context.Context, start, stop crazyradio.RadioChannel) ([]crazyradio.ScanResult, error)
	ScanDataRate(ctx context.Context, rate crazyradio.DataRate, start, stop crazyradio.RadioChannel) (crazyradio.ScanResult, error)
}

// Pass is the outcome of one scan across the configured range.
type Pass struct {
	Number    int
	Timestamp time.Time
	Duration  time.Duration
	Results   []crazyradio.ScanResult
}

// Scanner runs scan passes and feeds them to a LinkTracker
type Scanner struct {
	radio   Radio
	config  *ScanConfig
	tracker *LinkTracker
	log     logrus.FieldLogger

	// State
	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	passes   int
}

// New creates a new Scanner with the given radio and configuration
func New(radio Radio, config *ScanConfig, log logrus.FieldLogger) (*Scanner, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	tracker := NewLinkTracker(config.LostAfter)
	tracker.SetCallbacks(config.OnLinkDetected, config.OnLinkLost)

	return &Scanner{
		radio:    radio,
		config:   config,
		tracker:  tracker,
		log:      log.WithField("component", "scanner"),
		stopChan: make(chan struct{}),
	}, nil
}

// Start marks the scanner as running
func (s *Scanner) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrScannerRunning
	}

	s.running = true
	s.stopChan = make(chan struct{})
	return nil
}

// Stop ends a running ScanContinuous
func (s *Scanner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrScannerNotRunning
	}

	close(s.stopChan)
	s.running = false
	return nil
}

// IsRunning returns true if the scanner is running
func (s *Scanner) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ScanOnce performs a single pass and updates the tracker
func (s *Scanner) ScanOnce(ctx context.Context) (*Pass, error) {
	began := time.Now()

	var results []crazyradio.ScanResult
	if s.config.DataRate == nil {
		var err error
		results, err = s.radio.ScanChannels(ctx, s.config.StartChannel, s.config.StopChannel)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
	} else {
		result, err := s.radio.ScanDataRate(ctx, *s.config.DataRate, s.config.StartChannel, s.config.StopChannel)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if result.Found() {
			results = append(results, result)
		}
	}

	s.mu.Lock()
	s.passes++
	pass := &Pass{
		Number:    s.passes,
		Timestamp: began,
		Duration:  time.Since(began),
		Results:   results,
	}
	s.mu.Unlock()

	s.tracker.Update(pass.Timestamp, results)
	s.log.Debugf("pass %d: %d data rate(s) answered in %v", pass.Number, len(results), pass.Duration)

	return pass, nil
}

// ScanContinuous scans once per interval until the context is cancelled,
// Stop is called, or a scan fails. Passes are dropped when results is full.
// results is closed on return.
func (s *Scanner) ScanContinuous(ctx context.Context, results chan<- *Pass) error {
	defer close(results)

	if err := s.Start(); err != nil {
		return err
	}
	defer s.Stop()

	s.mu.RLock()
	stopChan := s.stopChan
	s.mu.RUnlock()

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	for {
		pass, err := s.ScanOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		// Non-blocking send
		select {
		case results <- pass:
		default:
			s.log.Warnf("dropping pass %d, consumer is behind", pass.Number)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopChan:
			return nil
		case <-ticker.C:
		}
	}
}

// GetActiveLinks returns the links answering right now
func (s *Scanner) GetActiveLinks() []LinkInfo {
	return s.tracker.GetActiveLinks()
}

// Tracker returns the link tracker
func (s *Scanner) Tracker() *LinkTracker {
	return s.tracker
}
