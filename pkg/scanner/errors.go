package scanner

import "errors"

// Scanner errors
var (
	// ErrScannerRunning indicates the scanner is already running
	ErrScannerRunning = errors.New("scanner is already running")

	// ErrScannerNotRunning indicates the scanner is not running
	ErrScannerNotRunning = errors.New("scanner is not running")

	// ErrInvalidConfig indicates invalid scanner configuration
	ErrInvalidConfig = errors.New("invalid scanner configuration")
)
