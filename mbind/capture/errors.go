package capture

import "errors"

var (
	// ErrTimeout - nothing was detected in time
	ErrTimeout = errors.New("capture timed out")
	// ErrDeviceMismatch - input came from a different device than expected
	ErrDeviceMismatch = errors.New("input from unexpected device")
	// ErrNoSession - no session is open, or not the one named
	ErrNoSession = errors.New("no capture session")
	// ErrNothingDetected - confirm before anything was detected
	ErrNothingDetected = errors.New("nothing detected")
	// ErrUnknownCandidate - select of an input that wasn't detected
	ErrUnknownCandidate = errors.New("input was not detected in this session")
	// ErrCancelled - the session was cancelled
	ErrCancelled = errors.New("capture cancelled")
	// ErrSuperseded - a newer session replaced this one
	ErrSuperseded = errors.New("capture superseded by a newer session")
)
