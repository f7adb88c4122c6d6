package capture

import (
	"fmt"
	"time"

	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/common"
	"github.com/ankurkotwal/metabind/mbind/devices"
)

// State of a capture session
type State int

const (
	// Armed - listeners attached, waiting for the first input
	Armed State = iota
	// FirstDetected - one candidate, secondary window running or elapsed
	FirstDetected
	// MultiSelect - several distinct candidates, caller picks
	MultiSelect
	// TimedOut - nothing arrived before the primary deadline
	TimedOut
	// Closed - torn down
	Closed
)

var stateNames = []string{"armed", "first_detected", "multi_select", "timed_out", "closed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown capture state %q", text)
}

// Kind of episode a session runs
type Kind int

const (
	// KindBinding - the full capture state machine
	KindBinding Kind = iota
	// KindDevice - first device event wins
	KindDevice
	// KindAxis - first axis movement on one device wins
	KindAxis
)

var kindNames = []string{"binding", "device", "axis"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown capture kind %q", text)
}

// Candidate is one distinct detected input. Never changed once added.
type Candidate struct {
	Input       string                  `json:"input"`
	Invert      bool                    `json:"invert"`
	DisplayName string                  `json:"display_name"`
	DeviceClass common.InputSource      `json:"device_class"`
	Slot        devices.Slot            `json:"slot,omitempty"`
	Raw         canonical.RawInputEvent `json:"raw"`
	DetectedAt  time.Time               `json:"detected_at"`
}

// Expectation restricts device inputs to the device the caller is
// binding for. Zero fields are not checked.
type Expectation struct {
	Class common.InputSource `json:"class,omitempty"`
	Slot  devices.Slot       `json:"slot,omitempty"`
}

// Snapshot is a copy of a session's state handed to callers and observers
type Snapshot struct {
	Seq               uint64           `json:"seq"`
	SessionID         string           `json:"session_id"`
	Kind              Kind             `json:"kind"`
	Target            common.ActionRef `json:"target"`
	State             State            `json:"state"`
	Detected          []Candidate      `json:"detected"`
	Selected          string           `json:"selected,omitempty"`
	StartedAt         time.Time        `json:"started_at"`
	PrimaryDeadline   *time.Time       `json:"primary_deadline,omitempty"`
	SecondaryDeadline *time.Time       `json:"secondary_deadline,omitempty"`
	SecondaryElapsed  bool             `json:"secondary_elapsed"`
	BackendComplete   bool             `json:"backend_complete"`
	Warnings          []string         `json:"warnings,omitempty"`
}

// Confirmation is what Confirm hands back: the chosen candidate and every
// candidate seen
type Confirmation struct {
	SessionID string           `json:"session_id"`
	Target    common.ActionRef `json:"target"`
	Selected  Candidate        `json:"selected"`
	Detected  []Candidate      `json:"detected"`
}
