package canonical

import (
	"time"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// ControlKind says which part of a device produced an event
type ControlKind int

const (
	// ControlUnknown - unset
	ControlUnknown ControlKind = iota
	// ControlButton - numbered button
	ControlButton
	// ControlAxis - raw numbered axis or an already logical axis
	ControlAxis
	// ControlHat - hat switch direction
	ControlHat
	// ControlKey - keyboard key
	ControlKey
	// ControlNamed - any other named control, e.g. mouse1 or mwheel_up
	ControlNamed
)

// Axis and hat directions
const (
	DirPositive = "positive"
	DirNegative = "negative"
	DirUp       = "up"
	DirDown     = "down"
	DirLeft     = "left"
	DirRight    = "right"
)

// Control is the part of a device an event came from
type Control struct {
	Kind ControlKind `json:"kind"`
	// Index is the button, axis or hat number as reported, 1 based
	Index int `json:"index,omitempty"`
	// Direction of a hat, or the sign of an axis movement
	Direction string `json:"direction,omitempty"`
	// Name of a key or named control. For an axis, the logical name when
	// the event was already normalised.
	Name string `json:"name,omitempty"`
	// Value is the raw axis sample
	Value int `json:"value,omitempty"`
	// Deflection of an axis from rest, -1..1
	Deflection float64 `json:"deflection,omitempty"`
}

// RawInputEvent is one event from a keyboard, mouse or backend listener
type RawInputEvent struct {
	Source common.InputSource `json:"source"`
	// DeviceID is the stable hardware id, empty for keyboard and mouse
	DeviceID   string `json:"device_id,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
	// Instance is the OS enumeration number, used when DeviceID isn't
	// recorded against a slot
	Instance  int        `json:"instance,omitempty"`
	Control   Control    `json:"control"`
	Modifiers []Modifier `json:"modifiers,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
