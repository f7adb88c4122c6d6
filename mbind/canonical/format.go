package canonical

import (
	"fmt"
	"strings"

	"github.com/ankurkotwal/metabind/mbind/common"
	"github.com/ankurkotwal/metabind/mbind/devices"
)

// IdentityLookup resolves a hardware id to its slot
type IdentityLookup interface {
	Resolve(uuid string) (devices.Slot, bool)
}

// AxisNamer names a raw 0 based axis index for a device
type AxisNamer interface {
	LogicalName(device string, rawIndex int) string
}

// Result is a formatted input. Input is what gets compared and stored;
// the rest describes it.
type Result struct {
	Input  string             `json:"input"`
	Invert bool               `json:"invert"`
	Class  common.InputSource `json:"device_class"`
	Number int                `json:"number"`
	// Slot is set when the device id was resolved through the identity map
	Slot        devices.Slot `json:"slot,omitempty"`
	DisplayName string       `json:"display_name"`
}

// Formatter produces binding strings. Either lookup may be nil, in which
// case devices keep their reported instance and axes their numeric names.
type Formatter struct {
	Identities IdentityLookup
	Axes       AxisNamer
}

// Format turns a raw event into its binding string
func (f *Formatter) Format(ev RawInputEvent) (Result, error) {
	res := Result{Class: ev.Source, Number: ev.Instance}
	if ev.Source.IsDevice() && ev.DeviceID != "" && f.Identities != nil {
		if slot, found := f.Identities.Resolve(ev.DeviceID); found {
			res.Slot = slot
			res.Class = slot.Class()
			res.Number = slot.Number()
		}
	}
	if !ev.Source.IsDevice() {
		// One keyboard and one mouse as far as the game is concerned
		res.Number = 1
	}
	if res.Class.Prefix() == "" {
		return res, fmt.Errorf("%w: unknown source %v", ErrUnparseable, ev.Source)
	}
	if res.Number < 1 {
		return res, fmt.Errorf("%w: %s instance %d", ErrUnparseable, res.Class.Prefix(), res.Number)
	}

	control, err := f.control(ev)
	if err != nil {
		return res, err
	}
	res.Invert = ev.Control.Kind == ControlAxis && ev.Control.Direction == DirNegative

	res.Input = fmt.Sprintf("%s%s%d_%s", ModifierPrefix(ev.Modifiers), res.Class.Prefix(),
		res.Number, control)
	res.DisplayName = DisplayName(res.Input)
	return res, nil
}

func (f *Formatter) control(ev RawInputEvent) (string, error) {
	c := ev.Control
	switch c.Kind {
	case ControlButton:
		if c.Index < 1 {
			return "", fmt.Errorf("%w: button %d", ErrUnparseable, c.Index)
		}
		return fmt.Sprintf("button%d", c.Index), nil
	case ControlHat:
		switch c.Direction {
		case DirUp, DirDown, DirLeft, DirRight:
		default:
			return "", fmt.Errorf("%w: hat direction %q", ErrUnparseable, c.Direction)
		}
		if c.Index < 1 {
			return "", fmt.Errorf("%w: hat %d", ErrUnparseable, c.Index)
		}
		return fmt.Sprintf("hat%d_%s", c.Index, c.Direction), nil
	case ControlAxis:
		if c.Name != "" {
			return strings.ToLower(c.Name), nil
		}
		if c.Index < 1 {
			return "", fmt.Errorf("%w: axis %d", ErrUnparseable, c.Index)
		}
		if f.Axes == nil {
			return fmt.Sprintf("axis%d", c.Index), nil
		}
		return f.Axes.LogicalName(ev.DeviceID, c.Index-1), nil
	case ControlKey:
		key := KeyName(c.Name)
		if key == "" {
			return "", fmt.Errorf("%w: empty key", ErrUnparseable)
		}
		if IsModifierKey(key) {
			return "", ErrBareModifier
		}
		return key, nil
	case ControlNamed:
		if c.Name == "" {
			return "", fmt.Errorf("%w: empty control name", ErrUnparseable)
		}
		return strings.ToLower(c.Name), nil
	}
	return "", fmt.Errorf("%w: no control", ErrUnparseable)
}

// Normalize re-formats a binding string. Already canonical strings come
// back unchanged. Device instances are kept as written.
func (f *Formatter) Normalize(input string) (Result, error) {
	ev, err := Parse(input)
	if err != nil {
		return Result{}, err
	}
	return f.Format(ev)
}

var plain Formatter

// Normalize re-formats a binding string with no device or axis tables
func Normalize(input string) (string, error) {
	res, err := plain.Normalize(input)
	return res.Input, err
}
