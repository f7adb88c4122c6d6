package devices

import (
	"fmt"
	"strings"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// Slot is the stable role a device plays regardless of OS enumeration order
type Slot int

const (
	// SlotNone - not assigned
	SlotNone Slot = iota
	// PrimaryStick - js1
	PrimaryStick
	// SecondaryStick - js2
	SecondaryStick
	// PrimaryGamepad - gp1
	PrimaryGamepad
)

// Slots lists every assignable slot
var Slots = []Slot{PrimaryStick, SecondaryStick, PrimaryGamepad}

type slotInfo struct {
	name   string
	class  common.InputSource
	number int
}

var slotTable = map[Slot]slotInfo{
	PrimaryStick:   {"PrimaryStick", common.SourceJoystick, 1},
	SecondaryStick: {"SecondaryStick", common.SourceJoystick, 2},
	PrimaryGamepad: {"PrimaryGamepad", common.SourceGamepad, 1},
}

func (s Slot) String() string {
	if info, found := slotTable[s]; found {
		return info.name
	}
	return "None"
}

// Class is the device class this slot binds as
func (s Slot) Class() common.InputSource {
	return slotTable[s].class
}

// Number is the instance number used in binding strings
func (s Slot) Number() int {
	return slotTable[s].number
}

// Prefix is the binding string prefix, e.g. "js2"
func (s Slot) Prefix() string {
	if s == SlotNone {
		return ""
	}
	return fmt.Sprintf("%s%d", s.Class().Prefix(), s.Number())
}

// MarshalText implements encoding.TextMarshaler
func (s Slot) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Slot) UnmarshalText(text []byte) error {
	if len(text) == 0 || string(text) == SlotNone.String() {
		*s = SlotNone
		return nil
	}
	slot, err := ParseSlot(string(text))
	if err != nil {
		return err
	}
	*s = slot
	return nil
}

// ParseSlot accepts a slot name ("PrimaryStick") or its prefix ("js1")
func ParseSlot(name string) (Slot, error) {
	for _, slot := range Slots {
		if strings.EqualFold(name, slot.String()) || strings.EqualFold(name, slot.Prefix()) {
			return slot, nil
		}
	}
	return SlotNone, fmt.Errorf("%w: %q", ErrUnknownSlot, name)
}

// SlotFor returns the slot that binds as class+number, if any
func SlotFor(class common.InputSource, number int) (Slot, bool) {
	for _, slot := range Slots {
		if slot.Class() == class && slot.Number() == number {
			return slot, true
		}
	}
	return SlotNone, false
}
