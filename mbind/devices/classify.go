package devices

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// ResolveUUID derives the stable identifier for a device. Drivers that
// report an all-zero uuid fall back to name + enumeration id.
func ResolveUUID(uuid []byte, name string, fallbackID int) string {
	for _, b := range uuid {
		if b != 0 {
			return hex.EncodeToString(uuid)
		}
	}
	return fmt.Sprintf("%s_%d", strings.ReplaceAll(strings.TrimSpace(name), " ", "_"), fallbackID)
}

// XInputUUID is the identifier for XInput pads, which only have a user index
func XInputUUID(userIndex int) string {
	return fmt.Sprintf("xinput_%d", userIndex)
}

var gamepadNames = []string{
	"xbox",
	"xinput",
	"playstation",
	"dualshock",
	"dualsense",
	"ps3",
	"ps4",
	"ps5",
	"wireless controller",
	"gamepad",
	"game controller",
	"switch pro",
	"pro controller",
}

// IsGamepad decides from its name whether a device is a gamepad. Anything
// unrecognised is treated as a joystick.
func IsGamepad(name string) bool {
	lower := strings.ToLower(name)
	for _, n := range gamepadNames {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// Classify returns the input source for a named device
func Classify(name string) common.InputSource {
	if IsGamepad(name) {
		return common.SourceGamepad
	}
	return common.SourceJoystick
}
