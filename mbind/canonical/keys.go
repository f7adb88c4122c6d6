package canonical

import (
	"fmt"
	"strings"
)

// browser KeyboardEvent.code -> game key name, for the codes that don't
// convert by rule
var keyCodes = map[string]string{
	"Space":          "space",
	"Enter":          "enter",
	"Escape":         "escape",
	"Tab":            "tab",
	"Backspace":      "backspace",
	"ArrowUp":        "up",
	"ArrowDown":      "down",
	"ArrowLeft":      "left",
	"ArrowRight":     "right",
	"Minus":          "minus",
	"Equal":          "equals",
	"BracketLeft":    "lbracket",
	"BracketRight":   "rbracket",
	"Semicolon":      "semicolon",
	"Quote":          "apostrophe",
	"Backquote":      "grave",
	"Backslash":      "backslash",
	"Comma":          "comma",
	"Period":         "period",
	"Slash":          "slash",
	"Insert":         "insert",
	"Delete":         "delete",
	"Home":           "home",
	"End":            "end",
	"PageUp":         "pgup",
	"PageDown":       "pgdn",
	"CapsLock":       "capslock",
	"PrintScreen":    "print",
	"ScrollLock":     "scrolllock",
	"Pause":          "pause",
	"NumLock":        "numlock",
	"NumpadAdd":      "np_add",
	"NumpadSubtract": "np_subtract",
	"NumpadMultiply": "np_multiply",
	"NumpadDivide":   "np_divide",
	"NumpadEnter":    "np_enter",
	"NumpadDecimal":  "np_period",
}

// KeyName converts a browser key code ("KeyF", "Digit1", "Numpad4",
// "ShiftLeft") into the game's key name. Names already in game form pass
// through lower cased.
func KeyName(code string) string {
	code = strings.TrimSpace(code)
	if m, found := ParseModifier(code); found {
		return string(m)
	}
	if name, found := keyCodes[code]; found {
		return name
	}
	switch {
	case strings.HasPrefix(code, "Key") && len(code) == 4:
		return strings.ToLower(code[3:])
	case strings.HasPrefix(code, "Digit") && len(code) == 6:
		return code[5:]
	case strings.HasPrefix(code, "Numpad") && len(code) == 7:
		return "np_" + code[6:]
	}
	return strings.ToLower(code)
}

// MouseButtonName maps a browser MouseEvent.button to the game's control
// name. Browser order is left, middle, right; the game counts right as 2.
func MouseButtonName(button int) string {
	switch button {
	case 0:
		return "mouse1"
	case 1:
		return "mouse3"
	case 2:
		return "mouse2"
	}
	return fmt.Sprintf("mouse%d", button+1)
}

// MouseWheelName maps a wheel delta to the game's wheel control
func MouseWheelName(deltaY float64) string {
	if deltaY < 0 {
		return "mwheel_up"
	}
	return "mwheel_down"
}
