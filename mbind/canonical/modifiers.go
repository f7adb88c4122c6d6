package canonical

import (
	"sort"
	"strings"
)

// Modifier is a held modifier key as it appears in a binding string
type Modifier string

// Recognised modifiers, declared in canonical order
const (
	LAlt   Modifier = "lalt"
	RAlt   Modifier = "ralt"
	LCtrl  Modifier = "lctrl"
	RCtrl  Modifier = "rctrl"
	LShift Modifier = "lshift"
	RShift Modifier = "rshift"
)

// Alt before Ctrl before Shift, left before right
var modifierRank = map[Modifier]int{
	LAlt:   0,
	RAlt:   1,
	LCtrl:  2,
	RCtrl:  3,
	LShift: 4,
	RShift: 5,
}

var modifierAliases = map[string]Modifier{
	"lalt":         LAlt,
	"altleft":      LAlt,
	"ralt":         RAlt,
	"altright":     RAlt,
	"lctrl":        LCtrl,
	"controlleft":  LCtrl,
	"rctrl":        RCtrl,
	"controlright": RCtrl,
	"lshift":       LShift,
	"shiftleft":    LShift,
	"rshift":       RShift,
	"shiftright":   RShift,
}

var modifierLabels = map[Modifier]string{
	LAlt:   "Left Alt",
	RAlt:   "Right Alt",
	LCtrl:  "Left Ctrl",
	RCtrl:  "Right Ctrl",
	LShift: "Left Shift",
	RShift: "Right Shift",
}

// ParseModifier recognises a modifier by its binding name (any case) or
// its browser key code ("ShiftLeft")
func ParseModifier(name string) (Modifier, bool) {
	m, found := modifierAliases[strings.ToLower(strings.TrimSpace(name))]
	return m, found
}

// IsModifierKey reports whether a key on its own is only a modifier.
// Listeners use it to drop bare modifier presses.
func IsModifierKey(key string) bool {
	_, found := ParseModifier(key)
	return found
}

// OrderModifiers drops anything unrecognised and duplicates, then sorts
// into canonical order so press order never matters
func OrderModifiers(held []Modifier) []Modifier {
	seen := make(map[Modifier]bool, len(held))
	out := make([]Modifier, 0, len(held))
	for _, h := range held {
		m, found := ParseModifier(string(h))
		if !found || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return modifierRank[out[i]] < modifierRank[out[j]] })
	return out
}

// ModifierPrefix renders ordered modifiers as "lalt+lctrl+", or "" for none
func ModifierPrefix(held []Modifier) string {
	ordered := OrderModifiers(held)
	if len(ordered) == 0 {
		return ""
	}
	parts := make([]string, len(ordered))
	for i, m := range ordered {
		parts[i] = string(m)
	}
	return strings.Join(parts, "+") + "+"
}
