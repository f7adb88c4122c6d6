package main

import (
	"fmt"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/common"
)

// tcell can't tell left and right modifiers apart, so they bind as left
var modifierBits = []struct {
	mask tcell.ModMask
	mod  canonical.Modifier
}{
	{tcell.ModAlt, canonical.LAlt},
	{tcell.ModCtrl, canonical.LCtrl},
	{tcell.ModShift, canonical.LShift},
}

var specialKeys = map[tcell.Key]string{
	tcell.KeyUp:         "up",
	tcell.KeyDown:       "down",
	tcell.KeyLeft:       "left",
	tcell.KeyRight:      "right",
	tcell.KeyHome:       "home",
	tcell.KeyEnd:        "end",
	tcell.KeyPgUp:       "pgup",
	tcell.KeyPgDn:       "pgdn",
	tcell.KeyInsert:     "insert",
	tcell.KeyDelete:     "delete",
	tcell.KeyBackspace:  "backspace",
	tcell.KeyBackspace2: "backspace",
	tcell.KeyPause:      "pause",
	tcell.KeyPrint:      "print",
}

var runeKeys = map[rune]string{
	' ':  "space",
	'-':  "minus",
	'=':  "equals",
	'[':  "lbracket",
	']':  "rbracket",
	';':  "semicolon",
	'\'': "apostrophe",
	'`':  "grave",
	'\\': "backslash",
	',':  "comma",
	'.':  "period",
	'/':  "slash",
}

func modifiers(mask tcell.ModMask) []canonical.Modifier {
	var out []canonical.Modifier
	for _, b := range modifierBits {
		if mask&b.mask != 0 {
			out = append(out, b.mod)
		}
	}
	return out
}

// keyEvent translates a terminal key press. Keys the terminal can only
// report as a shifted character (e.g. '!') are not translated.
func keyEvent(ev *tcell.EventKey) (canonical.RawInputEvent, bool) {
	mods := modifiers(ev.Modifiers())
	var name string

	key := ev.Key()
	special, isSpecial := specialKeys[key]
	switch {
	case isSpecial:
		// Backspace shares its code with Ctrl+H
		name = special
	case key == tcell.KeyRune:
		r := ev.Rune()
		switch {
		case unicode.IsUpper(r):
			name = string(unicode.ToLower(r))
			mods = append(mods, canonical.LShift)
		case unicode.IsLower(r) || unicode.IsDigit(r):
			name = string(r)
		default:
			name = runeKeys[r]
		}
	case key >= tcell.KeyF1 && key <= tcell.KeyF24:
		name = fmt.Sprintf("f%d", int(key-tcell.KeyF1)+1)
	case key >= tcell.KeyCtrlA && key <= tcell.KeyCtrlZ:
		name = string(rune('a' + int(key-tcell.KeyCtrlA)))
		mods = append(mods, canonical.LCtrl)
	}
	if name == "" {
		return canonical.RawInputEvent{}, false
	}
	return canonical.RawInputEvent{
		Source:    common.SourceKeyboard,
		Control:   canonical.Control{Kind: canonical.ControlKey, Name: name},
		Modifiers: canonical.OrderModifiers(mods),
		Timestamp: ev.When(),
	}, true
}

// mouseEvent translates a newly pressed button or a wheel notch. prev is
// the button mask of the previous mouse event.
func mouseEvent(ev *tcell.EventMouse, prev tcell.ButtonMask) (canonical.RawInputEvent, bool) {
	buttons := ev.Buttons()
	pressed := buttons &^ prev
	var name string
	switch {
	case pressed&tcell.Button1 != 0:
		name = canonical.MouseButtonName(0)
	case pressed&tcell.Button3 != 0:
		name = canonical.MouseButtonName(1)
	case pressed&tcell.Button2 != 0:
		name = canonical.MouseButtonName(2)
	case buttons&tcell.WheelUp != 0:
		name = canonical.MouseWheelName(-1)
	case buttons&tcell.WheelDown != 0:
		name = canonical.MouseWheelName(1)
	default:
		return canonical.RawInputEvent{}, false
	}
	when := ev.When()
	if when.IsZero() {
		when = time.Now()
	}
	return canonical.RawInputEvent{
		Source:    common.SourceMouse,
		Control:   canonical.Control{Kind: canonical.ControlNamed, Name: name},
		Modifiers: canonical.OrderModifiers(modifiers(ev.Modifiers())),
		Timestamp: when,
	}, true
}
