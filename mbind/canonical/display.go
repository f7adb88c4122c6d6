package canonical

import (
	"fmt"
	"strings"

	"github.com/ankurkotwal/metabind/mbind/common"
)

var axisLabels = map[string]string{
	"x":       "X Axis",
	"y":       "Y Axis",
	"z":       "Z Axis",
	"rotx":    "X Rotation",
	"roty":    "Y Rotation",
	"rotz":    "Z Rotation",
	"slider":  "Slider",
	"slider2": "Slider 2",
	"hat":     "Hat",
}

var sourceLabels = map[common.InputSource]string{
	common.SourceKeyboard: "Keyboard",
	common.SourceMouse:    "Mouse",
	common.SourceJoystick: "Joystick",
	common.SourceGamepad:  "Gamepad",
}

// DisplayName renders a binding string for people, e.g.
// "Left Ctrl + Keyboard - F" or "Joystick 1 - Button 3". Strings that
// don't parse are returned as given.
func DisplayName(input string) string {
	ev, err := Parse(input)
	if err != nil {
		return input
	}

	device := sourceLabels[ev.Source]
	if ev.Source.IsDevice() {
		device = fmt.Sprintf("%s %d", device, ev.Instance)
	}

	var control string
	c := ev.Control
	switch c.Kind {
	case ControlButton:
		control = fmt.Sprintf("Button %d", c.Index)
	case ControlHat:
		control = fmt.Sprintf("Hat %d %s", c.Index, common.TitleCaser(c.Direction))
	case ControlAxis:
		if c.Name != "" {
			control = axisLabels[c.Name]
		} else {
			control = fmt.Sprintf("Axis %d", c.Index)
		}
		if c.Direction != "" {
			control = fmt.Sprintf("%s (%s)", control, c.Direction)
		}
	default:
		control = common.TitleCaser(strings.ReplaceAll(c.Name, "_", " "))
	}

	label := fmt.Sprintf("%s - %s", device, control)
	mods := OrderModifiers(ev.Modifiers)
	if len(mods) == 0 {
		return label
	}
	parts := make([]string, 0, len(mods)+1)
	for _, m := range mods {
		parts = append(parts, modifierLabels[m])
	}
	return strings.Join(append(parts, label), " + ")
}
