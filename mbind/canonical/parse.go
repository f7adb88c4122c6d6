package canonical

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ankurkotwal/metabind/mbind/common"
)

var (
	// ErrBareModifier is returned for a modifier key on its own
	ErrBareModifier = errors.New("modifier key on its own is not a binding")
	// ErrUnparseable is returned for strings outside the binding grammar
	ErrUnparseable = errors.New("not a binding string")
	// ErrUnbound is returned for the explicit unbind form, e.g. "js1_ "
	ErrUnbound = errors.New("explicitly unbound")
)

var (
	devicePrefixRegex = regexp.MustCompile(`^(js|gp|kb|mo|mouse)(\d+)_(.*)$`)
	buttonRegex       = regexp.MustCompile(`^button(\d+)$`)
	hatRegex          = regexp.MustCompile(`^hat(\d+)_(up|down|left|right)$`)
	axisRegex         = regexp.MustCompile(`^axis(\d+)(?:_(positive|negative))?$`)
	unboundRegex      = regexp.MustCompile(`^(js|gp|kb|mo|mouse)\d+_\s*$`)
)

// IsUnbound reports the explicit unbind form: a device prefix with nothing
// (or only a space) after the underscore
func IsUnbound(input string) bool {
	return unboundRegex.MatchString(strings.ToLower(input))
}

// Parse reads a binding string or backend feed string into an event.
// Modifiers may lead the whole string ("lctrl+kb1_f") or follow the
// device prefix ("kb1_lctrl+f").
func Parse(input string) (RawInputEvent, error) {
	var ev RawInputEvent
	if IsUnbound(input) {
		return ev, fmt.Errorf("%w: %q", ErrUnbound, input)
	}
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return ev, fmt.Errorf("%w: empty", ErrUnparseable)
	}

	var control string
	haveDevice := false
	for _, token := range strings.Split(s, "+") {
		if m := devicePrefixRegex.FindStringSubmatch(token); m != nil {
			if haveDevice {
				return ev, fmt.Errorf("%w: two devices in %q", ErrUnparseable, input)
			}
			haveDevice = true
			ev.Source, _ = common.ParseSource(m[1])
			ev.Instance, _ = strconv.Atoi(m[2])
			token = m[3]
		}
		if mod, found := ParseModifier(token); found {
			ev.Modifiers = append(ev.Modifiers, mod)
			continue
		}
		if token == "" || control != "" {
			return ev, fmt.Errorf("%w: %q", ErrUnparseable, input)
		}
		control = token
	}
	if !haveDevice {
		return ev, fmt.Errorf("%w: no device prefix in %q", ErrUnparseable, input)
	}
	if control == "" {
		if ev.Source == common.SourceKeyboard {
			return ev, fmt.Errorf("%w: %q", ErrBareModifier, input)
		}
		return ev, fmt.Errorf("%w: no control in %q", ErrUnparseable, input)
	}

	c, err := parseControl(ev.Source, control)
	if err != nil {
		return ev, fmt.Errorf("%w: %q", err, input)
	}
	ev.Control = c
	return ev, nil
}

func parseControl(source common.InputSource, control string) (Control, error) {
	switch source {
	case common.SourceKeyboard:
		return Control{Kind: ControlKey, Name: control}, nil
	case common.SourceMouse:
		return Control{Kind: ControlNamed, Name: control}, nil
	}

	if m := buttonRegex.FindStringSubmatch(control); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Control{Kind: ControlButton, Index: n}, nil
	}
	if m := hatRegex.FindStringSubmatch(control); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Control{Kind: ControlHat, Index: n, Direction: m[2]}, nil
	}
	if m := axisRegex.FindStringSubmatch(control); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Control{Kind: ControlAxis, Index: n, Direction: m[2]}, nil
	}
	if isLogicalAxis(control) {
		return Control{Kind: ControlAxis, Name: control}, nil
	}
	return Control{Kind: ControlNamed, Name: control}, nil
}

// Kept local so this package doesn't depend on the axis tables
var logicalAxes = map[string]bool{
	"x": true, "y": true, "z": true, "rotx": true, "roty": true, "rotz": true,
	"slider": true, "slider2": true, "hat": true,
}

func isLogicalAxis(name string) bool {
	return logicalAxes[name]
}

// InputType is the device class of a binding string. The explicit unbind
// form still has a type.
func InputType(input string) common.InputSource {
	s := strings.ToLower(strings.TrimSpace(input))
	for _, token := range strings.Split(s, "+") {
		if m := devicePrefixRegex.FindStringSubmatch(token); m != nil {
			src, _ := common.ParseSource(m[1])
			return src
		}
	}
	if m := unboundRegex.FindStringSubmatch(strings.ToLower(input)); m != nil {
		src, _ := common.ParseSource(m[1])
		return src
	}
	return common.SourceUnknown
}

// DevicePrefix is the class and instance part of a binding string,
// e.g. "js2" for "js2_button4"
func DevicePrefix(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	for _, token := range strings.Split(s, "+") {
		if i := strings.Index(token, "_"); i > 0 && devicePrefixRegex.MatchString(token) {
			return token[:i]
		}
	}
	if i := strings.Index(s, "_"); i > 0 && IsUnbound(input) {
		return s[:i]
	}
	return ""
}
