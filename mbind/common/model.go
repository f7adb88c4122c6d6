package common

import (
	"fmt"
	"strings"
)

// InputSource - the listener class an input came from
type InputSource int

const (
	// SourceUnknown - unrecognised prefix
	SourceUnknown InputSource = iota
	// SourceKeyboard - keyboard listener
	SourceKeyboard
	// SourceMouse - mouse listener
	SourceMouse
	// SourceJoystick - backend fed joystick
	SourceJoystick
	// SourceGamepad - backend fed gamepad
	SourceGamepad
)

var sourcePrefixes = map[InputSource]string{
	SourceKeyboard: "kb",
	SourceMouse:    "mo",
	SourceJoystick: "js",
	SourceGamepad:  "gp",
}

var sourceNames = map[InputSource]string{
	SourceUnknown:  "unknown",
	SourceKeyboard: "keyboard",
	SourceMouse:    "mouse",
	SourceJoystick: "joystick",
	SourceGamepad:  "gamepad",
}

// Prefix returns the device class prefix used in binding strings
func (s InputSource) Prefix() string {
	return sourcePrefixes[s]
}

func (s InputSource) String() string {
	return sourceNames[s]
}

// IsDevice is true for sources that come through the backend feed
func (s InputSource) IsDevice() bool {
	return s == SourceJoystick || s == SourceGamepad
}

// MarshalText implements encoding.TextMarshaler
func (s InputSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *InputSource) UnmarshalText(text []byte) error {
	if len(text) == 0 || string(text) == sourceNames[SourceUnknown] {
		*s = SourceUnknown
		return nil
	}
	src, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = src
	return nil
}

// ParseSource accepts a source name ("joystick") or a class prefix ("js").
// "mouse" is accepted as a prefix as well as a name.
func ParseSource(s string) (InputSource, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for src, name := range sourceNames {
		if src != SourceUnknown && (s == name || s == sourcePrefixes[src]) {
			return src, nil
		}
	}
	return SourceUnknown, fmt.Errorf("unknown input source %q", s)
}

// ActionRef identifies an action inside an action map
type ActionRef struct {
	ActionMap string `json:"action_map" yaml:"ActionMap"`
	Action    string `json:"action" yaml:"Action"`
}

func (a ActionRef) String() string {
	return fmt.Sprintf("%s/%s", a.ActionMap, a.Action)
}

// ConflictEntry - another action already bound to the same input
type ConflictEntry struct {
	ActionMapName  string `json:"action_map_name"`
	ActionName     string `json:"action_name"`
	ActionLabel    string `json:"action_label"`
	ActionMapLabel string `json:"action_map_label"`
}
