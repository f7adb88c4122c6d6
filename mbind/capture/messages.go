package capture

import (
	"time"

	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/common"
)

// Message is anything delivered to the controller. Every message names
// the session it belongs to.
type Message interface {
	SessionID() string
}

// Sink receives messages from listeners
type Sink interface {
	Deliver(msg Message)
}

// InputEvent is a raw event from the keyboard or mouse listener
type InputEvent struct {
	Session string
	Event   canonical.RawInputEvent
}

// SessionID implements Message
func (m InputEvent) SessionID() string { return m.Session }

// FeedEvent is an event from the backend device feed. Input is the
// backend's own string, e.g. "js1_axis3_negative".
type FeedEvent struct {
	Session     string             `json:"session_id"`
	Input       string             `json:"input_string"`
	DisplayName string             `json:"display_name,omitempty"`
	DeviceType  common.InputSource `json:"device_type,omitempty"`
	DeviceUUID  string             `json:"device_uuid,omitempty"`
	DeviceName  string             `json:"device_name,omitempty"`
	Modifiers   []string           `json:"modifiers,omitempty"`
	// Deflection of an axis from rest, -1..1
	Deflection float64   `json:"deflection,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// SessionID implements Message
func (m FeedEvent) SessionID() string { return m.Session }

// RawEvent converts the feed event for the formatter
func (m FeedEvent) RawEvent() (canonical.RawInputEvent, error) {
	ev, err := canonical.Parse(m.Input)
	if err != nil {
		return ev, err
	}
	if m.DeviceType.IsDevice() && ev.Source.IsDevice() {
		ev.Source = m.DeviceType
	}
	ev.DeviceID = m.DeviceUUID
	ev.DeviceName = m.DeviceName
	for _, mod := range m.Modifiers {
		ev.Modifiers = append(ev.Modifiers, canonical.Modifier(mod))
	}
	ev.Control.Deflection = m.Deflection
	ev.Timestamp = m.Timestamp
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return ev, nil
}

// DetectionComplete is sent by the backend when its own timeout elapses
type DetectionComplete struct {
	Session string
}

// SessionID implements Message
func (m DetectionComplete) SessionID() string { return m.Session }

type deadline int

const (
	deadlinePrimary deadline = iota
	deadlineSecondary
	deadlineClose
)

// deadlineFired is posted by the session's timers
type deadlineFired struct {
	session string
	which   deadline
}

func (m deadlineFired) SessionID() string { return m.session }
