package capture

import (
	"sync"

	"github.com/ankurkotwal/metabind/mbind/canonical"
)

// Listener is a source of input that can be attached to one session at a
// time. Arm must not deliver synchronously; the controller holds its lock
// while arming.
type Listener interface {
	Name() string
	Arm(sessionID string, sink Sink) error
	Disarm()
}

// PushListener is armed by the controller and fed by whoever owns the
// real input, the HTTP API or a terminal front end. Every pushed event is
// tagged with a session id before it reaches the controller.
type PushListener struct {
	name string

	mu      sync.Mutex
	session string
	sink    Sink
}

// NewPushListener creates an unarmed listener
func NewPushListener(name string) *PushListener {
	return &PushListener{name: name}
}

// Name implements Listener
func (l *PushListener) Name() string { return l.name }

// Arm implements Listener
func (l *PushListener) Arm(sessionID string, sink Sink) error {
	l.mu.Lock()
	l.session = sessionID
	l.sink = sink
	l.mu.Unlock()
	return nil
}

// Disarm implements Listener
func (l *PushListener) Disarm() {
	l.mu.Lock()
	l.session = ""
	l.sink = nil
	l.mu.Unlock()
}

// Armed returns the session the listener is attached to, "" when disarmed
func (l *PushListener) Armed() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// Push delivers ev under the armed session
func (l *PushListener) Push(ev canonical.RawInputEvent) bool {
	return l.PushFor("", ev)
}

// PushFor delivers ev tagged with sessionID, or with the armed session
// when sessionID is empty. A key press that is only a modifier is dropped
// here; it only matters as part of a chord. Returns false when nothing was
// delivered.
func (l *PushListener) PushFor(sessionID string, ev canonical.RawInputEvent) bool {
	if ev.Control.Kind == canonical.ControlKey && canonical.IsModifierKey(ev.Control.Name) {
		return false
	}
	l.mu.Lock()
	sink := l.sink
	if sessionID == "" {
		sessionID = l.session
	}
	l.mu.Unlock()
	if sink == nil || sessionID == "" {
		return false
	}
	sink.Deliver(InputEvent{Session: sessionID, Event: ev})
	return true
}
