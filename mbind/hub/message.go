package hub

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ankurkotwal/metabind/mbind/capture"
	"github.com/ankurkotwal/metabind/mbind/common"
)

// Server to client message types
const (
	TypeSession  = "session"
	TypeBindings = "bindings"
	TypeError    = "error"
)

// Client to server message types
const (
	ClientCancel = "cancel"
	ClientSelect = "select"
)

// WSMessage is sent from server to client
type WSMessage struct {
	Type      string            `json:"type"`
	Seq       int64             `json:"seq"`
	Timestamp int64             `json:"timestamp"`
	Session   *capture.Snapshot `json:"session,omitempty"`
	// Conflicts of the selected candidate with other actions
	Conflicts []common.ConflictEntry `json:"conflicts,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ClientMessage is sent from client to server
type ClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Input     string `json:"input,omitempty"`
}

// NewErrorMessage reports a failed client command
func NewErrorMessage(err error) *WSMessage {
	return &WSMessage{Type: TypeError, Timestamp: time.Now().UnixMilli(), Error: err.Error()}
}

func errUnknownCommand(t string) error {
	return fmt.Errorf("unknown command %q", t)
}

// ConflictFinder is the conflict query run for each selected candidate
type ConflictFinder func(candidate string, exclude common.ActionRef) []common.ConflictEntry

// Broadcaster turns capture snapshots and binding reloads into messages
type Broadcaster struct {
	hub       *Hub
	conflicts ConflictFinder
	seq       atomic.Int64
}

// NewBroadcaster creates a broadcaster. conflicts may be nil.
func NewBroadcaster(h *Hub, conflicts ConflictFinder) *Broadcaster {
	return &Broadcaster{hub: h, conflicts: conflicts}
}

// Session publishes a capture snapshot. Used as a controller observer.
func (b *Broadcaster) Session(snap capture.Snapshot) {
	msg := &WSMessage{
		Type:      TypeSession,
		Seq:       b.seq.Add(1),
		Timestamp: time.Now().UnixMilli(),
		Session:   &snap,
	}
	if b.conflicts != nil && snap.Kind == capture.KindBinding && snap.Selected != "" {
		msg.Conflicts = b.conflicts(snap.Selected, snap.Target)
	}
	b.send(msg)
}

// BindingsChanged tells clients to refetch bindings
func (b *Broadcaster) BindingsChanged() {
	b.send(&WSMessage{Type: TypeBindings, Seq: b.seq.Add(1), Timestamp: time.Now().UnixMilli()})
}

func (b *Broadcaster) send(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.hub.log.Err("Error marshaling %s message: %v", msg.Type, err)
		return
	}
	b.hub.Broadcast(data)
}
