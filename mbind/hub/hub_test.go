package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ankurkotwal/metabind/mbind/capture"
	"github.com/ankurkotwal/metabind/mbind/common"
)

type fakeCommands struct {
	mu       sync.Mutex
	cancels  int
	selected []string
}

func (f *fakeCommands) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeCommands) Select(sessionID, input string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if input == "bad" {
		return errors.New("not detected")
	}
	f.selected = append(f.selected, sessionID+"/"+input)
	return nil
}

func startHub(t *testing.T, commands Commands) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(common.NewLog())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, commands)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return h, srv
}

func dial(t *testing.T, h *Hub, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	want := h.Count() + 1
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() < want {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestBroadcaster_SessionWithConflicts(t *testing.T) {
	h, srv := startHub(t, nil)
	conn := dial(t, h, srv)

	target := common.ActionRef{ActionMap: "spaceship_general", Action: "v_toggle_landing"}
	var queried string
	b := NewBroadcaster(h, func(candidate string, exclude common.ActionRef) []common.ConflictEntry {
		queried = candidate
		if exclude != target {
			t.Errorf("exclude = %v", exclude)
		}
		return []common.ConflictEntry{{ActionMapName: "spaceship_general", ActionName: "v_flightready"}}
	})
	b.Session(capture.Snapshot{SessionID: "s1", Target: target, State: capture.FirstDetected,
		Selected: "kb1_f"})

	msg := read(t, conn)
	if msg.Type != TypeSession || msg.Session == nil || msg.Session.SessionID != "s1" {
		t.Fatalf("message = %+v", msg)
	}
	if queried != "kb1_f" || len(msg.Conflicts) != 1 || msg.Conflicts[0].ActionName != "v_flightready" {
		t.Errorf("conflicts = %v (queried %q)", msg.Conflicts, queried)
	}

	b.BindingsChanged()
	if msg2 := read(t, conn); msg2.Type != TypeBindings || msg2.Seq <= msg.Seq {
		t.Errorf("bindings message = %+v", msg2)
	}
}

func TestHub_ReplaysLatestToNewClients(t *testing.T) {
	h, srv := startHub(t, nil)
	b := NewBroadcaster(h, nil)
	b.Session(capture.Snapshot{SessionID: "s2", State: capture.Armed})

	conn := dial(t, h, srv)
	msg := read(t, conn)
	if msg.Session == nil || msg.Session.SessionID != "s2" {
		t.Errorf("replayed = %+v", msg)
	}
}

func TestClient_Commands(t *testing.T) {
	commands := &fakeCommands{}
	h, srv := startHub(t, commands)
	conn := dial(t, h, srv)

	send := func(v interface{}) {
		data, _ := json.Marshal(v)
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			t.Fatal(err)
		}
	}
	send(ClientMessage{Type: ClientSelect, SessionID: "s1", Input: "js1_button1"})
	send(ClientMessage{Type: ClientCancel})
	send(ClientMessage{Type: ClientSelect, Input: "bad"})

	if msg := read(t, conn); msg.Type != TypeError || msg.Error != "not detected" {
		t.Errorf("error reply = %+v", msg)
	}
	send(ClientMessage{Type: "dance"})
	if msg := read(t, conn); msg.Type != TypeError || !strings.Contains(msg.Error, "dance") {
		t.Errorf("unknown command reply = %+v", msg)
	}

	commands.mu.Lock()
	defer commands.mu.Unlock()
	if commands.cancels != 1 || len(commands.selected) != 1 || commands.selected[0] != "s1/js1_button1" {
		t.Errorf("commands = %+v", commands)
	}
}

func TestHub_UnregisterOnClose(t *testing.T) {
	h, srv := startHub(t, nil)
	conn := dial(t, h, srv)
	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client still registered")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHub_StoppedHub(t *testing.T) {
	h := NewHub(common.NewLog())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	client := NewClient(h, nil)
	if !h.Register(client) {
		t.Fatal("Register failed on a running hub")
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	// Replies after shutdown are dropped, the queue is already closed
	client.reply(NewErrorMessage(errors.New("late")))

	returned := make(chan bool, 1)
	go func() {
		returned <- h.Register(NewClient(h, nil))
		h.Unregister(client)
	}()
	select {
	case ok := <-returned:
		if ok {
			t.Error("Register succeeded on a stopped hub")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Register blocked on a stopped hub")
	}
}

func TestClient_ReplyAfterDrop(t *testing.T) {
	h, srv := startHub(t, nil)
	dial(t, h, srv)

	h.mu.RLock()
	var client *Client
	for c := range h.clients {
		client = c
	}
	h.mu.RUnlock()

	h.Unregister(client)
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client still registered")
		}
		time.Sleep(time.Millisecond)
	}
	// send is closed now
	client.reply(NewErrorMessage(errors.New("late")))
}
