package hub

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool, the UI may be served from anywhere
	},
}

// Commands are what a UI client can ask for over the socket
type Commands interface {
	Cancel()
	Select(sessionID, input string) error
}

// Client is one connected UI
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewClient creates a client attached to the hub
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// WritePump sends queued messages until the hub closes the queue
func (c *Client) WritePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// ReadPump handles client commands until the connection drops
func (c *Client) ReadPump(commands Commands) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.hub.log.Dbg("Error parsing client message: %v", err)
			continue
		}
		if commands == nil {
			continue
		}
		switch clientMsg.Type {
		case ClientCancel:
			commands.Cancel()
		case ClientSelect:
			if err := commands.Select(clientMsg.SessionID, clientMsg.Input); err != nil {
				c.reply(NewErrorMessage(err))
			}
		default:
			c.reply(NewErrorMessage(errUnknownCommand(clientMsg.Type)))
		}
	}
}

func (c *Client) reply(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	// The hub closes send under its lock once the client is removed
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// ServeWS upgrades the request and runs the client's pumps
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, commands Commands) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Err("WebSocket upgrade failed: %v", err)
		return
	}
	client := NewClient(h, conn)
	if !h.Register(client) {
		conn.Close()
		return
	}
	go client.WritePump()
	go client.ReadPump(commands)
}
