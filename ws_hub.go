package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsMaxMessage = 512 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the SPA and the API live on different origins in development
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsMessage struct {
	sender *wsClient
	data   []byte
}

// whiteboardUpdate is the one message shape the relay inspects; everything
// else passes through opaque.
type whiteboardUpdate struct {
	Type         string `json:"type"`
	WhiteboardID int64  `json:"whiteboardId"`
	Content      string `json:"content"`
}

/* ---------------- Hub ---------------- */

// Hub fans every inbound message out to all other connected peers. No acks,
// no ordering across senders, no persistence of the messages themselves.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan wsMessage
	register   chan *wsClient
	unregister chan *wsClient
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan wsMessage, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			// off the loop: a slow store write must not stall fan-out
			go h.persistWhiteboardUpdate(msg.data)
			for c := range h.clients {
				if c == msg.sender {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					// slow consumer; drop it rather than block the hub
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// persistWhiteboardUpdate opportunistically saves whiteboard_update payloads.
// Runs on its own goroutine per message; failures are logged and never
// surfaced to any peer, and the write races with the direct API path to the
// same row.
func (h *Hub) persistWhiteboardUpdate(data []byte) {
	var upd whiteboardUpdate
	if err := json.Unmarshal(data, &upd); err != nil || upd.Type != "whiteboard_update" {
		return
	}
	if upd.WhiteboardID <= 0 {
		return
	}
	wb, err := store.UpdateWhiteboardContent(upd.WhiteboardID, upd.Content)
	if err != nil {
		log.Printf("[ws] whiteboard %d update failed: %v", upd.WhiteboardID, err)
		return
	}
	if wb == nil {
		log.Printf("[ws] whiteboard %d not found; update dropped", upd.WhiteboardID)
	}
}

/* ---------------- Client ---------------- */

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(wsMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}
		c.hub.broadcast <- wsMessage{sender: c, data: data}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GET /ws
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	c := &wsClient{hub: h, conn: conn, send: make(chan []byte, 64)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}
