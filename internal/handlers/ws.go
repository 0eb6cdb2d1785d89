package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inkpress/storefront/internal/editor"
	"github.com/inkpress/storefront/internal/storage"
)

const (
	wsSendBuffer   = 64
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsEvent is an editor event tagged with the print area it came from.
type wsEvent struct {
	Area string `json:"area"`
	editor.Event
}

type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// wsCommand is one UI event sent by a websocket client.
type wsCommand struct {
	Type  string  `json:"type"` // pointerdown, pointermove, pointerup, select, set, undo, redo, flush
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	ID    string  `json:"id"`
	Prop  string  `json:"prop"`
	Value any     `json:"value"`
}

type wsClient struct {
	send chan any
}

// Hub fans editor events out to the websocket clients of each session.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*wsClient]struct{})}
}

func (h *Hub) subscribe(sessionID string) *wsClient {
	c := &wsClient{send: make(chan any, wsSendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*wsClient]struct{})
	}
	h.clients[sessionID][c] = struct{}{}
	return c
}

func (h *Hub) unsubscribe(sessionID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.clients[sessionID]
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, sessionID)
	}
}

// Publish queues v for every client of the session. Slow clients miss
// messages rather than stall the editor.
func (h *Hub) Publish(sessionID string, v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[sessionID] {
		select {
		case c.send <- v:
		default:
		}
	}
}

// deliver queues v for one client if it is still subscribed.
func (h *Hub) deliver(sessionID string, c *wsClient, v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[sessionID][c]; !ok {
		return
	}
	select {
	case c.send <- v:
	default:
	}
}

// CloseSession disconnects every client of the session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[sessionID] {
		close(c.send)
	}
	delete(h.clients, sessionID)
}

// Clients reports how many clients are connected to the session.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// HandleWebSocket upgrades to a live channel: the client sends wsCommands
// and receives the resulting editor events.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", "session_id", session.ID, "err", err)
		return
	}
	defer conn.Close()

	client := h.hub.subscribe(session.ID)
	h.logger.Info("Websocket connected", "session_id", session.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range client.send {
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("Websocket write failed", "session_id", session.ID, "err", err)
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
	}()

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("Websocket read failed", "session_id", session.ID, "err", err)
			}
			break
		}
		session.Touch()
		if err := h.apply(session, cmd); err != nil {
			h.hub.deliver(session.ID, client, wsError{Type: "error", Error: err.Error()})
		}
	}
	h.hub.unsubscribe(session.ID, client)
	<-done
	h.logger.Info("Websocket disconnected", "session_id", session.ID)
}

func (h *Handler) apply(session *storage.Session, cmd wsCommand) error {
	ed := session.Editor()
	switch cmd.Type {
	case "pointerdown":
		ed.PointerDown(cmd.X, cmd.Y)
	case "pointermove":
		ed.PointerMove(cmd.X, cmd.Y)
	case "pointerup":
		ed.PointerUp()
	case "select":
		return ed.Select(cmd.ID)
	case "set":
		return ed.SetProperty(cmd.ID, cmd.Prop, cmd.Value)
	case "undo":
		_, err := ed.Undo()
		return err
	case "redo":
		_, err := ed.Redo()
		return err
	case "flush":
		ed.Flush()
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}
