// internal/hub/hub.go
//
// Hub is the game.Presenter for browser clients: every engine hook becomes a
// JSON event broadcast to the WebSocket clients attached to one game.
//
// Notes:
//   - Hooks are called with the engine lock held, so broadcasting never blocks:
//     a client whose send buffer is full is dropped.
//   - Each client has one writer goroutine; Serve runs the reader on the caller.

package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/robalobadob/emoji-memory/internal/game"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 1024
)

// Event types, one per presentation hook.
const (
	EventRenderBoard       = "renderBoard"
	EventUpdateMoves       = "updateMoves"
	EventUpdateTimeDisplay = "updateTimeDisplay"
	EventUpdateMatches     = "updateMatches"
	EventShowOutcomeModal  = "showOutcomeModal"
	EventHideOutcomeModal  = "hideOutcomeModal"
	EventSpawnCelebration  = "spawnCelebrationEffect"
)

// Event is one outbound message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type movesData struct {
	Count int `json:"count"`
}

type timeData struct {
	Text     string        `json:"text"`
	Severity game.Severity `json:"severity"`
}

type matchesData struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

type boardData struct {
	Cards []game.CardView `json:"cards"`
}

// client is one attached WebSocket connection.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans engine events out to the clients of a single game.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	logger  zerolog.Logger
}

// New creates an empty hub.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Len reports the number of attached clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve attaches conn, then reads inbound messages and hands each to onMessage
// until the connection fails or the hub closes. onAttach, if set, runs once the
// client is registered (typically to replay the full display state).
func (h *Hub) Serve(conn *websocket.Conn, onAttach func(), onMessage func([]byte)) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	go h.writePump(c)
	if onAttach != nil {
		onAttach()
	}
	defer h.unregister(c)

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("websocket read")
			}
			return
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
}

// Close drops every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Debug().Int("clients", len(h.clients)).Msg("websocket client attached")
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Debug().Int("clients", len(h.clients)).Msg("websocket client detached")
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// broadcast serializes ev and queues it on every client without blocking.
func (h *Hub) broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event", ev.Type).Msg("marshal event")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn().Msg("dropping slow websocket client")
		}
	}
}

// ---------------------------- game.Presenter --------------------------------

// RenderBoard sends the full card list.
func (h *Hub) RenderBoard(cards []game.CardView) {
	h.broadcast(Event{Type: EventRenderBoard, Data: boardData{Cards: cards}})
}

// UpdateMoves sends the move counter.
func (h *Hub) UpdateMoves(count int) {
	h.broadcast(Event{Type: EventUpdateMoves, Data: movesData{Count: count}})
}

// UpdateTimeDisplay sends the clock text and its severity.
func (h *Hub) UpdateTimeDisplay(text string, severity game.Severity) {
	h.broadcast(Event{Type: EventUpdateTimeDisplay, Data: timeData{Text: text, Severity: severity}})
}

// UpdateMatches sends matched pairs out of the total.
func (h *Hub) UpdateMatches(count, total int) {
	h.broadcast(Event{Type: EventUpdateMatches, Data: matchesData{Count: count, Total: total}})
}

// ShowOutcomeModal sends the win/lose modal payload.
func (h *Hub) ShowOutcomeModal(o game.Outcome) {
	h.broadcast(Event{Type: EventShowOutcomeModal, Data: o})
}

// HideOutcomeModal tells clients to close the modal.
func (h *Hub) HideOutcomeModal() {
	h.broadcast(Event{Type: EventHideOutcomeModal})
}

// SpawnCelebrationEffect triggers the win animation.
func (h *Hub) SpawnCelebrationEffect() {
	h.broadcast(Event{Type: EventSpawnCelebration})
}

var _ game.Presenter = (*Hub)(nil)
