package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/robalobadob/emoji-memory/internal/game"
)

// attach starts a server that serves every upgrade through h and dials it once.
func attach(t *testing.T, h *Hub, onMessage func([]byte)) *websocket.Conn {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn, nil, onMessage)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for h.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev map[string]json.RawMessage
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	return ev
}

func TestHooksBecomeEvents(t *testing.T) {
	h := New(zerolog.Nop())
	conn := attach(t, h, nil)

	h.UpdateMoves(3)
	h.UpdateTimeDisplay("00:07", game.SeverityCritical)
	h.ShowOutcomeModal(game.Outcome{Kind: game.OutcomeWin, Message: "yay", FinalMoves: 3, FinalTime: "00:07"})
	h.HideOutcomeModal()

	tests := []struct {
		typ  string
		data string
	}{
		{EventUpdateMoves, `{"count":3}`},
		{EventUpdateTimeDisplay, `{"text":"00:07","severity":"critical"}`},
		{EventShowOutcomeModal, `{"kind":"win","message":"yay","finalMoves":3,"finalTime":"00:07"}`},
		{EventHideOutcomeModal, ""},
	}
	for _, tt := range tests {
		ev := readEvent(t, conn)
		var typ string
		_ = json.Unmarshal(ev["type"], &typ)
		if typ != tt.typ {
			t.Fatalf("type = %q, want %q", typ, tt.typ)
		}
		if got := string(ev["data"]); got != tt.data {
			t.Fatalf("%s data = %s, want %s", typ, got, tt.data)
		}
	}
}

func TestInboundMessagesReachHandler(t *testing.T) {
	h := New(zerolog.Nop())
	got := make(chan string, 1)
	conn := attach(t, h, func(b []byte) { got <- string(b) })

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"restartRequested"}`)); err != nil {
		t.Fatal(err)
	}
	select {
	case msg := <-got:
		if msg != `{"type":"restartRequested"}` {
			t.Fatalf("handler got %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never called")
	}
}

func TestCloseDropsClients(t *testing.T) {
	h := New(zerolog.Nop())
	conn := attach(t, h, nil)

	h.Close()
	if h.Len() != 0 {
		t.Fatalf("Len = %d after Close", h.Len())
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection still open after Close")
	}
	// broadcasting to a closed hub is a no-op
	h.SpawnCelebrationEffect()
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	h := New(zerolog.Nop())
	slow := &client{send: make(chan []byte, 1)}
	if !h.register(slow) {
		t.Fatal("register refused")
	}

	h.UpdateMoves(1) // fills the buffer
	if h.Len() != 1 {
		t.Fatalf("Len = %d after a buffered send", h.Len())
	}
	h.UpdateMoves(2) // buffer full: dropped, not blocked

	if h.Len() != 0 {
		t.Fatalf("Len = %d, slow client not dropped", h.Len())
	}
	if msg, ok := <-slow.send; !ok || !strings.Contains(string(msg), `"count":1`) {
		t.Fatalf("first queued message = %s (ok=%v)", msg, ok)
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("send channel still open after drop")
	}
	// unregister after a drop must not close the channel twice
	h.unregister(slow)
}
