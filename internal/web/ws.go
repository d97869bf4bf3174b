package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kolkturm/ktviewer/internal/debug"
	"github.com/kolkturm/ktviewer/internal/viewer"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// HandleWS upgrades GET /ws. Clients send input events as JSON text
// messages; every reply and every state change is pushed back as a
// StatusEvent with level "state" (or "error" for rejected input).
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Error(err)
		return
	}

	states, unsub := h.Views.Subscribe()
	defer unsub()

	replies := make(chan []byte, 16)
	done := make(chan struct{})
	go h.readPump(r.Context(), conn, replies, done)
	h.writePump(conn, replies, states)
	close(done)
}

// readPump decodes input events until the connection closes, then closes replies.
func (h *Handlers) readPump(ctx context.Context, conn *websocket.Conn, replies chan<- []byte, done <-chan struct{}) {
	defer close(replies)
	reply := func(b []byte) bool {
		select {
		case replies <- b:
			return true
		case <-done:
			return false
		}
	}

	conn.SetReadLimit(maxInputBytes)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var in viewer.Input
		if err := conn.ReadJSON(&in); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
				if !reply(eventBytes("error", "invalid JSON", nil)) {
					return
				}
				continue
			}
			return
		}
		var msg []byte
		snap, err := h.Viewer.Dispatch(ctx, in)
		if err != nil {
			msg = eventBytes("error", err.Error(), nil)
		} else {
			msg = eventBytes("state", "", snap)
		}
		if !reply(msg) {
			return
		}
	}
}

// writePump is the only writer of conn.
func (h *Handlers) writePump(conn *websocket.Conn, replies <-chan []byte, states <-chan string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		var msg []byte
		select {
		case b, ok := <-replies:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msg = b
		case s, ok := <-states:
			if !ok {
				return
			}
			msg = []byte(s)
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func eventBytes(level, msg string, data any) []byte {
	evt := StatusEvent{Time: time.Now().Format(time.RFC3339), Level: level, Msg: msg}
	if data != nil {
		raw, err := json.Marshal(data)
		if err == nil {
			evt.Data = raw
		}
	}
	b, _ := json.Marshal(evt)
	return b
}
