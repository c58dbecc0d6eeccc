package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/stemsi/exstem-session/internal/service"
)

const (
	writeWait = 10 * time.Second
	// Clients ping well inside this window; a silent client is dropped.
	readWait = 2 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}

// FromSessionEvent converts a session event into its wire payload.
// ok is false for events that are not streamed.
func FromSessionEvent(ev service.Event) (interface{}, bool) {
	switch ev.Type {
	case service.EventTick:
		if ev.Tick == nil {
			return nil, false
		}
		return TickResponse{
			Event:       EventTick,
			RemainingMs: ev.Tick.RemainingMs,
			Formatted:   ev.Tick.Formatted,
			LowTime:     ev.Tick.LowTime,
		}, true
	case service.EventExpired:
		return ExpiredResponse{Event: EventExpired}, true
	case service.EventSubmitted:
		return SubmittedResponse{Event: EventSubmitted, Result: ev.Result}, true
	case service.EventSubmitFailed:
		return SubmitFailedResponse{Event: EventSubmitFailed, Error: ev.Error}, true
	default:
		return nil, false
	}
}
