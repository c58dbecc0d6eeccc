package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/service"
	"github.com/stemsi/exstem-session/internal/worker"
	ws "github.com/stemsi/exstem-session/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the exam clock and submission outcomes to the exam UI.
type WSHandler struct {
	session  *service.ExamSession
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(session *service.ExamSession, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		session:  session,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/session/stream
// Pushes tick, expired, submitted and submit_failed events. Accepts ping and
// submit actions from the client.
func (h *WSHandler) SessionStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe := h.session.Subscribe()
	defer unsubscribe()

	h.log.Info().Str("remote", c.ClientIP()).Msg("Client connected")

	// Current clock first so the UI does not wait for the next tick.
	if snap, err := h.session.Snapshot(); err == nil && !snap.Submitted {
		tick := worker.Tick{RemainingMs: snap.RemainingMs, Formatted: snap.Remaining, LowTime: snap.LowTime}
		if payload, ok := ws.FromSessionEvent(service.Event{Type: service.EventTick, Tick: &tick}); ok {
			_ = ws.WriteTyped(conn, payload)
		}
	}

	// gorilla allows one concurrent reader and one writer: the reader goroutine
	// only forwards actions, every write happens below.
	actions := make(chan ws.Action)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Warn().Err(err).Msg("Unexpected close")
				} else {
					h.log.Debug().Msg("Connection closed")
				}
				return
			}
			select {
			case actions <- msg.Action:
			case <-c.Request.Context().Done():
				return
			}
		}
	}()

	for {
		select {
		case <-readerDone:
			return

		case ev, open := <-events:
			if !open {
				return
			}
			payload, ok := ws.FromSessionEvent(ev)
			if !ok {
				continue
			}
			if err := ws.WriteTyped(conn, payload); err != nil {
				h.log.Debug().Err(err).Msg("Write failed")
				return
			}

		case action := <-actions:
			if err := h.handleAction(c, conn, action); err != nil {
				h.log.Debug().Err(err).Msg("Write failed")
				return
			}
		}
	}
}

func (h *WSHandler) handleAction(c *gin.Context, conn *websocket.Conn, action ws.Action) error {
	switch action {
	case ws.ActionPing:
		return ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

	case ws.ActionSubmit:
		// The outcome reaches every subscriber as a submitted or submit_failed
		// event; only rejections that publish nothing are answered here.
		_, err := h.session.Submit(c.Request.Context())
		switch {
		case err == nil:
			return nil
		case errors.Is(err, service.ErrSubmissionInFlight),
			errors.Is(err, service.ErrSessionClosed),
			errors.Is(err, service.ErrSessionNotStarted):
			return ws.WriteError(conn, err.Error())
		default:
			return nil
		}

	default:
		h.log.Warn().Str("action", string(action)).Msg("Unknown action")
		return ws.WriteError(conn, "unknown action: "+string(action))
	}
}
