package websocket

import "github.com/stemsi/exstem-session/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick         Event = "tick"
	EventExpired      Event = "expired"
	EventSubmitted    Event = "submitted"
	EventSubmitFailed Event = "submit_failed"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

// TickResponse carries the remaining exam time, pushed about once a second.
type TickResponse struct {
	Event       Event  `json:"event"`
	RemainingMs int64  `json:"remaining_ms"`
	Formatted   string `json:"formatted"`
	LowTime     bool   `json:"low_time"`
}

// ExpiredResponse is pushed once when the exam clock reaches zero.
type ExpiredResponse struct {
	Event Event `json:"event"`
}

type SubmittedResponse struct {
	Event  Event                   `json:"event"`
	Result *model.SubmissionResult `json:"result"`
}

type SubmitFailedResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
