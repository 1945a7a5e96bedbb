package websocket

import (
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/render"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect   Action = "select"
	ActionNavigate Action = "navigate"
	ActionConfirm  Action = "confirm"
	ActionCancel   Action = "cancel"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload carries any client action. Indexes are pointers so a
// missing field is not read as question or option 0.
type RequestPayload struct {
	Action        Action `json:"action"`
	QuestionIndex *int   `json:"question_index,omitempty"`
	OptionIndex   *int   `json:"option_index,omitempty"`
	// Direction is "next", "prev" or empty to jump to QuestionIndex.
	Direction string `json:"direction,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot     Event = "snapshot"
	EventQuestion     Event = "question"
	EventConfirmation Event = "confirmation"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

type SnapshotResponse struct {
	Event   Event             `json:"event"`
	Session model.ExamSession `json:"session"`
}

type QuestionResponse struct {
	Event    Event               `json:"event"`
	Question render.QuestionView `json:"question"`
}

type ConfirmationResponse struct {
	Event        Event              `json:"event"`
	Confirmation model.Confirmation `json:"confirmation"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
