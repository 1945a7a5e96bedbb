package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/apperror"
	"github.com/stemsi/exstem-client/internal/service"
	"github.com/stemsi/exstem-client/internal/session"
	ws "github.com/stemsi/exstem-client/internal/websocket"
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

// WSHandler streams attempt snapshots and accepts actions over WebSocket.
type WSHandler struct {
	attempts *service.AttemptService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attempts *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream
// Pushes a snapshot on every state change (including each countdown tick)
// and applies select/navigate/confirm/cancel/submit actions.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	attemptID := c.Param("attempt_id")
	if _, err := uuid.Parse(attemptID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}
	a, err := h.attempts.Get(attemptID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("attempt_id", attemptID).
		Str("exam_id", a.ExamID).
		Logger()
	wsLog.Info().Msg("Client connected")

	updates, cancel := a.Subscribe()
	defer cancel()

	// A single writer goroutine owns the connection for writes.
	send := make(chan interface{}, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := ws.WriteTyped(conn, msg); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- ws.SnapshotResponse{Event: ws.EventSnapshot, Session: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// Submissions run off the read loop and outlive a dropped connection.
	var submits int
	submitDone := make(chan struct{}, 8)

	trySend := func(msg interface{}) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		ctrl := a.Controller()
		switch msg.Action {
		case ws.ActionPing:
			trySend(ws.PongResponse{Event: ws.EventPong})

		case ws.ActionSelect:
			if msg.QuestionIndex == nil || msg.OptionIndex == nil {
				trySend(errorEvent(apperror.ErrValidation))
				continue
			}
			if !ctrl.SelectAnswer(*msg.QuestionIndex, *msg.OptionIndex) {
				trySend(errorEvent(apperror.ErrValidation))
			}

		case ws.ActionNavigate:
			switch msg.Direction {
			case "next":
				ctrl.Next()
			case "prev":
				ctrl.Prev()
			case "":
				if msg.QuestionIndex == nil {
					trySend(errorEvent(apperror.ErrValidation))
					continue
				}
				ctrl.GoToQuestion(*msg.QuestionIndex)
			default:
				trySend(errorEvent(apperror.ErrValidation))
				continue
			}
			if view, ok := ctrl.CurrentQuestion(); ok {
				trySend(ws.QuestionResponse{Event: ws.EventQuestion, Question: view})
			}

		case ws.ActionConfirm:
			conf, err := ctrl.RequestSubmit()
			if err != nil {
				trySend(errorEvent(apperror.ErrNotInProgress))
				continue
			}
			trySend(ws.ConfirmationResponse{Event: ws.EventConfirmation, Confirmation: conf})

		case ws.ActionCancel:
			ctrl.CancelSubmit()

		case ws.ActionSubmit:
			submits++
			go func() {
				defer func() { submitDone <- struct{}{} }()
				if err := ctrl.ConfirmSubmit(context.Background()); err != nil {
					if code, ok := submitErrorCode(ctrl, err); ok {
						trySend(errorEvent(code))
					}
					wsLog.Warn().Err(err).Msg("Submit from stream failed")
				}
			}()

		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			trySend(ws.ErrorResponse{Event: ws.EventError, Code: string(apperror.ErrValidation), Error: "unknown action: " + string(msg.Action)})
		}
	}

	close(closeSignals)
	for ; submits > 0; submits-- {
		<-submitDone
	}
	<-updatesDone
	close(send)
	<-writerDone
}

func errorEvent(code apperror.ErrCode) ws.ErrorResponse {
	return ws.ErrorResponse{Event: ws.EventError, Code: string(code), Error: apperror.GetMessage(code)}
}

// submitErrorCode maps a submit error to a code for the client. Failures
// already visible in the snapshot are not repeated.
func submitErrorCode(ctrl *session.Controller, err error) (apperror.ErrCode, bool) {
	switch {
	case errors.Is(err, session.ErrSubmitInFlight):
		return apperror.ErrSubmitInFlight, true
	case errors.Is(err, session.ErrNotInProgress):
		return apperror.ErrNotInProgress, true
	case errors.Is(err, session.ErrStaleSession):
		return apperror.ErrAttemptNotFound, true
	}
	if ctrl.Snapshot().Error != nil {
		return "", false
	}
	return apperror.ErrInternal, true
}
