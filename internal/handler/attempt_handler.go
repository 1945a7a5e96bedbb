package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-client/internal/apperror"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/response"
	"github.com/stemsi/exstem-client/internal/service"
	"github.com/stemsi/exstem-client/internal/session"
	"github.com/stemsi/exstem-client/internal/validator"
)

// AttemptHandler exposes hosted exam attempts to the browser UI.
type AttemptHandler struct {
	attempts *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// StartAttempt godoc
// POST /api/v1/exams/:exam_id/attempts
// Fetches the exam, opens a session and starts the countdown.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	examID := c.Param("exam_id")
	if examID == "" {
		response.Fail(c, http.StatusBadRequest, apperror.ErrInvalidID)
		return
	}

	a, err := h.attempts.Start(c.Request.Context(), examID)
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			response.FailWithData(c, statusForCode(appErr.Code), appErr, nil)
			return
		}
		response.Fail(c, http.StatusInternalServerError, apperror.ErrInternal)
		return
	}

	paper, _ := a.Controller().Paper()
	response.Success(c, http.StatusCreated, gin.H{
		"attempt_id": a.ID,
		"session":    a.Controller().Snapshot(),
		"paper":      paper,
	})
}

// GetAttempt godoc
// GET /api/v1/attempts/:attempt_id
// Returns the status-tagged session snapshot.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	a, ok := h.attempt(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": a.Controller().Snapshot()})
}

// GetPaper godoc
// GET /api/v1/attempts/:attempt_id/paper
// Returns the exam without correct answers.
func (h *AttemptHandler) GetPaper(c *gin.Context) {
	a, ok := h.attempt(c)
	if !ok {
		return
	}
	paper, loaded := a.Controller().Paper()
	if !loaded {
		response.Fail(c, http.StatusConflict, apperror.ErrNotInProgress)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// GetCurrentQuestion godoc
// GET /api/v1/attempts/:attempt_id/question
// Returns the current question rendered for answering.
func (h *AttemptHandler) GetCurrentQuestion(c *gin.Context) {
	a, ok := h.attempt(c)
	if !ok {
		return
	}
	view, loaded := a.Controller().CurrentQuestion()
	if !loaded {
		response.Fail(c, http.StatusConflict, apperror.ErrNotInProgress)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": view})
}

// SelectAnswer godoc
// PUT /api/v1/attempts/:attempt_id/answers
// Records one answer.
func (h *AttemptHandler) SelectAnswer(c *gin.Context) {
	a, ok := h.attempt(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, apperror.ErrValidation, fields)
		return
	}

	ctrl := a.Controller()
	if !ctrl.SelectAnswer(*req.QuestionIndex, *req.OptionIndex) {
		if ctrl.Snapshot().Status != model.SessionStatusInProgress {
			response.Fail(c, http.StatusConflict, apperror.ErrNotInProgress)
			return
		}
		response.FailWithFields(c, http.StatusBadRequest, apperror.ErrValidation, map[string]string{
			"option_index": "indeks soal atau pilihan di luar jangkauan",
		})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": ctrl.Snapshot()})
}

// Navigate godoc
// POST /api/v1/attempts/:attempt_id/navigate
// Moves to a question. Out-of-range indices are clamped.
func (h *AttemptHandler) Navigate(c *gin.Context) {
	a, ok := h.attempt(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, apperror.ErrValidation, fields)
		return
	}

	ctrl := a.Controller()
	switch {
	case req.Direction == "next":
		ctrl.Next()
	case req.Direction == "prev":
		ctrl.Prev()
	default:
		ctrl.GoToQuestion(*req.Index)
	}

	view, _ := ctrl.CurrentQuestion()
	response.Success(c, http.StatusOK, gin.H{
		"session":  ctrl.Snapshot(),
		"question": view,
	})
}

// RequestSubmit godoc
// POST /api/v1/attempts/:attempt_id/submit/request
// Opens the confirmation prompt with answered/unanswered counts.
func (h *AttemptHandler) RequestSubmit(c *gin.Context) {
	a, ok := h.attempt(c)
	if !ok {
		return
	}
	conf, err := a.Controller().RequestSubmit()
	if err != nil {
		response.Fail(c, http.StatusConflict, apperror.ErrNotInProgress)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"confirmation": conf})
}

// CancelSubmit godoc
// POST /api/v1/attempts/:attempt_id/submit/cancel
// Closes the confirmation prompt.
func (h *AttemptHandler) CancelSubmit(c *gin.Context) {
	a, ok := h.attempt(c)
	if !ok {
		return
	}
	a.Controller().CancelSubmit()
	response.Success(c, http.StatusOK, gin.H{"session": a.Controller().Snapshot()})
}

// Submit godoc
// POST /api/v1/attempts/:attempt_id/submit
// Submits the attempt. Only the first of this call and the countdown
// expiry reaches the backend.
func (h *AttemptHandler) Submit(c *gin.Context) {
	a, ok := h.attempt(c)
	if !ok {
		return
	}
	h.finishSubmit(c, a, a.Controller().ConfirmSubmit(c.Request.Context()))
}

// RetrySubmit godoc
// POST /api/v1/attempts/:attempt_id/submit/retry
// Retries a final submission that failed after time ran out.
func (h *AttemptHandler) RetrySubmit(c *gin.Context) {
	a, ok := h.attempt(c)
	if !ok {
		return
	}
	h.finishSubmit(c, a, a.Controller().RetrySubmit(c.Request.Context()))
}

// DiscardAttempt godoc
// DELETE /api/v1/attempts/:attempt_id
// Stops the countdown and forgets the attempt.
func (h *AttemptHandler) DiscardAttempt(c *gin.Context) {
	id := c.Param("attempt_id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(c, http.StatusBadRequest, apperror.ErrInvalidID)
		return
	}
	if err := h.attempts.Discard(id); err != nil {
		response.Fail(c, http.StatusNotFound, apperror.ErrAttemptNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "attempt discarded"})
}

// ─── Helpers ───────────────────────────────────────────────────────────

func (h *AttemptHandler) attempt(c *gin.Context) (*service.Attempt, bool) {
	id := c.Param("attempt_id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(c, http.StatusBadRequest, apperror.ErrInvalidID)
		return nil, false
	}
	a, err := h.attempts.Get(id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, apperror.ErrAttemptNotFound)
		return nil, false
	}
	return a, true
}

func (h *AttemptHandler) finishSubmit(c *gin.Context, a *service.Attempt, err error) {
	ctrl := a.Controller()
	switch {
	case err == nil:
		result, _ := ctrl.Result()
		response.Success(c, http.StatusOK, gin.H{
			"session": ctrl.Snapshot(),
			"result":  result,
		})
	case errors.Is(err, session.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, apperror.ErrSubmitInFlight)
	case errors.Is(err, session.ErrNotInProgress):
		response.Fail(c, http.StatusConflict, apperror.ErrNotInProgress)
	case errors.Is(err, session.ErrStaleSession):
		response.Fail(c, http.StatusGone, apperror.ErrAttemptNotFound)
	default:
		snap := ctrl.Snapshot()
		if snap.Error == nil {
			response.Fail(c, http.StatusInternalServerError, apperror.ErrInternal)
			return
		}
		response.FailWithData(c, statusForCode(snap.Error.Code), snap.Error, gin.H{"session": snap})
	}
}

func statusForCode(code apperror.ErrCode) int {
	switch code {
	case apperror.ErrExamNotFound, apperror.ErrResultNotFound, apperror.ErrAttemptNotFound:
		return http.StatusNotFound
	case apperror.ErrUnauthenticated:
		return http.StatusUnauthorized
	case apperror.ErrNoQuestions, apperror.ErrInvalidDuration:
		return http.StatusUnprocessableEntity
	case apperror.ErrSubmitConflict, apperror.ErrSubmitInFlight, apperror.ErrNotInProgress:
		return http.StatusConflict
	case apperror.ErrNetwork, apperror.ErrSubmitFailed, apperror.ErrSubmitFailedTimeUp:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
