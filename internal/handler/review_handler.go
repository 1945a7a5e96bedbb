package handler

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/apperror"
	"github.com/stemsi/exstem-client/internal/backend"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/render"
	"github.com/stemsi/exstem-client/internal/response"
	"github.com/stemsi/exstem-client/internal/review"
	"github.com/stemsi/exstem-client/internal/validator"
)

// ReviewHandler serves the read-only review screen.
type ReviewHandler struct {
	reviews *review.Service
	log     zerolog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviews *review.Service, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		log:     log.With().Str("component", "review_handler").Logger(),
	}
}

// GetReview godoc
// GET /api/v1/results/:result_id/review?filter=all|incorrect
// Returns the result, per-question review views and summary counts.
func (h *ReviewHandler) GetReview(c *gin.Context) {
	resultID := c.Param("result_id")
	if resultID == "" {
		response.Fail(c, http.StatusBadRequest, apperror.ErrInvalidID)
		return
	}

	var q model.ReviewQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, apperror.ErrValidation, fields)
		return
	}

	r, err := h.reviews.Load(c.Request.Context(), resultID)
	if err != nil {
		var nf *backend.NotFoundError
		if errors.As(err, &nf) {
			response.Fail(c, http.StatusNotFound, apperror.ErrResultNotFound)
			return
		}
		h.log.Error().Err(err).Str("result_id", resultID).Msg("Failed to load review")
		response.Fail(c, http.StatusBadGateway, apperror.ErrNetwork)
		return
	}

	items := slices.Collect(r.Items(q.Filter != "incorrect"))
	if items == nil {
		items = []render.QuestionView{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"result": r.Result,
		"title":  r.Exam.Title,
		"counts": r.Counts(),
		"items":  items,
	})
}
