// Package review loads a finished attempt for the read-only review screen.
package review

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/render"
	"github.com/stemsi/exstem-client/internal/scoring"
	"github.com/stemsi/exstem-client/internal/store"
)

// Backend is the read-only part of the exam backend used for review.
type Backend interface {
	FetchExamByID(ctx context.Context, examID string) (*model.ExamDefinition, error)
	FetchResult(ctx context.Context, resultID string) (*model.ExamResult, error)
}

// Service loads reviews.
type Service struct {
	backend Backend
	results store.ResultStore
	log     zerolog.Logger
}

// NewService creates a new Service. results may be nil.
func NewService(b Backend, results store.ResultStore, log zerolog.Logger) *Service {
	return &Service{
		backend: b,
		results: results,
		log:     log.With().Str("component", "review_service").Logger(),
	}
}

// Review is a finished attempt joined with its questions.
type Review struct {
	Result  model.ExamResult
	Exam    model.ExamDefinition
	Outcome scoring.Outcome
}

// Counts summarizes a review.
type Counts struct {
	Total      int `json:"total"`
	Answered   int `json:"answered"`
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
	Unanswered int `json:"unanswered"`
}

// Load reads the result from the local store, falling back to the backend,
// and fetches the exam with its keys for review mode.
func (s *Service) Load(ctx context.Context, resultID string) (*Review, error) {
	result, err := s.loadResult(ctx, resultID)
	if err != nil {
		return nil, err
	}

	exam, err := s.backend.FetchExamByID(ctx, result.ExamID)
	if err != nil {
		return nil, fmt.Errorf("fetch exam for review: %w", err)
	}

	return &Review{
		Result:  *result,
		Exam:    *exam,
		Outcome: scoring.Score(exam.Questions, result.Answers),
	}, nil
}

func (s *Service) loadResult(ctx context.Context, resultID string) (*model.ExamResult, error) {
	if s.results != nil {
		result, err := s.results.Get(ctx, resultID)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Err(err).Str("result_id", resultID).Msg("Result cache lookup failed")
		}
	}

	result, err := s.backend.FetchResult(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	if s.results != nil {
		if err := s.results.Save(ctx, result); err != nil {
			s.log.Warn().Err(err).Str("result_id", resultID).Msg("Failed to cache fetched result")
		}
	}
	return result, nil
}

// Items yields review-mode views, either all of them or only the incorrect
// and unanswered ones. The sequence can be ranged over more than once.
func (r *Review) Items(showAll bool) iter.Seq[render.QuestionView] {
	return func(yield func(render.QuestionView) bool) {
		total := len(r.Exam.Questions)
		for i := range scoring.FilterForReview(r.Exam.Questions, r.Result.Answers, showAll) {
			if !yield(render.Review(r.Exam.Questions[i], i, total, r.Result.Answers.At(i))) {
				return
			}
		}
	}
}

// Counts returns answered, correct and incorrect totals.
func (r *Review) Counts() Counts {
	c := Counts{Total: len(r.Exam.Questions)}
	for i := range r.Exam.Questions {
		switch {
		case !r.Result.Answers.At(i).Answered():
			c.Unanswered++
		case r.Outcome.Correct[i]:
			c.Answered++
			c.Correct++
		default:
			c.Answered++
			c.Incorrect++
		}
	}
	return c
}
