// Package store defines where finished exam results are kept.
package store

import (
	"context"
	"errors"

	"github.com/stemsi/exstem-client/internal/model"
)

// ErrNotFound is returned when no result matches the lookup.
var ErrNotFound = errors.New("result not found")

// ResultStore persists finished results. Implementations must be safe for
// concurrent use.
type ResultStore interface {
	// Save records a result. Saving the same result ID twice keeps the latest copy.
	Save(ctx context.Context, result *model.ExamResult) error
	// Get returns the result with the given ID or ErrNotFound.
	Get(ctx context.Context, resultID string) (*model.ExamResult, error)
	// LatestForExam returns the most recently saved result for an exam or ErrNotFound.
	LatestForExam(ctx context.Context, examID string) (*model.ExamResult, error)
}
