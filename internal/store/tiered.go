package store

import (
	"context"
	"errors"

	"github.com/stemsi/exstem-client/internal/model"
)

// Tiered reads through a short-lived cache into a durable archive. Writes
// go to the cache only; the archive is filled by a background sync.
type Tiered struct {
	cache   ResultStore
	archive ResultStore
}

// NewTiered returns a ResultStore that saves to cache and falls back to
// archive when cache misses.
func NewTiered(cache, archive ResultStore) *Tiered {
	return &Tiered{cache: cache, archive: archive}
}

func (t *Tiered) Save(ctx context.Context, result *model.ExamResult) error {
	return t.cache.Save(ctx, result)
}

func (t *Tiered) Get(ctx context.Context, resultID string) (*model.ExamResult, error) {
	r, err := t.cache.Get(ctx, resultID)
	if !errors.Is(err, ErrNotFound) {
		return r, err
	}
	return t.archive.Get(ctx, resultID)
}

func (t *Tiered) LatestForExam(ctx context.Context, examID string) (*model.ExamResult, error) {
	r, err := t.cache.LatestForExam(ctx, examID)
	if !errors.Is(err, ErrNotFound) {
		return r, err
	}
	return t.archive.LatestForExam(ctx, examID)
}
