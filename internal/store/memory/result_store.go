package memory

import (
	"context"
	"sync"

	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/store"
)

// ResultStore is an in-process implementation of store.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]model.ExamResult
	latest  map[string]string
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]model.ExamResult),
		latest:  make(map[string]string),
	}
}

func (s *ResultStore) Save(_ context.Context, result *model.ExamResult) error {
	r := *result
	r.Answers = result.Answers.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.ResultID] = r
	if prevID, ok := s.latest[r.ExamID]; ok {
		if prev := s.results[prevID]; prev.SubmittedAt.After(r.SubmittedAt) {
			return nil
		}
	}
	s.latest[r.ExamID] = r.ResultID
	return nil
}

func (s *ResultStore) Get(_ context.Context, resultID string) (*model.ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[resultID]
	if !ok {
		return nil, store.ErrNotFound
	}
	r.Answers = r.Answers.Clone()
	return &r, nil
}

func (s *ResultStore) LatestForExam(ctx context.Context, examID string) (*model.ExamResult, error) {
	s.mu.RLock()
	id, ok := s.latest[examID]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.Get(ctx, id)
}
