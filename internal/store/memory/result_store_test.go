package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/store"
)

func TestResultStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewResultStore()

	if _, err := s.Get(ctx, "r1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first := &model.ExamResult{ResultID: "r1", ExamID: "e1", Answers: model.Answers{0, model.Unanswered}, SubmittedAt: now}
	second := &model.ExamResult{ResultID: "r2", ExamID: "e1", SubmittedAt: now.Add(time.Minute)}
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Answers[0] = 3
	again, _ := s.Get(ctx, "r1")
	if again.Answers[0] != 0 {
		t.Fatalf("expected stored answers to be isolated from callers")
	}

	latest, err := s.LatestForExam(ctx, "e1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ResultID != "r2" {
		t.Fatalf("expected newest result r2, got %s", latest.ResultID)
	}
}
