package review

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/backend"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/store/memory"
)

func intPtr(v int) *int { return &v }

func newFixture(t *testing.T) (*backend.Fixture, string) {
	t.Helper()
	f := backend.NewFixture([]model.ExamDefinition{{
		ID:              "bio-01",
		Title:           "Biologi",
		DurationMinutes: 10,
		Questions: []model.Question{
			{ID: "q1", Text: "Sel", Options: []string{"a", "b"}, CorrectOption: intPtr(0), Explanation: "Sel adalah unit terkecil."},
			{ID: "q2", Text: "DNA", Options: []string{"a", "b"}, CorrectOption: intPtr(1)},
			{ID: "q3", Text: "RNA", Options: []string{"a", "b"}, CorrectOption: intPtr(1)},
		},
	}})

	ctx := context.Background()
	sessionID, err := f.OpenSession(ctx, "bio-01")
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	resultID, err := f.SubmitSession(ctx, sessionID, model.Answers{0, 0, model.Unanswered}, 120)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return f, resultID
}

func TestLoadFallsBackToBackendAndCaches(t *testing.T) {
	f, resultID := newFixture(t)
	results := memory.NewResultStore()
	svc := NewService(f, results, zerolog.Nop())

	r, err := svc.Load(context.Background(), resultID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Exam.Title != "Biologi" || r.Result.CorrectCount != 1 {
		t.Fatalf("unexpected review %+v", r)
	}
	if _, err := results.Get(context.Background(), resultID); err != nil {
		t.Fatalf("expected fetched result cached, got %v", err)
	}
}

func TestLoadPrefersLocalStore(t *testing.T) {
	f, _ := newFixture(t)
	results := memory.NewResultStore()
	local := &model.ExamResult{
		ResultID:    "local-1",
		ExamID:      "bio-01",
		Answers:     model.Answers{0, 1, 1},
		SubmittedAt: time.Now(),
	}
	if err := results.Save(context.Background(), local); err != nil {
		t.Fatalf("save: %v", err)
	}

	r, err := NewService(f, results, zerolog.Nop()).Load(context.Background(), "local-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Outcome.CorrectCount != 3 {
		t.Fatalf("expected 3 correct, got %d", r.Outcome.CorrectCount)
	}
}

func TestLoadUnknownResult(t *testing.T) {
	f, _ := newFixture(t)
	_, err := NewService(f, nil, zerolog.Nop()).Load(context.Background(), "missing")
	if !backend.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestItemsFilterAndCounts(t *testing.T) {
	f, resultID := newFixture(t)
	r, err := NewService(f, nil, zerolog.Nop()).Load(context.Background(), resultID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var all []string
	for v := range r.Items(true) {
		all = append(all, v.QuestionID)
	}
	if !slices.Equal(all, []string{"q1", "q2", "q3"}) {
		t.Fatalf("expected every question, got %v", all)
	}

	var wrong []string
	for v := range r.Items(false) {
		if v.Correct {
			t.Fatalf("filtered view must not include correct answers")
		}
		wrong = append(wrong, v.QuestionID)
	}
	if !slices.Equal(wrong, []string{"q2", "q3"}) {
		t.Fatalf("expected [q2 q3], got %v", wrong)
	}

	got := r.Counts()
	want := Counts{Total: 3, Answered: 2, Correct: 1, Incorrect: 1, Unanswered: 1}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
