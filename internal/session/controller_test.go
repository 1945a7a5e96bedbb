package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/apperror"
	"github.com/stemsi/exstem-client/internal/backend"
	"github.com/stemsi/exstem-client/internal/countdown"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/store"
	"github.com/stemsi/exstem-client/internal/store/memory"
)

// ─── Test doubles ──────────────────────────────────────────────────────

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Add(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

type fakeBackend struct {
	mu          sync.Mutex
	exam        *model.ExamDefinition
	fetchErr    error
	openErr     error
	submitErrs  []error
	submitCalls atomic.Int32
	submitGate  chan struct{}
	results     map[string]*model.ExamResult

	lastAnswers   model.Answers
	lastTimeSpent int
}

func (f *fakeBackend) FetchExamByID(_ context.Context, examID string) (*model.ExamDefinition, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.exam == nil || f.exam.ID != examID {
		return nil, &backend.NotFoundError{Resource: "exam", ID: examID}
	}
	e := *f.exam
	return &e, nil
}

func (f *fakeBackend) OpenSession(_ context.Context, _ string) (string, error) {
	if f.openErr != nil {
		return "", f.openErr
	}
	return "session-1", nil
}

func (f *fakeBackend) SubmitSession(_ context.Context, _ string, answers model.Answers, timeSpent int) (string, error) {
	n := f.submitCalls.Add(1)
	if f.submitGate != nil {
		<-f.submitGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAnswers = answers.Clone()
	f.lastTimeSpent = timeSpent
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		if err != nil {
			return "", err
		}
	}
	if n == 1 {
		return "result-1", nil
	}
	return "result-2", nil
}

func (f *fakeBackend) FetchResult(_ context.Context, resultID string) (*model.ExamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[resultID]
	if !ok {
		return nil, &backend.NotFoundError{Resource: "result", ID: resultID}
	}
	return r, nil
}

// tenQuestionExam has keys 0,1,2,3,0,1,2,3,0,1 and lasts 60 seconds.
func tenQuestionExam() *model.ExamDefinition {
	exam := &model.ExamDefinition{ID: "exam-1", Title: "Fisika", DurationMinutes: 1}
	for i := 0; i < 10; i++ {
		key := i % 4
		exam.Questions = append(exam.Questions, model.Question{
			ID:            string(rune('a' + i)),
			Text:          "Soal",
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: &key,
		})
	}
	return exam
}

type harness struct {
	ctrl    *Controller
	backend *fakeBackend
	sched   *countdown.ManualScheduler
	clock   *fakeClock
	results *memory.ResultStore

	mu       sync.Mutex
	shown    []string
	statuses []model.SessionStatus
}

func newHarness(t *testing.T, b *fakeBackend) *harness {
	t.Helper()
	h := &harness{
		backend: b,
		sched:   countdown.NewManualScheduler(),
		clock:   newFakeClock(),
		results: memory.NewResultStore(),
	}
	h.ctrl = New(b, h.results, zerolog.Nop(),
		WithScheduler(h.sched),
		WithClock(h.clock.Now),
		WithNavigator(NavigatorFunc(func(id string) {
			h.mu.Lock()
			h.shown = append(h.shown, id)
			h.mu.Unlock()
		})),
		WithListener(func(s model.ExamSession) {
			h.mu.Lock()
			if n := len(h.statuses); n == 0 || h.statuses[n-1] != s.Status {
				h.statuses = append(h.statuses, s.Status)
			}
			h.mu.Unlock()
		}),
	)
	t.Cleanup(h.ctrl.Close)
	return h
}

func startedHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, &fakeBackend{exam: tenQuestionExam()})
	if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	return h
}

// advance moves both the countdown and the wall clock by n seconds.
func (h *harness) advance(n int) {
	for i := 0; i < n; i++ {
		h.clock.Add(time.Second)
		h.sched.Fire()
	}
}

// ─── Bootstrap ─────────────────────────────────────────────────────────

func TestStartInitializesSession(t *testing.T) {
	h := startedHarness(t)

	s := h.ctrl.Snapshot()
	if s.Status != model.SessionStatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", s.Status)
	}
	if s.TimeRemainingSeconds != 60 || s.QuestionCount != 10 || s.CurrentQuestionIndex != 0 {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if s.Answers.AnsweredCount() != 0 || len(s.Answers) != 10 {
		t.Fatalf("expected 10 unanswered slots, got %v", s.Answers)
	}
	if s.SessionID != "session-1" {
		t.Fatalf("expected session id, got %q", s.SessionID)
	}
	if h.sched.Pending() != 1 {
		t.Fatalf("expected one armed countdown, got %d", h.sched.Pending())
	}
	if err := h.ctrl.Start(context.Background(), "exam-1"); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStartFailures(t *testing.T) {
	cases := []struct {
		name string
		b    *fakeBackend
		code apperror.ErrCode
	}{
		{"exam not found", &fakeBackend{}, apperror.ErrExamNotFound},
		{"not logged in", &fakeBackend{exam: tenQuestionExam(), openErr: &backend.AuthError{}}, apperror.ErrUnauthenticated},
		{"network", &fakeBackend{fetchErr: &backend.NetworkError{Op: "fetch exam", Err: errors.New("reset")}}, apperror.ErrNetwork},
		{"no questions", &fakeBackend{exam: &model.ExamDefinition{ID: "exam-1", DurationMinutes: 1}}, apperror.ErrNoQuestions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.b)
			if err := h.ctrl.Start(context.Background(), "exam-1"); err == nil {
				t.Fatalf("expected error")
			}
			s := h.ctrl.Snapshot()
			if s.Status != model.SessionStatusFailed {
				t.Fatalf("expected FAILED, got %s", s.Status)
			}
			if s.Error == nil || s.Error.Code != tc.code || s.Error.Message == "" {
				t.Fatalf("expected %s, got %+v", tc.code, s.Error)
			}
			if h.sched.Pending() != 0 {
				t.Fatalf("expected no countdown after failed start")
			}
			if _, ok := h.ctrl.CurrentQuestion(); ok {
				t.Fatalf("expected no question after failed start")
			}
		})
	}
}

// ─── Answers and navigation ────────────────────────────────────────────

func TestSelectAnswerIsIdempotent(t *testing.T) {
	h := startedHarness(t)

	h.ctrl.SelectAnswer(3, 2)
	once := h.ctrl.Snapshot().Answers
	h.ctrl.SelectAnswer(3, 2)
	twice := h.ctrl.Snapshot().Answers
	if once[3] != 2 || twice[3] != 2 || once.AnsweredCount() != twice.AnsweredCount() {
		t.Fatalf("expected same answers, got %v and %v", once, twice)
	}

	h.ctrl.SelectAnswer(3, 0)
	if got := h.ctrl.Snapshot().Answers[3]; got != 0 {
		t.Fatalf("expected replaced answer 0, got %d", got)
	}

	if h.ctrl.SelectAnswer(10, 0) || h.ctrl.SelectAnswer(-1, 0) || h.ctrl.SelectAnswer(0, 4) {
		t.Fatalf("out of range answers must be ignored")
	}
}

func TestNavigationClamps(t *testing.T) {
	h := startedHarness(t)

	if got := h.ctrl.GoToQuestion(-5); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := h.ctrl.GoToQuestion(9999); got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
	if got := h.ctrl.Next(); got != 9 {
		t.Fatalf("expected Next to stay at 9, got %d", got)
	}
	if got := h.ctrl.Prev(); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}

	v, ok := h.ctrl.CurrentQuestion()
	if !ok || v.Index != 8 || v.Number != 9 || v.Total != 10 {
		t.Fatalf("unexpected current question %+v", v)
	}
	for _, opt := range v.Options {
		if opt.Correct || opt.Incorrect {
			t.Fatalf("in-progress view must not reveal keys")
		}
	}
}

func TestConfirmationFlow(t *testing.T) {
	h := startedHarness(t)
	h.ctrl.SelectAnswer(0, 0)
	h.ctrl.SelectAnswer(1, 1)
	h.advance(5)

	conf, err := h.ctrl.RequestSubmit()
	if err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if conf.Answered != 2 || conf.Unanswered != 8 || conf.TimeRemainingSeconds != 55 {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	if !h.ctrl.Snapshot().Confirming {
		t.Fatalf("expected confirming")
	}

	h.ctrl.CancelSubmit()
	s := h.ctrl.Snapshot()
	if s.Confirming || s.Status != model.SessionStatusInProgress || s.Answers.AnsweredCount() != 2 {
		t.Fatalf("cancel must only close the prompt, got %+v", s)
	}
	if h.backend.submitCalls.Load() != 0 {
		t.Fatalf("cancel must not submit")
	}

	if _, err := h.ctrl.RequestSubmit(); err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if err := h.ctrl.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if s := h.ctrl.Snapshot(); s.Status != model.SessionStatusCompleted || s.Confirming {
		t.Fatalf("expected COMPLETED without prompt, got %+v", s)
	}
}

// ─── Submission ────────────────────────────────────────────────────────

func TestManualSubmitScoresAttempt(t *testing.T) {
	h := startedHarness(t)

	// 7 correct, 1 wrong, 2 unanswered.
	for i, o := range []int{0, 1, 2, 3, 0, 1, 2, 0} {
		h.ctrl.SelectAnswer(i, o)
	}
	h.advance(48)

	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	result, ok := h.ctrl.Result()
	if !ok {
		t.Fatalf("expected result")
	}
	if result.CorrectCount != 7 || result.Score != 7.0 || result.TimeSpentSeconds != 48 {
		t.Fatalf("unexpected result %+v", result)
	}
	if h.backend.lastTimeSpent != 48 {
		t.Fatalf("expected 48s sent to backend, got %d", h.backend.lastTimeSpent)
	}

	s := h.ctrl.Snapshot()
	if s.Status != model.SessionStatusCompleted || s.ResultID != "result-1" {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if len(h.shown) != 1 || h.shown[0] != "result-1" {
		t.Fatalf("expected navigation to result-1, got %v", h.shown)
	}

	cached, err := h.results.Get(context.Background(), "result-1")
	if err != nil || cached.Score != 7.0 {
		t.Fatalf("expected cached result, got %+v %v", cached, err)
	}
	if h.sched.Pending() != 0 {
		t.Fatalf("expected countdown stopped")
	}

	want := []model.SessionStatus{model.SessionStatusInProgress, model.SessionStatusSubmitting, model.SessionStatusCompleted}
	if len(h.statuses) < len(want) {
		t.Fatalf("unexpected status sequence %v", h.statuses)
	}
	tail := h.statuses[len(h.statuses)-len(want):]
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("unexpected status sequence %v", h.statuses)
		}
	}
}

func TestTimerExpiryAutoSubmitsOnce(t *testing.T) {
	h := startedHarness(t)

	h.advance(60)
	h.advance(5)

	if got := h.backend.submitCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one submission, got %d", got)
	}
	result, ok := h.ctrl.Result()
	if !ok {
		t.Fatalf("expected result")
	}
	if result.CorrectCount != 0 || result.Score != 0.0 || result.TimeSpentSeconds != 60 {
		t.Fatalf("unexpected result %+v", result)
	}
	if s := h.ctrl.Snapshot(); s.TimeRemainingSeconds != 0 || s.Status != model.SessionStatusCompleted {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}

func TestManualSubmitRacingExpirySubmitsOnce(t *testing.T) {
	for round := 0; round < 50; round++ {
		b := &fakeBackend{exam: tenQuestionExam(), submitGate: make(chan struct{})}
		h := newHarness(t, b)
		if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
			t.Fatalf("start: %v", err)
		}
		h.advance(59)

		var wg sync.WaitGroup
		var wins atomic.Int32
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := h.ctrl.Submit(context.Background()); err == nil {
					wins.Add(1)
				} else if !errors.Is(err, ErrSubmitInFlight) && !errors.Is(err, ErrNotInProgress) {
					t.Errorf("unexpected error %v", err)
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.sched.Fire()
		}()

		// Let the winner through once every contender has had its turn.
		time.Sleep(time.Millisecond)
		close(b.submitGate)
		wg.Wait()

		if got := b.submitCalls.Load(); got != 1 {
			t.Fatalf("round %d: expected exactly one submission, got %d", round, got)
		}
		if wins.Load() > 1 {
			t.Fatalf("round %d: more than one manual submit succeeded", round)
		}
		if s := h.ctrl.Snapshot(); s.Status != model.SessionStatusCompleted {
			t.Fatalf("round %d: expected COMPLETED, got %s", round, s.Status)
		}
	}
}

func TestSubmitFailureResumesAndRearms(t *testing.T) {
	b := &fakeBackend{
		exam:       tenQuestionExam(),
		submitErrs: []error{&backend.NetworkError{Op: "submit session", Err: errors.New("timeout")}},
	}
	h := newHarness(t, b)
	if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.ctrl.SelectAnswer(0, 0)
	h.advance(10)

	err := h.ctrl.Submit(context.Background())
	var ne *backend.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}

	s := h.ctrl.Snapshot()
	if s.Status != model.SessionStatusInProgress || s.TimeRemainingSeconds != 50 {
		t.Fatalf("expected resumed attempt with 50s, got %+v", s)
	}
	if s.Error == nil || s.Error.Code != apperror.ErrSubmitFailed || !s.Error.Retryable {
		t.Fatalf("expected retryable SUBMIT_FAILED, got %+v", s.Error)
	}
	if s.Answers[0] != 0 {
		t.Fatalf("answers must survive a failed submit")
	}
	if h.sched.Pending() != 1 {
		t.Fatalf("expected re-armed countdown, got %d", h.sched.Pending())
	}

	h.advance(50)
	if got := b.submitCalls.Load(); got != 2 {
		t.Fatalf("expected auto-submit after re-arm, got %d calls", got)
	}
	result, ok := h.ctrl.Result()
	if !ok || result.TimeSpentSeconds != 60 || result.CorrectCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if h.ctrl.Snapshot().Error != nil {
		t.Fatalf("expected error cleared after success")
	}
}

func TestCallbacksFromStoppedTimerAreIgnored(t *testing.T) {
	b := &fakeBackend{
		exam:       tenQuestionExam(),
		submitErrs: []error{&backend.NetworkError{Op: "submit session", Err: errors.New("timeout")}},
	}
	h := newHarness(t, b)
	if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.advance(10)

	h.ctrl.mu.Lock()
	old, gen := h.ctrl.timer, h.ctrl.gen
	h.ctrl.mu.Unlock()

	if err := h.ctrl.Submit(context.Background()); err == nil {
		t.Fatalf("expected submit failure")
	}
	if old.State() != countdown.StateStopped {
		t.Fatalf("expected first countdown stopped, got %v", old.State())
	}

	// Deliveries that passed the old timer's state check before Stop.
	h.ctrl.onTick(gen, old, 3)
	h.ctrl.onExpire(gen, old)

	s := h.ctrl.Snapshot()
	if s.Status != model.SessionStatusInProgress || s.TimeRemainingSeconds != 50 {
		t.Fatalf("stale callbacks must not touch the resumed attempt, got %+v", s)
	}
	if got := b.submitCalls.Load(); got != 1 {
		t.Fatalf("stale expiry must not auto-submit, got %d calls", got)
	}
}

func TestSubmitFailureUsesDeadline(t *testing.T) {
	b := &fakeBackend{
		exam:       tenQuestionExam(),
		submitErrs: []error{&backend.NetworkError{Op: "submit session", Err: errors.New("timeout")}},
	}
	h := newHarness(t, b)
	if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.advance(10)
	// The request hung long enough to eat most of the remaining time.
	h.clock.Add(45 * time.Second)

	_ = h.ctrl.Submit(context.Background())
	if got := h.ctrl.Snapshot().TimeRemainingSeconds; got != 5 {
		t.Fatalf("expected 5s left before the deadline, got %d", got)
	}
}

func TestFinalSubmitFailureIsReportedNotRetried(t *testing.T) {
	b := &fakeBackend{
		exam:       tenQuestionExam(),
		submitErrs: []error{&backend.NetworkError{Op: "submit session", Err: errors.New("timeout")}},
	}
	h := newHarness(t, b)
	if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	h.advance(60)
	s := h.ctrl.Snapshot()
	if s.Status != model.SessionStatusFailed {
		t.Fatalf("expected FAILED, got %s", s.Status)
	}
	if s.Error == nil || s.Error.Code != apperror.ErrSubmitFailedTimeUp {
		t.Fatalf("expected SUBMIT_FAILED_TIME_UP, got %+v", s.Error)
	}
	if h.sched.Pending() != 0 {
		t.Fatalf("expected no countdown after final failure")
	}

	h.advance(30)
	if got := b.submitCalls.Load(); got != 1 {
		t.Fatalf("expected no automatic retry, got %d calls", got)
	}

	if err := h.ctrl.RetrySubmit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	result, ok := h.ctrl.Result()
	if !ok || result.TimeSpentSeconds != 60 {
		t.Fatalf("unexpected result %+v", result)
	}
	if err := h.ctrl.RetrySubmit(context.Background()); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("expected ErrNotInProgress after completion, got %v", err)
	}
}

func TestConflictRecoversExistingResult(t *testing.T) {
	existing := &model.ExamResult{ResultID: "result-old", ExamID: "exam-1", SessionID: "session-1", Score: 4.0}
	b := &fakeBackend{
		exam:       tenQuestionExam(),
		submitErrs: []error{&backend.ConflictError{SessionID: "session-1", ResultID: "result-old"}},
		results:    map[string]*model.ExamResult{"result-old": existing},
	}
	h := newHarness(t, b)
	if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("conflict should complete, got %v", err)
	}
	s := h.ctrl.Snapshot()
	if s.Status != model.SessionStatusCompleted || s.ResultID != "result-old" {
		t.Fatalf("expected existing result, got %+v", s)
	}
	if len(h.shown) != 1 || h.shown[0] != "result-old" {
		t.Fatalf("expected navigation to result-old, got %v", h.shown)
	}
}

func TestConflictFallsBackToCachedResult(t *testing.T) {
	b := &fakeBackend{
		exam:       tenQuestionExam(),
		submitErrs: []error{&backend.ConflictError{SessionID: "session-1"}},
	}
	h := newHarness(t, b)
	if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.results.Save(context.Background(), &model.ExamResult{
		ResultID: "result-cached", ExamID: "exam-1", SessionID: "session-1", SubmittedAt: h.clock.Now(),
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("conflict should complete, got %v", err)
	}
	if got := h.ctrl.Snapshot().ResultID; got != "result-cached" {
		t.Fatalf("expected cached result, got %q", got)
	}
}

func TestConflictWithoutResultFails(t *testing.T) {
	b := &fakeBackend{
		exam:       tenQuestionExam(),
		submitErrs: []error{&backend.ConflictError{SessionID: "session-1"}},
	}
	h := newHarness(t, b)
	if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, ok := backend.AsConflict(h.ctrl.Submit(context.Background())); !ok {
		t.Fatalf("expected conflict error")
	}
	s := h.ctrl.Snapshot()
	if s.Status != model.SessionStatusFailed || s.Error == nil || s.Error.Code != apperror.ErrSubmitConflict {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if err := h.ctrl.RetrySubmit(context.Background()); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("conflict failure must not be retryable, got %v", err)
	}
}

func TestCompletedSessionIsImmutable(t *testing.T) {
	h := startedHarness(t)
	h.ctrl.SelectAnswer(0, 0)
	h.ctrl.GoToQuestion(4)
	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before := h.ctrl.Snapshot()

	if h.ctrl.SelectAnswer(0, 3) {
		t.Fatalf("expected answer rejected after completion")
	}
	if got := h.ctrl.GoToQuestion(0); got != 4 {
		t.Fatalf("expected index to stay 4, got %d", got)
	}
	h.ctrl.Next()
	h.advance(10)

	after := h.ctrl.Snapshot()
	if after.CurrentQuestionIndex != before.CurrentQuestionIndex ||
		after.TimeRemainingSeconds != before.TimeRemainingSeconds ||
		after.Answers[0] != before.Answers[0] {
		t.Fatalf("state changed after completion: %+v -> %+v", before, after)
	}
	if err := h.ctrl.Submit(context.Background()); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("expected ErrNotInProgress, got %v", err)
	}
	if _, err := h.ctrl.RequestSubmit(); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("expected ErrNotInProgress, got %v", err)
	}
}

func TestLateResponseAfterCloseIsIgnored(t *testing.T) {
	b := &fakeBackend{exam: tenQuestionExam(), submitGate: make(chan struct{})}
	h := newHarness(t, b)
	if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Submit(context.Background()) }()

	for b.submitCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	h.ctrl.Close()
	close(b.submitGate)

	if err := <-done; !errors.Is(err, ErrStaleSession) {
		t.Fatalf("expected ErrStaleSession, got %v", err)
	}
	if s := h.ctrl.Snapshot(); s.Status != model.SessionStatusSubmitting || s.ResultID != "" {
		t.Fatalf("late response must not change state, got %+v", s)
	}
	if len(h.shown) != 0 {
		t.Fatalf("late response must not navigate, got %v", h.shown)
	}
}

func TestLateResponseAfterCloseIsNotCached(t *testing.T) {
	b := &fakeBackend{exam: tenQuestionExam(), submitGate: make(chan struct{})}
	h := newHarness(t, b)
	if err := h.ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.ctrl.SelectAnswer(0, 1)

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Submit(context.Background()) }()

	for b.submitCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	h.ctrl.Close()
	close(b.submitGate)

	if err := <-done; !errors.Is(err, ErrStaleSession) {
		t.Fatalf("expected ErrStaleSession, got %v", err)
	}
	if r, err := h.results.LatestForExam(context.Background(), "exam-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("late response must not be cached, got %+v %v", r, err)
	}
}

func TestCloseStopsCountdown(t *testing.T) {
	h := startedHarness(t)
	h.advance(3)
	h.ctrl.Close()
	h.advance(100)

	if got := h.backend.submitCalls.Load(); got != 0 {
		t.Fatalf("expected no auto-submit after close, got %d", got)
	}
	if got := h.ctrl.Snapshot().TimeRemainingSeconds; got != 57 {
		t.Fatalf("expected countdown frozen at 57, got %d", got)
	}
	if err := h.ctrl.Start(context.Background(), "exam-1"); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected closed controller to refuse Start, got %v", err)
	}
}

type failingStore struct{ store.ResultStore }

func (failingStore) Save(context.Context, *model.ExamResult) error {
	return errors.New("redis: connection refused")
}

func TestResultCacheFailureDoesNotFailSubmission(t *testing.T) {
	b := &fakeBackend{exam: tenQuestionExam()}
	ctrl := New(b, failingStore{memory.NewResultStore()}, zerolog.Nop(), WithScheduler(countdown.NewManualScheduler()))
	t.Cleanup(ctrl.Close)
	if err := ctrl.Start(context.Background(), "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s := ctrl.Snapshot(); s.Status != model.SessionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", s.Status)
	}
}
