// Package session owns one timed exam attempt from bootstrap to result.
//
// A Controller is driven from two sides: the student (answers, navigation,
// manual submit) and the countdown (ticks, expiry). Both submission paths go
// through one guarded transition from IN_PROGRESS to SUBMITTING, taken under
// the controller lock before any network call, so exactly one of them ever
// reaches the backend.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/apperror"
	"github.com/stemsi/exstem-client/internal/backend"
	"github.com/stemsi/exstem-client/internal/countdown"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/render"
	"github.com/stemsi/exstem-client/internal/scoring"
	"github.com/stemsi/exstem-client/internal/store"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAlreadyStarted  = errors.New("session already started")
	ErrSubmitInFlight  = errors.New("submission already in flight")
	ErrNotInProgress   = errors.New("session is not in progress")
	ErrStaleSession    = errors.New("session was discarded")
	ErrNoQuestions     = errors.New("exam has no questions")
	ErrInvalidDuration = errors.New("exam duration must be positive")
)

// Backend is what the controller needs from the exam backend.
type Backend interface {
	FetchExamByID(ctx context.Context, examID string) (*model.ExamDefinition, error)
	OpenSession(ctx context.Context, examID string) (string, error)
	SubmitSession(ctx context.Context, sessionID string, answers model.Answers, timeSpentSeconds int) (string, error)
	FetchResult(ctx context.Context, resultID string) (*model.ExamResult, error)
}

// Controller is the single source of truth for one exam attempt. It is
// single-use and safe for concurrent use.
type Controller struct {
	backend  Backend
	results  store.ResultStore
	log      zerolog.Logger
	sched    countdown.Scheduler
	now      func() time.Time
	nav      Navigator
	listener Listener

	// lifetime bounds submissions started by the countdown.
	lifetime context.Context
	cancel   context.CancelFunc

	mu sync.Mutex
	// gen changes when the controller is discarded; responses captured
	// under an older gen are dropped.
	gen          uint64
	seq          uint64
	started      bool
	examID       string
	exam         *model.ExamDefinition
	sessionID    string
	status       model.SessionStatus
	remaining    int
	deadline     time.Time
	answers      model.Answers
	current      int
	confirming   bool
	timer        *countdown.Timer
	result       *model.ExamResult
	lastErr      *apperror.Error
	submitFailed bool
}

// New creates a Controller. results may be nil.
func New(b Backend, results store.ResultStore, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		backend: b,
		results: results,
		log:     log.With().Str("component", "session_controller").Logger(),
		sched:   countdown.TickerScheduler{},
		now:     time.Now,
		status:  model.SessionStatusLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lifetime, c.cancel = context.WithCancel(context.Background())
	return c
}

// Start fetches the exam and opens a server session concurrently, then arms
// the countdown. On any failure the attempt ends in FAILED with nothing left
// running; the caller retries with a new Controller.
func (c *Controller) Start(ctx context.Context, examID string) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.examID = examID
	c.status = model.SessionStatusLoading
	gen := c.gen
	c.mu.Unlock()
	c.notify()

	var (
		exam      *model.ExamDefinition
		sessionID string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := c.backend.FetchExamByID(gctx, examID)
		if err != nil {
			return fmt.Errorf("fetch exam: %w", err)
		}
		exam = e
		return nil
	})
	g.Go(func() error {
		id, err := c.backend.OpenSession(gctx, examID)
		if err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		sessionID = id
		return nil
	})
	err := g.Wait()
	if err == nil {
		switch {
		case exam.QuestionCount() == 0:
			err = ErrNoQuestions
		case exam.DurationMinutes <= 0:
			err = ErrInvalidDuration
		}
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrStaleSession
	}
	if err != nil {
		c.status = model.SessionStatusFailed
		c.lastErr = bootstrapError(err)
		c.mu.Unlock()

		c.log.Warn().Err(err).Str("exam_id", examID).Msg("Failed to start exam session")
		c.notify()
		return fmt.Errorf("start session: %w", err)
	}

	c.exam = exam
	c.sessionID = sessionID
	c.remaining = exam.DurationSeconds()
	c.deadline = c.now().Add(time.Duration(c.remaining) * time.Second)
	c.answers = model.NewAnswers(exam.QuestionCount())
	c.current = 0
	c.status = model.SessionStatusInProgress
	if err := c.armTimerLocked(c.remaining); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("arm countdown: %w", err)
	}
	c.mu.Unlock()

	c.log.Info().
		Str("exam_id", examID).
		Str("session_id", sessionID).
		Int("questions", exam.QuestionCount()).
		Int("duration_seconds", exam.DurationSeconds()).
		Msg("Exam session started")
	c.notify()
	return nil
}

// SelectAnswer records option o for question q. It reports whether the
// answer was accepted; it is ignored outside IN_PROGRESS or when either
// index is out of range.
func (c *Controller) SelectAnswer(q, o int) bool {
	c.mu.Lock()
	if c.status != model.SessionStatusInProgress || q < 0 || q >= len(c.answers) {
		c.mu.Unlock()
		return false
	}
	if o < 0 || o >= len(c.exam.Questions[q].Options) {
		c.mu.Unlock()
		return false
	}
	changed := c.answers[q] != model.Answer(o)
	c.answers[q] = model.Answer(o)
	c.mu.Unlock()

	if changed {
		c.notify()
	}
	return true
}

// GoToQuestion moves to question i, clamped into range, and returns the
// resulting index. Outside IN_PROGRESS it returns the current index.
func (c *Controller) GoToQuestion(i int) int {
	c.mu.Lock()
	if c.status != model.SessionStatusInProgress {
		idx := c.current
		c.mu.Unlock()
		return idx
	}
	i = max(0, min(i, len(c.answers)-1))
	changed := i != c.current
	c.current = i
	c.mu.Unlock()

	if changed {
		c.notify()
	}
	return i
}

// Next moves one question forward.
func (c *Controller) Next() int {
	c.mu.Lock()
	i := c.current + 1
	c.mu.Unlock()
	return c.GoToQuestion(i)
}

// Prev moves one question back.
func (c *Controller) Prev() int {
	c.mu.Lock()
	i := c.current - 1
	c.mu.Unlock()
	return c.GoToQuestion(i)
}

// RequestSubmit opens the confirmation prompt.
func (c *Controller) RequestSubmit() (model.Confirmation, error) {
	c.mu.Lock()
	if c.status != model.SessionStatusInProgress {
		c.mu.Unlock()
		return model.Confirmation{}, ErrNotInProgress
	}
	c.confirming = true
	answered := c.answers.AnsweredCount()
	conf := model.Confirmation{
		Answered:             answered,
		Unanswered:           len(c.answers) - answered,
		TimeRemainingSeconds: c.remaining,
	}
	c.mu.Unlock()

	c.notify()
	return conf, nil
}

// CancelSubmit closes the confirmation prompt without other changes.
func (c *Controller) CancelSubmit() {
	c.mu.Lock()
	if !c.confirming {
		c.mu.Unlock()
		return
	}
	c.confirming = false
	c.mu.Unlock()
	c.notify()
}

// ConfirmSubmit submits from the confirmation prompt. It takes the same
// guarded path as Submit and expiry.
func (c *Controller) ConfirmSubmit(ctx context.Context) error {
	return c.submit(ctx, model.SubmitTriggerManual)
}

// Submit submits the attempt manually.
func (c *Controller) Submit(ctx context.Context) error {
	return c.submit(ctx, model.SubmitTriggerManual)
}

// RetrySubmit retries a final submission that failed after time ran out.
// It is never called automatically.
func (c *Controller) RetrySubmit(ctx context.Context) error {
	return c.submit(ctx, model.SubmitTriggerRetry)
}

// Snapshot returns a copy of the current attempt state.
func (c *Controller) Snapshot() model.ExamSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Paper returns the student copy of the exam once it is loaded.
func (c *Controller) Paper() (model.ExamPaper, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exam == nil {
		return model.ExamPaper{}, false
	}
	return c.exam.Paper(), true
}

// CurrentQuestion renders the current question in answering mode.
func (c *Controller) CurrentQuestion() (render.QuestionView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exam == nil {
		return render.QuestionView{}, false
	}
	q := c.exam.Questions[c.current]
	return render.Answering(q.ForStudent(), c.current, len(c.exam.Questions), c.answers.At(c.current)), true
}

// Result returns the finished result once the attempt is COMPLETED.
func (c *Controller) Result() (*model.ExamResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil, false
	}
	r := *c.result
	r.Answers = r.Answers.Clone()
	return &r, true
}

// Close discards the attempt: the countdown stops and any response still in
// flight is ignored when it arrives.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	c.started = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.confirming = false
	c.mu.Unlock()

	c.cancel()
}

func (c *Controller) submit(ctx context.Context, trigger model.SubmitTrigger) error {
	c.mu.Lock()
	switch {
	case c.status == model.SessionStatusInProgress && trigger != model.SubmitTriggerRetry:
	case c.status == model.SessionStatusFailed && c.submitFailed && trigger == model.SubmitTriggerRetry:
	case c.status == model.SessionStatusSubmitting:
		c.mu.Unlock()
		return ErrSubmitInFlight
	default:
		c.mu.Unlock()
		return ErrNotInProgress
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.status = model.SessionStatusSubmitting
	c.confirming = false
	c.lastErr = nil
	c.submitFailed = false

	gen := c.gen
	exam := c.exam
	sessionID := c.sessionID
	answers := c.answers.Clone()
	timeSpent := exam.DurationSeconds() - c.remaining
	c.mu.Unlock()

	log := c.log.With().
		Str("exam_id", exam.ID).
		Str("session_id", sessionID).
		Str("trigger", string(trigger)).
		Logger()
	log.Info().Int("time_spent_seconds", timeSpent).Msg("Submitting exam")
	c.notify()

	resultID, err := c.backend.SubmitSession(ctx, sessionID, answers, timeSpent)
	if err == nil {
		outcome := scoring.Score(exam.Questions, answers)
		return c.complete(ctx, gen, log, &model.ExamResult{
			ResultID:         resultID,
			ExamID:           exam.ID,
			SessionID:        sessionID,
			Answers:          answers,
			CorrectCount:     outcome.CorrectCount,
			QuestionCount:    outcome.Total,
			Score:            outcome.Score,
			TimeSpentSeconds: timeSpent,
			SubmittedAt:      c.now().UTC(),
		})
	}

	if ce, ok := backend.AsConflict(err); ok {
		log.Warn().Str("result_id", ce.ResultID).Msg("Session already submitted, recovering result")
		result, rerr := c.recoverConflict(ctx, exam.ID, sessionID, ce)
		if rerr == nil {
			return c.complete(ctx, gen, log, result)
		}
		log.Error().Err(rerr).Msg("Failed to recover result after conflict")
		return c.fail(gen, apperror.New(apperror.ErrSubmitConflict, false), fmt.Errorf("submit session: %w", err))
	}

	return c.submitFailure(gen, log, fmt.Errorf("submit session: %w", err))
}

// complete moves to COMPLETED and stores the result. A response for a
// closed or restarted session is dropped before it reaches the store.
func (c *Controller) complete(ctx context.Context, gen uint64, log zerolog.Logger, result *model.ExamResult) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrStaleSession
	}
	c.status = model.SessionStatusCompleted
	c.result = result
	c.mu.Unlock()

	if c.results != nil {
		if err := c.results.Save(ctx, result); err != nil {
			log.Error().Err(err).Str("result_id", result.ResultID).Msg("Failed to cache result")
		}
	}

	log.Info().
		Str("result_id", result.ResultID).
		Int("correct", result.CorrectCount).
		Float64("score", result.Score).
		Msg("Exam submitted")
	c.notify()
	if c.nav != nil {
		c.nav.ShowResult(result.ResultID)
	}
	return nil
}

// submitFailure returns to IN_PROGRESS with a re-armed countdown if time
// remains before the deadline, otherwise ends in FAILED.
func (c *Controller) submitFailure(gen uint64, log zerolog.Logger, err error) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrStaleSession
	}

	left := int(c.deadline.Sub(c.now()) / time.Second)
	remaining := max(0, min(c.remaining, left))
	c.remaining = remaining

	if remaining == 0 {
		c.status = model.SessionStatusFailed
		c.submitFailed = true
		c.lastErr = apperror.New(apperror.ErrSubmitFailedTimeUp, true)
		c.mu.Unlock()

		log.Error().Err(err).Msg("Final submission failed")
		c.notify()
		return err
	}

	c.status = model.SessionStatusInProgress
	c.lastErr = apperror.New(apperror.ErrSubmitFailed, true)
	if aerr := c.armTimerLocked(remaining); aerr != nil {
		c.mu.Unlock()
		return errors.Join(err, aerr)
	}
	c.mu.Unlock()

	log.Warn().Err(err).Int("remaining_seconds", remaining).Msg("Submission failed, attempt resumed")
	c.notify()
	return err
}

func (c *Controller) fail(gen uint64, appErr *apperror.Error, err error) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrStaleSession
	}
	c.status = model.SessionStatusFailed
	c.lastErr = appErr
	c.mu.Unlock()

	c.notify()
	return err
}

// recoverConflict finds the result a previous submission produced.
func (c *Controller) recoverConflict(ctx context.Context, examID, sessionID string, ce *backend.ConflictError) (*model.ExamResult, error) {
	if ce.ResultID != "" {
		result, err := c.backend.FetchResult(ctx, ce.ResultID)
		if err == nil {
			return result, nil
		}
		c.log.Warn().Err(err).Str("result_id", ce.ResultID).Msg("Failed to fetch existing result")
	}
	if c.results == nil {
		return nil, store.ErrNotFound
	}

	result, err := c.results.LatestForExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("lookup cached result: %w", err)
	}
	if result.SessionID != sessionID {
		return nil, store.ErrNotFound
	}
	return result, nil
}

// armTimerLocked starts a fresh countdown from seconds. Callers hold c.mu.
func (c *Controller) armTimerLocked(seconds int) error {
	t := countdown.New(c.sched)
	gen := c.gen
	c.timer = t
	return t.Start(seconds,
		func(remaining int) { c.onTick(gen, t, remaining) },
		func() { c.onExpire(gen, t) },
	)
}

func (c *Controller) onTick(gen uint64, t *countdown.Timer, remaining int) {
	c.mu.Lock()
	if c.gen != gen || c.timer != t || c.status != model.SessionStatusInProgress {
		c.mu.Unlock()
		return
	}
	c.remaining = remaining
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) onExpire(gen uint64, t *countdown.Timer) {
	c.mu.Lock()
	if c.gen != gen || c.timer != t || c.status != model.SessionStatusInProgress {
		c.mu.Unlock()
		return
	}
	c.remaining = 0
	c.mu.Unlock()

	err := c.submit(c.lifetime, model.SubmitTriggerTimer)
	switch {
	case err == nil:
	case errors.Is(err, ErrSubmitInFlight), errors.Is(err, ErrNotInProgress), errors.Is(err, ErrStaleSession):
		c.log.Debug().Err(err).Msg("Auto-submit skipped")
	default:
		c.log.Error().Err(err).Msg("Auto-submit failed")
	}
}

func (c *Controller) notify() {
	if c.listener == nil {
		return
	}
	c.listener(c.Snapshot())
}

func (c *Controller) snapshotLocked() model.ExamSession {
	c.seq++
	s := model.ExamSession{
		Seq:                  c.seq,
		SessionID:            c.sessionID,
		ExamID:               c.examID,
		Status:               c.status,
		TimeRemainingSeconds: c.remaining,
		Answers:              c.answers.Clone(),
		CurrentQuestionIndex: c.current,
		QuestionCount:        len(c.answers),
		Confirming:           c.confirming,
		Error:                c.lastErr,
	}
	if c.exam != nil {
		s.Title = c.exam.Title
	}
	if c.result != nil {
		s.ResultID = c.result.ResultID
	}
	return s
}

func bootstrapError(err error) *apperror.Error {
	switch {
	case errors.Is(err, ErrNoQuestions):
		return apperror.New(apperror.ErrNoQuestions, false)
	case errors.Is(err, ErrInvalidDuration):
		return apperror.New(apperror.ErrInvalidDuration, false)
	case backend.IsNotFound(err):
		return apperror.New(apperror.ErrExamNotFound, false)
	case backend.IsAuth(err):
		return apperror.New(apperror.ErrUnauthenticated, true)
	default:
		return apperror.New(apperror.ErrNetwork, true)
	}
}
