package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/countdown"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/session"
	"github.com/stemsi/exstem-client/internal/store"
)

// ErrAttemptNotFound is returned for unknown or discarded attempt IDs.
var ErrAttemptNotFound = errors.New("attempt not found")

// AttemptService hosts the exam attempts of the local shell. Each attempt
// wraps one session.Controller and fans its snapshots out to subscribers.
type AttemptService struct {
	backend session.Backend
	results store.ResultStore
	sched   countdown.Scheduler
	log     zerolog.Logger

	mu       sync.RWMutex
	attempts map[string]*Attempt
}

// NewAttemptService creates a new AttemptService. sched may be nil to use
// the wall clock.
func NewAttemptService(b session.Backend, results store.ResultStore, sched countdown.Scheduler, log zerolog.Logger) *AttemptService {
	if sched == nil {
		sched = countdown.TickerScheduler{}
	}
	return &AttemptService{
		backend:  b,
		results:  results,
		sched:    sched,
		log:      log.With().Str("component", "attempt_service").Logger(),
		attempts: make(map[string]*Attempt),
	}
}

// Attempt is one hosted exam attempt.
type Attempt struct {
	ID     string
	ExamID string
	ctrl   *session.Controller

	mu sync.Mutex
	// subscribers maps each channel to the Seq last sent on it.
	subscribers map[chan model.ExamSession]uint64
}

// Controller returns the attempt's session controller.
func (a *Attempt) Controller() *session.Controller {
	return a.ctrl
}

// Start opens a new attempt at examID. On failure the returned error wraps
// the user-facing *apperror.Error from the failed snapshot.
func (s *AttemptService) Start(ctx context.Context, examID string) (*Attempt, error) {
	a := &Attempt{
		ID:          uuid.New().String(),
		ExamID:      examID,
		subscribers: make(map[chan model.ExamSession]uint64),
	}
	a.ctrl = session.New(s.backend, s.results, s.log,
		session.WithScheduler(s.sched),
		session.WithListener(a.publish),
		session.WithNavigator(session.NavigatorFunc(func(resultID string) {
			s.log.Info().
				Str("attempt_id", a.ID).
				Str("result_id", resultID).
				Msg("Attempt completed")
		})),
	)

	if err := a.ctrl.Start(ctx, examID); err != nil {
		snap := a.ctrl.Snapshot()
		a.ctrl.Close()
		if snap.Error != nil {
			return nil, fmt.Errorf("%w: %w", snap.Error, err)
		}
		return nil, err
	}

	s.mu.Lock()
	s.attempts[a.ID] = a
	s.mu.Unlock()

	s.log.Info().
		Str("attempt_id", a.ID).
		Str("exam_id", examID).
		Msg("Attempt started")
	return a, nil
}

// Get returns a hosted attempt.
func (s *AttemptService) Get(attemptID string) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// Discard closes an attempt and forgets it.
func (s *AttemptService) Discard(attemptID string) error {
	s.mu.Lock()
	a, ok := s.attempts[attemptID]
	delete(s.attempts, attemptID)
	s.mu.Unlock()

	if !ok {
		return ErrAttemptNotFound
	}
	a.close()
	return nil
}

// Close discards every attempt.
func (s *AttemptService) Close() {
	s.mu.Lock()
	attempts := s.attempts
	s.attempts = make(map[string]*Attempt)
	s.mu.Unlock()

	for _, a := range attempts {
		a.close()
	}
}

// Subscribe returns a channel of snapshots starting with the current one.
// Slow readers only ever see the newest snapshot. The caller must invoke
// the returned cancel function to avoid leaks.
func (a *Attempt) Subscribe() (<-chan model.ExamSession, func()) {
	ch := make(chan model.ExamSession, 1)

	a.mu.Lock()
	snap := a.ctrl.Snapshot()
	a.subscribers[ch] = snap.Seq
	ch <- snap
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

// publish runs outside the controller lock, so listener calls can arrive
// out of order. Snapshots older than the one already sent are dropped.
func (a *Attempt) publish(snap model.ExamSession) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for ch, last := range a.subscribers {
		if snap.Seq <= last {
			continue
		}
		a.subscribers[ch] = snap.Seq
		select {
		case ch <- snap:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (a *Attempt) close() {
	a.ctrl.Close()

	a.mu.Lock()
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
	a.mu.Unlock()
}
