package session

import (
	"time"

	"github.com/stemsi/exstem-client/internal/countdown"
	"github.com/stemsi/exstem-client/internal/model"
)

// Navigator receives the result ID once an attempt completes.
type Navigator interface {
	ShowResult(resultID string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(resultID string)

func (f NavigatorFunc) ShowResult(resultID string) { f(resultID) }

// Listener is called with a fresh snapshot after every state change,
// including each countdown tick. It runs without the controller lock held.
type Listener func(model.ExamSession)

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler sets the scheduler driving the countdown.
func WithScheduler(s countdown.Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithClock sets the clock used for the submission deadline and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithNavigator sets where the result ID goes on completion.
func WithNavigator(n Navigator) Option {
	return func(c *Controller) { c.nav = n }
}

// WithListener subscribes l to snapshots.
func WithListener(l Listener) Option {
	return func(c *Controller) { c.listener = l }
}
