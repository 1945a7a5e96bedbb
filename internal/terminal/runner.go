// Package terminal drives one exam attempt from a keyboard. It reads
// commands through an x/term line editor, so the countdown in the prompt
// keeps updating while the student types.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/apperror"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/render"
	"github.com/stemsi/exstem-client/internal/session"
	"golang.org/x/term"
)

// ErrAborted is returned when the student quits before submitting.
var ErrAborted = errors.New("attempt aborted")

var errCompleted = errors.New("attempt completed")

const help = `Perintah:
  a-h      pilih jawaban
  n / p    soal berikutnya / sebelumnya
  <nomor>  lompat ke soal
  s        kumpulkan jawaban
  r        kirim ulang (setelah gagal saat waktu habis)
  q        keluar tanpa mengumpulkan
  ?        bantuan
`

// Runner renders snapshots to a terminal and maps commands onto a
// session.Controller.
type Runner struct {
	term *term.Terminal
	log  zerolog.Logger

	lines   chan string
	readErr error

	mu       sync.Mutex
	lastCode apperror.ErrCode
	status   model.SessionStatus
	resultID string
	done     chan struct{}
	doneOnce sync.Once
}

// NewRunner creates a Runner over rw. Put the terminal in raw mode first
// when rw is a real TTY.
func NewRunner(rw io.ReadWriter, log zerolog.Logger) *Runner {
	return &Runner{
		term:  term.NewTerminal(rw, "> "),
		log:   log.With().Str("component", "terminal").Logger(),
		lines: make(chan string),
		done:  make(chan struct{}),
	}
}

// Options returns the controller options that route snapshots and the
// finished result to this Runner.
func (r *Runner) Options() []session.Option {
	return []session.Option{
		session.WithListener(r.onSnapshot),
		session.WithNavigator(session.NavigatorFunc(r.onResult)),
	}
}

// Writer returns the terminal for output that must not clobber the prompt.
func (r *Runner) Writer() io.Writer {
	return r.term
}

// Take starts the attempt and processes commands until it completes. It
// returns the result ID, or ErrAborted if the student quits.
func (r *Runner) Take(ctx context.Context, ctrl *session.Controller, examID string) (string, error) {
	if err := ctrl.Start(ctx, examID); err != nil {
		if snap := ctrl.Snapshot(); snap.Error != nil {
			r.printf("%s\n", snap.Error.Message)
		}
		return "", err
	}

	if paper, ok := ctrl.Paper(); ok {
		r.printf("%s\n%d soal, %d menit. Ketik ? untuk bantuan.\n\n", paper.Title, len(paper.Questions), paper.DurationMinutes)
	}
	r.showQuestion(ctrl)

	go r.readLines()

	for {
		line, err := r.readLine(ctx)
		switch {
		case errors.Is(err, errCompleted):
			return r.result(), nil
		case errors.Is(err, io.EOF):
			ctrl.Close()
			return "", ErrAborted
		case err != nil:
			ctrl.Close()
			return "", err
		}

		if err := r.handle(ctx, ctrl, strings.ToLower(strings.TrimSpace(line))); err != nil {
			if errors.Is(err, errCompleted) {
				return r.result(), nil
			}
			ctrl.Close()
			return "", err
		}

		select {
		case <-r.done:
			return r.result(), nil
		default:
		}
	}
}

func (r *Runner) handle(ctx context.Context, ctrl *session.Controller, cmd string) error {
	switch {
	case cmd == "":
		r.showQuestion(ctrl)

	case cmd == "?":
		r.printf("%s", help)

	case cmd == "n":
		ctrl.Next()
		r.showQuestion(ctrl)

	case cmd == "p":
		ctrl.Prev()
		r.showQuestion(ctrl)

	case cmd == "q":
		return ErrAborted

	case cmd == "s":
		return r.confirmSubmit(ctx, ctrl)

	case cmd == "r":
		r.reportSubmit(ctrl.RetrySubmit(ctx))

	case len(cmd) == 1 && cmd[0] >= 'a' && cmd[0] <= 'h':
		cur := ctrl.Snapshot().CurrentQuestionIndex
		if !ctrl.SelectAnswer(cur, int(cmd[0]-'a')) {
			r.printf("Pilihan %s tidak tersedia.\n", strings.ToUpper(cmd))
			return nil
		}
		r.showQuestion(ctrl)

	default:
		n, err := strconv.Atoi(cmd)
		if err != nil {
			r.printf("Perintah tidak dikenal: %q. Ketik ? untuk bantuan.\n", cmd)
			return nil
		}
		ctrl.GoToQuestion(n - 1)
		r.showQuestion(ctrl)
	}
	return nil
}

func (r *Runner) confirmSubmit(ctx context.Context, ctrl *session.Controller) error {
	conf, err := ctrl.RequestSubmit()
	if err != nil {
		r.printf("%s\n", apperror.GetMessage(apperror.ErrNotInProgress))
		return nil
	}
	r.printf("Terjawab %d, belum dijawab %d, sisa waktu %s.\nKumpulkan sekarang? (y/n)\n",
		conf.Answered, conf.Unanswered, FormatClock(conf.TimeRemainingSeconds))

	line, err := r.readLine(ctx)
	if err != nil {
		return err
	}
	if strings.ToLower(strings.TrimSpace(line)) != "y" {
		ctrl.CancelSubmit()
		r.printf("Dibatalkan.\n")
		return nil
	}
	r.reportSubmit(ctrl.ConfirmSubmit(ctx))
	return nil
}

// reportSubmit prints guard rejections. Backend failures reach the student
// through the snapshot listener.
func (r *Runner) reportSubmit(err error) {
	switch {
	case errors.Is(err, session.ErrSubmitInFlight):
		r.printf("%s\n", apperror.GetMessage(apperror.ErrSubmitInFlight))
	case errors.Is(err, session.ErrNotInProgress):
		r.printf("%s\n", apperror.GetMessage(apperror.ErrNotInProgress))
	case err != nil:
		r.log.Debug().Err(err).Msg("Submit did not complete")
	}
}

func (r *Runner) showQuestion(ctrl *session.Controller) {
	view, ok := ctrl.CurrentQuestion()
	if !ok {
		return
	}
	if err := render.WriteText(r.term, view); err != nil {
		r.log.Warn().Err(err).Msg("Failed to render question")
	}
}

func (r *Runner) onSnapshot(snap model.ExamSession) {
	r.term.SetPrompt(fmt.Sprintf("[%s] > ", FormatClock(snap.TimeRemainingSeconds)))

	r.mu.Lock()
	prevStatus := r.status
	prevCode := r.lastCode
	r.status = snap.Status
	r.lastCode = ""
	if snap.Error != nil {
		r.lastCode = snap.Error.Code
	}
	r.mu.Unlock()

	if snap.Error != nil && snap.Error.Code != prevCode {
		r.printf("%s\n", snap.Error.Message)
		if snap.Error.Code == apperror.ErrSubmitFailedTimeUp {
			r.printf("Ketik r untuk mengirim ulang.\n")
		}
	}
	if snap.Status == model.SessionStatusSubmitting && prevStatus == model.SessionStatusInProgress && snap.TimeRemainingSeconds == 0 {
		r.printf("Waktu habis. Jawaban dikirim otomatis.\n")
	}
}

func (r *Runner) onResult(resultID string) {
	r.mu.Lock()
	r.resultID = resultID
	r.mu.Unlock()
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *Runner) result() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resultID
}

// readLines feeds the command loop. It stays blocked in ReadLine after the
// attempt ends; the process exits soon after.
func (r *Runner) readLines() {
	for {
		line, err := r.term.ReadLine()
		if err != nil {
			r.readErr = err
			close(r.lines)
			return
		}
		r.lines <- line
	}
}

func (r *Runner) readLine(ctx context.Context) (string, error) {
	select {
	case <-r.done:
		return "", errCompleted
	default:
	}
	select {
	case line, ok := <-r.lines:
		if !ok {
			return "", r.readErr
		}
		return line, nil
	case <-r.done:
		return "", errCompleted
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.term, format, args...)
}

// FormatClock renders seconds as mm:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
