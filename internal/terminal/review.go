package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/render"
	"github.com/stemsi/exstem-client/internal/review"
	"github.com/stemsi/exstem-client/internal/scoring"
)

// WriteResult prints the result summary shown right after submission.
func WriteResult(w io.Writer, title string, result *model.ExamResult) error {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 40) + "\n")
	if title != "" {
		b.WriteString(title + "\n")
	}
	fmt.Fprintf(&b, "Nilai      : %.1f / %d\n", result.Score, scoring.MaxScore)
	fmt.Fprintf(&b, "Benar      : %d dari %d\n", result.CorrectCount, result.QuestionCount)
	fmt.Fprintf(&b, "Waktu      : %s\n", FormatClock(result.TimeSpentSeconds))
	fmt.Fprintf(&b, "ID hasil   : %s\n", result.ResultID)
	b.WriteString(strings.Repeat("=", 40) + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteReview prints the summary followed by every listed question.
func WriteReview(w io.Writer, rv *review.Review, showAll bool) error {
	if err := WriteResult(w, rv.Exam.Title, &rv.Result); err != nil {
		return err
	}
	c := rv.Counts()
	if _, err := fmt.Fprintf(w, "Benar %d, salah %d, tidak dijawab %d\n\n", c.Correct, c.Incorrect, c.Unanswered); err != nil {
		return err
	}

	shown := 0
	for view := range rv.Items(showAll) {
		if shown > 0 {
			if _, err := io.WriteString(w, strings.Repeat("-", 40)+"\n"); err != nil {
				return err
			}
		}
		if err := render.WriteText(w, view); err != nil {
			return err
		}
		shown++
	}
	if shown == 0 {
		_, err := io.WriteString(w, "Semua soal dijawab dengan benar.\n")
		return err
	}
	return nil
}
