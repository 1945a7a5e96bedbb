// Package scoring grades a finished attempt and drives the review filter.
package scoring

import (
	"iter"

	"github.com/shopspring/decimal"
	"github.com/stemsi/exstem-client/internal/model"
)

// MaxScore is the top of the score scale.
const MaxScore = 10

// Outcome is the graded form of one attempt.
type Outcome struct {
	CorrectCount int     `json:"correct_count"`
	Total        int     `json:"total"`
	Score        float64 `json:"score"`
	// Correct holds per-question correctness, in question order.
	Correct []bool `json:"correct"`
}

// Score grades answers against questions. Slots beyond len(answers) count
// as unanswered. An empty question list scores zero.
func Score(questions []model.Question, answers model.Answers) Outcome {
	out := Outcome{
		Total:   len(questions),
		Correct: make([]bool, len(questions)),
	}
	for i := range questions {
		if questions[i].IsCorrect(answers.At(i)) {
			out.Correct[i] = true
			out.CorrectCount++
		}
	}
	out.Score = round1(out.CorrectCount, out.Total)
	return out
}

// IsCorrect reports whether answer i is correct.
func IsCorrect(questions []model.Question, answers model.Answers, i int) bool {
	if i < 0 || i >= len(questions) {
		return false
	}
	return questions[i].IsCorrect(answers.At(i))
}

// FilterForReview yields question indices to show on the review screen:
// every index when showAll is set, otherwise only incorrect or unanswered
// ones. The sequence is lazy and can be ranged over more than once.
func FilterForReview(questions []model.Question, answers model.Answers, showAll bool) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range questions {
			if !showAll && IsCorrect(questions, answers, i) {
				continue
			}
			if !yield(i) {
				return
			}
		}
	}
}

func round1(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(correct)).
		Mul(decimal.NewFromInt(MaxScore)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1).
		InexactFloat64()
}
