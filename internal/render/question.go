// Package render turns a question and its answer state into a view model.
// It holds no state; the same question always renders the same view.
package render

import (
	"github.com/stemsi/exstem-client/internal/model"
)

// Mode selects what a view may reveal.
type Mode string

const (
	ModeAnswering Mode = "answering"
	ModeReview    Mode = "review"
)

// OptionView is one rendered option.
type OptionView struct {
	Index     int    `json:"index"`
	Label     string `json:"label"`
	Text      string `json:"text"`
	Selected  bool   `json:"selected"`
	Correct   bool   `json:"correct,omitempty"`
	Incorrect bool   `json:"incorrect,omitempty"`
}

// QuestionView is one rendered question.
type QuestionView struct {
	Mode        Mode         `json:"mode"`
	Index       int          `json:"index"`
	Number      int          `json:"number"`
	Total       int          `json:"total"`
	QuestionID  string       `json:"question_id"`
	Text        string       `json:"text"`
	ImageURL    string       `json:"image_url,omitempty"`
	Options     []OptionView `json:"options"`
	Answered    bool         `json:"answered"`
	Correct     bool         `json:"correct,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
}

// Answering renders a question for the in-progress UI. The input type has
// no correct option, so nothing about the key can reach the view.
func Answering(q model.QuestionForStudent, index, total int, selected model.Answer) QuestionView {
	v := QuestionView{
		Mode:       ModeAnswering,
		Index:      index,
		Number:     index + 1,
		Total:      total,
		QuestionID: q.ID,
		Text:       q.Text,
		ImageURL:   q.ImageURL,
		Options:    make([]OptionView, len(q.Options)),
		Answered:   selected.Answered(),
	}
	for i, text := range q.Options {
		v.Options[i] = OptionView{
			Index:    i,
			Label:    OptionLabel(i),
			Text:     text,
			Selected: int(selected) == i,
		}
	}
	return v
}

// Review renders a question for the review screen with correctness marks
// and the explanation.
func Review(q model.Question, index, total int, selected model.Answer) QuestionView {
	v := QuestionView{
		Mode:        ModeReview,
		Index:       index,
		Number:      index + 1,
		Total:       total,
		QuestionID:  q.ID,
		Text:        q.Text,
		ImageURL:    q.ImageURL,
		Options:     make([]OptionView, len(q.Options)),
		Answered:    selected.Answered(),
		Correct:     q.IsCorrect(selected),
		Explanation: q.Explanation,
	}
	for i, text := range q.Options {
		isKey := q.CorrectOption != nil && *q.CorrectOption == i
		isSelected := int(selected) == i
		v.Options[i] = OptionView{
			Index:     i,
			Label:     OptionLabel(i),
			Text:      text,
			Selected:  isSelected,
			Correct:   isKey,
			Incorrect: isSelected && !isKey,
		}
	}
	return v
}

// OptionLabel returns "A", "B", ... for option i.
func OptionLabel(i int) string {
	if i < 0 {
		return "?"
	}
	label := ""
	for {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
		if i < 0 {
			return label
		}
	}
}

// OptionIndex parses a label produced by OptionLabel. It returns -1 for
// anything else.
func OptionIndex(label string) int {
	if label == "" {
		return -1
	}
	n := 0
	for _, r := range label {
		switch {
		case r >= 'A' && r <= 'Z':
			n = n*26 + int(r-'A') + 1
		case r >= 'a' && r <= 'z':
			n = n*26 + int(r-'a') + 1
		default:
			return -1
		}
	}
	return n - 1
}
