package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Answer is the selected option index for one question, or Unanswered.
type Answer int

// Unanswered marks an empty answer slot. It encodes as JSON null.
const Unanswered Answer = -1

// Answered reports whether an option was selected.
func (a Answer) Answered() bool {
	return a >= 0
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	if !a.Answered() {
		return []byte("null"), nil
	}
	return json.Marshal(int(a))
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answer) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = Unanswered
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	if n < 0 {
		*a = Unanswered
		return nil
	}
	*a = Answer(n)
	return nil
}

// Answers holds one slot per question, in question order.
type Answers []Answer

// NewAnswers returns n unanswered slots.
func NewAnswers(n int) Answers {
	answers := make(Answers, n)
	for i := range answers {
		answers[i] = Unanswered
	}
	return answers
}

// At returns the answer for question i, or Unanswered if i is out of range.
func (a Answers) At(i int) Answer {
	if i < 0 || i >= len(a) {
		return Unanswered
	}
	return a[i]
}

// Clone returns an independent copy.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	copy(out, a)
	return out
}

// AnsweredCount returns the number of slots with a selected option.
func (a Answers) AnsweredCount() int {
	n := 0
	for _, ans := range a {
		if ans.Answered() {
			n++
		}
	}
	return n
}
