package model

// Question represents a single multiple-choice question. Text and options
// are rich text (HTML fragments).
type Question struct {
	ID       string   `json:"id" yaml:"id"`
	Text     string   `json:"text" yaml:"text"`
	ImageURL string   `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Options  []string `json:"options" yaml:"options"`
	// CorrectOption is only populated for scoring and review.
	CorrectOption *int   `json:"correct_option,omitempty" yaml:"correct_option,omitempty"`
	Explanation   string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// IsCorrect reports whether the given answer matches the correct option.
func (q *Question) IsCorrect(a Answer) bool {
	if a == Unanswered || q.CorrectOption == nil {
		return false
	}
	return int(a) == *q.CorrectOption
}

// ForStudent strips the correct option and the explanation.
func (q *Question) ForStudent() QuestionForStudent {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return QuestionForStudent{
		ID:       q.ID,
		Text:     q.Text,
		ImageURL: q.ImageURL,
		Options:  options,
	}
}

// QuestionForStudent is a question without the correct answer, shown while
// an exam is in progress.
type QuestionForStudent struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	ImageURL string   `json:"image_url,omitempty"`
	Options  []string `json:"options"`
}
