package model

// ExamDefinition is an exam as loaded from the catalog. It is never mutated
// once loaded.
type ExamDefinition struct {
	ID              string     `json:"id" yaml:"id"`
	Title           string     `json:"title" yaml:"title"`
	DurationMinutes int        `json:"duration_minutes" yaml:"duration_minutes"`
	Questions       []Question `json:"questions" yaml:"questions"`
}

// DurationSeconds returns the allotted time in seconds.
func (e *ExamDefinition) DurationSeconds() int {
	return e.DurationMinutes * 60
}

// QuestionCount returns the number of questions in the exam.
func (e *ExamDefinition) QuestionCount() int {
	return len(e.Questions)
}

// Paper builds the student-facing copy of the exam (no correct answers).
func (e *ExamDefinition) Paper() ExamPaper {
	questions := make([]QuestionForStudent, len(e.Questions))
	for i, q := range e.Questions {
		questions[i] = q.ForStudent()
	}
	return ExamPaper{
		ExamID:          e.ID,
		Title:           e.Title,
		DurationMinutes: e.DurationMinutes,
		Questions:       questions,
	}
}

// ExamPaper is what the in-progress UI is allowed to see.
type ExamPaper struct {
	ExamID          string               `json:"exam_id"`
	Title           string               `json:"title"`
	DurationMinutes int                  `json:"duration_minutes"`
	Questions       []QuestionForStudent `json:"questions"`
}
