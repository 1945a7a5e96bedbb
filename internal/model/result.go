package model

import "time"

// ExamResult is created once at submission and never modified afterwards.
type ExamResult struct {
	ResultID         string    `json:"result_id"`
	ExamID           string    `json:"exam_id"`
	SessionID        string    `json:"session_id,omitempty"`
	Answers          Answers   `json:"answers"`
	CorrectCount     int       `json:"correct_count"`
	QuestionCount    int       `json:"question_count"`
	Score            float64   `json:"score"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
}
