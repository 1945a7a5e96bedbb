package model

import "github.com/stemsi/exstem-client/internal/apperror"

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusLoading    SessionStatus = "LOADING"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusSubmitting SessionStatus = "SUBMITTING"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusFailed     SessionStatus = "FAILED"
)

// SubmitTrigger records what started a submission.
type SubmitTrigger string

const (
	SubmitTriggerManual SubmitTrigger = "manual"
	SubmitTriggerTimer  SubmitTrigger = "timer"
	SubmitTriggerRetry  SubmitTrigger = "retry"
)

// ExamSession is a point-in-time copy of an attempt, safe to hand to the
// shell for rendering. Seq grows with every snapshot taken, so a later
// state always carries a larger Seq.
type ExamSession struct {
	Seq                  uint64          `json:"seq"`
	SessionID            string          `json:"session_id,omitempty"`
	ExamID               string          `json:"exam_id"`
	Title                string          `json:"title,omitempty"`
	Status               SessionStatus   `json:"status"`
	TimeRemainingSeconds int             `json:"time_remaining_seconds"`
	Answers              Answers         `json:"answers"`
	CurrentQuestionIndex int             `json:"current_question_index"`
	QuestionCount        int             `json:"question_count"`
	Confirming           bool            `json:"confirming"`
	ResultID             string          `json:"result_id,omitempty"`
	Error                *apperror.Error `json:"error,omitempty"`
}

// Confirmation is shown before a manual submission.
type Confirmation struct {
	Answered             int `json:"answered"`
	Unanswered           int `json:"unanswered"`
	TimeRemainingSeconds int `json:"time_remaining_seconds"`
}
