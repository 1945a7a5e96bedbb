package model

// SelectAnswerRequest is the payload for recording an answer.
type SelectAnswerRequest struct {
	QuestionIndex *int `json:"question_index" binding:"required,min=0"`
	OptionIndex   *int `json:"option_index" binding:"required,min=0"`
}

// NavigateRequest moves to an index or one step in a direction.
type NavigateRequest struct {
	Index     *int   `json:"index" binding:"required_without=Direction"`
	Direction string `json:"direction" binding:"omitempty,oneof=next prev"`
}

// ReviewQuery selects which questions the review lists.
type ReviewQuery struct {
	Filter string `form:"filter" binding:"omitempty,oneof=all incorrect"`
}
