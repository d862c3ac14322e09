package exercise

import "encoding/json"

// RenderState is what a UI widget receives to draw one exercise. The
// solution is only populated once revealed; until then the widget sees
// exactly what a learner may see.
type RenderState struct {
	Content     json.RawMessage `json:"content"`
	UserAnswer  json.RawMessage `json:"user_answer,omitempty"`
	IsSubmitted bool            `json:"is_submitted"`
	IsCorrect   bool            `json:"is_correct"`
	Solution    json.RawMessage `json:"solution,omitempty"`
}

// Renderer is the contract every exercise-type widget satisfies to plug
// into an attempt session. While the session is unanswered the widget
// emits answer changes; it calls Submit exactly once per submit
// transition and never during a submitted state.
type Renderer interface {
	Render(state RenderState)
	OnAnswerChange(fn func(answer json.RawMessage))
	OnSubmit(fn func())
}
