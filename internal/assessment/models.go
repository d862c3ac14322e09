// Package assessment aggregates per-question results into a scored,
// completed pass over a multi-question assessment.
package assessment

import "encoding/json"

type Assessment struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	QuestionIDs  []string `json:"question_ids"`
	TimeLimitSec int      `json:"time_limit_sec,omitempty"`
	CreatedAt    int64    `json:"created_at,omitempty"`
}

// Response is the latest answer a learner gave to one question within
// an attempt. Resubmission overwrites; no history is kept.
type Response struct {
	Answer json.RawMessage `json:"answer"`
	// Correct is the checker's verdict. Pending responses are neither
	// correct nor incorrect until a human reviews them.
	Correct bool `json:"is_correct"`
	Pending bool `json:"pending,omitempty"`
	// AwardedPoints: the question's full value when correct, a manual
	// award for reviewed long answers, otherwise 0.
	AwardedPoints int    `json:"awarded_points"`
	TimeSpentSec  int    `json:"time_spent_sec,omitempty"`
	UpdatedAt     int64  `json:"updated_at,omitempty"`
	GradedBy      string `json:"graded_by,omitempty"`
}

type Attempt struct {
	ID           string              `json:"id"`
	AssessmentID string              `json:"assessment_id"`
	UserID       string              `json:"user_id"`
	StartedAt    int64               `json:"started_at"`
	CompletedAt  int64               `json:"completed_at,omitempty"` // 0 while active
	Responses    map[string]Response `json:"responses"`
	TotalScore   float64             `json:"total_score"`
	EarnedPoints int                 `json:"earned_points"`
	TotalPoints  int                 `json:"total_points"`
	// Flagged marks attempts whose score could not be computed
	// meaningfully, e.g. a zero-question assessment.
	Flagged bool `json:"flagged,omitempty"`
}

func (a Attempt) Active() bool { return a.CompletedAt == 0 }

type AttemptListOpts struct {
	AssessmentID string
	UserID       string
	Status       string // "", "active", "completed"
	Limit        int
	Offset       int
}

// ManualGradeInput is a teacher's review of one pending response:
// either a direct point award or per-criterion rubric awards.
type ManualGradeInput struct {
	Points   float64            `json:"points,omitempty"`
	Criteria map[string]float64 `json:"criteria,omitempty"`
}
