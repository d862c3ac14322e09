package assessment

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/exercise"
)

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

// seedTwoQuestion builds an assessment with two 5-point single-select
// questions whose correct options are "b" and "b".
func seedTwoQuestion(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"q1", "q2"} {
		err := store.PutExercise(ctx, exercise.Exercise{
			ID:       id,
			Type:     exercise.TypeMultipleChoice,
			Content:  json.RawMessage(`{"options":[{"id":"a"},{"id":"b"}]}`),
			Solution: json.RawMessage(`{"correct":"b"}`),
			Points:   5,
		})
		if err != nil {
			t.Fatalf("seed exercise: %v", err)
		}
	}
	err := store.PutAssessment(ctx, Assessment{ID: "as-1", Title: "Unit quiz", QuestionIDs: []string{"q1", "q2"}})
	if err != nil {
		t.Fatalf("seed assessment: %v", err)
	}
	return NewService(store, WithClock(fixedClock(1_700_000_000))), store
}

func sel(id string) json.RawMessage {
	return json.RawMessage(`{"selected":"` + id + `"}`)
}

func TestStart_IsIdempotent(t *testing.T) {
	svc, _ := seedTwoQuestion(t)
	ctx := context.Background()

	a1, err := svc.Start(ctx, "u1", "as-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	a2, err := svc.Start(ctx, "u1", "as-1")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if a1.ID != a2.ID {
		t.Fatalf("start must reuse the active attempt: %s vs %s", a1.ID, a2.ID)
	}
}

func TestStart_ConcurrentCallsYieldOneAttempt(t *testing.T) {
	svc, _ := seedTwoQuestion(t)
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := svc.Start(ctx, "u1", "as-1")
			if err != nil {
				t.Errorf("start: %v", err)
				return
			}
			ids[i] = a.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent starts produced distinct attempts: %v", ids)
		}
	}
}

func TestStart_UnknownAssessment(t *testing.T) {
	svc, _ := seedTwoQuestion(t)
	if _, err := svc.Start(context.Background(), "u1", "nope"); !apperr.IsNotFound(err) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestRecordAnswer_OverwritesNotDuplicates(t *testing.T) {
	svc, store := seedTwoQuestion(t)
	ctx := context.Background()
	a, _ := svc.Start(ctx, "u1", "as-1")

	if _, err := svc.RecordAnswer(ctx, "u1", a.ID, "q1", sel("a"), 10); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	resp, err := svc.RecordAnswer(ctx, "u1", a.ID, "q1", sel("b"), 7)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !resp.Correct || resp.AwardedPoints != 5 {
		t.Fatalf("resubmitted response wrong: %+v", resp)
	}
	got, _ := store.GetAttempt(ctx, a.ID)
	if len(got.Responses) != 1 {
		t.Fatalf("resubmission must overwrite, have %d responses", len(got.Responses))
	}
	if !got.Responses["q1"].Correct {
		t.Fatalf("last write must win")
	}
}

func TestRecordAnswer_OwnershipMaskedAsNotFound(t *testing.T) {
	svc, _ := seedTwoQuestion(t)
	ctx := context.Background()
	a, _ := svc.Start(ctx, "u1", "as-1")

	_, err := svc.RecordAnswer(ctx, "intruder", a.ID, "q1", sel("b"), 1)
	if !apperr.IsNotFound(err) {
		t.Fatalf("foreign attempt must read as not found, got %v", err)
	}
}

func TestRecordAnswer_QuestionOutsideAssessment(t *testing.T) {
	svc, store := seedTwoQuestion(t)
	ctx := context.Background()
	_ = store.PutExercise(ctx, exercise.Exercise{
		ID: "stray", Type: exercise.TypeTrueFalse,
		Solution: json.RawMessage(`{"correct":"true"}`), Points: 1,
	})
	a, _ := svc.Start(ctx, "u1", "as-1")
	_, err := svc.RecordAnswer(ctx, "u1", a.ID, "stray", sel("true"), 1)
	if !apperr.IsNotFound(err) {
		t.Fatalf("question outside assessment, got %v", err)
	}
}

func TestRecordAnswer_AfterCompleteRejected(t *testing.T) {
	svc, _ := seedTwoQuestion(t)
	ctx := context.Background()
	a, _ := svc.Start(ctx, "u1", "as-1")
	if _, err := svc.Complete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err := svc.RecordAnswer(ctx, "u1", a.ID, "q1", sel("b"), 1)
	if !apperr.IsState(err) {
		t.Fatalf("answering a completed attempt must be a state error, got %v", err)
	}
}

func TestStore_UpsertResponseRejectsCompletedAttempt(t *testing.T) {
	// The store enforces this itself so a Complete landing between the
	// service's active check and the write cannot mutate a frozen attempt.
	svc, store := seedTwoQuestion(t)
	ctx := context.Background()
	a, _ := svc.Start(ctx, "u1", "as-1")
	if _, err := svc.Complete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	err := store.UpsertResponse(ctx, a.ID, "q1", Response{Answer: sel("b")})
	if !apperr.IsState(err) {
		t.Fatalf("store must refuse a completed attempt, got %v", err)
	}
}

func TestComplete_EndToEndBreakdown(t *testing.T) {
	svc, _ := seedTwoQuestion(t)
	ctx := context.Background()
	a, _ := svc.Start(ctx, "u1", "as-1")

	if _, err := svc.RecordAnswer(ctx, "u1", a.ID, "q1", sel("b"), 20); err != nil {
		t.Fatalf("q1: %v", err)
	}
	if _, err := svc.RecordAnswer(ctx, "u1", a.ID, "q2", sel("a"), 30); err != nil {
		t.Fatalf("q2: %v", err)
	}
	done, err := svc.Complete(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.EarnedPoints != 5 || done.TotalPoints != 10 || done.TotalScore != 50 {
		t.Fatalf("want 5/10/50, got %d/%d/%v", done.EarnedPoints, done.TotalPoints, done.TotalScore)
	}
	if done.Active() {
		t.Fatalf("completed attempt must carry completedAt")
	}
}

func TestComplete_TwiceIsStateError(t *testing.T) {
	svc, _ := seedTwoQuestion(t)
	ctx := context.Background()
	a, _ := svc.Start(ctx, "u1", "as-1")
	if _, err := svc.Complete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.Complete(ctx, "u1", a.ID); !apperr.IsState(err) {
		t.Fatalf("second complete must be a state error, got %v", err)
	}
}

func TestComplete_ZeroQuestionAssessment(t *testing.T) {
	svc, store := seedTwoQuestion(t)
	ctx := context.Background()
	_ = store.PutAssessment(ctx, Assessment{ID: "empty", Title: "Empty"})

	a, err := svc.Start(ctx, "u1", "empty")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	done, err := svc.Complete(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("zero-question complete must not error: %v", err)
	}
	if done.TotalScore != 0 || !done.Flagged {
		t.Fatalf("want score 0 and flagged, got %v flagged=%v", done.TotalScore, done.Flagged)
	}
}

func TestComplete_AfterNewStartCreatesFreshAttempt(t *testing.T) {
	svc, _ := seedTwoQuestion(t)
	ctx := context.Background()
	a1, _ := svc.Start(ctx, "u1", "as-1")
	if _, err := svc.Complete(ctx, "u1", a1.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	a2, err := svc.Start(ctx, "u1", "as-1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if a2.ID == a1.ID {
		t.Fatalf("a completed attempt must not be resumed")
	}
}

func TestGetAttempt_ViewAllBypassesOwnership(t *testing.T) {
	svc, _ := seedTwoQuestion(t)
	ctx := context.Background()
	a, _ := svc.Start(ctx, "u1", "as-1")

	if _, err := svc.GetAttempt(ctx, "teacher-1", a.ID, false); !apperr.IsNotFound(err) {
		t.Fatalf("non-owner without view-all must get not found, got %v", err)
	}
	got, err := svc.GetAttempt(ctx, "teacher-1", a.ID, true)
	if err != nil || got.ID != a.ID {
		t.Fatalf("view-all read failed: %v", err)
	}
}

func TestApplyManualGrades_ResolvesPendingEssay(t *testing.T) {
	svc, store := seedTwoQuestion(t)
	ctx := context.Background()
	_ = store.PutExercise(ctx, exercise.Exercise{
		ID:   "essay",
		Type: exercise.TypeLongAnswer,
		Solution: json.RawMessage(`{"rubric":{"criteria":[
			{"key":"clarity","max_points":3},
			{"key":"evidence","max_points":2}]}}`),
		Points: 5,
	})
	_ = store.PutAssessment(ctx, Assessment{ID: "as-essay", QuestionIDs: []string{"q1", "essay"}})

	a, _ := svc.Start(ctx, "u1", "as-essay")
	if _, err := svc.RecordAnswer(ctx, "u1", a.ID, "q1", sel("b"), 5); err != nil {
		t.Fatalf("q1: %v", err)
	}
	resp, err := svc.RecordAnswer(ctx, "u1", a.ID, "essay", json.RawMessage(`{"text":"my essay"}`), 300)
	if err != nil {
		t.Fatalf("essay: %v", err)
	}
	if !resp.Pending || resp.Correct || resp.AwardedPoints != 0 {
		t.Fatalf("essay must stay pending/unscored: %+v", resp)
	}

	done, err := svc.Complete(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.EarnedPoints != 5 { // essay contributes nothing until reviewed
		t.Fatalf("pre-review earned want 5, got %d", done.EarnedPoints)
	}

	graded, err := svc.ApplyManualGrades(ctx, "teacher-1", a.ID, map[string]ManualGradeInput{
		"essay": {Criteria: map[string]float64{"clarity": 3, "evidence": 1}},
	})
	if err != nil {
		t.Fatalf("manual grade: %v", err)
	}
	if graded.EarnedPoints != 9 || graded.TotalScore != 90 {
		t.Fatalf("post-review want 9/90, got %d/%v", graded.EarnedPoints, graded.TotalScore)
	}
	er := graded.Responses["essay"]
	if er.Pending || er.GradedBy != "teacher-1" || er.AwardedPoints != 4 {
		t.Fatalf("essay response not resolved: %+v", er)
	}
}

func TestApplyManualGrades_RejectsAutoGradedQuestion(t *testing.T) {
	svc, _ := seedTwoQuestion(t)
	ctx := context.Background()
	a, _ := svc.Start(ctx, "u1", "as-1")
	if _, err := svc.RecordAnswer(ctx, "u1", a.ID, "q1", sel("b"), 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := svc.Complete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err := svc.ApplyManualGrades(ctx, "teacher-1", a.ID, map[string]ManualGradeInput{
		"q1": {Points: 5},
	})
	if !apperr.IsState(err) {
		t.Fatalf("auto-graded question must not accept manual grades, got %v", err)
	}
}
