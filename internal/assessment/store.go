package assessment

import (
	"context"
	"sort"
	"sync"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/exercise"
)

// Store is the persistence boundary of the aggregator. Implementations
// must distinguish not-found (apperr.KindNotFound) from transport
// errors, and CreateAttempt must be atomic: under concurrent starts for
// the same (user, assessment) exactly one active attempt may exist, and
// every caller gets that one. UpsertResponse must refuse a completed
// attempt (apperr.KindState) even when the caller's own active check
// raced a Complete.
type Store interface {
	PutExercise(ctx context.Context, ex exercise.Exercise) error
	GetExercise(ctx context.Context, id string) (exercise.Exercise, error)

	PutAssessment(ctx context.Context, a Assessment) error
	GetAssessment(ctx context.Context, id string) (Assessment, error)

	FindActiveAttempt(ctx context.Context, userID, assessmentID string) (Attempt, error)
	CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	UpsertResponse(ctx context.Context, attemptID, questionID string, r Response) error
	SaveAttempt(ctx context.Context, a Attempt) error
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
}

// MemoryStore backs tests and single-process dev runs.
type MemoryStore struct {
	mu          sync.Mutex
	exercises   map[string]exercise.Exercise
	assessments map[string]Assessment
	attempts    map[string]Attempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exercises:   map[string]exercise.Exercise{},
		assessments: map[string]Assessment{},
		attempts:    map[string]Attempt{},
	}
}

func (m *MemoryStore) PutExercise(_ context.Context, ex exercise.Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exercises[ex.ID] = ex
	return nil
}

func (m *MemoryStore) GetExercise(_ context.Context, id string) (exercise.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.exercises[id]
	if !ok {
		return exercise.Exercise{}, apperr.NotFoundf("exercise %s not found", id)
	}
	return ex, nil
}

func (m *MemoryStore) PutAssessment(_ context.Context, a Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[a.ID] = a
	return nil
}

func (m *MemoryStore) GetAssessment(_ context.Context, id string) (Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[id]
	if !ok {
		return Assessment{}, apperr.NotFoundf("assessment %s not found", id)
	}
	return a, nil
}

func (m *MemoryStore) FindActiveAttempt(_ context.Context, userID, assessmentID string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.findActiveLocked(userID, assessmentID); ok {
		return cloneAttempt(a), nil
	}
	return Attempt{}, apperr.NotFoundf("no active attempt")
}

// CreateAttempt is find-or-create under one lock, mirroring the partial
// unique index the SQL store relies on.
func (m *MemoryStore) CreateAttempt(_ context.Context, a Attempt) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.findActiveLocked(a.UserID, a.AssessmentID); ok {
		return cloneAttempt(existing), nil
	}
	if a.Responses == nil {
		a.Responses = map[string]Response{}
	}
	m.attempts[a.ID] = cloneAttempt(a)
	return a, nil
}

func (m *MemoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, apperr.NotFoundf("attempt %s not found", id)
	}
	return cloneAttempt(a), nil
}

func (m *MemoryStore) UpsertResponse(_ context.Context, attemptID, questionID string, r Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return apperr.NotFoundf("attempt %s not found", attemptID)
	}
	if !a.Active() {
		return apperr.Statef("attempt %s is already completed", attemptID)
	}
	if a.Responses == nil {
		a.Responses = map[string]Response{}
	}
	a.Responses[questionID] = r
	m.attempts[attemptID] = a
	return nil
}

func (m *MemoryStore) SaveAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[a.ID]; !ok {
		return apperr.NotFoundf("attempt %s not found", a.ID)
	}
	m.attempts[a.ID] = cloneAttempt(a)
	return nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Attempt
	for _, a := range m.attempts {
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		if opts.AssessmentID != "" && a.AssessmentID != opts.AssessmentID {
			continue
		}
		switch opts.Status {
		case "active":
			if !a.Active() {
				continue
			}
		case "completed":
			if a.Active() {
				continue
			}
		}
		out = append(out, cloneAttempt(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryStore) findActiveLocked(userID, assessmentID string) (Attempt, bool) {
	for _, a := range m.attempts {
		if a.UserID == userID && a.AssessmentID == assessmentID && a.Active() {
			return a, true
		}
	}
	return Attempt{}, false
}

func cloneAttempt(a Attempt) Attempt {
	resp := make(map[string]Response, len(a.Responses))
	for k, v := range a.Responses {
		resp[k] = v
	}
	a.Responses = resp
	return a
}

var _ Store = (*MemoryStore)(nil)
