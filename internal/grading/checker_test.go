package grading

import (
	"encoding/json"
	"testing"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/exercise"
)

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

// selfGradingFixtures returns, for every type, a solution and the answer
// a learner would submit by copying that solution.
func selfGradingFixtures(t *testing.T) map[exercise.Type][2]json.RawMessage {
	t.Helper()
	choice := [2]json.RawMessage{raw(t, map[string]string{"selected": "b"}), raw(t, map[string]string{"correct": "b"})}
	gaps := [2]json.RawMessage{raw(t, map[string][]string{"gaps": {"ran", "dog"}}), raw(t, map[string][]string{"gaps": {"ran", "dog"}})}
	pairs := [2]json.RawMessage{
		raw(t, map[string]map[string]string{"pairs": {"cat": "animals", "oak": "trees"}}),
		raw(t, map[string]map[string]string{"pairs": {"cat": "animals", "oak": "trees"}}),
	}
	order := [2]json.RawMessage{raw(t, map[string][]string{"order": {"a", "b", "c"}}), raw(t, map[string][]string{"order": {"a", "b", "c"}})}
	text := [2]json.RawMessage{raw(t, map[string]string{"text": "Paris"}), raw(t, map[string]any{"accept": []string{"paris"}})}
	set := [2]json.RawMessage{raw(t, map[string][]string{"found": {"cat", "dog"}}), raw(t, map[string][]string{"targets": {"cat", "dog"}})}

	return map[exercise.Type][2]json.RawMessage{
		exercise.TypeMultipleChoice:  choice,
		exercise.TypeTrueFalse:       {raw(t, map[string]string{"selected": "true"}), raw(t, map[string]string{"correct": "true"})},
		exercise.TypeImageChoice:     choice,
		exercise.TypeListeningChoice: choice,
		exercise.TypeMultiSelect: {
			raw(t, map[string][]string{"selected": {"a", "c"}}),
			raw(t, map[string][]string{"correct": {"c", "a"}}), // set equality, order-free
		},
		exercise.TypeFillGaps:      gaps,
		exercise.TypeListeningGaps: gaps,
		exercise.TypeCrossword:     gaps,
		exercise.TypeMatching:      pairs,
		exercise.TypeDragDrop:      pairs,
		exercise.TypeSorting:       order,
		exercise.TypeSequencing:    order,
		exercise.TypeShortAnswer:   text,
		exercise.TypeDictation:     text,
		exercise.TypeFindWord:      set,
		exercise.TypeFindLetter:    set,
		exercise.TypeWordSearch:    set,
		exercise.TypeHighlight:     set,
		exercise.TypeNumeric:       {raw(t, map[string]string{"value": "3.14"}), raw(t, map[string]any{"value": "3.14"})},
		exercise.TypeLongAnswer:    {raw(t, map[string]string{"text": "an essay"}), raw(t, map[string]any{})},
	}
}

// The solution always grades itself correct, except long answers which
// stay pending for human review.
func TestCheck_SolutionGradesItself(t *testing.T) {
	fixtures := selfGradingFixtures(t)
	for _, typ := range exercise.Types {
		fx, ok := fixtures[typ]
		if !ok {
			t.Fatalf("no fixture for type %q", typ)
		}
		v, err := Check(typ, fx[0], fx[1])
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", typ, err)
		}
		if typ == exercise.TypeLongAnswer {
			if !v.Pending() {
				t.Fatalf("%s: want pending, got %v", typ, v)
			}
			continue
		}
		if !v.Correct() {
			t.Fatalf("%s: want correct, got %v", typ, v)
		}
	}
}

func TestCheck_ScrambledOrderIsIncorrect(t *testing.T) {
	sol := raw(t, map[string][]string{"order": {"a", "b", "c"}})
	ans := raw(t, map[string][]string{"order": {"c", "a", "b"}})
	for _, typ := range []exercise.Type{exercise.TypeSorting, exercise.TypeSequencing} {
		v, err := Check(typ, ans, sol)
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if v.Correct() {
			t.Fatalf("%s: permutation must not earn credit", typ)
		}
	}
}

func TestCheck_MatchingEveryPairMustAgree(t *testing.T) {
	sol := raw(t, map[string]map[string]string{"pairs": {"cat": "animals", "oak": "trees"}})
	ans := raw(t, map[string]map[string]string{"pairs": {"cat": "trees", "oak": "animals"}})
	v, err := Check(exercise.TypeMatching, ans, sol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Correct() {
		t.Fatalf("swapped pairs must be incorrect")
	}
}

func TestCheck_GapsCaseAndWhitespaceInsensitive(t *testing.T) {
	sol := raw(t, map[string][]string{"gaps": {"Ran", "dog"}})
	ans := raw(t, map[string][]string{"gaps": {"  ran ", "DOG"}})
	v, err := Check(exercise.TypeFillGaps, ans, sol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Correct() {
		t.Fatalf("trimmed case-insensitive gaps should match")
	}
}

func TestCheck_GapsAllMustMatch(t *testing.T) {
	sol := raw(t, map[string][]string{"gaps": {"ran", "dog"}})
	ans := raw(t, map[string][]string{"gaps": {"ran", "cat"}})
	v, err := Check(exercise.TypeFillGaps, ans, sol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Correct() {
		t.Fatalf("one wrong gap must fail the whole exercise")
	}
}

func TestCheck_FreeTextCaseSensitivity(t *testing.T) {
	insensitive := raw(t, map[string]any{"accept": []string{"Paris", "paris, france"}})
	sensitive := raw(t, map[string]any{"accept": []string{"Paris"}, "case_sensitive": true})

	v, err := Check(exercise.TypeShortAnswer, raw(t, map[string]string{"text": "PARIS"}), insensitive)
	if err != nil || !v.Correct() {
		t.Fatalf("case-insensitive match failed: v=%v err=%v", v, err)
	}
	v, err = Check(exercise.TypeShortAnswer, raw(t, map[string]string{"text": "PARIS"}), sensitive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Correct() {
		t.Fatalf("case-sensitive exercise must reject wrong casing")
	}
}

func TestCheck_ContainmentIgnoresExtras(t *testing.T) {
	sol := raw(t, map[string][]string{"targets": {"cat"}})
	ans := raw(t, map[string][]string{"found": {"cat", "hat", "bat"}})
	v, err := Check(exercise.TypeWordSearch, ans, sol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Correct() {
		t.Fatalf("extra discoveries must not penalize")
	}

	missing := raw(t, map[string][]string{"found": {"hat"}})
	v, err = Check(exercise.TypeWordSearch, missing, sol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Correct() {
		t.Fatalf("a missing target must fail containment")
	}
}

func TestCheck_NumericTolerance(t *testing.T) {
	cases := []struct {
		name     string
		solution map[string]any
		value    string
		correct  bool
	}{
		{"exact string", map[string]any{"value": "3.14"}, "3.14", true},
		{"within abs tol", map[string]any{"value": "3.14159", "tolerance": 0.01}, "3.14", true},
		{"outside abs tol", map[string]any{"value": "3.14159", "tolerance": 0.001}, "3.15", false},
		{"within rel tol", map[string]any{"value": "100", "rel_tolerance": 0.05}, "104", true},
		{"outside rel tol", map[string]any{"value": "100", "rel_tolerance": 0.05}, "110", false},
		{"with unit suffix", map[string]any{"value": "9.8", "tolerance": 0.1}, "9.81 m/s2", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Check(exercise.TypeNumeric, raw(t, map[string]string{"value": tc.value}), raw(t, tc.solution))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Correct() != tc.correct {
				t.Fatalf("value %q: want correct=%v, got %v", tc.value, tc.correct, v)
			}
		})
	}
}

func TestCheck_MalformedInputIsValidationError(t *testing.T) {
	sol := raw(t, map[string]string{"correct": "b"})
	cases := []struct {
		name   string
		answer json.RawMessage
	}{
		{"empty payload", nil},
		{"wrong shape", raw(t, map[string][]string{"order": {"a"}})},
		{"empty selection", raw(t, map[string]string{"selected": ""})},
		{"bad json", json.RawMessage(`{`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Check(exercise.TypeMultipleChoice, tc.answer, sol)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !apperr.IsValidation(err) {
				t.Fatalf("want validation kind, got %v", err)
			}
		})
	}
}

func TestCheck_UnknownTypeIsHardError(t *testing.T) {
	_, err := Check(exercise.Type("telepathy"), raw(t, map[string]string{"selected": "a"}), raw(t, map[string]string{"correct": "a"}))
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestRubricFor(t *testing.T) {
	sol := raw(t, map[string]any{"rubric": map[string]any{
		"criteria":   []map[string]any{{"key": "clarity", "max_points": 3}},
		"max_points": 3,
	}})
	r, err := RubricFor(exercise.TypeLongAnswer, sol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil || len(r.Criteria) != 1 || r.Criteria[0].Key != "clarity" {
		t.Fatalf("rubric not decoded: %+v", r)
	}
	r, err = RubricFor(exercise.TypeShortAnswer, sol)
	if err != nil || r != nil {
		t.Fatalf("non-essay types carry no rubric: r=%v err=%v", r, err)
	}
}

func TestScoreRubric_ClampsAwards(t *testing.T) {
	r := Rubric{
		Criteria: []Criterion{
			{Key: "clarity", MaxPoints: 3},
			{Key: "evidence", MaxPoints: 2},
		},
		Max: 4,
	}
	total, notes := ScoreRubric(r, map[string]float64{"clarity": 5, "evidence": -1})
	if total != 3 { // clarity clamped to 3, evidence to 0, under Max
		t.Fatalf("want 3, got %v", total)
	}
	if len(notes) != 2 {
		t.Fatalf("want one note per criterion, got %d", len(notes))
	}
	total, _ = ScoreRubric(r, map[string]float64{"clarity": 3, "evidence": 2})
	if total != 4 { // 5 clamped to rubric Max
		t.Fatalf("want rubric max 4, got %v", total)
	}
}
