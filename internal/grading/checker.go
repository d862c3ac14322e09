// Package grading holds the pure core of the platform: the per-type
// answer checker and the point scorer. Nothing here touches a clock,
// a store, or the network.
package grading

import (
	"encoding/json"
	"strings"

	"github.com/classlight/classlight-lms/internal/apperr"
	"github.com/classlight/classlight-lms/internal/exercise"
)

// Verdict is the outcome of checking one submission.
type Verdict int

const (
	VerdictIncorrect Verdict = iota
	VerdictCorrect
	// VerdictPending: the type has no automatic correctness rule and a
	// human must review it. Never auto-scored correct or incorrect.
	VerdictPending
)

func (v Verdict) Correct() bool { return v == VerdictCorrect }
func (v Verdict) Pending() bool { return v == VerdictPending }

func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictPending:
		return "pending"
	default:
		return "incorrect"
	}
}

// Payload shapes. content/solution/answer are opaque everywhere else in
// the codebase; only this package decodes them.

type choiceAnswer struct {
	Selected string `json:"selected"`
}

type choiceSolution struct {
	Correct string `json:"correct"`
}

type multiAnswer struct {
	Selected []string `json:"selected"`
}

type multiSolution struct {
	Correct []string `json:"correct"`
}

type gapAnswer struct {
	Gaps []string `json:"gaps"`
}

type gapSolution struct {
	Gaps []string `json:"gaps"`
}

type pairAnswer struct {
	Pairs map[string]string `json:"pairs"`
}

type pairSolution struct {
	Pairs map[string]string `json:"pairs"`
}

type orderAnswer struct {
	Order []string `json:"order"`
}

type orderSolution struct {
	Order []string `json:"order"`
}

type textAnswer struct {
	Text string `json:"text"`
}

type textSolution struct {
	Accept        []string `json:"accept"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
}

type setAnswer struct {
	Found []string `json:"found"`
}

type setSolution struct {
	Targets []string `json:"targets"`
}

type numericAnswer struct {
	Value string `json:"value"`
}

type numericSolution struct {
	Value        string  `json:"value"`
	Tolerance    float64 `json:"tolerance,omitempty"`     // absolute
	RelTolerance float64 `json:"rel_tolerance,omitempty"` // fraction of the target
}

type longSolution struct {
	Rubric *Rubric `json:"rubric,omitempty"`
}

// Check evaluates a submitted answer against an exercise solution. It is
// pure and must not fail for well-formed input of the matching type; a
// malformed or mismatched payload is a caller bug reported as a
// validation error, never graded as incorrect.
func Check(typ exercise.Type, answer, solution json.RawMessage) (Verdict, error) {
	switch typ {
	case exercise.TypeMultipleChoice, exercise.TypeTrueFalse,
		exercise.TypeImageChoice, exercise.TypeListeningChoice:
		return checkSingleSelect(answer, solution)

	case exercise.TypeMultiSelect:
		return checkMultiSelect(answer, solution)

	case exercise.TypeFillGaps, exercise.TypeListeningGaps, exercise.TypeCrossword:
		return checkGaps(answer, solution)

	case exercise.TypeMatching, exercise.TypeDragDrop:
		return checkPairs(answer, solution)

	case exercise.TypeSorting, exercise.TypeSequencing:
		return checkOrder(answer, solution)

	case exercise.TypeShortAnswer, exercise.TypeDictation:
		return checkFreeText(answer, solution)

	case exercise.TypeFindWord, exercise.TypeFindLetter,
		exercise.TypeWordSearch, exercise.TypeHighlight:
		return checkContainment(answer, solution)

	case exercise.TypeNumeric:
		return checkNumeric(answer, solution)

	case exercise.TypeLongAnswer:
		return checkLongAnswer(answer)

	default:
		return VerdictIncorrect, apperr.Validationf("unknown exercise type %q", typ)
	}
}

func decode[T any](raw json.RawMessage, what string) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, apperr.Validationf("%s payload required", what)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, apperr.Validationf("malformed %s payload: %v", what, err)
	}
	return v, nil
}

func checkSingleSelect(answer, solution json.RawMessage) (Verdict, error) {
	a, err := decode[choiceAnswer](answer, "answer")
	if err != nil {
		return VerdictIncorrect, err
	}
	s, err := decode[choiceSolution](solution, "solution")
	if err != nil {
		return VerdictIncorrect, err
	}
	if strings.TrimSpace(a.Selected) == "" {
		return VerdictIncorrect, apperr.Validationf("no option selected")
	}
	return verdict(a.Selected == s.Correct), nil
}

func checkMultiSelect(answer, solution json.RawMessage) (Verdict, error) {
	a, err := decode[multiAnswer](answer, "answer")
	if err != nil {
		return VerdictIncorrect, err
	}
	s, err := decode[multiSolution](solution, "solution")
	if err != nil {
		return VerdictIncorrect, err
	}
	if len(a.Selected) == 0 {
		return VerdictIncorrect, apperr.Validationf("no options selected")
	}
	return verdict(setEqual(toSet(a.Selected), toSet(s.Correct))), nil
}

// checkGaps requires every gap position to match case-insensitively after
// trimming. No partial credit at this layer.
func checkGaps(answer, solution json.RawMessage) (Verdict, error) {
	a, err := decode[gapAnswer](answer, "answer")
	if err != nil {
		return VerdictIncorrect, err
	}
	s, err := decode[gapSolution](solution, "solution")
	if err != nil {
		return VerdictIncorrect, err
	}
	if len(a.Gaps) == 0 {
		return VerdictIncorrect, apperr.Validationf("no gap values submitted")
	}
	if len(a.Gaps) != len(s.Gaps) {
		return VerdictIncorrect, apperr.Validationf("expected %d gap values, got %d", len(s.Gaps), len(a.Gaps))
	}
	for i := range s.Gaps {
		if !strings.EqualFold(strings.TrimSpace(a.Gaps[i]), strings.TrimSpace(s.Gaps[i])) {
			return VerdictIncorrect, nil
		}
	}
	return VerdictCorrect, nil
}

func checkPairs(answer, solution json.RawMessage) (Verdict, error) {
	a, err := decode[pairAnswer](answer, "answer")
	if err != nil {
		return VerdictIncorrect, err
	}
	s, err := decode[pairSolution](solution, "solution")
	if err != nil {
		return VerdictIncorrect, err
	}
	if len(a.Pairs) == 0 {
		return VerdictIncorrect, apperr.Validationf("no pairs submitted")
	}
	if len(a.Pairs) != len(s.Pairs) {
		return VerdictIncorrect, nil
	}
	for item, slot := range s.Pairs {
		if a.Pairs[item] != slot {
			return VerdictIncorrect, nil
		}
	}
	return VerdictCorrect, nil
}

// checkOrder demands exact sequence equality; a permutation earns nothing.
func checkOrder(answer, solution json.RawMessage) (Verdict, error) {
	a, err := decode[orderAnswer](answer, "answer")
	if err != nil {
		return VerdictIncorrect, err
	}
	s, err := decode[orderSolution](solution, "solution")
	if err != nil {
		return VerdictIncorrect, err
	}
	if len(a.Order) == 0 {
		return VerdictIncorrect, apperr.Validationf("no ordering submitted")
	}
	if len(a.Order) != len(s.Order) {
		return VerdictIncorrect, apperr.Validationf("ordering must place all %d items", len(s.Order))
	}
	for i := range s.Order {
		if a.Order[i] != s.Order[i] {
			return VerdictIncorrect, nil
		}
	}
	return VerdictCorrect, nil
}

func checkFreeText(answer, solution json.RawMessage) (Verdict, error) {
	a, err := decode[textAnswer](answer, "answer")
	if err != nil {
		return VerdictIncorrect, err
	}
	s, err := decode[textSolution](solution, "solution")
	if err != nil {
		return VerdictIncorrect, err
	}
	got := strings.TrimSpace(a.Text)
	if got == "" {
		return VerdictIncorrect, apperr.Validationf("answer text required")
	}
	for _, accept := range s.Accept {
		want := strings.TrimSpace(accept)
		if s.CaseSensitive {
			if got == want {
				return VerdictCorrect, nil
			}
		} else if strings.EqualFold(got, want) {
			return VerdictCorrect, nil
		}
	}
	return VerdictIncorrect, nil
}

// checkContainment passes when every target appears in the discovered
// set; extra discoveries are not penalized.
func checkContainment(answer, solution json.RawMessage) (Verdict, error) {
	a, err := decode[setAnswer](answer, "answer")
	if err != nil {
		return VerdictIncorrect, err
	}
	s, err := decode[setSolution](solution, "solution")
	if err != nil {
		return VerdictIncorrect, err
	}
	if len(a.Found) == 0 {
		return VerdictIncorrect, apperr.Validationf("no discoveries submitted")
	}
	found := make(map[string]struct{}, len(a.Found))
	for _, f := range a.Found {
		found[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
	}
	for _, t := range s.Targets {
		if _, ok := found[strings.ToLower(strings.TrimSpace(t))]; !ok {
			return VerdictIncorrect, nil
		}
	}
	return VerdictCorrect, nil
}

func checkLongAnswer(answer json.RawMessage) (Verdict, error) {
	a, err := decode[textAnswer](answer, "answer")
	if err != nil {
		return VerdictIncorrect, err
	}
	if strings.TrimSpace(a.Text) == "" {
		return VerdictIncorrect, apperr.Validationf("answer text required")
	}
	return VerdictPending, nil
}

func verdict(correct bool) Verdict {
	if correct {
		return VerdictCorrect
	}
	return VerdictIncorrect
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// RubricFor extracts the optional grading rubric from a long-answer
// solution payload. Returns nil when the solution declares none.
func RubricFor(typ exercise.Type, solution json.RawMessage) (*Rubric, error) {
	if typ != exercise.TypeLongAnswer || len(solution) == 0 {
		return nil, nil
	}
	var s longSolution
	if err := json.Unmarshal(solution, &s); err != nil {
		return nil, apperr.Validationf("malformed solution payload: %v", err)
	}
	return s.Rubric, nil
}
