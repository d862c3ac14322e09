package grading

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/classlight/classlight-lms/internal/apperr"
)

// checkNumeric accepts an exact string match, or a numeric comparison
// within the solution's absolute and/or relative tolerance. Examples:
//
//	{"value":"3.14159","tolerance":0.01}
//	{"value":"100","rel_tolerance":0.05}   // 5% of the target
func checkNumeric(answer, solution json.RawMessage) (Verdict, error) {
	a, err := decode[numericAnswer](answer, "answer")
	if err != nil {
		return VerdictIncorrect, err
	}
	s, err := decode[numericSolution](solution, "solution")
	if err != nil {
		return VerdictIncorrect, err
	}
	got := strings.TrimSpace(a.Value)
	if got == "" {
		return VerdictIncorrect, apperr.Validationf("answer value required")
	}
	if got == strings.TrimSpace(s.Value) {
		return VerdictCorrect, nil
	}

	gv, gOK := parseFloatLoose(got)
	tv, tOK := parseFloatLoose(s.Value)
	if !gOK || !tOK {
		return VerdictIncorrect, nil
	}
	diff := math.Abs(gv - tv)
	if s.Tolerance > 0 && diff <= s.Tolerance {
		return VerdictCorrect, nil
	}
	if s.RelTolerance > 0 && diff <= s.RelTolerance*math.Abs(tv) {
		return VerdictCorrect, nil
	}
	return verdict(diff == 0), nil
}

// parseFloatLoose tolerates a trailing unit ("9.8 m/s2" parses as 9.8).
func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, err := strconv.ParseFloat(sp[0], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
