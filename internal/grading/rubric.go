package grading

import "fmt"

// Rubric guides human review of long-answer submissions. Criterion
// awards are clamped to their maxima; the total is clamped to Max when
// set.
type Rubric struct {
	Criteria []Criterion `json:"criteria"`
	Max      float64     `json:"max_points,omitempty"`
}

type Criterion struct {
	Key       string  `json:"key"`
	Desc      string  `json:"desc,omitempty"`
	MaxPoints float64 `json:"max_points"`
}

// ScoreRubric totals per-criterion awards against the rubric and returns
// the clamped total plus one note per criterion.
func ScoreRubric(r Rubric, awarded map[string]float64) (float64, []string) {
	total := 0.0
	notes := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		v := awarded[c.Key]
		if v < 0 {
			v = 0
		}
		if v > c.MaxPoints {
			v = c.MaxPoints
		}
		total += v
		notes = append(notes, fmt.Sprintf("%s:%.2f", c.Key, v))
	}
	if r.Max > 0 && total > r.Max {
		total = r.Max
	}
	return total, notes
}
