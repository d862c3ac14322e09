package grading

import "math"

// Score converts correctness and attempt count into awarded points.
//
// Policy: an incorrect answer earns 0; a correct first attempt earns the
// full point value; a correct later attempt earns maxPoints - 2*attempt,
// floored at half the point value (rounded to nearest). Retrying costs
// something but never zeroes out a correct answer.
func Score(maxPoints int, correct bool, attempt int) int {
	if !correct || maxPoints <= 0 {
		return 0
	}
	if attempt <= 1 {
		return maxPoints
	}
	floor := int(math.Round(float64(maxPoints) * 0.5))
	awarded := maxPoints - 2*attempt
	if awarded < floor {
		return floor
	}
	return awarded
}
