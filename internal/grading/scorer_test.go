package grading

import "testing"

func TestScore_Policy(t *testing.T) {
	cases := []struct {
		name      string
		maxPoints int
		correct   bool
		attempt   int
		want      int
	}{
		{"incorrect earns nothing", 100, false, 1, 0},
		{"incorrect late attempt", 100, false, 7, 0},
		{"first try full credit", 100, true, 1, 100},
		{"second try", 100, true, 2, 96},
		{"third try", 100, true, 3, 94},
		{"decay floors at half", 100, true, 50, 50},
		{"way past the floor", 100, true, 1000, 50},
		{"small value first try", 5, true, 1, 5},
		{"small value hits floor fast", 5, true, 2, 3}, // floor round(2.5)=3 beats 5-4=1
		{"zero max", 0, true, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.maxPoints, tc.correct, tc.attempt)
			if got != tc.want {
				t.Fatalf("Score(%d,%v,%d) = %d, want %d", tc.maxPoints, tc.correct, tc.attempt, got, tc.want)
			}
		})
	}
}

func TestScore_NeverBelowHalfNeverNegative(t *testing.T) {
	for attempt := 1; attempt <= 200; attempt++ {
		got := Score(100, true, attempt)
		if got < 50 {
			t.Fatalf("attempt %d: awarded %d below half", attempt, got)
		}
		if got > 100 {
			t.Fatalf("attempt %d: awarded %d above max", attempt, got)
		}
	}
}
