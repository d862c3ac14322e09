// Package exercise defines the static description of a gradable question:
// its type tag, display prompt, and the opaque content/solution payloads
// whose shape is owned by the matching checker in internal/grading.
package exercise

import "encoding/json"

// Type is the closed enumeration of exercise variants. The checker
// dispatches over it exhaustively; adding a variant here without a
// correctness rule is a compile-visible gap, not a nil lookup.
type Type string

const (
	// Single-select: one chosen option id against one correct id.
	TypeMultipleChoice  Type = "multiple_choice"
	TypeTrueFalse       Type = "true_false"
	TypeImageChoice     Type = "image_choice"
	TypeListeningChoice Type = "listening_choice"

	// Multi-select: chosen option set must equal the correct set.
	TypeMultiSelect Type = "multi_select"

	// Gap fill: every gap matches case-insensitively after trimming.
	TypeFillGaps      Type = "fill_gaps"
	TypeListeningGaps Type = "listening_gaps"
	TypeCrossword     Type = "crossword"

	// Mapping: submitted item->slot pairs equal the solution pairs.
	TypeMatching Type = "matching"
	TypeDragDrop Type = "drag_drop"

	// Ordering: exact sequence, no permutation credit.
	TypeSorting    Type = "sorting"
	TypeSequencing Type = "sequencing"

	// Free text: trimmed submission equals any accepted answer.
	TypeShortAnswer Type = "short_answer"
	TypeDictation   Type = "dictation"

	// Set containment: every target discovered, extras not penalized.
	TypeFindWord   Type = "find_word"
	TypeFindLetter Type = "find_letter"
	TypeWordSearch Type = "word_search"
	TypeHighlight  Type = "highlight"

	// Numeric with optional tolerance.
	TypeNumeric Type = "numeric"

	// Manual review only; never auto-graded.
	TypeLongAnswer Type = "long_answer"
)

// Types lists every variant, in catalog order.
var Types = []Type{
	TypeMultipleChoice, TypeTrueFalse, TypeImageChoice, TypeListeningChoice,
	TypeMultiSelect,
	TypeFillGaps, TypeListeningGaps, TypeCrossword,
	TypeMatching, TypeDragDrop,
	TypeSorting, TypeSequencing,
	TypeShortAnswer, TypeDictation,
	TypeFindWord, TypeFindLetter, TypeWordSearch, TypeHighlight,
	TypeNumeric,
	TypeLongAnswer,
}

func (t Type) Valid() bool {
	for _, k := range Types {
		if t == k {
			return true
		}
	}
	return false
}

type Exercise struct {
	ID           string          `json:"id"`
	Type         Type            `json:"type"`
	Title        string          `json:"title,omitempty"`
	Instructions string          `json:"instructions,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
	Solution     json.RawMessage `json:"solution,omitempty"`
	Points       int             `json:"points"`
	Difficulty   int             `json:"difficulty,omitempty"` // 1..5, display/filter only
	MediaKey     string          `json:"media_key,omitempty"`  // blob key for audio/image content
	CreatedAt    int64           `json:"created_at,omitempty"`
}

// Stripped returns a copy safe to serve to learners: the solution payload
// is removed, everything needed for rendering stays.
func (e Exercise) Stripped() Exercise {
	e.Solution = nil
	return e
}
