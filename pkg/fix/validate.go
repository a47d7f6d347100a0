package fix

import (
	"cmp"
	"fmt"
	"slices"
)

// ValidationError describes a replacement whose range does not fit the text.
type ValidationError struct {
	Edit    Replacement
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid edit %s: %s", e.Edit.Range, e.Message)
}

// ConflictError describes two replacements whose ranges overlap.
type ConflictError struct {
	Edit1 Replacement
	Edit2 Replacement
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("overlapping edits: %s and %s", e.Edit1.Range, e.Edit2.Range)
}

// ValidateEdits checks that all edits have valid ranges for the given text length.
// Returns nil if all edits are valid, or the first validation error encountered.
func ValidateEdits(edits []Replacement, textLen int) error {
	for _, edit := range edits {
		if edit.Start < 0 {
			return &ValidationError{Edit: edit, Message: "start offset is negative"}
		}
		if edit.End < edit.Start {
			return &ValidationError{Edit: edit, Message: "end offset is before start offset"}
		}
		if edit.End > textLen {
			return &ValidationError{
				Edit:    edit,
				Message: fmt.Sprintf("end offset %d exceeds text length %d", edit.End, textLen),
			}
		}
	}
	return nil
}

// SortEdits sorts edits by start offset, then by end offset.
// The sort is stable, so insertions at one offset keep their submission order.
func SortEdits(edits []Replacement) {
	slices.SortStableFunc(edits, func(a, b Replacement) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})
}

// DetectConflicts checks for overlapping edits in a sorted slice.
// Returns nil if no conflicts, or the first conflict found.
// Edits must be sorted by SortEdits before calling.
func DetectConflicts(edits []Replacement) error {
	for i := 1; i < len(edits); i++ {
		prev := edits[i-1]
		curr := edits[i]
		if curr.Start < prev.End {
			return &ConflictError{Edit1: prev, Edit2: curr}
		}
	}
	return nil
}

// PrepareEdits validates, sorts, and checks for conflicts.
// The input slice is not modified.
func PrepareEdits(edits []Replacement, textLen int) ([]Replacement, error) {
	if len(edits) == 0 {
		return nil, nil
	}

	if err := ValidateEdits(edits, textLen); err != nil {
		return nil, err
	}

	result := slices.Clone(edits)
	SortEdits(result)

	if err := DetectConflicts(result); err != nil {
		return nil, err
	}

	return result, nil
}
