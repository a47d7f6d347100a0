package fix_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/yaklabco/tsweave/pkg/fix"
)

func TestValidateEdits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		edits   []fix.Replacement
		textLen int
		errMsg  string
	}{
		{name: "empty edits", textLen: 10},
		{
			name:    "valid edits",
			edits:   []fix.Replacement{fix.Replace(0, 5, "a"), fix.Replace(5, 10, "b")},
			textLen: 10,
		},
		{
			name:    "insertion at end of text",
			edits:   []fix.Replacement{fix.Insert(10, "\n")},
			textLen: 10,
		},
		{
			name:    "negative start offset",
			edits:   []fix.Replacement{fix.Replace(-1, 5, "")},
			textLen: 10,
			errMsg:  "start offset is negative",
		},
		{
			name:    "end before start",
			edits:   []fix.Replacement{fix.Replace(5, 3, "")},
			textLen: 10,
			errMsg:  "end offset is before start offset",
		},
		{
			name:    "end exceeds text length",
			edits:   []fix.Replacement{fix.Replace(5, 15, "")},
			textLen: 10,
			errMsg:  "exceeds text length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fix.ValidateEdits(tt.edits, tt.textLen)
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("ValidateEdits() error = %v", err)
				}
				return
			}

			var verr *fix.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateEdits() error = %v, want *ValidationError", err)
			}
			if !strings.Contains(verr.Message, tt.errMsg) {
				t.Errorf("Message = %q, want it to contain %q", verr.Message, tt.errMsg)
			}
		})
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		edits    []fix.Replacement
		conflict bool
	}{
		{name: "adjacent ranges", edits: []fix.Replacement{fix.Replace(0, 3, ""), fix.Replace(3, 5, "")}},
		{name: "two insertions at one offset", edits: []fix.Replacement{fix.Insert(2, "a"), fix.Insert(2, "b")}},
		{name: "overlapping ranges", edits: []fix.Replacement{fix.Replace(0, 4, ""), fix.Replace(3, 5, "")}, conflict: true},
		{name: "nested range", edits: []fix.Replacement{fix.Replace(0, 10, ""), fix.Replace(2, 4, "")}, conflict: true},
		{name: "insertion inside replacement", edits: []fix.Replacement{fix.Replace(0, 4, "x"), fix.Insert(2, "y")}, conflict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := fix.PrepareEdits(tt.edits, 20)
			var conflict *fix.ConflictError
			if got := errors.As(err, &conflict); got != tt.conflict {
				t.Errorf("PrepareEdits() conflict = %v, want %v (err %v)", got, tt.conflict, err)
			}
		})
	}
}

func TestRangeOverlaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b fix.Range
		want bool
	}{
		{fix.Range{Start: 0, End: 3}, fix.Range{Start: 3, End: 6}, false},
		{fix.Range{Start: 0, End: 4}, fix.Range{Start: 3, End: 6}, true},
		{fix.Range{Start: 3, End: 6}, fix.Range{Start: 0, End: 4}, true},
		{fix.Range{Start: 2, End: 2}, fix.Range{Start: 0, End: 4}, true},
		{fix.Range{Start: 4, End: 4}, fix.Range{Start: 0, End: 4}, false},
		{fix.Range{Start: 1, End: 1}, fix.Range{Start: 1, End: 1}, false},
	}

	for _, tt := range tests {
		if got := tt.a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%v.Overlaps(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPrepareEditsDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	edits := []fix.Replacement{fix.Replace(5, 6, "b"), fix.Replace(0, 1, "a")}
	prepared, err := fix.PrepareEdits(edits, 10)
	if err != nil {
		t.Fatalf("PrepareEdits() error = %v", err)
	}
	if edits[0].Start != 5 {
		t.Errorf("input reordered: %v", edits)
	}
	if prepared[0].Start != 0 || prepared[1].Start != 5 {
		t.Errorf("prepared = %v, want sorted", prepared)
	}
}
