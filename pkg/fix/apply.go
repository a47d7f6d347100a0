package fix

import "strings"

// Apply validates edits against text and returns the rewritten text.
// An empty edit list returns text unchanged. Overlapping edits are rejected
// with a *ConflictError; nothing is applied in that case.
func Apply(text string, edits []Replacement) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}

	prepared, err := PrepareEdits(edits, len(text))
	if err != nil {
		return "", err
	}

	return ApplyForward(text, prepared), nil
}

// ApplyForward rebuilds text in a single left-to-right pass.
// Edits must be prepared with PrepareEdits before calling.
func ApplyForward(text string, edits []Replacement) string {
	if len(edits) == 0 {
		return text
	}

	delta := 0
	for _, e := range edits {
		delta += len(e.NewText) - e.Len()
	}

	var out strings.Builder
	out.Grow(len(text) + delta)

	cursor := 0
	for _, e := range edits {
		out.WriteString(text[cursor:e.Start])
		out.WriteString(e.NewText)
		cursor = e.End
	}
	out.WriteString(text[cursor:])

	return out.String()
}

// ApplyReverse splices edits from the highest offset down, so earlier
// offsets stay valid while later ones are rewritten. It produces the same
// output as ApplyForward for any prepared edit list.
func ApplyReverse(text string, edits []Replacement) string {
	if len(edits) == 0 {
		return text
	}

	buf := []byte(text)
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		tail := append([]byte(e.NewText), buf[e.End:]...)
		buf = append(buf[:e.Start], tail...)
	}

	return string(buf)
}
