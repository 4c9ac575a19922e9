// Package textedit tracks in-place replacements over a string so the
// rewritten text and the exact positions of every edit can both be
// recovered afterwards.
package textedit

import (
	"fmt"
	"sort"
	"strings"
)

// Edit is one replacement of the original span [Start, End) with New.
// Offsets are byte offsets into the original text.
type Edit struct {
	Start int
	End   int
	New   string
}

// Buffer accumulates non-overlapping edits against an immutable
// original string. It is not safe for concurrent use.
type Buffer struct {
	original string
	edits    []Edit
	sorted   bool
}

// NewBuffer creates a Buffer over the given original text.
func NewBuffer(original string) *Buffer {
	return &Buffer{original: original}
}

// Original returns the unmodified input text.
func (b *Buffer) Original() string {
	return b.original
}

// Replace records the replacement of [start, end) with text. It fails
// on out-of-range offsets and on overlap with a previously recorded
// edit; zero-length spans are allowed and behave as insertions.
func (b *Buffer) Replace(start, end int, text string) error {
	if start < 0 || end < start || end > len(b.original) {
		return fmt.Errorf("edit span [%d, %d) out of range for text of %d bytes", start, end, len(b.original))
	}

	for _, e := range b.edits {
		if start < e.End && e.Start < end {
			return fmt.Errorf("edit span [%d, %d) overlaps existing edit [%d, %d)", start, end, e.Start, e.End)
		}
	}

	b.edits = append(b.edits, Edit{Start: start, End: end, New: text})
	b.sorted = false

	return nil
}

// Overlaps reports whether [start, end) intersects any recorded edit.
// Zero-length spans overlap an edit they fall strictly inside.
func (b *Buffer) Overlaps(start, end int) bool {
	for _, e := range b.edits {
		if start < e.End && e.Start < end {
			return true
		}

		if start == end && e.Start < start && start < e.End {
			return true
		}
	}

	return false
}

// Dirty reports whether any edit has been recorded.
func (b *Buffer) Dirty() bool {
	return len(b.edits) > 0
}

// Edits returns the recorded edits ordered by start offset.
func (b *Buffer) Edits() []Edit {
	b.sortEdits()

	out := make([]Edit, len(b.edits))
	copy(out, b.edits)

	return out
}

// String renders the text with all edits applied.
func (b *Buffer) String() string {
	if len(b.edits) == 0 {
		return b.original
	}

	b.sortEdits()

	var sb strings.Builder

	last := 0
	for _, e := range b.edits {
		sb.WriteString(b.original[last:e.Start])
		sb.WriteString(e.New)
		last = e.End
	}

	sb.WriteString(b.original[last:])

	return sb.String()
}

func (b *Buffer) sortEdits() {
	if b.sorted {
		return
	}

	sort.Slice(b.edits, func(i, j int) bool {
		return b.edits[i].Start < b.edits[j].Start
	})
	b.sorted = true
}
