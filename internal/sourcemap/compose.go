package sourcemap

import (
	"fmt"
	"sort"
	"strings"

	"rasterpass.dev/pkg/rasterpass/pkg/textedit"
)

// lineEdit is one edit projected onto a single generated line, with
// columns relative to the line start in the pre-edit text.
type lineEdit struct {
	startCol int
	endCol   int
	newLen   int
}

// Compose merges the original chunk map (original source -> pre-edit
// generated position) with the edit map recorded in buf (pre-edit ->
// post-edit generated position), producing a map from original source
// to post-edit generated position. Every original segment survives,
// shifted by the edits before it on its line, and a segment is added at
// each edit site resolving to the original position in effect at the
// start of the edited span. Replacement text must not contain newlines;
// edits therefore never move content across lines.
func Compose(orig *Map, buf *textedit.Buffer) (*Map, error) {
	edits := buf.Edits()
	for _, e := range edits {
		if strings.ContainsRune(e.New, '\n') {
			return nil, fmt.Errorf("replacement text spans multiple lines")
		}
	}

	lines, err := decodeMappings(orig.Mappings)
	if err != nil {
		return nil, err
	}

	perLine := projectEdits(buf.Original(), edits)

	for line, lineEdits := range perLine {
		if line >= len(lines) {
			// The original map carried no mapping lines this far; the
			// edit shifts nothing that is mapped.
			continue
		}

		lines[line] = remapLine(lines[line], lineEdits)
	}

	// sources and names must serialize as arrays, never null.
	sources := orig.Sources
	if sources == nil {
		sources = []string{}
	}

	names := orig.Names
	if names == nil {
		names = []string{}
	}

	composed := &Map{
		Version:        3,
		File:           orig.File,
		SourceRoot:     orig.SourceRoot,
		Sources:        sources,
		SourcesContent: orig.SourcesContent,
		Names:          names,
		Mappings:       encodeMappings(lines),
	}

	return composed, nil
}

// projectEdits converts byte-offset edits into per-line column edits
// against the pre-edit text.
func projectEdits(original string, edits []textedit.Edit) map[int][]lineEdit {
	lineStarts := []int{0}
	for i := 0; i < len(original); i++ {
		if original[i] == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}

	lineOf := func(offset int) int {
		idx := sort.Search(len(lineStarts), func(i int) bool {
			return lineStarts[i] > offset
		})

		return idx - 1
	}

	perLine := make(map[int][]lineEdit)

	for _, e := range edits {
		line := lineOf(e.Start)
		perLine[line] = append(perLine[line], lineEdit{
			startCol: e.Start - lineStarts[line],
			endCol:   e.End - lineStarts[line],
			newLen:   len(e.New),
		})
	}

	for _, le := range perLine {
		sort.Slice(le, func(i, j int) bool {
			return le[i].startCol < le[j].startCol
		})
	}

	return perLine
}

// remapLine shifts the columns of the original segments on one line
// and inserts a segment at each edit start so positions inside a
// rewritten span resolve to the source of the span they replaced.
func remapLine(segs []segment, edits []lineEdit) []segment {
	shift := func(col int) int {
		delta := 0

		for _, e := range edits {
			if e.endCol <= col {
				delta += e.newLen - (e.endCol - e.startCol)
				continue
			}

			if e.startCol <= col {
				// Inside a replaced span: collapse to the span start.
				return e.startCol + delta
			}

			break
		}

		return col + delta
	}

	out := make([]segment, 0, len(segs)+len(edits))

	for _, seg := range segs {
		seg.genCol = shift(seg.genCol)
		out = append(out, seg)
	}

	for _, e := range edits {
		covering, ok := segmentAtOrBefore(segs, e.startCol)
		if !ok {
			continue
		}

		covering.genCol = shift(e.startCol)
		out = append(out, covering)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].genCol < out[j].genCol
	})

	// Collapsed and inserted segments can land on the same column;
	// keep the first.
	deduped := out[:0]
	for i, seg := range out {
		if i > 0 && seg.genCol == deduped[len(deduped)-1].genCol {
			continue
		}

		deduped = append(deduped, seg)
	}

	return deduped
}

// segmentAtOrBefore returns the last source-carrying segment whose
// generated column does not exceed col.
func segmentAtOrBefore(segs []segment, col int) (segment, bool) {
	var (
		best  segment
		found bool
	)

	for _, seg := range segs {
		if seg.genCol > col {
			break
		}

		if seg.fields >= 4 {
			best = seg
			found = true
		}
	}

	return best, found
}
