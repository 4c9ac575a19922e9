// Package sourcemap decodes, encodes and composes source map v3
// documents, enough to keep chunk debug mappings accurate across text
// rewrites.
package sourcemap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Map is a source map v3 document.
type Map struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`

	// raw holds the bytes the map was parsed from. A map that was
	// never recomposed serializes back byte-identical.
	raw []byte
}

// Parse decodes a source map from its JSON form.
func Parse(data []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse source map: %w", err)
	}

	if m.Version != 3 {
		return nil, fmt.Errorf("unsupported source map version %d", m.Version)
	}

	m.raw = data

	return &m, nil
}

// JSON encodes the map to its JSON form. An unmodified parsed map
// round-trips to its original bytes.
func (m *Map) JSON() ([]byte, error) {
	if m.raw != nil {
		return m.raw, nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode source map: %w", err)
	}

	return data, nil
}

// segment is one decoded mapping segment. Fields counts how many VLQ
// values the segment carried (1, 4 or 5).
type segment struct {
	genCol  int
	srcIdx  int
	srcLine int
	srcCol  int
	nameIdx int
	fields  int
}

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Values = func() [128]int8 {
	var v [128]int8
	for i := range v {
		v[i] = -1
	}
	for i, c := range base64Chars {
		v[c] = int8(i)
	}

	return v
}()

// decodeVLQ reads one VLQ value from s and returns it with the number
// of bytes consumed.
func decodeVLQ(s string) (int, int, error) {
	var (
		result int
		shift  uint
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 128 || base64Values[c] < 0 {
			return 0, 0, fmt.Errorf("invalid VLQ character %q", c)
		}

		digit := int(base64Values[c])
		result |= (digit & 0x1f) << shift

		if digit&0x20 == 0 {
			value := result >> 1
			if result&1 != 0 {
				value = -value
			}

			return value, i + 1, nil
		}

		shift += 5
	}

	return 0, 0, fmt.Errorf("unterminated VLQ sequence")
}

func encodeVLQ(sb *strings.Builder, value int) {
	v := value << 1
	if value < 0 {
		v = (-value << 1) | 1
	}

	for {
		digit := v & 0x1f
		v >>= 5

		if v != 0 {
			digit |= 0x20
		}

		sb.WriteByte(base64Chars[digit])

		if v == 0 {
			return
		}
	}
}

// decodeMappings expands the mappings string into per-line segments
// with absolute values.
func decodeMappings(mappings string) ([][]segment, error) {
	var (
		lines   [][]segment
		current []segment
	)

	genCol, srcIdx, srcLine, srcCol, nameIdx := 0, 0, 0, 0, 0

	for len(mappings) > 0 || current != nil {
		if len(mappings) == 0 {
			lines = append(lines, current)
			break
		}

		switch mappings[0] {
		case ';':
			lines = append(lines, current)
			current = []segment{}
			genCol = 0
			mappings = mappings[1:]

			continue
		case ',':
			mappings = mappings[1:]

			continue
		}

		seg := segment{fields: 0}

		for f := 0; f < 5; f++ {
			value, n, err := decodeVLQ(mappings)
			if err != nil {
				return nil, err
			}

			mappings = mappings[n:]
			seg.fields++

			switch f {
			case 0:
				genCol += value
				seg.genCol = genCol
			case 1:
				srcIdx += value
				seg.srcIdx = srcIdx
			case 2:
				srcLine += value
				seg.srcLine = srcLine
			case 3:
				srcCol += value
				seg.srcCol = srcCol
			case 4:
				nameIdx += value
				seg.nameIdx = nameIdx
			}

			if len(mappings) == 0 || mappings[0] == ',' || mappings[0] == ';' {
				break
			}
		}

		if seg.fields != 1 && seg.fields != 4 && seg.fields != 5 {
			return nil, fmt.Errorf("mapping segment with %d fields", seg.fields)
		}

		current = append(current, seg)
	}

	return lines, nil
}

// encodeMappings renders per-line absolute segments back to the
// relative VLQ form.
func encodeMappings(lines [][]segment) string {
	var sb strings.Builder

	srcIdx, srcLine, srcCol, nameIdx := 0, 0, 0, 0

	for i, line := range lines {
		if i > 0 {
			sb.WriteByte(';')
		}

		genCol := 0

		for j, seg := range line {
			if j > 0 {
				sb.WriteByte(',')
			}

			encodeVLQ(&sb, seg.genCol-genCol)
			genCol = seg.genCol

			if seg.fields < 4 {
				continue
			}

			encodeVLQ(&sb, seg.srcIdx-srcIdx)
			srcIdx = seg.srcIdx
			encodeVLQ(&sb, seg.srcLine-srcLine)
			srcLine = seg.srcLine
			encodeVLQ(&sb, seg.srcCol-srcCol)
			srcCol = seg.srcCol

			if seg.fields == 5 {
				encodeVLQ(&sb, seg.nameIdx-nameIdx)
				nameIdx = seg.nameIdx
			}
		}
	}

	return sb.String()
}

// Position is a resolved original source location.
type Position struct {
	Source string
	Line   int // 0-based
	Column int // 0-based
}

// Resolve maps a generated position (0-based line/column) to its
// original source position. The second return value is false when the
// map has no segment at or before the position on that line.
func (m *Map) Resolve(line, column int) (Position, bool) {
	lines, err := decodeMappings(m.Mappings)
	if err != nil || line < 0 || line >= len(lines) {
		return Position{}, false
	}

	var (
		best  segment
		found bool
	)

	for _, seg := range lines[line] {
		if seg.genCol > column {
			break
		}

		if seg.fields >= 4 {
			best = seg
			found = true
		}
	}

	if !found || best.srcIdx >= len(m.Sources) {
		return Position{}, false
	}

	return Position{
		Source: m.Sources[best.srcIdx],
		Line:   best.srcLine,
		Column: best.srcCol,
	}, true
}
