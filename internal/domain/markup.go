package domain

import (
	"fmt"
	"regexp"
	"strings"

	"rasterpass.dev/pkg/rasterpass/internal/model"
)

var (
	imgTagRe    = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	sourceTagRe = regexp.MustCompile(`(?is)<source\b[^>]*>`)

	// One attribute with an optional quoted or bare value. Group 1 is
	// the name, groups 3..5 the double-quoted, single-quoted and bare
	// value alternatives.
	attrRe = regexp.MustCompile(`(?i)\s([a-zA-Z][a-zA-Z0-9:-]*)(\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'<>=` + "`" + `]+)))?`)
)

// mediaTypes maps a reference extension to the media type declared on
// responsive-image source elements. Covers the supported target
// formats plus common pass-through formats.
var mediaTypes = map[string]string{
	".webp": "image/webp",
	".avif": "image/avif",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
}

// attr is one parsed attribute occurrence inside a tag.
type attr struct {
	name     string
	value    string
	start    int // offset of the leading whitespace
	end      int
	valStart int // value span inside the quotes; -1 when valueless
	valEnd   int
}

func parseAttrs(tag string) []attr {
	var attrs []attr

	for _, m := range attrRe.FindAllStringSubmatchIndex(tag, -1) {
		a := attr{
			name:     strings.ToLower(tag[m[2]:m[3]]),
			start:    m[0],
			end:      m[1],
			valStart: -1,
			valEnd:   -1,
		}

		for _, g := range []int{3, 4, 5} {
			if m[2*g] >= 0 {
				a.valStart, a.valEnd = m[2*g], m[2*g+1]
				a.value = tag[a.valStart:a.valEnd]

				break
			}
		}

		attrs = append(attrs, a)
	}

	return attrs
}

func findAttr(attrs []attr, name string) (attr, bool) {
	for _, a := range attrs {
		if a.name == name {
			return a, true
		}
	}

	return attr{}, false
}

// stripRef removes any query string and fragment from a reference.
func stripRef(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}

	return ref
}

// postprocessMarkup applies media-type correction and intrinsic size
// injection to every markup document. It runs after all renames so the
// rewritten src values line up with the final dimension-map keys.
// Malformed tags and unrecognized extensions are left untouched.
func postprocessMarkup(bundle model.Bundle, state *passState, opts model.Options) int {
	updated := 0

	for _, name := range sortedNames(bundle) {
		if !IsMarkup(name) {
			continue
		}

		asset, ok := bundle[name].(model.Asset)
		if !ok {
			continue
		}

		doc := string(asset.Data)
		out := correctSourceTypes(doc)
		out = injectSizes(out, state.dims, opts.SizeMode)

		if out != doc {
			bundle[name] = model.Asset{Data: []byte(out)}
			updated++
		}
	}

	return updated
}

// correctSourceTypes fixes the declared media type on <source> elements
// from the extension of the first srcset URL. Elements whose extension
// is unrecognized stay untouched.
func correctSourceTypes(doc string) string {
	return sourceTagRe.ReplaceAllStringFunc(doc, func(tag string) string {
		attrs := parseAttrs(tag)

		srcset, ok := findAttr(attrs, "srcset")
		if !ok || srcset.valStart < 0 {
			return tag
		}

		first := strings.Fields(strings.Split(srcset.value, ",")[0])
		if len(first) == 0 {
			return tag
		}

		mediaType, ok := mediaTypes[extOf(stripRef(first[0]))]
		if !ok {
			return tag
		}

		if typeAttr, ok := findAttr(attrs, "type"); ok {
			if typeAttr.valStart < 0 {
				return tag
			}

			return tag[:typeAttr.valStart] + mediaType + tag[typeAttr.valEnd:]
		}

		insert := len("<source")

		return tag[:insert] + fmt.Sprintf(" type=%q", mediaType) + tag[insert:]
	})
}

// injectSizes adds or overwrites intrinsic width/height on <img>
// elements whose src resolves in the dimension map.
func injectSizes(doc string, dims map[string]model.Dimensions, mode model.SizeMode) string {
	if mode == model.SizeOff || len(dims) == 0 {
		return doc
	}

	return imgTagRe.ReplaceAllStringFunc(doc, func(tag string) string {
		attrs := parseAttrs(tag)

		src, ok := findAttr(attrs, "src")
		if !ok || src.valStart < 0 {
			return tag
		}

		size, ok := resolveDims(src.value, dims)
		if !ok {
			return tag
		}

		_, hasWidth := findAttr(attrs, "width")
		_, hasHeight := findAttr(attrs, "height")

		switch mode {
		case model.SizeAddOnly:
			// Only fill in fully missing sizes; a tag that already
			// carries either attribute is left alone.
			if hasWidth || hasHeight {
				return tag
			}
		case model.SizeOverwrite:
			if hasWidth || hasHeight {
				tag = removeAttrs(tag, attrs, "width", "height")
			}
		}

		return insertSizeAttrs(tag, size)
	})
}

// resolveDims matches a (already rewritten) src value against the
// final raster names: exact match or suffix match at a path boundary,
// in either direction, longest key winning.
func resolveDims(src string, dims map[string]model.Dimensions) (model.Dimensions, bool) {
	s := strings.TrimPrefix(stripRef(src), "/")

	best := ""
	found := false

	for key := range dims {
		if s != key && !strings.HasSuffix(s, "/"+key) && !strings.HasSuffix(key, "/"+s) {
			continue
		}

		if !found || len(key) > len(best) || (len(key) == len(best) && key < best) {
			best = key
			found = true
		}
	}

	if !found {
		return model.Dimensions{}, false
	}

	return dims[best], true
}

// removeAttrs deletes the named attributes, including their leading
// whitespace, from the tag text.
func removeAttrs(tag string, attrs []attr, names ...string) string {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	var sb strings.Builder

	last := 0

	for _, a := range attrs {
		if _, ok := drop[a.name]; !ok {
			continue
		}

		sb.WriteString(tag[last:a.start])
		last = a.end
	}

	sb.WriteString(tag[last:])

	return sb.String()
}

// insertSizeAttrs places width/height just before the tag close,
// honoring a self-closing "/>".
func insertSizeAttrs(tag string, size model.Dimensions) string {
	insert := len(tag) - 1
	if strings.HasSuffix(tag, "/>") {
		insert--
	}

	for insert > 0 && (tag[insert-1] == ' ' || tag[insert-1] == '\t') {
		insert--
	}

	return fmt.Sprintf("%s width=\"%d\" height=\"%d\"%s", tag[:insert], size.Width, size.Height, tag[insert:])
}
