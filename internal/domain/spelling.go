package domain

import (
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// A reference inside a text artifact can spell the same bundle name
// several ways: the raw root-relative name, the path relative to the
// referencing artifact's directory, and the same-directory form with
// an explicit "./" prefix. All three are matched and rewritten.

// relPath computes the slash path from fromDir (bundle-relative, ""
// for the root) to target (a bundle name).
func relPath(fromDir, target string) string {
	if fromDir == "" || fromDir == "." {
		return target
	}

	from := strings.Split(fromDir, "/")
	to := strings.Split(target, "/")

	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}

	parts := make([]string, 0, len(from)-common+len(to)-common)
	for i := common; i < len(from); i++ {
		parts = append(parts, "..")
	}

	parts = append(parts, to[common:]...)

	return strings.Join(parts, "/")
}

// spelling is one way a reference can write a bundle name. root marks
// the raw root-relative form, which is also matched with a leading
// "/".
type spelling struct {
	text string
	root bool
}

// spellings returns the path spellings under which name can be
// referenced from an artifact living in dir, longest first so a longer
// spelling is matched before a substring of itself.
func spellings(name, dir string) []spelling {
	out := []spelling{{text: name, root: true}}

	rel := relPath(dir, name)
	if rel != name {
		out = append(out, spelling{text: rel})
	}

	if !strings.HasPrefix(rel, "../") {
		out = append(out, spelling{text: "./" + rel})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].text) > len(out[j].text)
	})

	return out
}

// spellingPair is a matched old/new spelling for one rename.
type spellingPair struct {
	old  spelling
	repl string
}

// spellingPairs returns matched old/new spellings for a rename. Both
// names live in the same directory, so the variant lists line up
// positionally and sort identically by length.
func spellingPairs(oldName, newName, dir string) []spellingPair {
	oldSp := spellings(oldName, dir)
	newSp := spellings(newName, dir)

	n := len(oldSp)
	if len(newSp) < n {
		n = len(newSp)
	}

	pairs := make([]spellingPair, n)
	for i := 0; i < n; i++ {
		pairs[i] = spellingPair{old: oldSp[i], repl: newSp[i].text}
	}

	return pairs
}

// artifactDir returns the bundle-relative directory of an artifact
// name, "" for the bundle root.
func artifactDir(name string) string {
	dir := path.Dir(name)
	if dir == "." {
		return ""
	}

	return dir
}

// Reference boundaries: a spelling must not be preceded or followed by
// path-name characters, or "images/a.png" would match inside
// "thumb-images/a.png" or "images/a.png.bak". The full bundle name may
// additionally be preceded by a single "/" (an absolute reference), but
// only when the "/" itself starts the path: a "/" preceded by another
// path character means the match is the tail of a longer path, as in
// "a.png" inside "/images/a.png". Directory-relative spellings may not
// be preceded by "/" at all.
const (
	refBeforeRoot = `(^/?|[^0-9A-Za-z_./-]/?)`
	refBeforeRel  = `(^|[^0-9A-Za-z_./-])`
	refAfter      = `($|[^0-9A-Za-z_./-])`
)

var (
	refPatternMu    sync.Mutex
	refPatternCache = map[string]*regexp.Regexp{}
)

// refPattern compiles (and caches) the occurrence pattern for one
// spelling. Group 2 spans the spelling itself. Safe for concurrent
// passes.
func refPattern(spelling string, rootName bool) *regexp.Regexp {
	key := spelling
	if rootName {
		key = "/" + key
	}

	refPatternMu.Lock()
	defer refPatternMu.Unlock()

	if re, ok := refPatternCache[key]; ok {
		return re
	}

	before := refBeforeRel
	if rootName {
		before = refBeforeRoot
	}

	re := regexp.MustCompile(before + `(` + regexp.QuoteMeta(spelling) + `)` + refAfter)
	refPatternCache[key] = re

	return re
}

// findReferences returns the [start, end) spans of every bounded
// occurrence of spelling in text. rootName selects the permissive
// boundary that admits a leading "/".
func findReferences(text, spelling string, rootName bool) [][2]int {
	var spans [][2]int

	for _, m := range refPattern(spelling, rootName).FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, [2]int{m[4], m[5]})
	}

	return spans
}
