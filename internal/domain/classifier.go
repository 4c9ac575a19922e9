// Package domain implements the bundle rewrite engine: raster
// classification, opt-out scanning, encode scheduling, rename
// resolution, reference rewriting and markup postprocessing.
package domain

import (
	"path"
	"sort"
	"strings"

	"rasterpass.dev/pkg/rasterpass/internal/model"
)

// rasterExts is the fixed allow-list of extensions treated as raster
// image candidates. Matching is case-insensitive and purely name
// based; content is never sniffed.
var rasterExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".avif": {},
}

// textExts is the fixed allow-list of text-like artifacts whose
// content is scanned and rewritten: markup, styles and scripts,
// including module variants.
var textExts = map[string]struct{}{
	".html":  {},
	".htm":   {},
	".xhtml": {},
	".css":   {},
	".js":    {},
	".mjs":   {},
	".cjs":   {},
	".svg":   {},
}

// markupExts is the subset of text-like artifacts the markup
// postprocessor touches.
var markupExts = map[string]struct{}{
	".html":  {},
	".htm":   {},
	".xhtml": {},
}

func extOf(name string) string {
	return strings.ToLower(path.Ext(name))
}

// IsRaster reports whether the artifact name matches a recognized
// raster extension.
func IsRaster(name string) bool {
	_, ok := rasterExts[extOf(name)]
	return ok
}

// IsTextLike reports whether the artifact should be scanned and
// rewritten as text. Code chunks are always text-like regardless of
// extension.
func IsTextLike(name string, artifact model.Artifact) bool {
	if _, ok := artifact.(model.Chunk); ok {
		return true
	}

	_, ok := textExts[extOf(name)]

	return ok
}

// IsMarkup reports whether the artifact is a markup document subject
// to postprocessing.
func IsMarkup(name string) bool {
	_, ok := markupExts[extOf(name)]
	return ok
}

// textContent extracts the rewritable text of an artifact. The second
// return value is false for binary assets.
func textContent(name string, artifact model.Artifact) (string, bool) {
	switch a := artifact.(type) {
	case model.Chunk:
		return a.Code, true
	case model.Asset:
		if _, ok := textExts[extOf(name)]; ok {
			return string(a.Data), true
		}
	}

	return "", false
}

// rasterCandidates returns the raster artifact names in lexicographic
// order, which is the iteration order of the rename resolver.
func rasterCandidates(bundle model.Bundle) []string {
	var names []string

	for _, name := range sortedNames(bundle) {
		if IsRaster(name) {
			names = append(names, name)
		}
	}

	return names
}

func sortedNames(bundle model.Bundle) []string {
	names := bundle.Names()
	sort.Strings(names)

	return names
}
