package domain

import (
	"regexp"
	"strings"

	"rasterpass.dev/pkg/rasterpass/internal/model"
)

// KeepMarker is the reserved query pair that exempts a referenced
// image from conversion and renaming. It is recognized anywhere in a
// reference's query string and stripped from the final output.
const KeepMarker = "imgfmt=keep"

// querySuffix matches the query string immediately following a
// reference spelling. Group 1 is the query text without the "?".
var querySuffix = regexp.MustCompile(`^\?([^"'\s#<>()]*)`)

// queryHasMarker reports whether the query string carries the opt-out
// marker as one of its key/value pairs.
func queryHasMarker(query string) bool {
	for _, pair := range strings.Split(query, "&") {
		if pair == KeepMarker {
			return true
		}
	}

	return false
}

// stripMarker removes the opt-out pair from a query string, leaving
// the other parameters in their original order.
func stripMarker(query string) string {
	parts := strings.Split(query, "&")
	kept := parts[:0]

	for _, pair := range parts {
		if pair != KeepMarker {
			kept = append(kept, pair)
		}
	}

	return strings.Join(kept, "&")
}

// scanKeepSet walks every text-like artifact once, before any
// mutation, and collects the raster names referenced with the opt-out
// marker in at least one place. The scan must see original content:
// later stages rename and delete the very entries it tests for.
func scanKeepSet(bundle model.Bundle, candidates []string) map[string]struct{} {
	keep := make(map[string]struct{})

	for _, name := range sortedNames(bundle) {
		text, ok := textContent(name, bundle[name])
		if !ok {
			continue
		}

		dir := artifactDir(name)

		for _, candidate := range candidates {
			if _, done := keep[candidate]; done {
				continue
			}

			if referencedWithMarker(text, candidate, dir) {
				keep[candidate] = struct{}{}
			}
		}
	}

	return keep
}

// referencedWithMarker reports whether any spelling of candidate,
// relative to an artifact in dir, appears in text immediately followed
// by a query string carrying the opt-out marker.
func referencedWithMarker(text, candidate, dir string) bool {
	for _, sp := range spellings(candidate, dir) {
		for _, span := range findReferences(text, sp.text, sp.root) {
			m := querySuffix.FindStringSubmatch(text[span[1]:])
			if m != nil && queryHasMarker(m[1]) {
				return true
			}
		}
	}

	return false
}
