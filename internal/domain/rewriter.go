package domain

import (
	"fmt"
	"log/slog"
	"sort"

	"rasterpass.dev/pkg/rasterpass/internal/model"
	"rasterpass.dev/pkg/rasterpass/internal/sourcemap"
	"rasterpass.dev/pkg/rasterpass/pkg/textedit"
)

// rewriteReferences mutates every text-like artifact and chunk in
// place: renamed paths are substituted under all their spellings with
// any query/fragment suffix preserved, then the opt-out marker is
// stripped from references to kept names. Chunks with a source map get
// a composed map so debug positions keep resolving to original
// sources. Returns how many artifacts changed and how many maps were
// composed.
func rewriteReferences(bundle model.Bundle, state *passState) (int, int, error) {
	rewritten, composed := 0, 0

	renamed := make([]string, 0, len(state.renames))
	for old := range state.renames {
		renamed = append(renamed, old)
	}
	sort.Strings(renamed)

	kept := make([]string, 0, len(state.keep))
	for name := range state.keep {
		kept = append(kept, name)
	}
	sort.Strings(kept)

	for _, name := range sortedNames(bundle) {
		text, ok := textContent(name, bundle[name])
		if !ok {
			continue
		}

		buf := textedit.NewBuffer(text)
		dir := artifactDir(name)

		for _, old := range renamed {
			if err := substituteRename(buf, old, state.renames[old], dir); err != nil {
				return rewritten, composed, fmt.Errorf("failed to rewrite %s in %s: %w", old, name, err)
			}
		}

		for _, keepName := range kept {
			if err := stripKeepMarkers(buf, keepName, dir); err != nil {
				return rewritten, composed, fmt.Errorf("failed to strip marker for %s in %s: %w", keepName, name, err)
			}
		}

		if !buf.Dirty() {
			continue
		}

		rewritten++

		switch a := bundle[name].(type) {
		case model.Chunk:
			chunk := model.Chunk{Code: buf.String(), Map: a.Map}

			if a.Map != nil {
				composedMap, err := sourcemap.Compose(a.Map, buf)
				if err != nil {
					return rewritten, composed, fmt.Errorf("failed to compose source map for %s: %w", name, err)
				}

				chunk.Map = composedMap
				composed++
			}

			bundle[name] = chunk
		case model.Asset:
			bundle[name] = model.Asset{Data: []byte(buf.String())}
		}

		slog.Debug("rewrote references", "artifact", name)
	}

	return rewritten, composed, nil
}

// substituteRename records edits replacing every bounded occurrence of
// any spelling of oldName with the matching spelling of newName. The
// replacement covers only the path text, so a trailing query string or
// fragment survives byte for byte. Spellings are processed longest
// first and spans already claimed by a longer spelling are skipped.
func substituteRename(buf *textedit.Buffer, oldName, newName, dir string) error {
	for _, pair := range spellingPairs(oldName, newName, dir) {
		for _, span := range findReferences(buf.Original(), pair.old.text, pair.old.root) {
			if buf.Overlaps(span[0], span[1]) {
				continue
			}

			if err := buf.Replace(span[0], span[1], pair.repl); err != nil {
				return err
			}
		}
	}

	return nil
}

// stripKeepMarkers removes the opt-out pair from the query string of
// every reference to keepName. When the marker was the only query
// content the "?" goes too; otherwise just the pair is dropped and the
// remaining parameters keep their order.
func stripKeepMarkers(buf *textedit.Buffer, keepName, dir string) error {
	text := buf.Original()

	for _, sp := range spellings(keepName, dir) {
		for _, span := range findReferences(text, sp.text, sp.root) {
			m := querySuffix.FindStringSubmatch(text[span[1]:])
			if m == nil || !queryHasMarker(m[1]) {
				continue
			}

			query := m[1]
			stripped := stripMarker(query)

			start, end := span[1], span[1]+1+len(query)
			if buf.Overlaps(start, end) {
				// Same occurrence already handled under a longer
				// spelling of the name.
				continue
			}

			replacement := ""
			if stripped != "" {
				replacement = "?" + stripped
			}

			if err := buf.Replace(start, end, replacement); err != nil {
				return err
			}
		}
	}

	return nil
}
