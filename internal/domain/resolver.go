package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path"
	"strings"

	"rasterpass.dev/pkg/rasterpass/internal/model"
)

// passState carries the accumulator maps of one pass. Each stage only
// reads maps that earlier stages have fully populated, so the struct
// needs no locking.
type passState struct {
	keep      map[string]struct{}
	renames   map[string]string
	dims      map[string]model.Dimensions
	decisions []model.Decision
}

func newPassState(keep map[string]struct{}) *passState {
	return &passState{
		keep:    keep,
		renames: make(map[string]string),
		dims:    make(map[string]model.Dimensions),
	}
}

// swapExt replaces the extension of name with the target format's.
func swapExt(name string, format model.Format) string {
	ext := path.Ext(name)
	return name[:len(name)-len(ext)] + format.Ext()
}

// hashedName inserts a truncated lowercase-hex SHA-256 digest of data
// before the extension: images/banner.webp -> images/banner-1a2b3c4d.webp.
func hashedName(name string, data []byte, length int) string {
	if length < 1 {
		length = 1
	}

	digest := sha256.Sum256(data)

	full := hex.EncodeToString(digest[:])
	if length > len(full) {
		length = len(full)
	}

	ext := path.Ext(name)

	return name[:len(name)-len(ext)] + "-" + full[:length] + ext
}

// alreadyHashed reports whether name already carries the content hash
// of data, so a second pass does not stack another digest onto it.
func alreadyHashed(name string, data []byte, length int) bool {
	if length < 1 {
		length = 1
	}

	digest := sha256.Sum256(data)

	full := hex.EncodeToString(digest[:])
	if length > len(full) {
		length = len(full)
	}

	ext := path.Ext(name)

	return strings.HasSuffix(name, "-"+full[:length]+ext)
}

// planAction is the dry-run decision for one candidate: what the
// resolver would do, before any encoding happens.
func planAction(name string, keep map[string]struct{}, opts model.Options) model.Action {
	if _, kept := keep[name]; kept {
		return model.ActionKeep
	}

	if extOf(name) == opts.Format.Ext() && !opts.Reencode {
		return model.ActionPassthrough
	}

	return model.ActionConvert
}

// resolveRenames walks the candidates in order and applies the rename
// policy: exempted names are only measured, already-target names pass
// through (optionally gaining a content hash), everything else is
// replaced by its encoded form under the new name. outcomes must hold
// the encode/probe results for every candidate. The bundle is mutated
// here, in one sequential batch after all codec work has finished.
func resolveRenames(
	bundle model.Bundle,
	candidates []string,
	outcomes map[string]encodeOutcome,
	opts model.Options,
	state *passState,
) {
	for _, name := range candidates {
		out := outcomes[name]

		switch planAction(name, state.keep, opts) {
		case model.ActionKeep:
			if out.hasDims {
				state.dims[name] = out.dims
			}

			state.decisions = append(state.decisions, model.Decision{
				Action:  model.ActionKeep,
				OldName: name,
				NewName: name,
			})
		case model.ActionPassthrough:
			resolvePassthrough(bundle, name, out, opts, state)
		case model.ActionConvert:
			resolveConvert(bundle, name, out, opts, state)
		}
	}
}

// resolvePassthrough handles a candidate already in the target format
// with re-encoding disabled. Without hashing the entry is untouched;
// with hashing it is re-emitted under its content-hash name unless
// that name already exists, which is treated as already done.
func resolvePassthrough(bundle model.Bundle, name string, out encodeOutcome, opts model.Options, state *passState) {
	decision := model.Decision{Action: model.ActionPassthrough, OldName: name, NewName: name}

	if !opts.HashInName {
		if out.hasDims {
			state.dims[name] = out.dims
		}

		state.decisions = append(state.decisions, decision)

		return
	}

	asset, ok := bundle[name].(model.Asset)
	if !ok {
		state.decisions = append(state.decisions, decision)
		return
	}

	hashed := hashedName(name, asset.Data, opts.HashLength)

	_, exists := bundle[hashed]
	if exists || alreadyHashed(name, asset.Data, opts.HashLength) {
		// Already emitted under the hashed name; leave the entry alone
		// rather than emitting a duplicate.
		if out.hasDims {
			state.dims[name] = out.dims
		}

		state.decisions = append(state.decisions, decision)

		return
	}

	bundle[hashed] = asset
	delete(bundle, name)

	state.renames[name] = hashed
	if out.hasDims {
		state.dims[hashed] = out.dims
	}

	decision.NewName = hashed
	state.decisions = append(state.decisions, decision)
}

// resolveConvert handles a candidate that was transcoded. Same-
// extension candidates are overwritten in place (re-encode); an
// extension change renames the entry, unless the computed final name
// is already occupied, in which case its bytes are overwritten and the
// original entry stays alive under its old name.
func resolveConvert(bundle model.Bundle, name string, out encodeOutcome, opts model.Options, state *passState) {
	decision := model.Decision{Action: model.ActionConvert, OldName: name, NewName: name}

	if extOf(name) == opts.Format.Ext() {
		// Re-encode in place, optionally moving to the hashed name.
		if opts.HashInName {
			hashed := hashedName(name, out.encoded, opts.HashLength)
			if _, exists := bundle[hashed]; !exists && !alreadyHashed(name, out.encoded, opts.HashLength) {
				bundle[hashed] = model.Asset{Data: out.encoded}
				delete(bundle, name)

				state.renames[name] = hashed
				if out.hasDims {
					state.dims[hashed] = out.dims
				}

				decision.NewName = hashed
				state.decisions = append(state.decisions, decision)

				return
			}
		}

		bundle[name] = model.Asset{Data: out.encoded}
		if out.hasDims {
			state.dims[name] = out.dims
		}

		state.decisions = append(state.decisions, decision)

		return
	}

	newName := swapExt(name, opts.Format)
	if opts.HashInName {
		newName = hashedName(newName, out.encoded, opts.HashLength)
	}

	if _, exists := bundle[newName]; exists {
		// The final name is occupied: favor the already-present output
		// and overwrite its bytes instead of renaming around it. The
		// original entry survives so no reference dangles.
		slog.Warn("final name already occupied, overwriting in place",
			"name", name, "finalName", newName)

		bundle[newName] = model.Asset{Data: out.encoded}
		if out.hasDims {
			state.dims[newName] = out.dims
		}

		decision.NewName = newName
		decision.Replaced = true
		state.decisions = append(state.decisions, decision)

		return
	}

	bundle[newName] = model.Asset{Data: out.encoded}
	delete(bundle, name)

	state.renames[name] = newName
	if out.hasDims {
		state.dims[newName] = out.dims
	}

	decision.NewName = newName
	state.decisions = append(state.decisions, decision)
}
