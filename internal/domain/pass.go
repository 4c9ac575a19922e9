package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"rasterpass.dev/pkg/rasterpass/internal/controller"
	"rasterpass.dev/pkg/rasterpass/internal/model"
)

// Engine runs one bundle pass: classify, scan opt-outs, encode,
// resolve renames, rewrite references, postprocess markup. A pass owns
// the bundle mapping for its duration; there is no cross-pass state.
type Engine interface {
	// Run executes a full pass, mutating the bundle in place.
	Run(ctx context.Context, bundle model.Bundle) (model.Result, error)
	// Plan computes the per-candidate decisions without encoding or
	// mutating anything.
	Plan(ctx context.Context, bundle model.Bundle) ([]model.Decision, int, error)
}

type engine struct {
	codec Codec
	opts  model.Options
	ui    controller.UI
}

// NewEngine validates the options and constructs an Engine.
func NewEngine(codec Codec, opts model.Options, ui controller.UI) (Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pass options: %w", err)
	}

	return &engine{codec: codec, opts: opts, ui: ui}, nil
}

// encodeOutcome holds the codec results for one raster candidate.
// encoded is nil for keep and passthrough candidates.
type encodeOutcome struct {
	encoded []byte
	dims    model.Dimensions
	hasDims bool
}

func (e *engine) Plan(ctx context.Context, bundle model.Bundle) ([]model.Decision, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	candidates := rasterCandidates(bundle)
	keep := scanKeepSet(bundle, candidates)

	decisions := make([]model.Decision, 0, len(candidates))
	for _, name := range candidates {
		decisions = append(decisions, model.Decision{
			Action:  planAction(name, keep, e.opts),
			OldName: name,
			NewName: name,
		})
	}

	textLike := 0

	for name, artifact := range bundle {
		if IsTextLike(name, artifact) {
			textLike++
		}
	}

	return decisions, textLike, nil
}

func (e *engine) Run(ctx context.Context, bundle model.Bundle) (model.Result, error) {
	candidates := rasterCandidates(bundle)

	// The scan must complete over original content before anything
	// mutates: the resolver deletes the very entries it tested.
	state := newPassState(scanKeepSet(bundle, candidates))

	slog.Info("pass started",
		"candidates", len(candidates),
		"kept", len(state.keep),
		"format", e.opts.Format,
	)
	e.ui.DisplayPassStart(ctx, len(candidates), e.opts.MaxConcurrent)

	outcomes, err := e.encodeAll(ctx, bundle, candidates, state.keep)
	if err != nil {
		return model.Result{}, err
	}

	resolveRenames(bundle, candidates, outcomes, e.opts, state)

	rewritten, composed, err := rewriteReferences(bundle, state)
	if err != nil {
		return model.Result{}, err
	}

	updated := postprocessMarkup(bundle, state, e.opts)

	result := model.Result{
		Decisions:          state.decisions,
		RewrittenArtifacts: rewritten,
		ComposedMaps:       composed,
		MarkupUpdated:      updated,
		Manifest: model.Manifest{
			Renames:    state.renames,
			Dimensions: state.dims,
			Kept:       sortedKeepNames(state.keep),
		},
	}

	slog.Info("pass finished",
		"renamed", len(state.renames),
		"rewritten", rewritten,
		"composedMaps", composed,
		"markupUpdated", updated,
	)

	return result, nil
}

// encodeAll runs dimension probes and transcodes for every candidate
// concurrently; the encoder's gate bounds how many codec calls are in
// flight. Keep and passthrough candidates are only probed; conversion
// candidates are encoded and then probed on the encoded output. Any
// encode error cancels the group and fails the pass.
func (e *engine) encodeAll(
	ctx context.Context,
	bundle model.Bundle,
	candidates []string,
	keep map[string]struct{},
) (map[string]encodeOutcome, error) {
	encoder := NewEncoder(e.codec, e.opts.MaxConcurrent, e.opts.Codec)

	var mu sync.Mutex

	outcomes := make(map[string]encodeOutcome, len(candidates))

	group, groupCtx := errgroup.WithContext(ctx)

	for _, name := range candidates {
		asset, ok := bundle[name].(model.Asset)
		if !ok {
			continue
		}

		action := planAction(name, keep, e.opts)

		group.Go(func() error {
			var outcome encodeOutcome

			if action == model.ActionConvert {
				encoded, err := encoder.Encode(groupCtx, name, asset.Data, e.opts.Format)
				if err != nil {
					return err
				}

				outcome.encoded = encoded
				outcome.dims, outcome.hasDims = encoder.ProbeDimensions(groupCtx, name, encoded)
			} else {
				outcome.dims, outcome.hasDims = encoder.ProbeDimensions(groupCtx, name, asset.Data)
			}

			mu.Lock()
			outcomes[name] = outcome
			mu.Unlock()

			e.ui.DisplayEncodeDone(groupCtx, name, action)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("encode phase failed: %w", err)
	}

	return outcomes, nil
}

func sortedKeepNames(keep map[string]struct{}) []string {
	if len(keep) == 0 {
		return nil
	}

	names := make([]string, 0, len(keep))
	for name := range keep {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
