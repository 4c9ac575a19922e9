package domain

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"rasterpass.dev/pkg/rasterpass/internal/model"
)

// Codec is the boundary to the external image codec. Metadata is best
// effort; Encode is authoritative and its failure aborts the pass.
type Codec interface {
	Metadata(ctx context.Context, data []byte) (model.Dimensions, error)
	Encode(ctx context.Context, data []byte, format model.Format, opts model.CodecOptions) ([]byte, error)
}

// Encoder funnels every codec call of a pass through one bounded
// concurrency gate so the codec's memory and CPU pressure stays
// capped regardless of bundle size.
type Encoder struct {
	codec Codec
	gate  *semaphore.Weighted
	opts  model.CodecOptions
}

// NewEncoder builds an Encoder whose gate admits maxConcurrent codec
// calls at a time.
func NewEncoder(codec Codec, maxConcurrent int, opts model.CodecOptions) *Encoder {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Encoder{
		codec: codec,
		gate:  semaphore.NewWeighted(int64(maxConcurrent)),
		opts:  opts,
	}
}

// ProbeDimensions asks the codec for intrinsic pixel dimensions.
// Failures are non-fatal: they are logged at debug level and reported
// as absent, and the markup postprocessor simply skips size injection
// for the artifact.
func (e *Encoder) ProbeDimensions(ctx context.Context, name string, data []byte) (model.Dimensions, bool) {
	if err := e.gate.Acquire(ctx, 1); err != nil {
		slog.Debug("dimension probe aborted", "name", name, "error", err)
		return model.Dimensions{}, false
	}
	defer e.gate.Release(1)

	dims, err := e.codec.Metadata(ctx, data)
	if err != nil {
		slog.Debug("dimension probe failed", "name", name, "error", err)
		return model.Dimensions{}, false
	}

	if dims.Width <= 0 || dims.Height <= 0 {
		slog.Debug("dimension probe returned no size", "name", name)
		return model.Dimensions{}, false
	}

	return dims, true
}

// Encode transcodes data to the target format. A failure here means a
// converted asset would be corrupt or missing, so it propagates and
// fails the pass.
func (e *Encoder) Encode(ctx context.Context, name string, data []byte, format model.Format) ([]byte, error) {
	if err := e.gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to schedule encode of %s: %w", name, err)
	}
	defer e.gate.Release(1)

	encoded, err := e.codec.Encode(ctx, data, format, e.opts)
	if err != nil {
		slog.Error("encode failed", "name", name, "format", format, "error", err)
		return nil, fmt.Errorf("failed to encode %s to %s: %w", name, format, err)
	}

	return encoded, nil
}
