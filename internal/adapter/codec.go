// Package adapter provides the filesystem and codec implementations
// behind the engine's interfaces.
package adapter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"golang.org/x/sync/semaphore"

	_ "golang.org/x/image/webp" // register WebP decoder

	"rasterpass.dev/pkg/rasterpass/internal/domain"
	"rasterpass.dev/pkg/rasterpass/internal/model"
)

// ImagingCodec implements domain.Codec on top of the imaging stack:
// stdlib decoders plus WebP/AVIF, disintegration/imaging for PNG
// encoding, gen2brain encoders for WebP and AVIF.
type ImagingCodec struct {
	// sem bounds the codec's own internal concurrency, configured once
	// at construction and independent of the pass-level gate.
	sem *semaphore.Weighted
}

// NewImagingCodec creates the codec. concurrency 0 leaves the codec
// unbounded (the pass-level gate still applies).
func NewImagingCodec(concurrency int) *ImagingCodec {
	c := &ImagingCodec{}
	if concurrency > 0 {
		c.sem = semaphore.NewWeighted(int64(concurrency))
	}

	return c
}

func (c *ImagingCodec) acquire(ctx context.Context) (func(), error) {
	if c.sem == nil {
		return func() {}, ctx.Err()
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return func() {}, err
	}

	return func() { c.sem.Release(1) }, nil
}

// Metadata probes intrinsic pixel dimensions without decoding the full
// image.
func (c *ImagingCodec) Metadata(ctx context.Context, data []byte) (model.Dimensions, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return model.Dimensions{}, err
	}
	defer release()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return model.Dimensions{}, fmt.Errorf("failed to read image header: %w", err)
	}

	slog.Debug("probed image", "format", format, "width", cfg.Width, "height", cfg.Height)

	return model.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// Encode transcodes data to the target format with the configured
// per-format options.
func (c *ImagingCodec) Encode(ctx context.Context, data []byte, format model.Format, opts model.CodecOptions) ([]byte, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer

	switch format {
	case model.FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(pngLevel(opts.PNG.Compression)))
	case model.FormatWebP:
		err = webp.Encode(&buf, img, webp.Options{
			Quality:  opts.WebP.Quality,
			Lossless: opts.WebP.Lossless,
		})
	case model.FormatAVIF:
		err = avif.Encode(&buf, img, avif.Options{
			Quality: opts.AVIF.Quality,
			Speed:   opts.AVIF.Speed,
		})
	default:
		return nil, fmt.Errorf("unsupported target format %q", format)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to encode to %s: %w", format, err)
	}

	return buf.Bytes(), nil
}

// pngLevel maps the 0-9 configuration scale onto the stdlib's coarse
// compression levels.
func pngLevel(level int) png.CompressionLevel {
	switch {
	case level >= 7:
		return png.BestCompression
	case level >= 1 && level <= 3:
		return png.BestSpeed
	default:
		return png.DefaultCompression
	}
}

var _ domain.Codec = (*ImagingCodec)(nil)
