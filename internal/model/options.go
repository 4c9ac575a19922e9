package model

import "fmt"

// Format is a target raster format.
type Format string

// Supported target formats.
const (
	FormatWebP Format = "webp"
	FormatPNG  Format = "png"
	FormatAVIF Format = "avif"
)

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// SizeMode controls intrinsic width/height injection on markup image
// elements.
type SizeMode string

// Available SizeMode values.
const (
	SizeOff       SizeMode = "off"
	SizeAddOnly   SizeMode = "add-only"
	SizeOverwrite SizeMode = "overwrite"
)

// FullDigestHexLen is the hex length of a full SHA-256 digest and the
// upper bound for HashLength.
const FullDigestHexLen = 64

// WebPOptions are forwarded verbatim to the codec when encoding webp.
type WebPOptions struct {
	Quality  int
	Lossless bool
}

// PNGOptions are forwarded verbatim to the codec when encoding png.
type PNGOptions struct {
	// Compression is the zlib level, 0 (default) through 9.
	Compression int
}

// AVIFOptions are forwarded verbatim to the codec when encoding avif.
type AVIFOptions struct {
	Quality int
	Speed   int
}

// CodecOptions carries the per-format knobs handed to the codec on
// every encode call.
type CodecOptions struct {
	WebP WebPOptions
	PNG  PNGOptions
	AVIF AVIFOptions
}

// Options is the resolved configuration for one pass.
type Options struct {
	Format   Format
	Reencode bool
	SizeMode SizeMode

	HashInName bool
	HashLength int

	// MaxConcurrent bounds in-flight codec calls for the pass,
	// independent of the codec's own concurrency setting.
	MaxConcurrent int
	// CodecConcurrency is the external codec's internal concurrency,
	// set once before the pass. Zero leaves the codec default.
	CodecConcurrency int

	Codec CodecOptions
}

// Validate rejects unknown enum values and out-of-range numerics so a
// bad configuration fails before the pass starts rather than degrading
// mid-pass.
func (o Options) Validate() error {
	switch o.Format {
	case FormatWebP, FormatPNG, FormatAVIF:
	default:
		return fmt.Errorf("unknown target format %q (want webp, png or avif)", o.Format)
	}

	switch o.SizeMode {
	case SizeOff, SizeAddOnly, SizeOverwrite:
	default:
		return fmt.Errorf("unknown html size mode %q (want off, add-only or overwrite)", o.SizeMode)
	}

	if o.HashLength < 1 || o.HashLength > FullDigestHexLen {
		return fmt.Errorf("hash length %d out of range [1, %d]", o.HashLength, FullDigestHexLen)
	}

	if o.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent codec calls must be at least 1, got %d", o.MaxConcurrent)
	}

	if o.CodecConcurrency < 0 {
		return fmt.Errorf("codec concurrency must not be negative, got %d", o.CodecConcurrency)
	}

	if o.Codec.PNG.Compression < 0 || o.Codec.PNG.Compression > 9 {
		return fmt.Errorf("png compression %d out of range [0, 9]", o.Codec.PNG.Compression)
	}

	if o.Codec.WebP.Quality < 0 || o.Codec.WebP.Quality > 100 {
		return fmt.Errorf("webp quality %d out of range [0, 100]", o.Codec.WebP.Quality)
	}

	if o.Codec.AVIF.Quality < 0 || o.Codec.AVIF.Quality > 100 {
		return fmt.Errorf("avif quality %d out of range [0, 100]", o.Codec.AVIF.Quality)
	}

	return nil
}
