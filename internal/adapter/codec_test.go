package adapter

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rasterpass.dev/pkg/rasterpass/internal/model"
)

func encodeTestImage(t *testing.T, w, h int, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))

	return buf.Bytes()
}

func testPNG(t *testing.T, w, h int) []byte {
	return encodeTestImage(t, w, h, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})
}

func testJPEG(t *testing.T, w, h int) []byte {
	return encodeTestImage(t, w, h, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, nil)
	})
}

func TestImagingCodec_Metadata(t *testing.T) {
	codec := NewImagingCodec(0)

	dims, err := codec.Metadata(context.Background(), testPNG(t, 12, 7))
	require.NoError(t, err)
	assert.Equal(t, model.Dimensions{Width: 12, Height: 7}, dims)

	dims, err = codec.Metadata(context.Background(), testJPEG(t, 5, 9))
	require.NoError(t, err)
	assert.Equal(t, model.Dimensions{Width: 5, Height: 9}, dims)
}

func TestImagingCodec_MetadataRejectsGarbage(t *testing.T) {
	codec := NewImagingCodec(0)

	_, err := codec.Metadata(context.Background(), []byte("not an image"))
	require.Error(t, err)
}

func TestImagingCodec_EncodeToPNG(t *testing.T) {
	codec := NewImagingCodec(2)

	opts := model.CodecOptions{PNG: model.PNGOptions{Compression: 6}}

	out, err := codec.Encode(context.Background(), testJPEG(t, 8, 4), model.FormatPNG, opts)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 4, cfg.Height)
}

func TestImagingCodec_EncodeToWebP(t *testing.T) {
	codec := NewImagingCodec(0)

	opts := model.CodecOptions{WebP: model.WebPOptions{Quality: 75}}

	out, err := codec.Encode(context.Background(), testPNG(t, 6, 6), model.FormatWebP, opts)
	require.NoError(t, err)

	dims, err := codec.Metadata(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, model.Dimensions{Width: 6, Height: 6}, dims)
}

func TestImagingCodec_EncodeRejectsUnknownFormat(t *testing.T) {
	codec := NewImagingCodec(0)

	_, err := codec.Encode(context.Background(), testPNG(t, 2, 2), model.Format("bmp"), model.CodecOptions{})
	require.Error(t, err)
}

func TestImagingCodec_EncodeRejectsGarbage(t *testing.T) {
	codec := NewImagingCodec(0)

	_, err := codec.Encode(context.Background(), []byte("junk"), model.FormatPNG, model.CodecOptions{})
	require.Error(t, err)
}

func TestImagingCodec_HonorsContextCancellation(t *testing.T) {
	codec := NewImagingCodec(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := codec.Metadata(ctx, testPNG(t, 2, 2))
	require.Error(t, err)
}
