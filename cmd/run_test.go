package cmd

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // register PNG decoder for result verification
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	m "rasterpass.dev/pkg/rasterpass/internal/model"
)

func testJPEGBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	return buf.Bytes()
}

func TestNewRunCmd(t *testing.T) {
	cmd := newRunCmd()
	assert.Equal(t, "run [dir]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup(manifestFlagName))
}

func TestRunPass_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "images", "photo.jpg"),
		testJPEGBytes(t, 10, 6), 0o644,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "index.html"),
		[]byte(`<html><body><img src="/images/photo.jpg" alt="P"></body></html>`), 0o644,
	))

	previous := viper.Get(manifestFlagName)
	viper.Set(manifestFlagName, true)
	t.Cleanup(func() { viper.Set(manifestFlagName, previous) })

	opts := m.Options{
		Format:        m.FormatPNG,
		SizeMode:      m.SizeAddOnly,
		HashLength:    defaultHashLength,
		MaxConcurrent: defaultMaxConcurrent,
		Codec: m.CodecOptions{
			WebP: m.WebPOptions{Quality: defaultWebPQuality},
			PNG:  m.PNGOptions{Compression: defaultPNGCompression},
			AVIF: m.AVIFOptions{Quality: defaultAVIFQuality, Speed: defaultAVIFSpeed},
		},
	}

	require.NoError(t, runPass(context.Background(), dir, opts))

	// The jpeg was converted and its file replaced.
	converted, err := os.ReadFile(filepath.Join(dir, "images", "photo.png"))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(converted))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 6, cfg.Height)

	_, err = os.Stat(filepath.Join(dir, "images", "photo.jpg"))
	assert.True(t, os.IsNotExist(err))

	// The reference follows and intrinsic sizes are injected.
	html, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), `src="/images/photo.png"`)
	assert.Contains(t, string(html), `width="10" height="6"`)

	// The manifest records the rename and dimensions.
	data, err := os.ReadFile(filepath.Join(dir, manifestDir, "manifest.yaml"))
	require.NoError(t, err)

	var manifest m.Manifest
	require.NoError(t, yaml.Unmarshal(data, &manifest))
	assert.Equal(t, "images/photo.png", manifest.Renames["images/photo.jpg"])
	assert.Equal(t, m.Dimensions{Width: 10, Height: 6}, manifest.Dimensions["images/photo.png"])
}

func TestRunPass_RejectsMissingDir(t *testing.T) {
	opts := m.Options{
		Format:        m.FormatPNG,
		SizeMode:      m.SizeOff,
		HashLength:    defaultHashLength,
		MaxConcurrent: defaultMaxConcurrent,
		Codec: m.CodecOptions{
			PNG: m.PNGOptions{Compression: defaultPNGCompression},
		},
	}

	err := runPass(context.Background(), filepath.Join(t.TempDir(), "missing"), opts)
	require.Error(t, err)
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()

	manifest := m.Manifest{
		Renames:    map[string]string{"a.jpg": "a.webp"},
		Dimensions: map[string]m.Dimensions{"a.webp": {Width: 3, Height: 4}},
		Kept:       []string{"b.png"},
	}

	require.NoError(t, writeManifest(dir, manifest))

	data, err := os.ReadFile(filepath.Join(dir, manifestDir, "manifest.yaml"))
	require.NoError(t, err)

	var got m.Manifest
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, manifest, got)
}
