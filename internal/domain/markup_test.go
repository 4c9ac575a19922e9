package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	m "rasterpass.dev/pkg/rasterpass/internal/model"
)

func TestCorrectSourceTypes_ReplacesStaleType(t *testing.T) {
	doc := `<picture><source type="image/jpeg" srcset="/images/banner.webp"><img src="/images/banner.webp"></picture>`

	got := correctSourceTypes(doc)

	assert.Contains(t, got, `<source type="image/webp" srcset="/images/banner.webp">`)
}

func TestCorrectSourceTypes_InsertsMissingType(t *testing.T) {
	doc := `<source srcset="/images/banner.avif 2x, /images/small.avif 1x" media="(min-width: 600px)">`

	got := correctSourceTypes(doc)

	assert.Equal(t,
		`<source type="image/avif" srcset="/images/banner.avif 2x, /images/small.avif 1x" media="(min-width: 600px)">`,
		got,
	)
}

func TestCorrectSourceTypes_UnknownExtensionUntouched(t *testing.T) {
	doc := `<source srcset="/video/clip.mp4" type="video/mp4">`

	assert.Equal(t, doc, correctSourceTypes(doc))
}

func TestCorrectSourceTypes_QuerySuffixIgnored(t *testing.T) {
	doc := `<source srcset="/images/banner.webp?v=2 1x">`

	got := correctSourceTypes(doc)

	assert.Contains(t, got, `type="image/webp"`)
}

func TestInjectSizes_AddOnly(t *testing.T) {
	dims := map[string]m.Dimensions{
		"images/banner.webp": {Width: 800, Height: 600},
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"missing both",
			`<img src="/images/banner.webp" alt="Banner">`,
			`<img src="/images/banner.webp" alt="Banner" width="800" height="600">`,
		},
		{
			"has width",
			`<img src="/images/banner.webp" width="400">`,
			`<img src="/images/banner.webp" width="400">`,
		},
		{
			"has height",
			`<img src="/images/banner.webp" height="300">`,
			`<img src="/images/banner.webp" height="300">`,
		},
		{
			"self closing",
			`<img src="images/banner.webp" />`,
			`<img src="images/banner.webp" width="800" height="600" />`,
		},
		{
			"unknown src",
			`<img src="/images/other.webp">`,
			`<img src="/images/other.webp">`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, injectSizes(tt.in, dims, m.SizeAddOnly))
		})
	}
}

func TestInjectSizes_Overwrite(t *testing.T) {
	dims := map[string]m.Dimensions{
		"images/banner.webp": {Width: 800, Height: 600},
	}

	got := injectSizes(
		`<img src="/images/banner.webp" width="400" height="300" alt="Banner">`,
		dims, m.SizeOverwrite,
	)

	assert.Equal(t, `<img src="/images/banner.webp" alt="Banner" width="800" height="600">`, got)
}

func TestInjectSizes_Off(t *testing.T) {
	dims := map[string]m.Dimensions{
		"images/banner.webp": {Width: 800, Height: 600},
	}

	doc := `<img src="/images/banner.webp">`

	assert.Equal(t, doc, injectSizes(doc, dims, m.SizeOff))
}

func TestResolveDims(t *testing.T) {
	dims := map[string]m.Dimensions{
		"images/banner-1a2b3c4d.webp": {Width: 800, Height: 600},
		"banner-1a2b3c4d.webp":        {Width: 1, Height: 1},
		"icons/star.webp":             {Width: 16, Height: 16},
	}

	tests := []struct {
		src  string
		want m.Dimensions
		ok   bool
	}{
		{"/images/banner-1a2b3c4d.webp", m.Dimensions{Width: 800, Height: 600}, true},
		{"images/banner-1a2b3c4d.webp?v=2", m.Dimensions{Width: 800, Height: 600}, true},
		// Suffix match at a path boundary, longest key winning.
		{"https://cdn.example.com/images/banner-1a2b3c4d.webp", m.Dimensions{Width: 800, Height: 600}, true},
		{"star.webp", m.Dimensions{Width: 16, Height: 16}, true},
		{"other.webp", m.Dimensions{}, false},
	}

	for _, tt := range tests {
		got, ok := resolveDims(tt.src, dims)
		assert.Equal(t, tt.ok, ok, "src %q", tt.src)

		if tt.ok {
			assert.Equal(t, tt.want, got, "src %q", tt.src)
		}
	}
}

func TestPostprocessMarkup(t *testing.T) {
	bundle := m.Bundle{
		"index.html": m.Asset{Data: []byte(
			`<picture><source type="image/jpeg" srcset="/images/banner.webp"><img src="/images/banner.webp" alt="B"></picture>`,
		)},
		"app.js": m.Asset{Data: []byte(`// not markup: <img src="/images/banner.webp">`)},
	}

	state := newPassState(map[string]struct{}{})
	state.dims["images/banner.webp"] = m.Dimensions{Width: 800, Height: 600}

	opts := testOptions()

	updated := postprocessMarkup(bundle, state, opts)

	assert.Equal(t, 1, updated)
	assert.Equal(t,
		`<picture><source type="image/webp" srcset="/images/banner.webp"><img src="/images/banner.webp" alt="B" width="800" height="600"></picture>`,
		string(bundle["index.html"].(m.Asset).Data),
	)
	assert.Contains(t, string(bundle["app.js"].(m.Asset).Data), "not markup")
}
