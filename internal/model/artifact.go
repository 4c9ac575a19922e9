// Package model defines the data structures for a bundle pass.
package model

import "rasterpass.dev/pkg/rasterpass/internal/sourcemap"

// Path represents a file system path.
type Path string

// Artifact is one named unit of the output bundle: either a raw asset
// (bytes) or a generated code chunk with an optional source map.
type Artifact interface {
	artifact()
}

// Asset holds the raw bytes of an emitted file (image, stylesheet,
// markup, anything that is not a generated code chunk).
type Asset struct {
	Data []byte
}

func (Asset) artifact() {}

// Chunk holds generated code and the source map the generator attached
// to it, if any.
type Chunk struct {
	Code string
	Map  *sourcemap.Map
}

func (Chunk) artifact() {}

// Bundle maps final artifact names to artifacts. Names are
// slash-separated and relative to the bundle root. The pass owns
// mutation rights over the map for its duration; entries may be added
// or removed but never aliased under two live names.
type Bundle map[string]Artifact

// Names returns the bundle keys. Order is unspecified; callers that
// need determinism sort the result.
func (b Bundle) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}

	return names
}

// Dimensions is the intrinsic pixel size of a raster image.
type Dimensions struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}
