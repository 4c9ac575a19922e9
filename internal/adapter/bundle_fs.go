package adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"rasterpass.dev/pkg/rasterpass/internal/model"
	"rasterpass.dev/pkg/rasterpass/internal/sourcemap"
)

// chunkExts are the script artifacts that can carry a source map and
// load as code chunks.
var chunkExts = map[string]struct{}{
	".js":  {},
	".mjs": {},
	".cjs": {},
}

// BundleStore loads a build output directory as a bundle snapshot and
// writes the mutated bundle back.
type BundleStore interface {
	Load(ctx context.Context, root model.Path) (model.Bundle, error)
	// Save writes every artifact under root and deletes the files in
	// removed, which the pass superseded by renamed entries.
	Save(ctx context.Context, root model.Path, bundle model.Bundle, removed []string) error
}

type localBundleStore struct{}

// NewLocalBundleStore constructs a BundleStore over the local
// filesystem.
func NewLocalBundleStore() BundleStore {
	return &localBundleStore{}
}

// Load reads every file under root. Script files with an adjacent
// .map file become chunks carrying the parsed map; the .map file
// itself is not a bundle artifact and is regenerated on Save.
func (s *localBundleStore) Load(ctx context.Context, root model.Path) (model.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files := make(map[string][]byte)

	err := filepath.WalkDir(string(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(string(root), path)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		files[filepath.ToSlash(rel)] = data

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle from %s: %w", root, err)
	}

	bundle := make(model.Bundle, len(files))

	for name, data := range files {
		if strings.HasSuffix(name, ".map") {
			if _, chunky := chunkExts[ext(strings.TrimSuffix(name, ".map"))]; chunky {
				// Attached below through its chunk.
				continue
			}
		}

		if _, chunky := chunkExts[ext(name)]; !chunky {
			bundle[name] = model.Asset{Data: data}
			continue
		}

		chunk := model.Chunk{Code: string(data)}

		if mapData, ok := files[name+".map"]; ok {
			parsed, err := sourcemap.Parse(mapData)
			if err != nil {
				return nil, fmt.Errorf("failed to parse source map of %s: %w", name, err)
			}

			chunk.Map = parsed
		}

		bundle[name] = chunk
	}

	slog.Debug("loaded bundle", "root", root, "artifacts", len(bundle))

	return bundle, nil
}

// Save writes the bundle back under root and removes superseded files
// together with any stale source maps they carried.
func (s *localBundleStore) Save(ctx context.Context, root model.Path, bundle model.Bundle, removed []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for name, artifact := range bundle {
		path := filepath.Join(string(root), filepath.FromSlash(name))

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", name, err)
		}

		switch a := artifact.(type) {
		case model.Asset:
			if err := os.WriteFile(path, a.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
		case model.Chunk:
			if err := os.WriteFile(path, []byte(a.Code), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}

			if a.Map != nil {
				data, err := a.Map.JSON()
				if err != nil {
					return fmt.Errorf("failed to encode source map of %s: %w", name, err)
				}

				if err := os.WriteFile(path+".map", data, 0o644); err != nil {
					return fmt.Errorf("failed to write source map of %s: %w", name, err)
				}
			}
		}
	}

	for _, name := range removed {
		for _, stale := range []string{name, name + ".map"} {
			path := filepath.Join(string(root), filepath.FromSlash(stale))

			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to remove superseded %s: %w", stale, err)
			}
		}
	}

	return nil
}

func ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
