package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rasterpass.dev/pkg/rasterpass/internal/model"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocalBundleStore_LoadClassifiesChunksAndAssets(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "index.html", "<html></html>")
	writeFile(t, root, "images/banner.jpg", "jpgdata")
	writeFile(t, root, "assets/app.js", `console.log("hi");`)
	writeFile(t, root, "assets/app.js.map", `{"version":3,"sources":["src/app.ts"],"names":[],"mappings":"AAAA"}`)
	writeFile(t, root, "data/config.json.map", `not a script map`)

	store := NewLocalBundleStore()

	bundle, err := store.Load(context.Background(), model.Path(root))
	require.NoError(t, err)

	// The chunk absorbed its map; the .map file is not its own artifact.
	require.Contains(t, bundle, "assets/app.js")
	assert.NotContains(t, bundle, "assets/app.js.map")

	chunk, ok := bundle["assets/app.js"].(model.Chunk)
	require.True(t, ok)
	assert.Equal(t, `console.log("hi");`, chunk.Code)
	require.NotNil(t, chunk.Map)
	assert.Equal(t, []string{"src/app.ts"}, chunk.Map.Sources)

	// A .map not belonging to a script stays a plain asset.
	assert.Contains(t, bundle, "data/config.json.map")

	asset, ok := bundle["images/banner.jpg"].(model.Asset)
	require.True(t, ok)
	assert.Equal(t, []byte("jpgdata"), asset.Data)
}

func TestLocalBundleStore_LoadChunkWithoutMap(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "app.mjs", "export {};")

	store := NewLocalBundleStore()

	bundle, err := store.Load(context.Background(), model.Path(root))
	require.NoError(t, err)

	chunk, ok := bundle["app.mjs"].(model.Chunk)
	require.True(t, ok)
	assert.Nil(t, chunk.Map)
}

func TestLocalBundleStore_LoadRejectsBrokenMap(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "app.js", "code")
	writeFile(t, root, "app.js.map", "{broken")

	store := NewLocalBundleStore()

	_, err := store.Load(context.Background(), model.Path(root))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.js")
}

func TestLocalBundleStore_SaveRoundTrip(t *testing.T) {
	root := t.TempDir()

	mapJSON := `{"version":3,"sources":["src/app.ts"],"names":[],"mappings":"AAAA"}`

	writeFile(t, root, "images/banner.jpg", "jpgdata")
	writeFile(t, root, "assets/app.js", "old code")
	writeFile(t, root, "assets/app.js.map", mapJSON)

	store := NewLocalBundleStore()
	ctx := context.Background()

	bundle, err := store.Load(ctx, model.Path(root))
	require.NoError(t, err)

	// Simulate a pass: the jpg was converted and renamed, the chunk
	// rewritten.
	bundle["images/banner.webp"] = model.Asset{Data: []byte("webpdata")}
	delete(bundle, "images/banner.jpg")

	chunk := bundle["assets/app.js"].(model.Chunk)
	chunk.Code = "new code"
	bundle["assets/app.js"] = chunk

	require.NoError(t, store.Save(ctx, model.Path(root), bundle, []string{"images/banner.jpg"}))

	data, err := os.ReadFile(filepath.Join(root, "images", "banner.webp"))
	require.NoError(t, err)
	assert.Equal(t, "webpdata", string(data))

	_, err = os.Stat(filepath.Join(root, "images", "banner.jpg"))
	assert.True(t, os.IsNotExist(err))

	data, err = os.ReadFile(filepath.Join(root, "assets", "app.js"))
	require.NoError(t, err)
	assert.Equal(t, "new code", string(data))

	// The untouched map round-trips byte-identical.
	data, err = os.ReadFile(filepath.Join(root, "assets", "app.js.map"))
	require.NoError(t, err)
	assert.Equal(t, mapJSON, string(data))
}

func TestLocalBundleStore_SaveRemovesStaleMapOfRenamedChunk(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "old.js", "code")
	writeFile(t, root, "old.js.map", `{"version":3,"sources":[],"names":[],"mappings":""}`)

	store := NewLocalBundleStore()
	ctx := context.Background()

	bundle := model.Bundle{
		"new.js": model.Chunk{Code: "code"},
	}

	require.NoError(t, store.Save(ctx, model.Path(root), bundle, []string{"old.js"}))

	_, err := os.Stat(filepath.Join(root, "old.js"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(root, "old.js.map"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(root, "new.js"))
	require.NoError(t, err)
	assert.Equal(t, "code", string(data))
}
