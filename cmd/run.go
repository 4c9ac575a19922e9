package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"rasterpass.dev/pkg/rasterpass/internal/adapter"
	"rasterpass.dev/pkg/rasterpass/internal/domain"
	m "rasterpass.dev/pkg/rasterpass/internal/model"
)

// manifestDir is where the pass manifest lands, relative to the bundle.
const manifestDir = ".rasterpass"

var manifestFlag bool

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Run one normalization pass over a bundle",
		Long:  runLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			configureLogger("", viper.GetBool(logVerboseKey))

			opts, err := resolveOptions()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			dir := bundleDirArg(args)

			return runPass(context.Background(), dir, opts)
		},
	}

	cmd.Flags().BoolVar(&manifestFlag, manifestFlagName, true, "write a pass manifest under .rasterpass/")
	bindFlagToConfig(cmd.Flags().Lookup(manifestFlagName), manifestFlagName)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPass(ctx context.Context, dir string, opts m.Options) error {
	codec := adapter.NewImagingCodec(opts.CodecConcurrency)

	engine, err := domain.NewEngine(codec, opts, ui)
	if err != nil {
		return err
	}

	bundle, err := bundleStore.Load(ctx, m.Path(dir))
	if err != nil {
		slog.Error("Failed to load bundle", "dir", dir, "error", err)
		return fmt.Errorf("failed to load bundle: %w", err)
	}

	if err := ui.Start(ctx); err != nil {
		return err
	}
	defer ui.Close(ctx)

	result, err := engine.Run(ctx, bundle)
	if err != nil {
		slog.Error("Pass failed", "dir", dir, "error", err)
		return fmt.Errorf("pass failed: %w", err)
	}

	removed := make([]string, 0, len(result.Manifest.Renames))
	for old := range result.Manifest.Renames {
		removed = append(removed, old)
	}

	if err := bundleStore.Save(ctx, m.Path(dir), bundle, removed); err != nil {
		slog.Error("Failed to save bundle", "dir", dir, "error", err)
		return fmt.Errorf("failed to save bundle: %w", err)
	}

	if viper.GetBool(manifestFlagName) {
		if err := writeManifest(dir, result.Manifest); err != nil {
			return err
		}
	}

	return ui.DisplaySummary(ctx, result)
}

// writeManifest serializes the rename/dimension record for downstream
// tooling.
func writeManifest(dir string, manifest m.Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	target := filepath.Join(dir, manifestDir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	path := filepath.Join(target, "manifest.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	slog.Debug("wrote manifest", "path", path)

	return nil
}
