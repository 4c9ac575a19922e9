package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rasterpass.dev/pkg/rasterpass/internal/adapter"
	"rasterpass.dev/pkg/rasterpass/internal/domain"
	m "rasterpass.dev/pkg/rasterpass/internal/model"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List raster assets and planned actions",
		Long:  listLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			configureLogger("", viper.GetBool(logVerboseKey))

			opts, err := resolveOptions()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx := context.Background()
			dir := bundleDirArg(args)

			engine, err := domain.NewEngine(adapter.NewImagingCodec(opts.CodecConcurrency), opts, ui)
			if err != nil {
				return err
			}

			bundle, err := bundleStore.Load(ctx, m.Path(dir))
			if err != nil {
				return fmt.Errorf("failed to load bundle: %w", err)
			}

			decisions, textLike, err := engine.Plan(ctx, bundle)
			if err != nil {
				return err
			}

			return ui.DisplayPlan(ctx, decisions, textLike)
		},
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
