// Package cmd provides the root command and CLI setup for rasterpass.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"rasterpass.dev/pkg/rasterpass/internal/adapter"
	"rasterpass.dev/pkg/rasterpass/internal/controller"
)

var bundleStore adapter.BundleStore
var ui controller.UI

// formatFlag is the target raster format shared by run and list.
var formatFlag string

// reencodeFlag forces transcoding of assets already in the target format.
var reencodeFlag bool

// sizeModeFlag selects the markup size-injection policy.
var sizeModeFlag string

// hashFlag enables content-hash naming for converted/passthrough assets.
var hashFlag bool

// hashLengthFlag is the hex digest prefix length used in names.
var hashLengthFlag int

// maxConcurrentFlag bounds in-flight codec calls during a pass.
var maxConcurrentFlag int

// codecConcurrencyFlag is the thread count handed to the codec itself
// (0 lets the codec pick).
var codecConcurrencyFlag int

// verboseFlag switches logging to debug level.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	bundleStore = adapter.NewLocalBundleStore()
}

const bundleDirHelp = `The bundle directory is a finished build output (default: dist).
rasterpass never decides what images exist; it normalizes the ones the
build emitted and keeps every reference to them correct.`

const rootLongDescription = `Rasterpass post-processes a completed build output: it converts raster
images to one target format, optionally content-hashes their names,
rewrites every reference in markup, styles and generated code (keeping
source maps accurate), and injects intrinsic image dimensions into HTML.

` + bundleDirHelp

const runLongDescription = `Run one normalization pass over the bundle directory and write the
result back in place.

` + bundleDirHelp

const listLongDescription = `List raster assets and the action a pass would take for each, without
modifying anything.

` + bundleDirHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rasterpass",
		Short: "Bundle image normalizer",
		Long:  rootLongDescription,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(
		&formatFlag, formatFlagName, "f",
		viper.GetString(formatFlagName),
		"target raster format (webp, png, avif)",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(formatFlagName), formatFlagName)

	cmd.PersistentFlags().BoolVar(
		&reencodeFlag, reencodeFlagName,
		viper.GetBool(reencodeFlagName),
		"re-encode assets already in the target format",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(reencodeFlagName), reencodeFlagName)

	cmd.PersistentFlags().StringVar(
		&sizeModeFlag, sizeModeFlagName,
		viper.GetString(sizeModeConfigKey),
		"intrinsic size injection on <img> tags (off, add-only, overwrite)",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(sizeModeFlagName), sizeModeConfigKey)

	cmd.PersistentFlags().BoolVar(
		&hashFlag, hashFlagName,
		viper.GetBool(hashConfigKey),
		"append a content hash to final asset names",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(hashFlagName), hashConfigKey)

	cmd.PersistentFlags().IntVar(
		&hashLengthFlag, hashLengthFlagName,
		viper.GetInt(hashLengthConfigKey),
		"hex digest prefix length for hashed names",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(hashLengthFlagName), hashLengthConfigKey)

	cmd.PersistentFlags().IntVarP(
		&maxConcurrentFlag, maxConcurrentFlagName, "p",
		viper.GetInt(maxConcurrentConfigKey),
		"maximum concurrent codec calls",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(maxConcurrentFlagName), maxConcurrentConfigKey)

	cmd.PersistentFlags().IntVar(
		&codecConcurrencyFlag, codecConcurrencyFlagName,
		viper.GetInt(codecConcurrencyKey),
		"codec-internal thread count (0 = codec default)",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(codecConcurrencyFlagName), codecConcurrencyKey)

	cmd.PersistentFlags().BoolVarP(
		&verboseFlag, verboseFlagName, "v",
		viper.GetBool(logVerboseKey),
		"log at debug level",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// bundleDirArg resolves the positional bundle directory argument.
func bundleDirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return viper.GetString(bundleDirFlagName)
}
