package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	m "rasterpass.dev/pkg/rasterpass/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "rasterpass"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	formatFlagName           = "format"
	reencodeFlagName         = "reencode"
	sizeModeFlagName         = "html-size-mode"
	hashFlagName             = "hash"
	hashLengthFlagName       = "hash-length"
	maxConcurrentFlagName    = "max-concurrent"
	codecConcurrencyFlagName = "codec-concurrency"
	bundleDirFlagName        = "bundle-dir"
	manifestFlagName         = "manifest"
	verboseFlagName          = "verbose"
	sizeModeConfigKey        = "html.size_mode"
	hashConfigKey            = "hash.in_name"
	hashLengthConfigKey      = "hash.length"
	maxConcurrentConfigKey   = "encode.max_concurrent"
	codecConcurrencyKey      = "encode.codec_concurrency"

	webpQualityKey  = "webp.quality"
	webpLosslessKey = "webp.lossless"
	pngCompression  = "png.compression"
	avifQualityKey  = "avif.quality"
	avifSpeedKey    = "avif.speed"

	defaultFormat           = string(m.FormatWebP)
	defaultReencode         = false
	defaultSizeMode         = string(m.SizeAddOnly)
	defaultHashInName       = false
	defaultHashLength       = 8
	defaultMaxConcurrent    = 2
	defaultCodecConcurrency = 0
	defaultBundleDir        = "dist"
	defaultWebPQuality      = 75
	defaultPNGCompression   = 6
	defaultAVIFQuality      = 60
	defaultAVIFSpeed        = 8

	envPrefix = "RASTERPASS"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".rasterpass.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(formatFlagName, defaultFormat)
	viper.SetDefault(reencodeFlagName, defaultReencode)
	viper.SetDefault(sizeModeConfigKey, defaultSizeMode)
	viper.SetDefault(hashConfigKey, defaultHashInName)
	viper.SetDefault(hashLengthConfigKey, defaultHashLength)
	viper.SetDefault(maxConcurrentConfigKey, defaultMaxConcurrent)
	viper.SetDefault(codecConcurrencyKey, defaultCodecConcurrency)
	viper.SetDefault(bundleDirFlagName, defaultBundleDir)

	viper.SetDefault(webpQualityKey, defaultWebPQuality)
	viper.SetDefault(webpLosslessKey, false)
	viper.SetDefault(pngCompression, defaultPNGCompression)
	viper.SetDefault(avifQualityKey, defaultAVIFQuality)
	viper.SetDefault(avifSpeedKey, defaultAVIFSpeed)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

// resolveOptions builds the pass options from the effective viper
// state and validates them, so a bad value fails before any bundle is
// touched.
func resolveOptions() (m.Options, error) {
	opts := m.Options{
		Format:           m.Format(viper.GetString(formatFlagName)),
		Reencode:         viper.GetBool(reencodeFlagName),
		SizeMode:         m.SizeMode(viper.GetString(sizeModeConfigKey)),
		HashInName:       viper.GetBool(hashConfigKey),
		HashLength:       viper.GetInt(hashLengthConfigKey),
		MaxConcurrent:    viper.GetInt(maxConcurrentConfigKey),
		CodecConcurrency: viper.GetInt(codecConcurrencyKey),
		Codec: m.CodecOptions{
			WebP: m.WebPOptions{
				Quality:  viper.GetInt(webpQualityKey),
				Lossless: viper.GetBool(webpLosslessKey),
			},
			PNG: m.PNGOptions{
				Compression: viper.GetInt(pngCompression),
			},
			AVIF: m.AVIFOptions{
				Quality: viper.GetInt(avifQualityKey),
				Speed:   viper.GetInt(avifSpeedKey),
			},
		},
	}

	if err := opts.Validate(); err != nil {
		return m.Options{}, err
	}

	return opts, nil
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
