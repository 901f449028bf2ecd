package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"signfinder.dev/pkg/signfinder/internal/adapter"
	"signfinder.dev/pkg/signfinder/internal/domain"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "signfinder"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	workdirFlagName    = "workdir"
	keepOutputFlagName = "keep-output"
	scriptFlagName     = "script"
	forceFlagName      = "force"
	verboseFlagName    = "verbose"

	keepOutputConfigKey = "output.keep"
	maxInputSizeKey     = "input.max_size"
	runTimeoutKey       = "run.timeout"
	fillPatternKey      = "fill.pattern"
	divPartsKey         = "div.parts"
	halfDepthKey        = "half.depth"
	vdWidthKey          = "vd.width"

	defaultWorkdir     = "."
	defaultKeepOutput  = false
	defaultFillPattern = ""

	envPrefix = "SIGNFINDER"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".signfinder.log"
	defaultLogLevel      = int(slog.LevelInfo)
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
	viper.SetDefault(workdirFlagName, defaultWorkdir)
	viper.SetDefault(keepOutputConfigKey, defaultKeepOutput)
	viper.SetDefault(maxInputSizeKey, int64(domain.DefaultMaxInputSize))
	viper.SetDefault(runTimeoutKey, int64(adapter.DefaultToolTimeout.Seconds()))
	viper.SetDefault(fillPatternKey, defaultFillPattern)
	viper.SetDefault(divPartsKey, domain.DefaultDivideParts)
	viper.SetDefault(halfDepthKey, domain.DefaultHalfDepth)
	viper.SetDefault(vdWidthKey, domain.DefaultBarWidth)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
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

// configureLogger configures the global slog logger. Relative log paths are
// placed under workdir.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(workdir string, verbose bool) {
	logPath := viper.GetString(logFilenameKey)
	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(workdir, logPath)
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

// fillPolicyFromConfig turns the hex fill.pattern setting into a FillPolicy.
func fillPolicyFromConfig(pattern string) (domain.FillPolicy, error) {
	pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "0x")
	if pattern == "" {
		return domain.ZeroFill, nil
	}

	raw, err := hex.DecodeString(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", fillPatternKey, pattern, err)
	}

	return domain.PatternFill(raw), nil
}
