package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spacemeshos/smutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/spacemeshos/powseal/config"
)

var (
	Version string
	Commit  string

	cfgFile  string
	logLevel string
	logFile  string

	cfg    = config.DefaultConfig()
	logger = zap.NewNop()
	vip    = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "powcli",
	Short: "Seal and verify proof-of-work block seals",
	Long: `powcli produces and checks the seals of the two PoW variants:
quick seals with a runtime difficulty and ethash light seals with a fixed one.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zapcore.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if logger, err = newLogger(level, logFile); err != nil {
			return fmt.Errorf("failed to initialize zap logger: %w", err)
		}
		return loadConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command and exits with a non-zero code on failure.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (%s)", Version, Commit)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "path to a configuration file (toml, yaml or json)")
	flags.StringVar(&logLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&logFile, "logfile", "", "also write json logs to this file, rotated")

	def := config.DefaultConfig()
	flags.String("pow-algorithm", def.Algorithm, "PoW variant: fixed or runtime")
	flags.String("pow-fixed-difficulty", def.FixedDifficulty, "decimal difficulty of the fixed variant")
	flags.String("pow-cache-dir", def.CacheDir, "directory for ethash cache dumps (scratch dir if empty)")
	flags.Int("pow-caches-in-mem", def.CachesInMem, "ethash caches kept in memory")
	flags.Int("pow-caches-on-disk", def.CachesOnDisk, "ethash cache dumps kept on disk")
	flags.String("pow-mode", def.Mode, "ethash mode: normal or test")
	flags.Bool("pow-light-value-check", def.LightValueCheck, "require the ethash result to meet the difficulty")
	flags.Bool("pow-pregenerate", def.Pregenerate, "build the next epoch's cache in the background")
	flags.Bool("pow-space-avail-checks", def.SpaceAvailChecks, "check free disk space before writing cache dumps")

	if err := vip.BindPFlags(flags); err != nil {
		panic(err)
	}
	vip.SetEnvPrefix("powseal")
	vip.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vip.AutomaticEnv()
}

// loadConfig layers the config file, POWSEAL_* environment variables and the
// command line over the defaults. Flags set on the command line win.
func loadConfig() error {
	if cfgFile != "" {
		vip.SetConfigFile(smutil.GetCanonicalPath(cfgFile))
		if err := vip.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg = config.DefaultConfig()
	if err := vip.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.CacheDir != "" {
		cfg.CacheDir = smutil.GetCanonicalPath(cfg.CacheDir)
	}

	return config.Validate(cfg)
}

func newLogger(level zapcore.Level, file string) (*zap.Logger, error) {
	zapCfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			MessageKey:     "M",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	if file == "" {
		return l, nil
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}),
		zapCfg.Level,
	)
	return l.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
