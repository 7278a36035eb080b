package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the merged view of ~/.vispa.yaml, VISPA_* environment variables and flags.
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Annotate AnnotateConfig `mapstructure:"annotate"`
	DB       DBConfig       `mapstructure:"db"`
	Serve    ServeConfig    `mapstructure:"serve"`
	Log      LogConfig      `mapstructure:"log"`
}

type CatalogConfig struct {
	Path          string `mapstructure:"path"`
	SkipMalformed bool   `mapstructure:"skip-malformed"`
	CacheDir      string `mapstructure:"cache-dir"`
}

type AnnotateConfig struct {
	Multi     bool   `mapstructure:"multi"`
	Delimiter string `mapstructure:"delimiter"`
	SkipFirst bool   `mapstructure:"skip-first"`
	Header    bool   `mapstructure:"header"`
	Workers   int    `mapstructure:"workers"`
	Seed      uint64 `mapstructure:"seed"` // 0 picks tied features nondeterministically
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults() {
	viper.SetDefault("catalog.path", "")
	viper.SetDefault("catalog.skip-malformed", false)
	viper.SetDefault("catalog.cache-dir", "")
	viper.SetDefault("annotate.multi", false)
	viper.SetDefault("annotate.delimiter", "\t")
	viper.SetDefault("annotate.skip-first", false)
	viper.SetDefault("annotate.header", false)
	viper.SetDefault("annotate.workers", 0)
	viper.SetDefault("annotate.seed", 0)
	viper.SetDefault("db.path", "")
	viper.SetDefault("serve.addr", ":8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

// initConfig reads the config file and environment. A missing config file is not an error.
func initConfig(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".vispa")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VISPA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// bindFlags binds command flags to config keys. Bindings are made when the
// command runs so that commands sharing a key don't shadow each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q for key %s", flag, key)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// loadConfig unmarshals the current viper state.
func loadConfig() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// newLogger builds a zap logger writing to stderr.
// Format "json" uses the production encoder, anything else the development console one.
func newLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".vispa.yaml"), nil
}
