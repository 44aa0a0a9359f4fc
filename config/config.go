// Package config loads genostore application settings with viper.
//
// Settings come from an optional YAML, JSON or TOML file and are overridden by
// GENOSTORE_* environment variables, with nested keys joined by underscores:
//
//	workers: 8
//	mode: compress
//	byte_order: little
//	config_source:
//	  kind: dir
//	  path: ./configs
//	analysis:
//	  codecs: [zstd, huffman, fse]
//
//	GENOSTORE_WORKERS=4 GENOSTORE_CONFIG_SOURCE_PATH=/tmp/configs genostore-demo
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/arloliu/genostore/container"
	"github.com/arloliu/genostore/endian"
	"github.com/arloliu/genostore/format"
	"github.com/arloliu/genostore/store"
	"github.com/arloliu/genostore/transform"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GENOSTORE"

// Config source kinds.
const (
	SourceNone      = "none"
	SourceMemory    = "memory"
	SourceDir       = "dir"
	SourceContainer = "container"
)

// Config holds the settings of one genostore run.
type Config struct {
	// Workers is the Storeman worker count; 0 means GOMAXPROCS.
	Workers   int    `mapstructure:"workers"`
	Mode      string `mapstructure:"mode"`
	Verify    bool   `mapstructure:"verify"`
	ByteOrder string `mapstructure:"byte_order"`
	LogLevel  string `mapstructure:"log_level"`

	ConfigSource SourceConfig   `mapstructure:"config_source"`
	Analysis     AnalysisConfig `mapstructure:"analysis"`
}

// SourceConfig selects where transform configs are loaded from and saved to.
type SourceConfig struct {
	Kind string `mapstructure:"kind"`
	// Path is the config directory for "dir" and the container file for "container".
	Path string `mapstructure:"path"`
}

// AnalysisConfig restricts the search space of config derivation. Empty lists mean
// every registered type.
type AnalysisConfig struct {
	Transforms    []string `mapstructure:"transforms"`
	Binarizations []string `mapstructure:"binarizations"`
	Codecs        []string `mapstructure:"codecs"`
	SampleLimit   int      `mapstructure:"sample_limit"`
	MatchWindow   uint64   `mapstructure:"match_window"`
	RLEGuard      uint64   `mapstructure:"rle_guard"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 0)
	v.SetDefault("mode", store.ModeCompress.String())
	v.SetDefault("verify", false)
	v.SetDefault("byte_order", "little")
	v.SetDefault("log_level", logrus.InfoLevel.String())
	v.SetDefault("config_source.kind", SourceNone)
	v.SetDefault("config_source.path", "")
	v.SetDefault("analysis.transforms", []string{})
	v.SetDefault("analysis.binarizations", []string{})
	v.SetDefault("analysis.codecs", []string{})
	v.SetDefault("analysis.sample_limit", transform.DefaultSampleLimit)
	v.SetDefault("analysis.match_window", transform.DefaultMatchWindow)
	v.SetDefault("analysis.rle_guard", transform.DefaultRLEGuard)
}

// Load reads the config file at path, if any, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks every field that later conversions would reject.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := store.ParseMode(c.Mode); err != nil {
		return err
	}
	if _, err := endian.Parse(c.ByteOrder); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.ConfigSource.Kind {
	case SourceNone, SourceMemory:
	case SourceDir, SourceContainer:
		if c.ConfigSource.Path == "" {
			return fmt.Errorf("config_source.path is required for kind %q", c.ConfigSource.Kind)
		}
	default:
		return fmt.Errorf("unknown config_source.kind %q", c.ConfigSource.Kind)
	}

	if c.Analysis.SampleLimit < 0 {
		return fmt.Errorf("analysis.sample_limit must not be negative, got %d", c.Analysis.SampleLimit)
	}
	_, err := c.EngineOptions()

	return err
}

// EngineOptions converts the analysis section into transform engine options.
func (c *Config) EngineOptions() ([]transform.Option, error) {
	a := c.Analysis

	transforms, err := parseAll(a.Transforms, format.ParseTransform)
	if err != nil {
		return nil, fmt.Errorf("analysis.transforms: %w", err)
	}
	binarizations, err := parseAll(a.Binarizations, format.ParseBinarization)
	if err != nil {
		return nil, fmt.Errorf("analysis.binarizations: %w", err)
	}
	codecs, err := parseAll(a.Codecs, format.ParseCompression)
	if err != nil {
		return nil, fmt.Errorf("analysis.codecs: %w", err)
	}

	var opts []transform.Option
	if len(transforms) > 0 {
		opts = append(opts, transform.WithTransforms(transforms...))
	}
	if len(binarizations) > 0 {
		opts = append(opts, transform.WithBinarizations(binarizations...))
	}
	if len(codecs) > 0 {
		opts = append(opts, transform.WithCodecs(codecs...))
	}
	if a.SampleLimit > 0 {
		opts = append(opts, transform.WithSampleLimit(a.SampleLimit))
	}
	if a.MatchWindow > 0 {
		opts = append(opts, transform.WithMatchWindow(a.MatchWindow))
	}
	if a.RLEGuard > 0 {
		opts = append(opts, transform.WithRLEGuard(a.RLEGuard))
	}

	return opts, nil
}

// StoreOptions builds the Storeman options described by c, logging to logger. The
// returned closer releases the config source and must be called once the Storeman is
// closed.
func (c *Config) StoreOptions(logger logrus.FieldLogger) ([]store.Option, io.Closer, error) {
	mode, err := store.ParseMode(c.Mode)
	if err != nil {
		return nil, nil, err
	}
	order, err := endian.Parse(c.ByteOrder)
	if err != nil {
		return nil, nil, err
	}
	engineOpts, err := c.EngineOptions()
	if err != nil {
		return nil, nil, err
	}
	engine, err := transform.NewEngine(engineOpts...)
	if err != nil {
		return nil, nil, err
	}

	opts := []store.Option{
		store.WithMode(mode),
		store.WithVerify(c.Verify),
		store.WithEngine(engine),
		store.WithContainerOptions(container.WithByteOrder(order)),
	}
	if c.Workers > 0 {
		opts = append(opts, store.WithWorkers(c.Workers))
	}
	if logger != nil {
		opts = append(opts, store.WithLogger(logger))
	}

	var closer io.Closer = nopCloser{}
	switch c.ConfigSource.Kind {
	case SourceMemory:
		opts = append(opts, store.WithSource(store.NewMemorySource()))
	case SourceDir:
		opts = append(opts, store.WithSource(store.NewDirSource(c.ConfigSource.Path)))
	case SourceContainer:
		r, err := container.OpenFile(c.ConfigSource.Path, container.WithByteOrder(order))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, store.WithSource(store.NewContainerSource(r)))
		closer = r
	}

	return opts, closer, nil
}

// Logger returns a logrus logger at the configured level writing text to stderr.
func (c *Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(level)

	return logger, nil
}

func parseAll[T any](names []string, parse func(string) (T, error)) ([]T, error) {
	out := make([]T, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		v, err := parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
