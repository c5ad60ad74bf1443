package pkg

import (
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"cuisine/pkg/io"
	"cuisine/pkg/model"
)

// Config holds the settings shared by the command line and the HTTP shell.
type Config struct {
	DataFile  string `yaml:"data_file"`
	Encoding  string `yaml:"encoding"`
	Delimiter string `yaml:"delimiter"`

	Trees     int     `yaml:"trees"`
	TestRatio float64 `yaml:"test_ratio"`
	Seed      uint64  `yaml:"seed"`
	MaxDepth  int     `yaml:"max_depth"`
	Workers   int     `yaml:"workers"`

	Addr        string `yaml:"addr"`
	PreviewRows int    `yaml:"preview_rows"`

	TableCacheSize int `yaml:"table_cache_size"`
	ModelCacheSize int `yaml:"model_cache_size"`
}

func DefaultConfig() Config {
	return Config{
		DataFile:       "Dataset.csv",
		Encoding:       "utf-8",
		Delimiter:      ",",
		Trees:          200,
		TestRatio:      0.2,
		Seed:           model.DefaultSeed,
		Addr:           ":8080",
		PreviewRows:    10,
		TableCacheSize: 4,
		ModelCacheSize: 16,
	}
}

// LoadConfig reads a YAML file over the defaults. Keys absent from the file keep
// their default value.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

func (c Config) Validate() error {
	switch {
	case c.DataFile == "":
		return fmt.Errorf("data file not set: %w", model.ErrInvalidParameter)
	case c.Trees < 1:
		return fmt.Errorf("tree count must be at least 1, got %d: %w", c.Trees, model.ErrInvalidParameter)
	case !(c.TestRatio > 0 && c.TestRatio < 1):
		return fmt.Errorf("test ratio must be between 0 and 1, got %v: %w", c.TestRatio, model.ErrInvalidParameter)
	case c.MaxDepth < 0:
		return fmt.Errorf("max depth cannot be negative: %w", model.ErrInvalidParameter)
	case utf8.RuneCountInString(c.Delimiter) > 1:
		return fmt.Errorf("delimiter must be a single character, got %q: %w", c.Delimiter, model.ErrInvalidParameter)
	case c.TableCacheSize < 1 || c.ModelCacheSize < 1:
		return fmt.Errorf("cache sizes must be positive: %w", model.ErrInvalidParameter)
	}
	return nil
}

// LoadOptions returns the reader options of the data file.
func (c Config) LoadOptions() io.LoadOptions {
	opts := io.LoadOptions{Encoding: c.Encoding}
	if c.Delimiter != "" {
		opts.Comma, _ = utf8.DecodeRuneInString(c.Delimiter)
	}
	return opts
}

// Params returns the run parameters described by the config.
func (c Config) Params() Params {
	return Params{
		DataFile:  c.DataFile,
		Load:      c.LoadOptions(),
		Trees:     c.Trees,
		TestRatio: c.TestRatio,
		Seed:      c.Seed,
		MaxDepth:  c.MaxDepth,
		Workers:   c.Workers,
	}
}
