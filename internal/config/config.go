// Package config loads reanchor settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/antchfx/xpath"
	"gopkg.in/yaml.v3"

	"github.com/roach88/reanchor/internal/dom"
)

// Config holds settings shared by the CLI commands.
type Config struct {
	// Database is the annotation store path.
	Database string `yaml:"database"`

	// Debounce is the settling period of the change watcher.
	Debounce time.Duration `yaml:"debounce"`

	// PollInterval is the coarse fallback poll. Zero disables it.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Exclude lists XPath expressions naming exclusion zones.
	Exclude []string `yaml:"exclude"`

	// Skip lists elements whose text is never indexed.
	Skip []string `yaml:"skip"`

	// ArtifactAttr is the attribute that carries artifact ids.
	ArtifactAttr string `yaml:"artifact_attr"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Database:     "reanchor.db",
		Debounce:     dom.DefaultDebounce,
		PollInterval: 2 * time.Second,
		Skip:         append([]string(nil), dom.DefaultSkip...),
		ArtifactAttr: dom.DefaultArtifactAttr,
	}
}

// Load reads a config file. Keys omitted from the file keep their
// defaults; unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML settings over the defaults.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must be non-negative, got %s", c.Debounce)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must be non-negative, got %s", c.PollInterval)
	}
	if c.ArtifactAttr == "" {
		return fmt.Errorf("artifact_attr is required")
	}
	for i, expr := range c.Exclude {
		if _, err := xpath.Compile(expr); err != nil {
			return fmt.Errorf("exclude[%d]: invalid xpath %q: %w", i, expr, err)
		}
	}
	for i, tag := range c.Skip {
		if tag == "" {
			return fmt.Errorf("skip[%d]: element name is empty", i)
		}
	}
	return nil
}

// DocumentOptions returns the dom options these settings imply.
func (c Config) DocumentOptions() []dom.Option {
	opts := []dom.Option{
		dom.WithSkip(c.Skip...),
		dom.WithArtifactAttr(c.ArtifactAttr),
	}
	if len(c.Exclude) > 0 {
		opts = append(opts, dom.WithExclude(c.Exclude...))
	}
	return opts
}

// WatcherOptions returns the watcher options these settings imply.
func (c Config) WatcherOptions() []dom.WatcherOption {
	return []dom.WatcherOption{
		dom.WithDebounce(c.Debounce),
		dom.WithPollInterval(c.PollInterval),
	}
}
