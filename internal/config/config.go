// Package config loads engine settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Scene   SceneConfig   `yaml:"scene" toml:"scene"`
	Frame   FrameConfig   `yaml:"frame" toml:"frame"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

type SceneConfig struct {
	DestroyPolicy   string `yaml:"destroy_policy" toml:"destroy_policy"` // "cascade" or "orphan"
	InitialCapacity int    `yaml:"initial_capacity" toml:"initial_capacity"`
	MaxEntities     uint32 `yaml:"max_entities" toml:"max_entities"`     // 0 = allocator default
	MaxGeneration   uint32 `yaml:"max_generation" toml:"max_generation"` // 0 = allocator default
}

type FrameConfig struct {
	Workers  int           `yaml:"workers" toml:"workers"`
	TickRate time.Duration `yaml:"tick_rate" toml:"tick_rate"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" toml:"level"`
	Encoding string `yaml:"encoding" toml:"encoding"` // "json" or "console"
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		Scene: SceneConfig{
			DestroyPolicy:   "cascade",
			InitialCapacity: 1024,
		},
		Frame: FrameConfig{
			Workers:  4,
			TickRate: 16 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load reads path on top of Default. The format is picked by extension:
// .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext and validates the result.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %s", ErrInvalidConfig, undecoded[0])
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Scene.DestroyPolicy {
	case "cascade", "orphan":
	default:
		return fmt.Errorf("%w: scene.destroy_policy %q", ErrInvalidConfig, c.Scene.DestroyPolicy)
	}
	if c.Scene.InitialCapacity < 0 {
		return fmt.Errorf("%w: scene.initial_capacity must not be negative", ErrInvalidConfig)
	}
	if c.Frame.Workers < 1 {
		return fmt.Errorf("%w: frame.workers must be at least 1", ErrInvalidConfig)
	}
	if c.Frame.TickRate < 0 {
		return fmt.Errorf("%w: frame.tick_rate must not be negative", ErrInvalidConfig)
	}
	return nil
}
