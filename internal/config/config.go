package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"cvlab/internal/logger"

	"gopkg.in/yaml.v3"
)

// Stage names accepted in the stages list, in execution order.
const (
	StageFiltering = "filtering"
	StageEdge      = "edge"
	StageFeatures  = "features"
	StageGeometry  = "geometry"
)

var AllStages = []string{StageFiltering, StageEdge, StageFeatures, StageGeometry}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	OutputRoot    string   `yaml:"output_root"`
	PhotoPath     string   `yaml:"photo_path"`
	SamplesDir    string   `yaml:"samples_dir"`
	KeepOriginals bool     `yaml:"keep_originals"`
	Stages        []string `yaml:"stages"`
	Log           Log      `yaml:"log"`
}

func Default() Config {
	return Config{
		OutputRoot:    ".",
		PhotoPath:     "my_photo.jpg",
		KeepOriginals: true,
		Stages:        append([]string(nil), AllStages...),
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("CVLAB_OUTPUT"); v != "" {
		c.OutputRoot = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if getenv("DEBUG") == "1" {
		c.Log.Level = "debug"
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.OutputRoot) == "" {
		return fmt.Errorf("output_root must not be empty")
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Stages))
	for _, s := range c.Stages {
		if !IsStage(s) {
			return fmt.Errorf("unknown stage %q (want one of %s)", s, strings.Join(AllStages, ", "))
		}
		if seen[s] {
			return fmt.Errorf("stage %q listed twice", s)
		}
		seen[s] = true
	}

	return nil
}

// Enabled reports whether the named stage should run.
func (c Config) Enabled(stage string) bool {
	for _, s := range c.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

func (c Config) LogLevel() logger.LogLevel {
	level, _ := logger.ParseLevel(c.Log.Level)
	return level
}

func IsStage(name string) bool {
	for _, s := range AllStages {
		if s == name {
			return true
		}
	}
	return false
}
