// Package config loads cellmorph-mcp settings from a YAML file, an optional .env
// file and CELLMORPH_* environment variables, in increasing order of precedence.
//
// Only operational settings live here. The classification constants are fixed
// in package cells and cannot be configured.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/cellmorph-mcp/internal/imaging"
)

// Environment variables read by Load.
const (
	EnvConfig              = "CELLMORPH_CONFIG"
	EnvBackend             = "CELLMORPH_BACKEND"
	EnvWorkers             = "CELLMORPH_WORKERS"
	EnvLogLevel            = "CELLMORPH_LOG_LEVEL"
	EnvLogFormat           = "CELLMORPH_LOG_FORMAT"
	EnvLogFile             = "CELLMORPH_LOG_FILE"
	EnvAnnotationColor     = "CELLMORPH_ANNOTATION_COLOR"
	EnvAnnotationThickness = "CELLMORPH_ANNOTATION_THICKNESS"
)

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

// Config holds all runtime settings.
type Config struct {
	// Backend selects the contour backend: "native" or "opencv".
	Backend string `yaml:"backend"`

	// Workers bounds concurrent threshold stripes.
	Workers int `yaml:"workers"`

	Annotation Annotation `yaml:"annotation"`
	Log        Log        `yaml:"log"`
}

// Annotation styles the outlines drawn around sickle cells.
type Annotation struct {
	Color     string `yaml:"color"` // hex, e.g. "#000000"
	Thickness int    `yaml:"thickness"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`  // zerolog level name
	Format string `yaml:"format"` // "json" or "console"

	// File, when set, receives JSON logs in addition to stderr and is rotated.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: "native",
		Workers: defaultWorkers(),
		Annotation: Annotation{
			Color:     "#000000",
			Thickness: 2,
		},
		Log: Log{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 2,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// defaultWorkers is the number of logical CPUs.
func defaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Load builds the effective configuration.
//
// Defaults are overlaid by the YAML file at path (skipped when path is empty),
// then by environment variables. Variables missing from the process
// environment are looked up in envFiles; a missing env file is not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	for _, f := range envFiles {
		vals, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", f, err)
		}
		for k, v := range vals {
			if _, ok := dotenv[k]; !ok {
				dotenv[k] = v
			}
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}

	str(EnvBackend, &c.Backend)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvLogFormat, &c.Log.Format)
	str(EnvLogFile, &c.Log.File)
	str(EnvAnnotationColor, &c.Annotation.Color)
	if err := num(EnvWorkers, &c.Workers); err != nil {
		return err
	}
	return num(EnvAnnotationThickness, &c.Annotation.Thickness)
}

// Validate checks that every setting has a usable value.
func (c *Config) Validate() error {
	switch c.Backend {
	case "native", "opencv":
	default:
		return fmt.Errorf("unknown backend %q (want native or opencv)", c.Backend)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := imaging.ParseColor(c.Annotation.Color); err != nil {
		return fmt.Errorf("annotation color: %w", err)
	}
	if c.Annotation.Thickness < 1 {
		return fmt.Errorf("annotation thickness must be at least 1, got %d", c.Annotation.Thickness)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q (want json or console)", c.Log.Format)
	}
	return nil
}

// YAML renders the configuration in the same format Load reads.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
