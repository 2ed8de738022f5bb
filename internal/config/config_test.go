package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every CELLMORPH_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfig, EnvBackend, EnvWorkers, EnvLogLevel, EnvLogFormat,
		EnvLogFile, EnvAnnotationColor, EnvAnnotationThickness,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "native", cfg.Backend)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.Equal(t, "#000000", cfg.Annotation.Color)
	assert.Equal(t, 2, cfg.Annotation.Thickness)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Log.File)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoSources(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Backend, cfg.Backend)
	assert.Equal(t, Default().Annotation, cfg.Annotation)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "cellmorph.yaml", `
backend: native
workers: 3
annotation:
  color: "#ff0000"
  thickness: 4
log:
  level: debug
  format: json
  file: /tmp/cellmorph.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "#ff0000", cfg.Annotation.Color)
	assert.Equal(t, 4, cfg.Annotation.Thickness)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/cellmorph.log", cfg.Log.File)
	// Unset keys keep their defaults.
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
}

func TestLoad_EmptyYAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "empty.yaml", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "native", cfg.Backend)
}

func TestLoad_UnknownYAMLKey(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "bad.yaml", "aspect_threshold: 0.5\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "cellmorph.yaml", "workers: 3\nlog:\n  level: warn\n")
	t.Setenv(EnvWorkers, "5")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvAnnotationThickness, "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Annotation.Thickness)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "CELLMORPH_LOG_FORMAT=json\nCELLMORPH_WORKERS=7\n")
	t.Setenv(EnvWorkers, "2")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
	// The process environment wins over the env file.
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	clearEnv(t)

	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestLoad_InvalidEnvColor(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAnnotationColor, "#1234567")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "annotation color")
}

func TestLoad_InvalidEnvInteger(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvWorkers, "many")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvWorkers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"opencv backend", func(c *Config) { c.Backend = "opencv" }, ""},
		{"unknown backend", func(c *Config) { c.Backend = "cuda" }, "unknown backend"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"short color", func(c *Config) { c.Annotation.Color = "#12345" }, "annotation color"},
		{"trailing garbage color", func(c *Config) { c.Annotation.Color = "#00000zz" }, "annotation color"},
		{"short form color", func(c *Config) { c.Annotation.Color = "f00" }, ""},
		{"zero thickness", func(c *Config) { c.Annotation.Thickness = 0 }, "thickness"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestYAML_RoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Workers = 6
	cfg.Annotation.Color = "#00ff00"

	data, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: native")

	path := writeFile(t, "dump.yaml", string(data))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
