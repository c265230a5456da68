package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "Sources", cfg.Project.SourcesDir)
	assert.Equal(t, "Assets", cfg.Project.AssetsDir)
	assert.Equal(t, "public", cfg.Project.OutputDir)
	assert.Equal(t, "swift", cfg.Toolchain.Command)
	assert.Equal(t, []string{"build"}, cfg.Toolchain.CompileArgs)
	assert.Equal(t, []string{"run"}, cfg.Toolchain.RunArgs)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.PollInterval)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.True(t, cfg.Dashboard.Enabled)

	assert.Equal(t, filepath.Join("public", "index.html"), cfg.ArtifactPath())
	assert.Equal(t, "Sources", cfg.SourcesPath())
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "overrides",
			setup: func(v *viper.Viper) {
				v.Set("server.port", 8080)
				v.Set("watch.debounce", "500ms")
				v.Set("toolchain.command", "/opt/swift/bin/swift")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
				assert.Equal(t, "/opt/swift/bin/swift", cfg.Toolchain.Command)
			},
		},
		{
			name: "log-level flag wins",
			setup: func(v *viper.Viper) {
				v.Set("log-level", "debug")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Log.Level)
			},
		},
		{
			name:        "invalid port type",
			setup:       func(v *viper.Viper) { v.Set("server.port", "invalid_port") },
			expectError: true,
		},
		{
			name:        "port out of range",
			setup:       func(v *viper.Viper) { v.Set("server.port", 70000) },
			expectError: true,
		},
		{
			name:        "poll interval too slow",
			setup:       func(v *viper.Viper) { v.Set("watch.poll_interval", "500ms") },
			expectError: true,
		},
		{
			name:        "debounce too short",
			setup:       func(v *viper.Viper) { v.Set("watch.debounce", "100ms") },
			expectError: true,
		},
		{
			name:        "empty toolchain",
			setup:       func(v *viper.Viper) { v.Set("toolchain.command", " ") },
			expectError: true,
		},
		{
			name:        "traversing output dir",
			setup:       func(v *viper.Viper) { v.Set("project.output_dir", "../public") },
			expectError: true,
		},
		{
			name:        "absolute sources dir",
			setup:       func(v *viper.Viper) { v.Set("project.sources_dir", "/etc") },
			expectError: true,
		},
		{
			name:        "artifact must be html",
			setup:       func(v *viper.Viper) { v.Set("project.artifact", "index.txt") },
			expectError: true,
		},
		{
			name:        "unknown log format",
			setup:       func(v *viper.Viper) { v.Set("log.format", "xml") },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			cfg, err := LoadFrom(v)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".shtml.yml")
	content := `server:
  port: 4000
project:
  output_dir: dist
watch:
  ignore:
    - "*.generated.swift"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "dist", cfg.Project.OutputDir)
	assert.Equal(t, []string{"*.generated.swift"}, cfg.Watch.Ignore)
}

func TestLoadUsesGlobalViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("server.port", 5050)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5050, cfg.Server.Port)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3000, cfg.Server.Port)
}
