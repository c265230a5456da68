package scaffolding

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/shtml/internal/build"
	"github.com/conneroisu/shtml/internal/config"
	shtmlerrors "github.com/conneroisu/shtml/internal/errors"
)

func TestValidateProjectName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"MySite", true},
		{"my-site", true},
		{".", true},
		{"", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"/abs", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProjectName(tt.name)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, shtmlerrors.HasErrorType(err, shtmlerrors.ErrorTypeScaffold))
		})
	}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()

	res, err := Generate(dir, " MySite ")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "MySite"), res.Root)
	assert.Equal(t, "MySite", res.Target)
	assert.False(t, res.InPlace)

	for _, d := range []string{"Sources/MySite", "Assets", "public"} {
		info, err := os.Stat(filepath.Join(res.Root, d))
		require.NoError(t, err, d)
		assert.True(t, info.IsDir(), d)
	}
	for _, f := range res.Files {
		_, err := os.Stat(filepath.Join(res.Root, f))
		assert.NoError(t, err, f)
	}

	manifest, err := os.ReadFile(filepath.Join(res.Root, build.ManifestName))
	require.NoError(t, err)
	product, ok := build.ExecutableName(string(manifest))
	require.True(t, ok)
	assert.Equal(t, "MySite", product)

	mainSwift, err := os.ReadFile(filepath.Join(res.Root, "Sources", "MySite", "main.swift"))
	require.NoError(t, err)
	assert.Contains(t, string(mainSwift), "site.generate()")

	ignore, err := os.ReadFile(filepath.Join(res.Root, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(ignore), "public/index.html")
}

func TestGeneratedConfigLoads(t *testing.T) {
	res, err := Generate(t.TempDir(), "Blog")
	require.NoError(t, err)

	v := viper.New()
	v.SetConfigFile(filepath.Join(res.Root, ConfigFile))
	require.NoError(t, v.ReadInConfig())

	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)

	defaults := config.Default()
	assert.Equal(t, defaults.Server, cfg.Server)
	assert.Equal(t, defaults.Project, cfg.Project)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, defaults.Watch.PollInterval, cfg.Watch.PollInterval)
}

func TestGenerateRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Taken"), 0o755))

	_, err := Generate(dir, "Taken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestGenerateInPlace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "portfolio")
	require.NoError(t, os.Mkdir(dir, 0o755))

	res, err := Generate(dir, CurrentDir)
	require.NoError(t, err)
	assert.True(t, res.InPlace)
	assert.Equal(t, dir, res.Root)
	assert.Equal(t, "portfolio", res.Target)

	_, err = os.Stat(filepath.Join(dir, "Sources", "portfolio", "main.swift"))
	require.NoError(t, err)

	_, err = Generate(dir, CurrentDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), build.ManifestName+" already exists")
}
