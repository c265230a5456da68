package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/shtml/internal/build"
	"github.com/conneroisu/shtml/internal/config"
	"github.com/conneroisu/shtml/internal/logging"
	"github.com/conneroisu/shtml/internal/monitoring"
	"github.com/conneroisu/shtml/internal/reload"
	"github.com/conneroisu/shtml/internal/state"
	"github.com/conneroisu/shtml/internal/version"
)

func testCommand(in string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(in))
	cmd.SetContext(context.Background())
	return cmd, &out
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"init", "dev", "build", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	for _, flag := range []string{"port", "host", "open", "no-tui"} {
		assert.NotNil(t, devCmd.Flags().Lookup(flag), "dev --%s", flag)
	}
	assert.NotNil(t, buildCmd.Flags().Lookup("output"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func TestInitCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd, out := testCommand("")
	require.NoError(t, runInit(cmd, []string{"MySite"}))

	assert.FileExists(t, filepath.Join("MySite", build.ManifestName))
	assert.FileExists(t, filepath.Join("MySite", "Sources", "MySite", "main.swift"))
	assert.DirExists(t, filepath.Join("MySite", "public"))
	assert.Contains(t, out.String(), "Created MySite")
	assert.Contains(t, out.String(), "cd MySite")

	err := runInit(cmd, []string{"MySite"})
	assert.Error(t, err, "existing directory")
}

func TestInitPromptsForName(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd, out := testCommand("Prompted\n")
	require.NoError(t, runInit(cmd, nil))

	assert.Contains(t, out.String(), "Project name: ")
	assert.DirExists(t, "Prompted")
}

func TestInitRejectsEmptyPrompt(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd, _ := testCommand("")
	assert.Error(t, runInit(cmd, nil))
}

func TestWriteConfig(t *testing.T) {
	cfg := config.Default()

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, cfg, "yaml"))
	assert.Contains(t, buf.String(), "debounce: 300ms")

	var decoded config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, cfg.Server, decoded.Server)
	assert.Equal(t, cfg.Project, decoded.Project)
	assert.Equal(t, cfg.Watch.Debounce, decoded.Watch.Debounce)
	assert.Equal(t, cfg.Toolchain.Timeout, decoded.Toolchain.Timeout)
	assert.Equal(t, cfg.Toolchain.ReleaseArgs, decoded.Toolchain.ReleaseArgs)

	buf.Reset()
	require.NoError(t, writeConfig(&buf, cfg, "json"))
	var generic map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &generic))
	assert.Contains(t, generic, "Server")

	assert.Error(t, writeConfig(&buf, cfg, "toml"))
}

func TestVersionCommand(t *testing.T) {
	t.Cleanup(func() { versionFormat, versionShort, versionDetailed = "text", false, false })

	cmd, out := testCommand("")
	versionShort = true
	require.NoError(t, runVersion(cmd, nil))
	assert.Equal(t, version.GetShortVersion()+"\n", out.String())

	out.Reset()
	versionShort = false
	versionFormat = "json"
	require.NoError(t, runVersion(cmd, nil))
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, version.GetVersion(), info.Version)

	versionFormat = "xml"
	assert.Error(t, runVersion(cmd, nil))
}

func TestReleaseWithoutManifest(t *testing.T) {
	cfg := config.Default()
	fs := afero.NewMemMapFs()

	_, err := runRelease(context.Background(), cfg, fs, cfg.OutputPath(), logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), build.ManifestName)
}

func TestReleaseCopiesSiteAndAssets(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	cfg := config.Default()
	cfg.Toolchain.Command = "true"

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, build.ManifestName, []byte(`.executableTarget(name: "Site")`), 0o644))
	require.NoError(t, afero.WriteFile(fs, cfg.ArtifactPath(), []byte("<html></html>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(cfg.AssetsPath(), "styles.css"), []byte("body{}"), 0o644))

	summary, err := runRelease(context.Background(), cfg, fs, "dist", logging.Nop())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("dist", "index.html"), summary.Artifact)
	assert.EqualValues(t, len("<html></html>"), summary.Size)

	exists, err := afero.Exists(fs, filepath.Join("dist", "index.html"))
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = afero.Exists(fs, filepath.Join("dist", "Assets", "styles.css"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFormatReleaseSummary(t *testing.T) {
	out := formatReleaseSummary(build.ReleaseSummary{Artifact: "public/index.html", Size: 2048})
	assert.Contains(t, out, "Release build complete")
	assert.Contains(t, out, "public/index.html")
	assert.Contains(t, out, "2.0 kB")
}

func TestHealthChecks(t *testing.T) {
	store := state.NewStore()
	runner := build.NewRunnerFs(afero.NewMemMapFs(), build.NewExecToolchain(config.Default()), config.Default(), nil)
	check := buildHealthCheck(store, runner)

	assert.Equal(t, monitoring.HealthStatusHealthy, check(context.Background()).Status)

	require.NoError(t, store.BeginBuild("main.swift"))
	require.NoError(t, store.Finish(state.BuildState{Kind: state.Failed, Message: "boom"}))
	got := check(context.Background())
	assert.Equal(t, monitoring.HealthStatusDegraded, got.Status)
	assert.Equal(t, "failed, no builds", got.Message)

	hub := reload.NewHub()
	defer hub.Close()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)
	assert.Equal(t, "1 subscribers", subscriberHealthCheck(hub)(context.Background()).Message)
}

func TestNewLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Project.Root = dir

	logger, closeLog, err := newLogger(cfg, false)
	require.NoError(t, err)
	logger.Info(context.Background(), "hello file")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(filepath.Join(dir, cfg.Log.File))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

func TestCheckToolchain(t *testing.T) {
	cfg := config.Default()
	cfg.Toolchain.Command = "shtml-no-such-toolchain"

	err := checkToolchain(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Install the toolchain")
	assert.Contains(t, err.Error(), "SHTML_TOOLCHAIN_COMMAND")

	if _, lookErr := exec.LookPath("true"); lookErr == nil {
		cfg.Toolchain.Command = "true"
		assert.NoError(t, checkToolchain(cfg))
	}
}
