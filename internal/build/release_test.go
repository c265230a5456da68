package build_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/conneroisu/shtml/internal/build"
	"github.com/conneroisu/shtml/internal/build/mocks"
	shtmlerrors "github.com/conneroisu/shtml/internal/errors"
)

const manifest = `// swift-tools-version: 5.9
import PackageDescription

let package = Package(
    name: "Blog",
    targets: [
        .executableTarget(name: "Blog", dependencies: ["SHTML"]),
    ]
)
`

func TestExecutableName(t *testing.T) {
	name, ok := build.ExecutableName(manifest)
	require.True(t, ok)
	assert.Equal(t, "Blog", name)

	_, ok = build.ExecutableName("let package = Package(name: \"x\")")
	assert.False(t, ok)

	fs := afero.NewMemMapFs()
	assert.Equal(t, build.DefaultProduct, build.ProductName(fs, "Package.swift"))
	require.NoError(t, afero.WriteFile(fs, "Package.swift", []byte(manifest), 0o644))
	assert.Equal(t, "Blog", build.ProductName(fs, "Package.swift"))
}

func TestReleaseMissingManifest(t *testing.T) {
	ctrl := gomock.NewController(t)
	tc := mocks.NewMockToolchain(ctrl)

	_, err := build.Release(context.Background(), afero.NewMemMapFs(), tc, "Package.swift", "public/index.html")
	require.Error(t, err)
	assert.True(t, shtmlerrors.HasErrorType(err, shtmlerrors.ErrorTypeToolchain))
}

func TestReleaseFailsFast(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "Package.swift", []byte(manifest), 0o644))

	ctrl := gomock.NewController(t)
	tc := mocks.NewMockToolchain(ctrl)
	tc.EXPECT().Compile(gomock.Any()).Return(build.Result{ExitCode: 1, Stderr: "boom"}, nil)

	_, err := build.Release(context.Background(), fs, tc, "Package.swift", "public/index.html")
	require.Error(t, err)
	assert.Equal(t, "Build Error:\n\nboom", build.ReleaseOutput(err))
}

func TestReleaseSummary(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "Package.swift", []byte(manifest), 0o644))

	ctrl := gomock.NewController(t)
	tc := mocks.NewMockToolchain(ctrl)
	tc.EXPECT().Compile(gomock.Any()).Return(build.Result{Duration: time.Second}, nil)
	tc.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) (build.Result, error) {
		return build.Result{Duration: 2 * time.Second},
			afero.WriteFile(fs, "public/index.html", make([]byte, 2048), 0o644)
	})

	summary, err := build.Release(context.Background(), fs, tc, "Package.swift", "public/index.html")
	require.NoError(t, err)
	assert.Equal(t, time.Second, summary.Compile)
	assert.Equal(t, 2*time.Second, summary.Generate)
	assert.Equal(t, int64(2048), summary.Size)
	assert.Equal(t, "public/index.html", summary.Artifact)
}

func TestWithRelease(t *testing.T) {
	base := &build.ExecToolchain{Command: "swift", CompileArgs: []string{"build"}, RunArgs: []string{"run"}}
	release := base.WithRelease([]string{"--configuration", "release"}, "Blog")

	assert.Equal(t, []string{"build", "--configuration", "release"}, release.CompileArgs)
	assert.Equal(t, []string{"run", "--configuration", "release", "Blog"}, release.RunArgs)
	assert.Equal(t, []string{"build"}, base.CompileArgs)
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestExecToolchain(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	compile := writeScript(t, dir, "compile.sh", "echo out\necho err 1>&2\nexit 3")
	run := writeScript(t, dir, "run.sh", "echo done")

	tc := &build.ExecToolchain{
		Command:     "sh",
		CompileArgs: []string{compile},
		RunArgs:     []string{run},
		Dir:         dir,
	}

	res, err := tc.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)

	res, err = tc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "done\n", res.Stdout)
}

func TestExecToolchainRejectsShellSyntax(t *testing.T) {
	tc := &build.ExecToolchain{
		Command:     "sh",
		CompileArgs: []string{"-c", "echo out; exit 3"},
		Dir:         t.TempDir(),
	}

	_, err := tc.Compile(context.Background())
	require.Error(t, err)
	assert.True(t, shtmlerrors.HasErrorType(err, shtmlerrors.ErrorTypeToolchain))
	assert.Contains(t, err.Error(), "invalid argument")
}

func TestExecToolchainErrors(t *testing.T) {
	missing := &build.ExecToolchain{Command: "shtml-definitely-missing-binary"}
	_, err := missing.Compile(context.Background())
	require.Error(t, err)
	assert.True(t, shtmlerrors.HasErrorType(err, shtmlerrors.ErrorTypeToolchain))

	bad := &build.ExecToolchain{Command: "swift", CompileArgs: []string{"build; rm -rf /"}}
	_, err = bad.Compile(context.Background())
	require.Error(t, err)
}

func TestExecToolchainTimeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	tc := &build.ExecToolchain{Command: "sleep", CompileArgs: []string{"5"}, Timeout: 50 * time.Millisecond}

	_, err := tc.Compile(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, &shtmlerrors.ShtmlError{Type: shtmlerrors.ErrorTypeToolchain, Code: "TIMEOUT"})
}
