package build

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"

	shtmlerrors "github.com/conneroisu/shtml/internal/errors"
)

// ManifestName is the package manifest every project carries.
const ManifestName = "Package.swift"

// DefaultProduct is used when the manifest declares no executable target.
const DefaultProduct = "Website"

var executableTarget = regexp.MustCompile(`\.executableTarget\s*\(.*?name:\s*"([^"]+)"`)

// ExecutableName extracts the first executable target name from a manifest.
func ExecutableName(manifest string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(manifest))
	for scanner.Scan() {
		if m := executableTarget.FindStringSubmatch(scanner.Text()); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ReleaseSummary describes a finished production build.
type ReleaseSummary struct {
	Compile  time.Duration
	Generate time.Duration
	Total    time.Duration
	Artifact string
	Size     int64
}

// Release runs a production build and fails fast on the first failed step.
// The toolchain is expected to carry the release flags already.
func Release(ctx context.Context, fs afero.Fs, toolchain Toolchain, manifest, artifact string) (ReleaseSummary, error) {
	var summary ReleaseSummary
	start := time.Now()

	if _, err := fs.Stat(manifest); err != nil {
		if os.IsNotExist(err) {
			return summary, shtmlerrors.NewToolchainError("MANIFEST",
				ManifestName+" not found, are you in a project directory?", nil)
		}
		return summary, shtmlerrors.NewToolchainError("MANIFEST", "cannot read "+ManifestName, err)
	}

	compiled, err := toolchain.Compile(ctx)
	if err != nil {
		return summary, err
	}
	if !compiled.Succeeded() {
		return summary, shtmlerrors.NewToolchainError("COMPILE", "build failed", nil).
			WithContext("output", CompileFailureMessage(compiled))
	}
	summary.Compile = compiled.Duration

	generated, err := toolchain.Run(ctx)
	if err != nil {
		return summary, err
	}
	if !generated.Succeeded() {
		return summary, shtmlerrors.NewToolchainError("RUN", "failed to generate HTML", nil).
			WithContext("output", RunFailureMessage(generated))
	}
	summary.Generate = generated.Duration

	summary.Total = time.Since(start)
	summary.Artifact = artifact
	if info, err := fs.Stat(artifact); err == nil {
		summary.Size = info.Size()
	}

	return summary, nil
}

// ReleaseOutput returns the captured toolchain output attached to a failed
// release, or the empty string.
func ReleaseOutput(err error) string {
	var se *shtmlerrors.ShtmlError
	if !errors.As(err, &se) || se.Context == nil {
		return ""
	}
	out, _ := se.Context["output"].(string)
	return out
}

// ReadManifest returns the manifest contents, or the empty string.
func ReadManifest(fs afero.Fs, path string) string {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return ""
	}
	return string(data)
}

// ProductName resolves the executable product for a manifest path.
func ProductName(fs afero.Fs, path string) string {
	if name, ok := ExecutableName(ReadManifest(fs, path)); ok {
		return name
	}
	return DefaultProduct
}

func (s ReleaseSummary) String() string {
	return fmt.Sprintf("compiled in %.2fs, generated in %.2fs, total %.2fs",
		s.Compile.Seconds(), s.Generate.Seconds(), s.Total.Seconds())
}
