package build

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/conneroisu/shtml/internal/config"
	shtmlerrors "github.com/conneroisu/shtml/internal/errors"
	"github.com/conneroisu/shtml/internal/logging"
	"github.com/conneroisu/shtml/internal/monitoring"
	"github.com/conneroisu/shtml/internal/state"
)

const (
	compileFailedPrefix = "Build Error:\n\n"
	compileNoOutput     = "Build failed with no output."
	runFailedPrefix     = "Generation Error:\n\n"
	runNoOutput         = "Generation failed with no output."
)

// Outcome is the classified result of one build attempt.
type Outcome struct {
	Success      bool
	Message      string
	Duration     time.Duration
	ArtifactSize int64
	Fingerprint  string
	Diagnostics  []shtmlerrors.Diagnostic
}

// State converts the outcome into the terminal build state.
func (o Outcome) State() state.BuildState {
	if !o.Success {
		return state.BuildState{Kind: state.Failed, Message: o.Message, Duration: o.Duration}
	}
	return state.BuildState{
		Kind:         state.Success,
		Duration:     o.Duration,
		ArtifactSize: o.ArtifactSize,
		Fingerprint:  o.Fingerprint,
	}
}

// Runner compiles and runs the project, then mirrors assets.
type Runner struct {
	toolchain Toolchain
	fs        afero.Fs
	assetsDir string
	outputDir string
	artifact  string
	stats     *Stats
	logger    logging.Logger
}

// NewRunner creates a runner that uses the OS filesystem.
func NewRunner(toolchain Toolchain, cfg *config.Config, logger logging.Logger) *Runner {
	return NewRunnerFs(afero.NewOsFs(), toolchain, cfg, logger)
}

// NewRunnerFs creates a runner over fs.
func NewRunnerFs(fs afero.Fs, toolchain Toolchain, cfg *config.Config, logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{
		toolchain: toolchain,
		fs:        fs,
		assetsDir: cfg.AssetsPath(),
		outputDir: cfg.OutputPath(),
		artifact:  cfg.ArtifactPath(),
		stats:     NewStats(),
		logger:    logger.WithComponent("build"),
	}
}

// Run performs one full build attempt. It never returns an error: every
// failure is folded into a failed Outcome.
func (r *Runner) Run(ctx context.Context) Outcome {
	start := time.Now()
	outcome := r.run(ctx)
	outcome.Duration = time.Since(start)

	monitoring.RecordBuild(outcome.Success, outcome.Duration)
	r.stats.Record(outcome)
	if outcome.Success {
		r.logger.Info(ctx, "Build complete",
			"duration", outcome.Duration.Round(time.Millisecond),
			"size", humanize.Bytes(uint64(outcome.ArtifactSize)))
	} else {
		r.logger.Warn(ctx, nil, "Build failed",
			"duration", outcome.Duration.Round(time.Millisecond),
			"errors", shtmlerrors.CountErrors(outcome.Diagnostics))
	}
	return outcome
}

// Stats returns the outcomes recorded by Run.
func (r *Runner) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

func (r *Runner) run(ctx context.Context) Outcome {
	if err := r.fs.MkdirAll(r.outputDir, 0o755); err != nil {
		r.logger.Warn(ctx, err, "Failed to create output directory", "dir", r.outputDir)
	}

	compiled, err := r.toolchain.Compile(ctx)
	if err != nil {
		return Outcome{Message: compileFailedPrefix + err.Error()}
	}
	if !compiled.Succeeded() {
		return Outcome{
			Message:     CompileFailureMessage(compiled),
			Diagnostics: shtmlerrors.ParseDiagnostics(compiled.Stderr + "\n" + compiled.Stdout),
		}
	}
	r.logger.Debug(ctx, "Compilation successful", "duration", compiled.Duration)

	generated, err := r.toolchain.Run(ctx)
	if err != nil {
		return Outcome{Message: runFailedPrefix + err.Error()}
	}
	if !generated.Succeeded() {
		return Outcome{Message: RunFailureMessage(generated)}
	}

	outcome := Outcome{Success: true}
	outcome.ArtifactSize, outcome.Fingerprint, err = r.inspectArtifact()
	if err != nil {
		r.logger.Warn(ctx, err, "Generated artifact not readable", "path", r.artifact)
	}

	r.mirrorAssets(ctx)
	return outcome
}

// inspectArtifact returns the artifact size and its xxhash fingerprint.
func (r *Runner) inspectArtifact() (int64, string, error) {
	f, err := r.fs.Open(r.artifact)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, fmt.Sprintf("%016x", h.Sum64()), nil
}

func (r *Runner) mirrorAssets(ctx context.Context) {
	dst := filepath.Join(r.outputDir, filepath.Base(r.assetsDir))
	copied, err := MirrorDir(r.fs, r.assetsDir, dst)
	if err != nil {
		monitoring.AssetCopyFailuresTotal.Inc()
		r.logger.Warn(ctx, shtmlerrors.NewAssetCopyError("failed to copy assets", err),
			"Asset copy failed", "src", r.assetsDir, "dst", dst)
		return
	}
	if copied {
		r.logger.Debug(ctx, "Assets mirrored", "dst", dst)
	}
}

// CompileFailureMessage formats a failed compile step: stderr, falling back
// to stdout, falling back to a generic message.
func CompileFailureMessage(res Result) string {
	switch {
	case strings.TrimSpace(res.Stderr) != "":
		return compileFailedPrefix + res.Stderr
	case strings.TrimSpace(res.Stdout) != "":
		return compileFailedPrefix + res.Stdout
	default:
		return compileFailedPrefix + compileNoOutput
	}
}

// RunFailureMessage formats a failed run step with both captured streams.
func RunFailureMessage(res Result) string {
	var parts []string
	if strings.TrimSpace(res.Stdout) != "" {
		parts = append(parts, "Output:\n"+res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "" {
		parts = append(parts, "Errors:\n"+res.Stderr)
	}
	if len(parts) == 0 {
		return runNoOutput
	}
	return runFailedPrefix + strings.Join(parts, "\n\n")
}
