package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conneroisu/shtml/internal/build"
	"github.com/conneroisu/shtml/internal/config"
	"github.com/conneroisu/shtml/internal/logging"
)

var buildOutput string

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Produce a release build of the site",
	Long: `Compile the project with release flags, generate the HTML output and copy
the static assets next to it. The first failing step aborts the build.

Examples:
  shtml build                 # Build into the configured output directory
  shtml build --output dist   # Copy the finished site to dist`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output directory (default is project.output_dir)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := checkToolchain(cfg); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	output := cfg.OutputPath()
	if buildOutput != "" {
		output = buildOutput
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Building for release...")

	summary, err := runRelease(cmd.Context(), cfg, afero.NewOsFs(), output, logger)
	if err != nil {
		if captured := build.ReleaseOutput(err); captured != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), captured)
		}
		return err
	}

	fmt.Fprintln(out, formatReleaseSummary(summary))
	return nil
}

// runRelease builds the project with release flags. The generated site is
// copied to output when it differs from the configured output directory,
// then the assets are mirrored into output.
func runRelease(ctx context.Context, cfg *config.Config, fs afero.Fs, output string, logger logging.Logger) (build.ReleaseSummary, error) {
	manifest := filepath.Join(cfg.Project.Root, build.ManifestName)
	product := build.ProductName(fs, manifest)
	toolchain := build.NewExecToolchain(cfg).WithRelease(cfg.Toolchain.ReleaseArgs, product)

	logger.Info(ctx, "Release build started", "product", product)

	summary, err := build.Release(ctx, fs, toolchain, manifest, cfg.ArtifactPath())
	if err != nil {
		logger.Error(ctx, err, "Release build failed")
		return summary, err
	}

	if filepath.Clean(output) != filepath.Clean(cfg.OutputPath()) {
		if _, err := build.MirrorDir(fs, cfg.OutputPath(), output); err != nil {
			return summary, fmt.Errorf("copy site to %s: %w", output, err)
		}
		summary.Artifact = filepath.Join(output, cfg.Project.Artifact)
	}

	if _, err := build.MirrorDir(fs, cfg.AssetsPath(), filepath.Join(output, cfg.Project.AssetsDir)); err != nil {
		// missing assets do not fail a release
		logger.Warn(ctx, err, "Asset copy failed")
	}

	logger.Info(ctx, "Release build finished",
		"artifact", summary.Artifact,
		"size", humanize.Bytes(uint64(summary.Size)),
		"duration", summary.Total)
	return summary, nil
}

var summaryBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("10")).
	Padding(0, 1)

func formatReleaseSummary(s build.ReleaseSummary) string {
	lines := []string{
		"Release build complete",
		"",
		fmt.Sprintf("Compile:  %.2fs", s.Compile.Seconds()),
		fmt.Sprintf("Generate: %.2fs", s.Generate.Seconds()),
		fmt.Sprintf("Total:    %.2fs", s.Total.Seconds()),
		"Output:   " + s.Artifact,
	}
	if s.Size > 0 {
		lines = append(lines, "Size:     "+humanize.Bytes(uint64(s.Size)))
	}
	return summaryBox.Render(strings.Join(lines, "\n"))
}
