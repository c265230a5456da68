package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/shtml/internal/build"
	"github.com/conneroisu/shtml/internal/config"
	"github.com/conneroisu/shtml/internal/dashboard"
	"github.com/conneroisu/shtml/internal/devloop"
	shtmlerrors "github.com/conneroisu/shtml/internal/errors"
	"github.com/conneroisu/shtml/internal/logging"
	"github.com/conneroisu/shtml/internal/monitoring"
	"github.com/conneroisu/shtml/internal/reload"
	"github.com/conneroisu/shtml/internal/server"
	"github.com/conneroisu/shtml/internal/state"
	"github.com/conneroisu/shtml/internal/version"
	"github.com/conneroisu/shtml/internal/watcher"
)

var devNoTUI bool

var devCmd = &cobra.Command{
	Use:     "dev",
	Aliases: []string{"d", "serve"},
	Short:   "Start the live development server",
	Long: `Build the project, serve the output directory and rebuild on every change
to the sources. Open pages reload automatically after each build.

Examples:
  shtml dev                  # Serve on 0.0.0.0:3000 with the dashboard
  shtml dev --port 8080      # Use another port
  shtml dev --no-tui         # Plain log output instead of the dashboard
  shtml dev --open           # Open the site in a browser once serving`,
	Args: cobra.NoArgs,
	RunE: runDev,
}

func init() {
	rootCmd.AddCommand(devCmd)

	devCmd.Flags().IntP("port", "p", 3000, "Port to serve on")
	devCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	devCmd.Flags().Bool("open", false, "Open the site in a browser")
	devCmd.Flags().BoolVar(&devNoTUI, "no-tui", false, "Disable the interactive dashboard")

	_ = viper.BindPFlag("server.port", devCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", devCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.open", devCmd.Flags().Lookup("open"))
}

func runDev(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mode := dashboard.DetectMode(devNoTUI || !cfg.Dashboard.Enabled)

	logger, closeLog, err := newLogger(cfg, mode == dashboard.ModeConsole)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := checkToolchain(cfg); err != nil {
		// the dev server still runs and shows the failure page
		fmt.Fprintln(os.Stderr, err)
		logger.Warn(cmd.Context(), err, "Toolchain not found", "command", cfg.Toolchain.Command)
	}

	fs := afero.NewOsFs()
	store := state.NewStore()
	hub := reload.NewHub()
	defer hub.Close()

	toolchain := build.NewExecToolchain(cfg)
	runner := build.NewRunnerFs(fs, toolchain, cfg, logger)
	coordinator := devloop.NewCoordinator(store, runner, hub, logger)

	detector := watcher.NewDetector(watcher.Options{
		Root:         cfg.SourcesPath(),
		Fs:           fs,
		PollInterval: cfg.Watch.PollInterval,
		Debounce:     cfg.Watch.Debounce,
		Filters:      watcher.DefaultFilters(cfg.Project.OutputDir, cfg.Watch.Ignore),
		Recorder:     store,
		Logger:       logger,
	}, coordinator.BuildFunc())

	health := monitoring.NewHealthMonitor(version.GetShortVersion())
	health.Register(buildHealthCheck(store, runner))
	health.Register(subscriberHealthCheck(hub))

	srv := server.New(server.Options{
		Config: cfg,
		Store:  store,
		Hub:    hub,
		Health: health,
		Fs:     fs,
		Logger: logger,
	})

	ln, err := srv.Listen()
	if shtmlerrors.IsFatal(err) {
		return shtmlerrors.NewEnhancedError(
			fmt.Sprintf("Failed to start server on port %d", cfg.Server.Port),
			err,
			shtmlerrors.ServerStartError(err, cfg.Server.Port),
		)
	}
	if err != nil {
		return err
	}

	url := dashboard.ServerURL(cfg.Server.Host, cfg.Server.Port)

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})

	g.Go(func() error {
		coordinator.InitialBuild(gctx)
		return detector.Run(gctx)
	})

	if cfg.Server.Open {
		if err := browser.OpenURL(url); err != nil {
			logger.Warn(ctx, err, "Could not open browser", "url", url)
		}
	}

	var model *dashboard.Model
	if mode == dashboard.ModeTUI {
		g.Go(func() error {
			// leaving the dashboard stops the server
			defer cancel()
			var err error
			model, err = dashboard.Run(gctx, store, url, dashboard.Actions{
				Rebuild: detector.RequestRebuild,
				Open:    browser.OpenURL,
				Release: func(ctx context.Context) (summary string, err error) {
					coordinator.Exclusive(func() {
						summary, err = releaseSummary(ctx, cfg, fs, cfg.OutputPath(), logger)
					})
					return summary, err
				},
			})
			return err
		})
	} else {
		g.Go(func() error {
			return dashboard.RunConsole(gctx, store, url, os.Stdout)
		})
	}

	err = g.Wait()

	if model != nil && model.Exit == dashboard.ExitRelease {
		fmt.Println(model.ReleaseSummary)
		if model.ReleaseErr != nil {
			return model.ReleaseErr
		}
	}
	return err
}

func buildHealthCheck(store *state.Store, runner *build.Runner) monitoring.HealthCheckFunc {
	return func(ctx context.Context) monitoring.HealthCheck {
		st := store.State()
		check := monitoring.HealthCheck{
			Name:    "build",
			Status:  monitoring.HealthStatusHealthy,
			Message: st.Tag() + ", " + runner.Stats().String(),
		}
		if st.Kind == state.Failed {
			check.Status = monitoring.HealthStatusDegraded
		}
		return check
	}
}

func subscriberHealthCheck(hub *reload.Hub) monitoring.HealthCheckFunc {
	return func(ctx context.Context) monitoring.HealthCheck {
		return monitoring.HealthCheck{
			Name:    "reload",
			Status:  monitoring.HealthStatusHealthy,
			Message: fmt.Sprintf("%d subscribers", hub.Len()),
		}
	}
}

// releaseSummary runs a release build and renders the outcome as text.
func releaseSummary(ctx context.Context, cfg *config.Config, fs afero.Fs, output string, logger logging.Logger) (string, error) {
	summary, err := runRelease(ctx, cfg, fs, output, logger)
	if err != nil {
		if out := build.ReleaseOutput(err); out != "" {
			return out, err
		}
		return err.Error(), err
	}
	return formatReleaseSummary(summary), nil
}
