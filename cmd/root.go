// Package cmd provides the shtml command-line interface.
//
// Configuration is read from, highest priority first:
//  1. command-line flags (--config, --port, ...)
//  2. SHTML_CONFIG_FILE, a path to a configuration file
//  3. SHTML_<SECTION>_<OPTION> environment variables, also loaded from .env
//  4. .shtml.yml in the current directory
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/shtml/internal/config"
	"github.com/conneroisu/shtml/internal/errors"
	"github.com/conneroisu/shtml/internal/logging"
)

const configName = ".shtml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "shtml",
	Short: "Live development server and build tool for SHTML sites",
	Long: `shtml builds static sites written with the SHTML Swift library and serves
them with live reload while you edit.

Quick Start:
  shtml init MySite     Create a new project
  shtml dev             Start the live development server
  shtml build           Produce a release build of the site`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .shtml.yml, can also use SHTML_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// a missing .env is normal
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SHTML_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(configName)
	}

	viper.SetEnvPrefix("SHTML")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and decorates failures with hints.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		path := viper.ConfigFileUsed()
		if path == "" {
			path = configName + ".yml"
		}
		return nil, errors.NewEnhancedError("Failed to load configuration", err,
			errors.ConfigurationError(err.Error(), path))
	}
	return cfg, nil
}

// newLogger builds the process logger. Records always go to the log file
// under the project; console adds stderr.
func newLogger(cfg *config.Config, console bool) (logging.Logger, func() error, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	var outputs []io.Writer
	if console {
		outputs = append(outputs, os.Stderr)
	}

	closer := func() error { return nil }
	if cfg.Log.File != "" {
		path := cfg.Log.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Project.Root, path)
		}
		file, err := logging.OpenLogFile(filepath.Dir(path), filepath.Base(path))
		if err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, file)
		closer = file.Close
	}
	if len(outputs) == 0 {
		outputs = append(outputs, io.Discard)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Outputs:   outputs,
		Component: "shtml",
	})
	return logger, closer, nil
}

// checkToolchain reports a missing toolchain binary with install hints.
func checkToolchain(cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.Toolchain.Command); err != nil {
		return errors.NewEnhancedError(
			fmt.Sprintf("Toolchain %q not found", cfg.Toolchain.Command),
			err,
			errors.ToolchainMissing(cfg.Toolchain.Command),
		)
	}
	return nil
}
