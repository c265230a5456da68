// Package config provides configuration management for shtml using Viper for
// flexible loading from files, environment variables, and command-line flags.
//
// The configuration system reads .shtml.yml, applies SHTML_ prefixed
// environment overrides, fills defaults and validates the result. It covers
// the dev server address, the project layout conventions, the external
// toolchain invocation, change detection timing, the dashboard and logging.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// MaxPollInterval is the slowest allowed modification-time sweep.
	MaxPollInterval = 100 * time.Millisecond
	// MinDebounce is the shortest allowed quiet window between builds.
	MinDebounce = 300 * time.Millisecond
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Project   ProjectConfig   `mapstructure:"project" yaml:"project"`
	Toolchain ToolchainConfig `mapstructure:"toolchain" yaml:"toolchain"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	Open bool   `mapstructure:"open" yaml:"open"`
}

type ProjectConfig struct {
	Root       string `mapstructure:"root" yaml:"root"`
	SourcesDir string `mapstructure:"sources_dir" yaml:"sources_dir"`
	AssetsDir  string `mapstructure:"assets_dir" yaml:"assets_dir"`
	OutputDir  string `mapstructure:"output_dir" yaml:"output_dir"`
	Artifact   string `mapstructure:"artifact" yaml:"artifact"`
}

type ToolchainConfig struct {
	Command     string        `mapstructure:"command" yaml:"command"`
	CompileArgs []string      `mapstructure:"compile_args" yaml:"compile_args"`
	RunArgs     []string      `mapstructure:"run_args" yaml:"run_args"`
	ReleaseArgs []string      `mapstructure:"release_args" yaml:"release_args"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type WatchConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Debounce     time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Ignore       []string      `mapstructure:"ignore" yaml:"ignore"`
}

type DashboardConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// SetDefaults registers every default on v. Load calls it on the global
// viper instance; tests may call it on their own.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.open", false)

	v.SetDefault("project.root", ".")
	v.SetDefault("project.sources_dir", "Sources")
	v.SetDefault("project.assets_dir", "Assets")
	v.SetDefault("project.output_dir", "public")
	v.SetDefault("project.artifact", "index.html")

	v.SetDefault("toolchain.command", "swift")
	v.SetDefault("toolchain.compile_args", []string{"build"})
	v.SetDefault("toolchain.run_args", []string{"run"})
	v.SetDefault("toolchain.release_args", []string{"--configuration", "release"})
	v.SetDefault("toolchain.timeout", 5*time.Minute)

	v.SetDefault("watch.poll_interval", 50*time.Millisecond)
	v.SetDefault("watch.debounce", MinDebounce)
	v.SetDefault("watch.ignore", []string{})

	v.SetDefault("dashboard.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", ".shtml/dev.log")
}

// Load builds a validated Config from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds a validated Config from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// log-level is bound as a root persistent flag
	if v.IsSet("log-level") {
		config.Log.Level = v.GetString("log-level")
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	cfg, err := LoadFrom(viper.New())
	if err != nil {
		// defaults are always valid
		panic(err)
	}
	return cfg
}

// Addr returns the listen address host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SourcesPath is the directory watched for changes.
func (c *Config) SourcesPath() string {
	return filepath.Join(c.Project.Root, c.Project.SourcesDir)
}

// AssetsPath is the static asset directory mirrored on success.
func (c *Config) AssetsPath() string {
	return filepath.Join(c.Project.Root, c.Project.AssetsDir)
}

// OutputPath is the directory served by the dev server.
func (c *Config) OutputPath() string {
	return filepath.Join(c.Project.Root, c.Project.OutputDir)
}

// ArtifactPath is the generated HTML document.
func (c *Config) ArtifactPath() string {
	return filepath.Join(c.OutputPath(), c.Project.Artifact)
}

// Validate checks configuration values for correctness.
func Validate(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateProjectConfig(&config.Project); err != nil {
		return fmt.Errorf("project config: %w", err)
	}
	if err := validateToolchainConfig(&config.Toolchain); err != nil {
		return fmt.Errorf("toolchain config: %w", err)
	}
	if err := validateWatchConfig(&config.Watch); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	switch config.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log config: unsupported format %q", config.Log.Format)
	}
	return nil
}

func validateServerConfig(config *ServerConfig) error {
	// 0 lets the OS pick a port, which tests rely on
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if strings.ContainsAny(config.Host, ";&|$`()<>\"'\\ ") {
		return fmt.Errorf("host contains invalid characters: %q", config.Host)
	}

	return nil
}

func validateProjectConfig(config *ProjectConfig) error {
	if config.Root == "" {
		return fmt.Errorf("root must not be empty")
	}

	dirs := map[string]string{
		"sources_dir": config.SourcesDir,
		"assets_dir":  config.AssetsDir,
		"output_dir":  config.OutputDir,
		"artifact":    config.Artifact,
	}
	for name, dir := range dirs {
		if err := validateRelativePath(dir); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if filepath.Ext(config.Artifact) != ".html" {
		return fmt.Errorf("artifact %q must be an .html file", config.Artifact)
	}

	return nil
}

func validateToolchainConfig(config *ToolchainConfig) error {
	if strings.TrimSpace(config.Command) == "" {
		return fmt.Errorf("command must not be empty")
	}
	if strings.ContainsAny(config.Command, ";&|$`<>") {
		return fmt.Errorf("command contains shell metacharacters: %q", config.Command)
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func validateWatchConfig(config *WatchConfig) error {
	if config.PollInterval <= 0 || config.PollInterval > MaxPollInterval {
		return fmt.Errorf("poll_interval %s must be in (0, %s]", config.PollInterval, MaxPollInterval)
	}
	if config.Debounce < MinDebounce {
		return fmt.Errorf("debounce %s must be at least %s", config.Debounce, MinDebounce)
	}
	return nil
}

// validateRelativePath rejects empty, absolute and traversing paths.
func validateRelativePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path must be relative: %s", path)
	}
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	return nil
}
