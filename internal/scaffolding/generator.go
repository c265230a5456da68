// Package scaffolding creates new site projects.
package scaffolding

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/shtml/internal/build"
	"github.com/conneroisu/shtml/internal/config"
	shtmlerrors "github.com/conneroisu/shtml/internal/errors"
)

// ConfigFile is the project configuration written by Generate.
const ConfigFile = ".shtml.yml"

// CurrentDir as a project name scaffolds into the working directory.
const CurrentDir = "."

// Result describes a generated project.
type Result struct {
	// Root is the project directory.
	Root string
	// Target is the executable target name.
	Target string
	// InPlace is true when the project was created in an existing directory.
	InPlace bool
	// Files lists the written files relative to Root.
	Files []string
}

// ValidateProjectName accepts a single directory name or CurrentDir.
func ValidateProjectName(name string) error {
	if name == "" {
		return shtmlerrors.NewScaffoldError("EMPTY_NAME", "project name cannot be empty", nil)
	}
	if name == CurrentDir {
		return nil
	}
	if name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, os.PathSeparator) {
		return shtmlerrors.NewScaffoldError("INVALID_NAME",
			"project name must be a single directory name (no path separators, no '..')", nil)
	}
	return nil
}

// Generate creates the project name inside dir. With CurrentDir the
// project is written into dir itself and takes its name from dir.
func Generate(dir, name string) (*Result, error) {
	name = strings.TrimSpace(name)
	if err := ValidateProjectName(name); err != nil {
		return nil, err
	}

	res := &Result{Root: filepath.Join(dir, name), Target: name}
	if name == CurrentDir {
		res.InPlace = true
		res.Root = dir

		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, shtmlerrors.NewScaffoldError("NO_NAME", "cannot resolve the current directory", err)
		}
		res.Target = filepath.Base(abs)
		if res.Target == "" || res.Target == string(filepath.Separator) || res.Target == "." {
			return nil, shtmlerrors.NewScaffoldError("NO_NAME",
				"could not determine a name from the current directory; pass a project name explicitly", nil)
		}

		if _, err := os.Stat(filepath.Join(dir, build.ManifestName)); err == nil {
			return nil, shtmlerrors.NewScaffoldError("EXISTS",
				build.ManifestName+" already exists in the current directory", nil)
		}
	} else if _, err := os.Stat(res.Root); err == nil {
		return nil, shtmlerrors.NewScaffoldError("EXISTS", fmt.Sprintf("directory '%s' already exists", name), nil)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, shtmlerrors.NewScaffoldError("STAT", "cannot inspect "+res.Root, err)
	}

	cfg := config.Default()
	sourcesDir := filepath.Join(cfg.Project.SourcesDir, res.Target)
	for _, d := range []string{sourcesDir, cfg.Project.AssetsDir, cfg.Project.OutputDir} {
		if err := os.MkdirAll(filepath.Join(res.Root, d), 0o755); err != nil {
			return nil, shtmlerrors.NewScaffoldError("MKDIR", "cannot create "+d, err)
		}
	}

	ctx := ProjectContext{Name: res.Target, Dependency: DefaultDependency}

	pkg, err := render(packageTemplate, ctx)
	if err != nil {
		return nil, err
	}
	mainSwift, err := render(mainTemplate, ctx)
	if err != nil {
		return nil, err
	}
	projectConfig, err := ProjectConfig(cfg)
	if err != nil {
		return nil, err
	}

	files := []struct {
		path string
		data []byte
	}{
		{build.ManifestName, pkg},
		{filepath.Join(sourcesDir, "main.swift"), mainSwift},
		{filepath.Join(cfg.Project.AssetsDir, "styles.css"), []byte(stylesheet)},
		{".gitignore", []byte(gitignore)},
		{ConfigFile, projectConfig},
	}
	for _, f := range files {
		if err := renameio.WriteFile(filepath.Join(res.Root, f.path), f.data, 0o644); err != nil {
			return nil, shtmlerrors.NewScaffoldError("WRITE", "cannot write "+f.path, err)
		}
		res.Files = append(res.Files, f.path)
	}

	return res, nil
}

func render(tmpl *template.Template, ctx ProjectContext) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return nil, shtmlerrors.NewScaffoldError("TEMPLATE", "cannot render "+tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

// projectFile is the subset of the configuration a new project pins.
type projectFile struct {
	Server  config.ServerConfig `yaml:"server"`
	Project projectSection      `yaml:"project"`
	Watch   config.WatchConfig  `yaml:"watch"`
	Log     config.LogConfig    `yaml:"log"`
}

type projectSection struct {
	SourcesDir string `yaml:"sources_dir"`
	AssetsDir  string `yaml:"assets_dir"`
	OutputDir  string `yaml:"output_dir"`
	Artifact   string `yaml:"artifact"`
}

// ProjectConfig renders the .shtml.yml written for a new project.
func ProjectConfig(cfg *config.Config) ([]byte, error) {
	file := projectFile{
		Server: cfg.Server,
		Project: projectSection{
			SourcesDir: cfg.Project.SourcesDir,
			AssetsDir:  cfg.Project.AssetsDir,
			OutputDir:  cfg.Project.OutputDir,
			Artifact:   cfg.Project.Artifact,
		},
		Watch: cfg.Watch,
		Log:   cfg.Log,
	}

	var buf bytes.Buffer
	buf.WriteString("# shtml project configuration\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return nil, shtmlerrors.NewScaffoldError("CONFIG", "cannot encode "+ConfigFile, err)
	}
	if err := enc.Close(); err != nil {
		return nil, shtmlerrors.NewScaffoldError("CONFIG", "cannot encode "+ConfigFile, err)
	}
	return buf.Bytes(), nil
}
