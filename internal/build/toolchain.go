// Package build runs the project's external toolchain, classifies the
// outcome and mirrors static assets next to the generated artifact.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/conneroisu/shtml/internal/config"
	shtmlerrors "github.com/conneroisu/shtml/internal/errors"
)

//go:generate mockgen -source=toolchain.go -destination=mocks/mock_toolchain.go -package=mocks

// Result is the captured outcome of one toolchain step.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Succeeded reports whether the step exited with status 0.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Toolchain compiles the project and runs it to regenerate the site. A
// non-nil error means the step could not be executed at all; a step that ran
// and failed returns a Result with a non-zero ExitCode.
type Toolchain interface {
	Compile(ctx context.Context) (Result, error)
	Run(ctx context.Context) (Result, error)
}

// ExecToolchain invokes an external command with os/exec.
type ExecToolchain struct {
	Command     string
	CompileArgs []string
	RunArgs     []string
	Dir         string
	Timeout     time.Duration
}

// NewExecToolchain creates a toolchain from the configured command.
func NewExecToolchain(cfg *config.Config) *ExecToolchain {
	return &ExecToolchain{
		Command:     cfg.Toolchain.Command,
		CompileArgs: append([]string(nil), cfg.Toolchain.CompileArgs...),
		RunArgs:     append([]string(nil), cfg.Toolchain.RunArgs...),
		Dir:         cfg.Project.Root,
		Timeout:     cfg.Toolchain.Timeout,
	}
}

// WithRelease returns a copy that appends extra to both steps, and product
// to the run step when it is not empty.
func (t *ExecToolchain) WithRelease(extra []string, product string) *ExecToolchain {
	release := *t
	release.CompileArgs = append(append([]string(nil), t.CompileArgs...), extra...)
	release.RunArgs = append(append([]string(nil), t.RunArgs...), extra...)
	if product != "" {
		release.RunArgs = append(release.RunArgs, product)
	}
	return &release
}

// Compile runs the compile step.
func (t *ExecToolchain) Compile(ctx context.Context) (Result, error) {
	return t.exec(ctx, "compile", t.CompileArgs)
}

// Run runs the generation step.
func (t *ExecToolchain) Run(ctx context.Context) (Result, error) {
	return t.exec(ctx, "run", t.RunArgs)
}

func (t *ExecToolchain) exec(ctx context.Context, step string, args []string) (Result, error) {
	if err := t.validate(args); err != nil {
		return Result{}, err
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Command, args...)
	cmd.Dir = t.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return result, shtmlerrors.NewToolchainError("TIMEOUT",
			fmt.Sprintf("%s step timed out after %s", step, t.Timeout), ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return result, shtmlerrors.NewToolchainError("START",
		fmt.Sprintf("could not start %s step", step), err).
		WithContext("command", t.Command)
}

// validate rejects arguments that only make sense to a shell.
func (t *ExecToolchain) validate(args []string) error {
	if strings.TrimSpace(t.Command) == "" {
		return shtmlerrors.NewToolchainError("COMMAND", "toolchain command is empty", nil)
	}
	for _, arg := range args {
		if strings.ContainsAny(arg, ";&|$`<>\n") {
			return shtmlerrors.NewToolchainError("ARGUMENT",
				fmt.Sprintf("invalid argument %q", arg), nil)
		}
	}
	return nil
}
