// Package shellrunner executes pipeline steps through a POSIX shell.
package shellrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/ports"
)

// DefaultShell interprets step commands.
const DefaultShell = "bash"

var _ ports.StepRunner = (*Runner)(nil)

// Runner runs each step as `<shell> -c <command>`.
type Runner struct {
	shell   string
	workDir string
	inherit bool
}

type Option func(*Runner)

// WithShell overrides the interpreter.
func WithShell(path string) Option {
	return func(r *Runner) {
		if path != "" {
			r.shell = path
		}
	}
}

// WithWorkDir sets the directory steps run in.
func WithWorkDir(dir string) Option {
	return func(r *Runner) { r.workDir = dir }
}

// WithIsolatedEnv drops the host environment; steps only see the job vars.
func WithIsolatedEnv() Option {
	return func(r *Runner) { r.inherit = false }
}

func New(opts ...Option) *Runner {
	r := &Runner{shell: DefaultShell, inherit: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Run(ctx context.Context, command string, env domain.Vars) (domain.StepResult, error) {
	res := domain.StepResult{Command: command}
	if command == "" {
		return res, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	cmd.Dir = r.workDir
	cmd.Env = r.buildEnv(env)
	// Own process group so cancellation reaches children of the shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("start %s: %w", r.shell, err)
	}
	err := cmd.Wait()
	res.Duration = time.Since(start).Milliseconds()
	res.Output = out.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.Status = domain.StepFailed
		res.ExitCode = -1
		res.Error = ctxErr.Error()
		return res, ctxErr
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, fmt.Errorf("run step: %w", err)
		}
		res.Status = domain.StepFailed
		res.ExitCode = exitErr.ExitCode()
		res.Error = fmt.Sprintf("exit status %d", res.ExitCode)
		return res, nil
	}

	res.Status = domain.StepPassed
	return res, nil
}

func (r *Runner) buildEnv(vars domain.Vars) []string {
	var base []string
	if r.inherit {
		base = os.Environ()
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(base)+len(keys))
	out = append(out, base...)
	// Later entries win for duplicate keys in exec.
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out
}
