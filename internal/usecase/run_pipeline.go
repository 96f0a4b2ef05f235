package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pcdshub/pytmc/internal/ctxlog"
	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/ports"
)

// PipelineOptions control a single job run.
type PipelineOptions struct {
	DryRun bool
	Save   bool

	// Env overrides the job environment, typically with the runner's own
	// variables (TRAVIS_REPO_SLUG and friends).
	Env domain.Vars
}

type RunPipeline struct {
	runner ports.StepRunner
	store  ports.ArtifactStore
}

func NewRunPipeline(runner ports.StepRunner, store ports.ArtifactStore) *RunPipeline {
	return &RunPipeline{runner: runner, store: store}
}

// Execute runs the phases of one job in order.
//
// A failing before_install or install step aborts the job. In the script
// phase every step runs until a "set -e" step, or a block step opening
// with "set -e", has been seen; from then on the first failure skips the
// remaining script steps. after_success only
// runs when everything before it passed, and its failures do not fail the
// job.
func (uc *RunPipeline) Execute(ctx context.Context, d domain.Descriptor, job domain.Job, opts PipelineOptions) (domain.PipelineRun, string, error) {
	log := ctxlog.FromContext(ctx).With("job", job.Index, "job_name", job.Name())

	env := domain.Merge(job.Env, opts.Env)
	if job.Python != "" {
		env = domain.Set(env, "TRAVIS_PYTHON_VERSION", job.Python)
	}

	run := domain.PipelineRun{
		Descriptor: d.Path,
		Job:        job.Index,
		JobName:    job.Name(),
		Env:        env,
		DryRun:     opts.DryRun,
		Deploy:     job.ShouldDeploy(opts.Env),
		StartedAt:  time.Now(),
	}
	log.Info("pipeline.start", "dry_run", opts.DryRun, "deploy", run.Deploy)

	failed := false
	for _, phase := range domain.Phases {
		steps := job.Steps[phase]
		if phase == domain.PhaseAfterSuccess && failed {
			run.Steps = append(run.Steps, skipAll(phase, steps)...)
			continue
		}

		failFast := false
		for i, cmd := range steps {
			if err := ctx.Err(); err != nil {
				run.EndedAt = time.Now()
				return run, "", err
			}

			if isFailFastMarker(cmd) {
				failFast = true
				run.Steps = append(run.Steps, domain.StepResult{Phase: phase, Command: cmd, Status: domain.StepPassed})
				continue
			}

			if opensWithFailFast(cmd) {
				failFast = true
			}

			res := uc.step(ctx, phase, cmd, env, opts.DryRun)
			run.Steps = append(run.Steps, res)
			if res.Status != domain.StepFailed {
				continue
			}

			log.Warn("pipeline.step.failed", "phase", phase, "command", cmd, "exit_code", res.ExitCode)
			if phase == domain.PhaseAfterSuccess {
				continue
			}
			failed = true

			abort := phase != domain.PhaseScript || failFast
			if abort {
				run.Steps = append(run.Steps, skipAll(phase, steps[i+1:])...)
				break
			}
		}

		if failed && phase != domain.PhaseScript && phase != domain.PhaseAfterSuccess {
			for _, rest := range remainingPhases(phase) {
				run.Steps = append(run.Steps, skipAll(rest, job.Steps[rest])...)
			}
			break
		}
	}

	run.Passed = !failed
	run.EndedAt = time.Now()
	log.Info("pipeline.done", "passed", run.Passed, "failed_steps", run.Failed())

	if !opts.Save || uc.store == nil {
		return run, "", nil
	}
	id, err := uc.store.SaveRun(run)
	if err != nil {
		return run, "", err
	}
	return run, id, nil
}

func (uc *RunPipeline) step(ctx context.Context, phase, cmd string, env domain.Vars, dryRun bool) domain.StepResult {
	if dryRun {
		return domain.StepResult{Phase: phase, Command: cmd, Status: domain.StepPlanned}
	}

	res, err := uc.runner.Run(ctx, cmd, env)
	res.Phase = phase
	res.Command = cmd
	if err != nil {
		res.Status = domain.StepFailed
		res.Error = err.Error()
		if res.ExitCode == 0 {
			res.ExitCode = -1
		}
		return res
	}
	if res.Status == "" {
		if res.ExitCode == 0 {
			res.Status = domain.StepPassed
		} else {
			res.Status = domain.StepFailed
		}
	}
	return res
}

func skipAll(phase string, steps []string) []domain.StepResult {
	out := make([]domain.StepResult, 0, len(steps))
	for _, cmd := range steps {
		out = append(out, domain.StepResult{Phase: phase, Command: cmd, Status: domain.StepSkipped})
	}
	return out
}

func remainingPhases(after string) []string {
	for i, p := range domain.Phases {
		if p == after {
			return domain.Phases[i+1:]
		}
	}
	return nil
}

// isFailFastMarker reports a step that is only "set -e". It is recorded
// but not executed.
func isFailFastMarker(cmd string) bool {
	return strings.TrimSpace(cmd) == domain.FailFastMarker
}

// opensWithFailFast reports a block step whose first shell line is
// "set -e".
func opensWithFailFast(cmd string) bool {
	for _, line := range strings.Split(cmd, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line == domain.FailFastMarker
	}
	return false
}

// Plan describes the jobs of a descriptor without running anything.
type Plan struct {
	Descriptor string    `json:"descriptor"`
	Language   string    `json:"language"`
	Jobs       []JobPlan `json:"jobs"`
}

type JobPlan struct {
	Index   int                 `json:"index"`
	Name    string              `json:"name"`
	Python  string              `json:"python"`
	Env     domain.Vars         `json:"env"`
	Secrets int                 `json:"secrets"`
	Deploy  bool                `json:"deploy"`
	Steps   map[string][]string `json:"steps"`
}

// PlanPipeline expands the matrix and evaluates the deploy guard per job
// against env.
func PlanPipeline(d domain.Descriptor, env domain.Vars) Plan {
	plan := Plan{Descriptor: d.Path, Language: d.Language}
	for _, job := range d.Expand() {
		plan.Jobs = append(plan.Jobs, JobPlan{
			Index:   job.Index,
			Name:    job.Name(),
			Python:  job.Python,
			Env:     job.Env,
			Secrets: job.Secrets,
			Deploy:  job.ShouldDeploy(env),
			Steps:   job.Steps,
		})
	}
	return plan
}

// SelectJob returns the job with the given index.
func SelectJob(d domain.Descriptor, index int) (domain.Job, error) {
	jobs := d.Expand()
	if index < 0 || index >= len(jobs) {
		return domain.Job{}, &domain.OpError{
			Op:   "pipeline.job",
			Kind: domain.KindNotFound,
			Path: d.Path,
			Err:  fmt.Errorf("job %d out of range (0..%d): %w", index, len(jobs)-1, domain.ErrNotFound),
		}
	}
	return jobs[index], nil
}
