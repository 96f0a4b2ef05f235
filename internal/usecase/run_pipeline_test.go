package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/pcdshub/pytmc/internal/domain"
)

// scriptedRunner fails the commands listed in fail and records every call.
type scriptedRunner struct {
	fail  map[string]int
	err   map[string]error
	calls []string
	envs  []domain.Vars
}

func (r *scriptedRunner) Run(_ context.Context, command string, env domain.Vars) (domain.StepResult, error) {
	r.calls = append(r.calls, command)
	r.envs = append(r.envs, env)
	if err := r.err[command]; err != nil {
		return domain.StepResult{}, err
	}
	if code, ok := r.fail[command]; ok {
		return domain.StepResult{ExitCode: code, Status: domain.StepFailed}, nil
	}
	return domain.StepResult{Status: domain.StepPassed}, nil
}

type fakeStore struct {
	saved bool
	last  domain.PipelineRun
}

func (s *fakeStore) SaveRun(run domain.PipelineRun) (string, error) {
	s.saved = true
	s.last = run
	return "run-123", nil
}

func (s *fakeStore) WriteFile(name string, _ []byte) (string, error) { return name, nil }

func pipelineJob(steps map[string][]string) (domain.Descriptor, domain.Job) {
	d := domain.Descriptor{
		Path:      ".travis.yml",
		GlobalEnv: domain.Vars{domain.EnvOfficialRepo: "slaclab/pytmc"},
		Matrix:    []domain.MatrixEntry{{Python: "3.6", Env: domain.Vars{domain.EnvBuildDocs: "1"}}},
		Steps:     steps,
	}
	return d, d.Expand()[0]
}

func statuses(run domain.PipelineRun) []domain.StepStatus {
	out := make([]domain.StepStatus, 0, len(run.Steps))
	for _, s := range run.Steps {
		out = append(out, s.Status)
	}
	return out
}

func equalStatuses(a, b []domain.StepStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunPipeline_AllPass(t *testing.T) {
	d, job := pipelineJob(map[string][]string{
		domain.PhaseInstall:      {"pip install ."},
		domain.PhaseScript:       {"pytest"},
		domain.PhaseAfterSuccess: {"codecov"},
	})
	r := &scriptedRunner{}
	store := &fakeStore{}

	run, id, err := NewRunPipeline(r, store).Execute(context.Background(), d, job, PipelineOptions{Save: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !run.Passed || id != "run-123" || !store.saved {
		t.Fatalf("expected passed+saved run, got passed=%v id=%q saved=%v", run.Passed, id, store.saved)
	}
	if len(r.calls) != 3 {
		t.Fatalf("expected 3 calls, got %v", r.calls)
	}
	if r.envs[0]["TRAVIS_PYTHON_VERSION"] != "3.6" || r.envs[0][domain.EnvBuildDocs] != "1" {
		t.Fatalf("job env not passed to runner: %v", r.envs[0])
	}
}

func TestRunPipeline_InstallFailureAborts(t *testing.T) {
	d, job := pipelineJob(map[string][]string{
		domain.PhaseBeforeInstall: {"apt-get install x"},
		domain.PhaseInstall:       {"pip install .", "pip install docs"},
		domain.PhaseScript:        {"pytest"},
		domain.PhaseAfterSuccess:  {"codecov"},
	})
	r := &scriptedRunner{fail: map[string]int{"pip install .": 1}}

	run, _, err := NewRunPipeline(r, nil).Execute(context.Background(), d, job, PipelineOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Passed {
		t.Fatalf("expected failed run")
	}
	want := []domain.StepStatus{domain.StepPassed, domain.StepFailed, domain.StepSkipped, domain.StepSkipped, domain.StepSkipped}
	if got := statuses(run); !equalStatuses(got, want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	if len(r.calls) != 2 {
		t.Fatalf("expected 2 runner calls, got %v", r.calls)
	}
}

func TestRunPipeline_ScriptFailureBeforeSetEContinues(t *testing.T) {
	d, job := pipelineJob(map[string][]string{
		domain.PhaseScript:       {"coverage run run_tests.py", "flake8", "set -e", "make docs"},
		domain.PhaseAfterSuccess: {"codecov"},
	})
	r := &scriptedRunner{fail: map[string]int{"coverage run run_tests.py": 1}}

	run, _, err := NewRunPipeline(r, nil).Execute(context.Background(), d, job, PipelineOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Passed {
		t.Fatalf("expected failed run")
	}
	want := []domain.StepStatus{domain.StepFailed, domain.StepPassed, domain.StepPassed, domain.StepPassed, domain.StepSkipped}
	if got := statuses(run); !equalStatuses(got, want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	for _, c := range r.calls {
		if c == "codecov" {
			t.Fatalf("after_success must not run after a script failure")
		}
		if c == "set -e" {
			t.Fatalf("fail-fast marker must not be executed")
		}
	}
}

func TestRunPipeline_FailFastAfterSetE(t *testing.T) {
	d, job := pipelineJob(map[string][]string{
		domain.PhaseScript: {"coverage run run_tests.py", "set -e", "make docs", "doctr deploy"},
	})
	r := &scriptedRunner{fail: map[string]int{"make docs": 2}}

	run, _, err := NewRunPipeline(r, nil).Execute(context.Background(), d, job, PipelineOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.StepStatus{domain.StepPassed, domain.StepPassed, domain.StepFailed, domain.StepSkipped}
	if got := statuses(run); !equalStatuses(got, want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	if run.Steps[2].ExitCode != 2 {
		t.Fatalf("expected exit code 2, got %d", run.Steps[2].ExitCode)
	}
}

func TestRunPipeline_FailFastFromBlockStep(t *testing.T) {
	block := "set -e\nfalse"
	d, job := pipelineJob(map[string][]string{
		domain.PhaseScript: {"pytest", block, "echo after"},
	})
	r := &scriptedRunner{fail: map[string]int{block: 1}}

	run, _, err := NewRunPipeline(r, nil).Execute(context.Background(), d, job, PipelineOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.StepStatus{domain.StepPassed, domain.StepFailed, domain.StepSkipped}
	if got := statuses(run); !equalStatuses(got, want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	if len(r.calls) != 2 || r.calls[1] != block {
		t.Fatalf("block step must run and stop the phase, calls = %q", r.calls)
	}
	if run.Passed {
		t.Fatalf("expected failed job")
	}
}

func TestOpensWithFailFast(t *testing.T) {
	cases := map[string]bool{
		"set -e\nfalse":            true,
		"\n# docs\n  set -e\nmake": true,
		"echo hi\nset -e":          false,
		"set -eu":                  false,
		"":                         false,
	}
	for cmd, want := range cases {
		if got := opensWithFailFast(cmd); got != want {
			t.Errorf("opensWithFailFast(%q) = %v, want %v", cmd, got, want)
		}
	}
}

func TestRunPipeline_AfterSuccessFailureKeepsJobGreen(t *testing.T) {
	d, job := pipelineJob(map[string][]string{
		domain.PhaseScript:       {"pytest"},
		domain.PhaseAfterSuccess: {"codecov", "echo done"},
	})
	r := &scriptedRunner{fail: map[string]int{"codecov": 1}}

	run, _, err := NewRunPipeline(r, nil).Execute(context.Background(), d, job, PipelineOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !run.Passed {
		t.Fatalf("after_success failures must not fail the job")
	}
	if len(r.calls) != 3 {
		t.Fatalf("expected all after_success steps to run, got %v", r.calls)
	}
}

func TestRunPipeline_RunnerErrorIsStepFailure(t *testing.T) {
	d, job := pipelineJob(map[string][]string{
		domain.PhaseInstall: {"missing-binary"},
	})
	r := &scriptedRunner{err: map[string]error{"missing-binary": errors.New("exec: not found")}}

	run, _, err := NewRunPipeline(r, nil).Execute(context.Background(), d, job, PipelineOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Passed || run.Steps[0].Error == "" || run.Steps[0].ExitCode != -1 {
		t.Fatalf("unexpected step %+v", run.Steps[0])
	}
}

func TestRunPipeline_DryRunDoesNotExecute(t *testing.T) {
	d, job := pipelineJob(map[string][]string{
		domain.PhaseInstall: {"pip install ."},
		domain.PhaseScript:  {"pytest", "set -e"},
	})
	r := &scriptedRunner{}

	run, _, err := NewRunPipeline(r, nil).Execute(context.Background(), d, job, PipelineOptions{DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("dry run executed %v", r.calls)
	}
	if !run.Passed || !run.DryRun {
		t.Fatalf("expected passing dry run")
	}
	if run.Steps[0].Status != domain.StepPlanned {
		t.Fatalf("expected planned step, got %s", run.Steps[0].Status)
	}
}

func TestRunPipeline_StopsOnContextCancel(t *testing.T) {
	d, job := pipelineJob(map[string][]string{
		domain.PhaseScript: {"pytest"},
	})
	r := &scriptedRunner{}
	store := &fakeStore{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, id, err := NewRunPipeline(r, store).Execute(ctx, d, job, PipelineOptions{Save: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if id != "" || store.saved {
		t.Fatalf("cancelled runs must not be saved")
	}
	if len(r.calls) != 0 {
		t.Fatalf("expected no runner calls, got %v", r.calls)
	}
	if run.StartedAt.IsZero() || run.EndedAt.IsZero() {
		t.Fatalf("expected timestamps set")
	}
}

func TestRunPipeline_DeployGuard(t *testing.T) {
	d, job := pipelineJob(map[string][]string{})

	run, _, _ := NewRunPipeline(&scriptedRunner{}, nil).Execute(context.Background(), d, job,
		PipelineOptions{Env: domain.Vars{domain.EnvRepoSlug: "slaclab/pytmc"}})
	if !run.Deploy {
		t.Fatalf("expected deploy on the official repository")
	}

	run, _, _ = NewRunPipeline(&scriptedRunner{}, nil).Execute(context.Background(), d, job,
		PipelineOptions{Env: domain.Vars{domain.EnvRepoSlug: "fork/pytmc"}})
	if run.Deploy {
		t.Fatalf("forks must not deploy")
	}
}

func TestPlanAndSelectJob(t *testing.T) {
	d := domain.Descriptor{
		Path:      ".travis.yml",
		Language:  "python",
		GlobalEnv: domain.Vars{domain.EnvOfficialRepo: "slaclab/pytmc"},
		Matrix: []domain.MatrixEntry{
			{Python: "3.6", Env: domain.Vars{domain.EnvBuildDocs: "1"}},
			{Python: "3.7"},
		},
	}

	plan := PlanPipeline(d, domain.Vars{domain.EnvRepoSlug: "slaclab/pytmc"})
	if len(plan.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(plan.Jobs))
	}
	if !plan.Jobs[0].Deploy || plan.Jobs[1].Deploy {
		t.Fatalf("unexpected deploy flags: %+v", plan.Jobs)
	}

	if _, err := SelectJob(d, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := SelectJob(d, 2); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}
