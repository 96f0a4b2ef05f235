package domain

import (
	"strings"
	"time"
)

// Phase names, in execution order.
const (
	PhaseBeforeInstall = "before_install"
	PhaseInstall       = "install"
	PhaseScript        = "script"
	PhaseAfterSuccess  = "after_success"
)

// Phases lists the pipeline phases in the order a job runs them.
var Phases = []string{PhaseBeforeInstall, PhaseInstall, PhaseScript, PhaseAfterSuccess}

// Environment variables consulted by the deploy guard.
const (
	EnvRepoSlug     = "TRAVIS_REPO_SLUG"
	EnvOfficialRepo = "OFFICIAL_REPO"
	EnvBuildDocs    = "BUILD_DOCS"
)

// FailFastMarker turns on abort-on-first-failure for the remaining steps
// of the script phase.
const FailFastMarker = "set -e"

// MatrixEntry is one explicit build matrix variant.
type MatrixEntry struct {
	Python string
	Env    Vars
}

// Descriptor is a CI pipeline definition: a build matrix, environment and
// ordered phases of shell steps.
type Descriptor struct {
	Path     string
	Language string

	GlobalEnv Vars
	// Secrets are encrypted blobs; they are never decrypted here.
	Secrets []string

	Matrix []MatrixEntry

	Steps map[string][]string
}

// Job is one isolated matrix variant.
type Job struct {
	Index   int
	Python  string
	Env     Vars
	Secrets int
	Steps   map[string][]string
}

// Name is a short human readable job label.
func (j Job) Name() string {
	var b strings.Builder
	b.WriteString("python ")
	b.WriteString(j.Python)
	if v, ok := j.Env[EnvBuildDocs]; ok && v != "" {
		b.WriteString(" +docs")
	}
	return b.String()
}

// ShouldDeploy applies the documentation deploy guard: the repository slug
// must equal the official repository and the docs flag must be set.
// extra overrides the job environment (typically the CI runner's own env).
func (j Job) ShouldDeploy(extra Vars) bool {
	env := Merge(j.Env, extra)
	slug := env[EnvRepoSlug]
	official := env[EnvOfficialRepo]
	if slug == "" || slug != official {
		return false
	}
	return strings.TrimSpace(env[EnvBuildDocs]) != ""
}

// StepStatus is the outcome of a single pipeline step.
type StepStatus string

const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
	StepPlanned StepStatus = "planned"
)

// StepResult records what happened to a step.
type StepResult struct {
	Phase    string     `json:"phase"`
	Command  string     `json:"command"`
	Status   StepStatus `json:"status"`
	ExitCode int        `json:"exit_code"`
	Output   string     `json:"output,omitempty"`
	Error    string     `json:"error,omitempty"`
	Duration int64      `json:"duration_ms"`
}

// PipelineRun is the persisted result of running one job.
type PipelineRun struct {
	Descriptor string       `json:"descriptor"`
	Job        int          `json:"job"`
	JobName    string       `json:"job_name"`
	Env        Vars         `json:"env"`
	DryRun     bool         `json:"dry_run"`
	Deploy     bool         `json:"deploy"`
	Passed     bool         `json:"passed"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    time.Time    `json:"ended_at"`
	Steps      []StepResult `json:"steps"`
}

// Failed counts failed steps.
func (r PipelineRun) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			n++
		}
	}
	return n
}
