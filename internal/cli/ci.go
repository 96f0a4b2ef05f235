package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/infra/artifactstore"
	"github.com/pcdshub/pytmc/internal/infra/cidescriptor"
	"github.com/pcdshub/pytmc/internal/infra/shellrunner"
	"github.com/pcdshub/pytmc/internal/ports"
	"github.com/pcdshub/pytmc/internal/usecase"
)

func ciCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "ci",
		Short: "Plan and run the project's CI pipeline locally",
	}

	c.AddCommand(ciPlanCmd(), ciRunCmd())
	return c
}

func ciPlanCmd() *cobra.Command {
	var workspace string
	var repoSlug string
	var format string

	c := &cobra.Command{
		Use:   "plan [FILE]",
		Short: "Expand the build matrix into jobs and evaluate the deploy guard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(workspace)
			if err != nil {
				return err
			}

			d, err := cidescriptor.NewLoader().LoadDescriptor(descriptorPath(ws, args))
			if err != nil {
				return err
			}

			plan := usecase.PlanPipeline(d, runnerEnv(repoSlug))
			return printPlan(cmd.OutOrStdout(), plan, format)
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVar(&repoSlug, "repo-slug", "", "Repository slug to evaluate the deploy guard with (default $TRAVIS_REPO_SLUG)")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

func ciRunCmd() *cobra.Command {
	var workspace string
	var job int
	var dryRun bool
	var noSave bool
	var repoSlug string
	var format string

	c := &cobra.Command{
		Use:   "run [FILE]",
		Short: "Run one job of the pipeline with the local shell",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(workspace)
			if err != nil {
				return err
			}

			d, err := cidescriptor.NewLoader().LoadDescriptor(descriptorPath(ws, args))
			if err != nil {
				return err
			}
			j, err := usecase.SelectJob(d, job)
			if err != nil {
				return err
			}

			var store ports.ArtifactStore
			if !noSave {
				store = artifactstore.New(ws.root, ws.cfg, artifactstore.WithIndex(true))
			}
			runner := shellrunner.New(shellrunner.WithWorkDir(ws.root))

			uc := usecase.NewRunPipeline(runner, store)
			run, runID, err := uc.Execute(cmd.Context(), d, j, usecase.PipelineOptions{
				DryRun: dryRun,
				Save:   !noSave,
				Env:    runnerEnv(repoSlug),
			})
			if perr := printPipelineRun(cmd.OutOrStdout(), run, runID, format); perr != nil && err == nil {
				err = perr
			}
			if err != nil {
				return err
			}

			if !run.Passed {
				return &domain.OpError{
					Op:   "cli.ci.run",
					Kind: domain.KindExecution,
					Path: d.Path,
					Err:  fmt.Errorf("job %d failed (%d failed step(s)): %w", j.Index, run.Failed(), domain.ErrExecution),
				}
			}
			return nil
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().IntVar(&job, "job", 0, "Index of the job to run (see `pytmc ci plan`)")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "Record the steps without executing them")
	c.Flags().BoolVar(&noSave, "no-save", false, "Do not save the run artifact under runs/")
	c.Flags().StringVar(&repoSlug, "repo-slug", "", "Repository slug for the deploy guard (default $TRAVIS_REPO_SLUG)")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

func descriptorPath(ws *workspaceCtx, args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0]
	}
	p := ws.path(cidescriptor.DefaultFile)
	if !fileExists(p) && fileExists(cidescriptor.DefaultFile) {
		return absPath(cidescriptor.DefaultFile)
	}
	return p
}

// runnerEnv collects the variables the CI platform itself would provide.
func runnerEnv(repoSlug string) domain.Vars {
	env := domain.Vars{}
	if v := os.Getenv(domain.EnvRepoSlug); v != "" {
		env[domain.EnvRepoSlug] = v
	}
	if s := strings.TrimSpace(repoSlug); s != "" {
		env[domain.EnvRepoSlug] = s
	}
	return env
}

func printPlan(w io.Writer, plan usecase.Plan, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case "pretty", "":
		fmt.Fprintf(w, "Descriptor: %s\n", plan.Descriptor)
		fmt.Fprintf(w, "Language:   %s\n", plan.Language)
		fmt.Fprintf(w, "Jobs:       %d\n\n", len(plan.Jobs))
		for _, j := range plan.Jobs {
			deploy := "no"
			if j.Deploy {
				deploy = "yes"
			}
			fmt.Fprintf(w, "- [%d] %s (deploy: %s)\n", j.Index, j.Name, deploy)
			for _, k := range sortedKeys(j.Env) {
				fmt.Fprintf(w, "    %s=%s\n", k, j.Env[k])
			}
			if j.Secrets > 0 {
				fmt.Fprintf(w, "    (%d secure value(s))\n", j.Secrets)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

func printPipelineRun(w io.Writer, run domain.PipelineRun, runID string, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		payload := map[string]any{
			"run_id": runID,
			"run":    run,
		}
		return enc.Encode(payload)
	case "pretty", "":
		printPrettyPipelineRun(w, run, runID)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

func printPrettyPipelineRun(w io.Writer, run domain.PipelineRun, runID string) {
	total := run.EndedAt.Sub(run.StartedAt)
	if run.StartedAt.IsZero() || run.EndedAt.IsZero() {
		total = 0
	}

	result := "PASSED"
	if !run.Passed {
		result = "FAILED"
	}

	fmt.Fprintf(w, "Job:        [%d] %s\n", run.Job, run.JobName)
	fmt.Fprintf(w, "Descriptor: %s\n", run.Descriptor)
	fmt.Fprintf(w, "Dry run:    %v\n", run.DryRun)
	fmt.Fprintf(w, "Deploy:     %v\n", run.Deploy)
	fmt.Fprintf(w, "Duration:   %s\n", total.Round(time.Millisecond))
	fmt.Fprintf(w, "Result:     %s\n", result)
	if runID != "" {
		fmt.Fprintf(w, "Run ID:     %s\n", runID)
	}
	fmt.Fprintln(w)

	for _, s := range run.Steps {
		fmt.Fprintf(w, "- [%s] %s: %s", s.Status, s.Phase, s.Command)
		if s.Status == domain.StepPassed || s.Status == domain.StepFailed {
			fmt.Fprintf(w, " (%dms)", s.Duration)
		}
		fmt.Fprintln(w)
		if s.Status == domain.StepFailed {
			if s.Error != "" {
				fmt.Fprintf(w, "  error: %s\n", s.Error)
			}
			if out := strings.TrimSpace(s.Output); out != "" {
				fmt.Fprintf(w, "  output: %s\n", lastLines(out, 5))
			}
		}
	}
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n          ")
}

func sortedKeys(v domain.Vars) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
