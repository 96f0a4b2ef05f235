package ports

import (
	"context"

	"github.com/pcdshub/pytmc/internal/domain"
)

// StepRunner executes a single shell step with the given environment.
// A non-zero exit is reported in the result, not as an error; errors are
// reserved for steps that could not be started.
type StepRunner interface {
	Run(ctx context.Context, command string, env domain.Vars) (domain.StepResult, error)
}
