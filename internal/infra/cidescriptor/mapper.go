package cidescriptor

import (
	"fmt"
	"strings"

	"github.com/pcdshub/pytmc/internal/domain"
)

// MapDescriptor validates the YAML form and converts it to the domain model.
func MapDescriptor(path string, y yamlDescriptor) (domain.Descriptor, error) {
	d := domain.Descriptor{
		Path:      path,
		Language:  strings.TrimSpace(y.Language),
		GlobalEnv: domain.Vars{},
		Steps:     map[string][]string{},
	}

	for i, e := range y.Env.Global {
		if e.Secure != "" {
			d.Secrets = append(d.Secrets, e.Secure)
			continue
		}
		vars, ok := domain.ParseAssignments(e.Assignment)
		if !ok {
			return domain.Descriptor{}, invalidField(path, fmt.Sprintf("env.global[%d]", i), "expected KEY=VALUE")
		}
		d.GlobalEnv = domain.Merge(d.GlobalEnv, vars)
	}

	include := y.Matrix.Include
	if len(include) == 0 {
		include = y.Jobs.Include
	}

	// The python x env.matrix expansion comes first; include entries add
	// jobs to it rather than replacing it.
	if len(y.Python) > 0 || len(y.Env.Matrix) > 0 {
		envs := make([]domain.Vars, 0, len(y.Env.Matrix))
		for i, line := range y.Env.Matrix {
			vars, ok := domain.ParseAssignments(line)
			if !ok {
				return domain.Descriptor{}, invalidField(path, fmt.Sprintf("env.matrix[%d]", i), "expected KEY=VALUE")
			}
			envs = append(envs, vars)
		}
		pythons := []string(y.Python)
		if len(pythons) == 0 {
			pythons = []string{""}
		}
		d.Matrix = domain.CrossMatrix(pythons, envs)
	}

	for i, inc := range include {
		env, err := parseEnvList(path, fmt.Sprintf("matrix.include[%d].env", i), inc.Env)
		if err != nil {
			return domain.Descriptor{}, err
		}
		py := string(inc.Python)
		if py == "" && len(y.Python) > 0 {
			py = y.Python[0]
		}
		d.Matrix = append(d.Matrix, domain.MatrixEntry{Python: py, Env: env})
	}

	phases := map[string]stringList{
		domain.PhaseBeforeInstall: y.BeforeInstall,
		domain.PhaseInstall:       y.Install,
		domain.PhaseScript:        y.Script,
		domain.PhaseAfterSuccess:  y.AfterSuccess,
	}
	total := 0
	for phase, steps := range phases {
		if len(steps) == 0 {
			continue
		}
		d.Steps[phase] = []string(steps)
		total += len(steps)
	}
	if total == 0 {
		return domain.Descriptor{}, invalidField(path, "script", "descriptor declares no steps")
	}

	return d, nil
}

func parseEnvList(path, field string, lines []string) (domain.Vars, error) {
	out := domain.Vars{}
	for _, line := range lines {
		vars, ok := domain.ParseAssignments(line)
		if !ok {
			return nil, invalidField(path, field, "expected KEY=VALUE")
		}
		out = domain.Merge(out, vars)
	}
	return out, nil
}

func invalidField(path, field, msg string) error {
	return &domain.OpError{
		Op:   "cidescriptor.map",
		Kind: domain.KindInvalidConfig,
		Path: path,
		Err:  fmt.Errorf("field %s: %s: %w", field, msg, domain.ErrInvalidConfig),
	}
}
