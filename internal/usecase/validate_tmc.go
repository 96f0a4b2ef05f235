package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/ports"
)

// Problem describes one PV that cannot be turned into a record.
type Problem struct {
	PV      string   `json:"pv"`
	TcPath  string   `json:"tc_path"`
	Missing []string `json:"missing"`
}

type ValidateTmc struct {
	loader ports.TmcLoader
}

func NewValidateTmc(loader ports.TmcLoader) *ValidateTmc {
	return &ValidateTmc{loader: loader}
}

// Execute parses the file and assembles every PV package. It returns the
// per-PV problems and an incomplete_config error when there are any.
func (uc *ValidateTmc) Execute(ctx context.Context, path string, opts BuildOptions) ([]Problem, error) {
	tmc, err := uc.loader.LoadTmc(path)
	if err != nil {
		return nil, err
	}

	rs, err := Build(ctx, tmc, opts)
	if err != nil {
		return nil, err
	}

	problems := make([]Problem, 0, len(rs.Incomplete))
	for _, p := range rs.Incomplete {
		problems = append(problems, Problem{
			PV:      p.PVComplete,
			TcPath:  p.TcPath(),
			Missing: requirementNames(p.MissingLines()),
		})
	}
	if dup := duplicatePVs(rs); len(dup) > 0 {
		for _, pv := range dup {
			problems = append(problems, Problem{PV: pv, Missing: []string{"unique pv"}})
		}
	}

	if len(problems) == 0 {
		return nil, nil
	}
	return problems, &domain.OpError{
		Op:   "validate.tmc",
		Kind: domain.KindIncompleteConfig,
		Path: path,
		Err:  fmt.Errorf("%d PV(s) with problems: %w", len(problems), domain.ErrIncompleteConfig),
	}
}

func duplicatePVs(rs RecordSet) []string {
	seen := map[string]int{}
	var dup []string
	for _, p := range rs.Packages {
		seen[p.PVComplete]++
		if seen[p.PVComplete] == 2 {
			dup = append(dup, p.PVComplete)
		}
	}
	return dup
}

// String renders a problem as "PV (path): missing a, b".
func (p Problem) String() string {
	if p.TcPath == "" {
		return fmt.Sprintf("%s: missing %s", p.PV, strings.Join(p.Missing, ", "))
	}
	return fmt.Sprintf("%s (%s): missing %s", p.PV, p.TcPath, strings.Join(p.Missing, ", "))
}
