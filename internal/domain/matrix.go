package domain

// Expand turns the build matrix into independent jobs. A descriptor without
// matrix entries yields a single job running on the global environment.
func (d Descriptor) Expand() []Job {
	entries := d.Matrix
	if len(entries) == 0 {
		entries = []MatrixEntry{{}}
	}

	jobs := make([]Job, 0, len(entries))
	for i, e := range entries {
		jobs = append(jobs, Job{
			Index:   i,
			Python:  e.Python,
			Env:     Merge(d.GlobalEnv, e.Env),
			Secrets: len(d.Secrets),
			Steps:   cloneSteps(d.Steps),
		})
	}
	return jobs
}

// CrossMatrix builds matrix entries from a list of interpreter versions and
// a list of per-variant environments (every version x every environment).
func CrossMatrix(pythons []string, envs []Vars) []MatrixEntry {
	if len(envs) == 0 {
		envs = []Vars{{}}
	}
	out := make([]MatrixEntry, 0, len(pythons)*len(envs))
	for _, py := range pythons {
		for _, env := range envs {
			out = append(out, MatrixEntry{Python: py, Env: Merge(nil, env)})
		}
	}
	return out
}

func cloneSteps(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for phase, steps := range in {
		cp := make([]string, len(steps))
		copy(cp, steps)
		out[phase] = cp
	}
	return out
}
