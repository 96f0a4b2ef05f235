package artifactstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/ports"
)

const defaultRunsDir = "runs"
const maskValue = "********"

// Store writes generated files under the workspace root and pipeline runs
// as JSON under the runs directory.
type Store struct {
	rootDir        string
	runsDirName    string
	maskingEnabled bool
	writeIndex     bool
	now            func() time.Time
}

type Option func(*Store)

// WithIndex enables a JSONL index of saved runs: runs/index.jsonl
func WithIndex(enabled bool) Option {
	return func(s *Store) { s.writeIndex = enabled }
}

// WithNow is useful for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(root string, cfg domain.Config, opts ...Option) *Store {
	runsDir := cfg.Paths.RunsDir
	if strings.TrimSpace(runsDir) == "" {
		runsDir = defaultRunsDir
	}

	s := &Store{
		rootDir:        root,
		runsDirName:    runsDir,
		maskingEnabled: cfg.Masking.Enabled,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.ArtifactStore = (*Store)(nil)

// WriteFile stores data at name, relative to the root unless absolute.
func (s *Store) WriteFile(name string, data []byte) (string, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.rootDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &domain.OpError{
			Op:   "artifactstore.mkdir",
			Kind: domain.KindExecution,
			Path: filepath.Dir(path),
			Err:  err,
		}
	}
	if err := writeAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) SaveRun(run domain.PipelineRun) (string, error) {
	dir := filepath.Join(s.rootDir, s.runsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &domain.OpError{
			Op:   "artifactstore.mkdir",
			Kind: domain.KindExecution,
			Path: dir,
			Err:  err,
		}
	}

	ts := run.StartedAt
	if ts.IsZero() {
		ts = s.now()
	}
	ts = ts.UTC()

	toSave := run
	if toSave.StartedAt.IsZero() {
		toSave.StartedAt = ts
	}

	slug := slugify(fmt.Sprintf("job-%d %s", run.Job, run.JobName))
	if slug == "" {
		slug = "run"
	}

	filename, err := reserveName(dir, fmt.Sprintf("%s_%s", ts.Format("20060102T150405Z"), slug))
	if err != nil {
		return "", err
	}
	id := strings.TrimSuffix(filename, ".json")
	path := filepath.Join(dir, filename)

	if s.maskingEnabled {
		toSave = maskRun(toSave)
	}

	b, err := json.MarshalIndent(toSave, "", "  ")
	if err != nil {
		_ = os.Remove(path)
		return "", &domain.OpError{
			Op:   "artifactstore.marshal",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}

	if err := writeAtomic(path, b, 0o600); err != nil {
		_ = os.Remove(path)
		return "", err
	}

	if s.writeIndex {
		_ = s.appendIndex(dir, id, filename, toSave)
	}
	return id, nil
}

// reserveName claims <base>.json in dir, or <base>-N.json when runs of the
// same job land in the same second.
func reserveName(dir, base string) (string, error) {
	for n := 1; ; n++ {
		name := base + ".json"
		if n > 1 {
			name = fmt.Sprintf("%s-%d.json", base, n)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = f.Close()
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", &domain.OpError{
				Op:   "artifactstore.reserve",
				Kind: domain.KindExecution,
				Path: filepath.Join(dir, name),
				Err:  err,
			}
		}
	}
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return &domain.OpError{
			Op:   "artifactstore.write",
			Kind: domain.KindExecution,
			Path: tmp,
			Err:  err,
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &domain.OpError{
			Op:   "artifactstore.rename",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}
	return nil
}

func (s *Store) appendIndex(dir, id, filename string, run domain.PipelineRun) error {
	type idx struct {
		ID        string    `json:"id"`
		File      string    `json:"file"`
		Job       int       `json:"job"`
		JobName   string    `json:"job_name"`
		Passed    bool      `json:"passed"`
		DryRun    bool      `json:"dry_run"`
		StartedAt time.Time `json:"started_at"`
	}
	line, err := json.Marshal(idx{
		ID:        id,
		File:      filename,
		Job:       run.Job,
		JobName:   run.JobName,
		Passed:    run.Passed,
		DryRun:    run.DryRun,
		StartedAt: run.StartedAt,
	})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, "index.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(line, '\n'))
	return err
}

// maskRun returns a masked copy. Sensitive env values are replaced and also
// scrubbed from step commands and output.
func maskRun(run domain.PipelineRun) domain.PipelineRun {
	out := run
	out.Env = domain.Vars{}

	var secrets []string
	for k, v := range run.Env {
		if isSensitiveKey(k) {
			out.Env[k] = maskValue
			if strings.TrimSpace(v) != "" {
				secrets = append(secrets, v)
			}
			continue
		}
		out.Env[k] = v
	}

	out.Steps = make([]domain.StepResult, len(run.Steps))
	for i, st := range run.Steps {
		for _, secret := range secrets {
			st.Command = strings.ReplaceAll(st.Command, secret, maskValue)
			st.Output = strings.ReplaceAll(st.Output, secret, maskValue)
			st.Error = strings.ReplaceAll(st.Error, secret, maskValue)
		}
		out.Steps[i] = st
	}
	return out
}

func isSensitiveKey(k string) bool {
	kk := strings.ToLower(k)
	return strings.Contains(kk, "token") ||
		strings.Contains(kk, "secret") ||
		strings.Contains(kk, "password") ||
		strings.Contains(kk, "secure") ||
		strings.Contains(kk, "encryption_key")
}

// slugify produces a safe filename component.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))

	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
