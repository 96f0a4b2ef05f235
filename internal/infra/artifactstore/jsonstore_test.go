package artifactstore

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pcdshub/pytmc/internal/domain"
)

func sampleRun(start time.Time) domain.PipelineRun {
	return domain.PipelineRun{
		Descriptor: ".travis.yml",
		Job:        0,
		JobName:    "python 3.6 +docs",
		Env: domain.Vars{
			"BUILD_DOCS":   "1",
			"GITHUB_TOKEN": "tok-123",
		},
		Passed:    true,
		StartedAt: start,
		EndedAt:   start.Add(2 * time.Second),
		Steps: []domain.StepResult{
			{Phase: domain.PhaseScript, Command: "echo tok-123", Status: domain.StepPassed, Output: "tok-123\n"},
		},
	}
}

func TestSaveRun_CreatesJSONFile(t *testing.T) {
	tmp := t.TempDir()

	cfg := domain.DefaultConfig()
	cfg.Masking.Enabled = false
	store := New(tmp, cfg)

	start := time.Date(2026, 2, 3, 10, 11, 12, 0, time.UTC)
	id, err := store.SaveRun(sampleRun(start))
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if id != "20260203T101112Z_job-0-python-3-6-docs" {
		t.Fatalf("unexpected id %q", id)
	}

	b, err := os.ReadFile(filepath.Join(tmp, "runs", id+".json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var decoded domain.PipelineRun
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.JobName != "python 3.6 +docs" || len(decoded.Steps) != 1 {
		t.Fatalf("unexpected decoded run %+v", decoded)
	}
	if decoded.Env["GITHUB_TOKEN"] != "tok-123" {
		t.Fatalf("masking disabled must keep values")
	}
}

func TestSaveRun_MasksSecretsWhenEnabled(t *testing.T) {
	tmp := t.TempDir()
	store := New(tmp, domain.DefaultConfig())

	start := time.Date(2026, 2, 3, 10, 11, 12, 0, time.UTC)
	run := sampleRun(start)

	id, err := store.SaveRun(run)
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if run.Env["GITHUB_TOKEN"] != "tok-123" || run.Steps[0].Output != "tok-123\n" {
		t.Fatalf("expected original run not mutated")
	}

	b, err := os.ReadFile(filepath.Join(tmp, "runs", id+".json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(b), "tok-123") {
		t.Fatalf("secret leaked into artifact:\n%s", b)
	}

	var decoded domain.PipelineRun
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Env["GITHUB_TOKEN"] != maskValue {
		t.Fatalf("expected token masked, got %q", decoded.Env["GITHUB_TOKEN"])
	}
	if decoded.Env["BUILD_DOCS"] != "1" {
		t.Fatalf("expected BUILD_DOCS preserved")
	}
	if decoded.Steps[0].Command != "echo "+maskValue {
		t.Fatalf("expected command scrubbed, got %q", decoded.Steps[0].Command)
	}
}

func TestSaveRun_WritesIndex(t *testing.T) {
	tmp := t.TempDir()
	cfg := domain.DefaultConfig()
	cfg.Paths.RunsDir = "ci-runs"

	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	store := New(tmp, cfg, WithIndex(true), WithNow(func() time.Time { return fixed }))

	run := sampleRun(time.Time{})
	id, err := store.SaveRun(run)
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if !strings.HasPrefix(id, "20260501T080000Z_") {
		t.Fatalf("expected id from injected clock, got %q", id)
	}

	f, err := os.Open(filepath.Join(tmp, "ci-runs", "index.jsonl"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		t.Fatalf("expected one index line")
	}
	var line map[string]any
	if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
		t.Fatalf("index line: %v", err)
	}
	if line["id"] != id || line["passed"] != true {
		t.Fatalf("unexpected index line %v", line)
	}
}

func TestSaveRun_SameSecondGetsDistinctIDs(t *testing.T) {
	tmp := t.TempDir()
	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	store := New(tmp, domain.DefaultConfig())

	first, err := store.SaveRun(sampleRun(start))
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	second, err := store.SaveRun(sampleRun(start))
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct ids, both %q", first)
	}
	if second != first+"-2" {
		t.Fatalf("expected %q, got %q", first+"-2", second)
	}

	for _, id := range []string{first, second} {
		b, err := os.ReadFile(filepath.Join(tmp, "runs", id+".json"))
		if err != nil {
			t.Fatalf("read %s: %v", id, err)
		}
		if !strings.Contains(string(b), `"job_name": "python 3.6 +docs"`) {
			t.Fatalf("unexpected artifact %s:\n%s", id, b)
		}
	}
}

func TestWriteFile_Atomic(t *testing.T) {
	tmp := t.TempDir()
	store := New(tmp, domain.DefaultConfig())

	path, err := store.WriteFile(filepath.Join("db", "plc.db"), []byte("record(ai, \"X\") {\n}\n"))
	if err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if path != filepath.Join(tmp, "db", "plc.db") {
		t.Fatalf("unexpected path %s", path)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind")
	}

	abs := filepath.Join(tmp, "abs.proto")
	got, err := store.WriteFile(abs, []byte("x"))
	if err != nil || got != abs {
		t.Fatalf("absolute path not honoured: %s (%v)", got, err)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"job-1 python 3.7": "job-1-python-3-7",
		"  ":               "",
		"A__B":             "a-b",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
