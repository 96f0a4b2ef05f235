package fsworkspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureGitignore_CreatesFile(t *testing.T) {
	tmp := t.TempDir()

	changed, err := ensureGitignore(tmp, "runs")
	if err != nil {
		t.Fatalf("ensureGitignore error: %v", err)
	}
	if !changed {
		t.Fatalf("expected a new .gitignore")
	}

	b, err := os.ReadFile(filepath.Join(tmp, ".gitignore"))
	if err != nil {
		t.Fatalf("read .gitignore: %v", err)
	}
	if got, want := string(b), "# pytmc\nruns/\n.pytmc/\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEnsureGitignore_AppendsMissingEntries(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, ".gitignore")

	if err := os.WriteFile(path, []byte("*.pyc\n# pytmc\nartifacts/"), 0o644); err != nil {
		t.Fatalf("write .gitignore: %v", err)
	}

	if changed, err := ensureGitignore(tmp, "artifacts"); err != nil || !changed {
		t.Fatalf("first call: changed=%v err=%v", changed, err)
	}
	if changed, err := ensureGitignore(tmp, "artifacts"); err != nil || changed {
		t.Fatalf("second call must be a no-op: changed=%v err=%v", changed, err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read .gitignore: %v", err)
	}
	s := string(b)
	if !strings.HasPrefix(s, "*.pyc\n") {
		t.Fatalf("expected existing content preserved, got:\n%s", s)
	}
	for entry, n := range map[string]int{"# pytmc": 1, "artifacts/": 1, ".pytmc/": 1} {
		if strings.Count(s, entry) != n {
			t.Fatalf("expected %q %d time(s), got:\n%s", entry, n, s)
		}
	}
}

func TestIgnoreEntries_SkipsCurrentDir(t *testing.T) {
	if got := ignoreEntries("."); len(got) != 1 || got[0] != ".pytmc/" {
		t.Fatalf("unexpected entries %v", got)
	}
}
