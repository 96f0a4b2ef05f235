package fsworkspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pcdshub/pytmc/internal/infra/logger"
)

const gitignoreHeader = "# pytmc"

// ignoreEntries lists the generated directories kept out of version control.
func ignoreEntries(runsDir string) []string {
	out := []string{logger.Dir + "/"}
	if runsDir != "" && runsDir != "." {
		out = append([]string{filepath.ToSlash(filepath.Clean(runsDir)) + "/"}, out...)
	}
	return out
}

// ensureGitignore appends the missing entries under a single header. It
// reports whether the file was written.
func ensureGitignore(root, runsDir string) (bool, error) {
	path := filepath.Join(root, ".gitignore")
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	existing := string(b)

	present := map[string]bool{}
	for _, line := range strings.Split(existing, "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var add []string
	if !present[gitignoreHeader] {
		add = append(add, gitignoreHeader)
	}
	missing := 0
	for _, e := range ignoreEntries(runsDir) {
		if !present[e] {
			add = append(add, e)
			missing++
		}
	}
	if missing == 0 {
		return false, nil
	}

	var out strings.Builder
	out.WriteString(existing)
	if existing != "" {
		if !strings.HasSuffix(existing, "\n") {
			out.WriteByte('\n')
		}
		out.WriteByte('\n')
	}
	out.WriteString(strings.Join(add, "\n"))
	out.WriteByte('\n')

	return true, os.WriteFile(path, []byte(out.String()), 0o644)
}
