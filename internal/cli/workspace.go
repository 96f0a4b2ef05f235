package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/infra/workspacefinder"
	"github.com/pcdshub/pytmc/internal/usecase"
)

// workspaceCtx is the optional pytmc.yaml workspace. Without one, root is
// the working directory and cfg holds the defaults.
type workspaceCtx struct {
	root  string
	found bool
	cfg   domain.Config
}

func loadWorkspace(workspaceFlag string) (*workspaceCtx, error) {
	root, err := resolveWorkspaceRoot(workspaceFlag)
	if err != nil {
		if strings.TrimSpace(workspaceFlag) != "" || !domain.IsKind(err, domain.KindNotFound) {
			return nil, err
		}
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, fmt.Errorf("get working directory: %w", wdErr)
		}
		return &workspaceCtx{root: wd, cfg: domain.DefaultConfig()}, nil
	}

	cfg, err := workspacefinder.LoadConfig(root)
	if err != nil && !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}
	return &workspaceCtx{root: root, found: err == nil, cfg: cfg}, nil
}

func resolveWorkspaceRoot(workspaceFlag string) (string, error) {
	w := strings.TrimSpace(workspaceFlag)
	if w != "" {
		abs, err := filepath.Abs(w)
		if err != nil {
			return "", fmt.Errorf("invalid workspace path: %w", err)
		}
		return abs, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	return workspacefinder.NewFinder().FindRoot(wd)
}

// buildOptions merges proto flags over the workspace configuration.
func (ws *workspaceCtx) buildOptions(protoName, protoFile string, noGuess bool) usecase.BuildOptions {
	opts := usecase.BuildOptions{
		ProtoName: ws.cfg.Proto.Name,
		ProtoFile: ws.cfg.Proto.File,
		Delim:     ws.cfg.Delim,
		NoGuess:   noGuess,
	}
	if s := strings.TrimSpace(protoName); s != "" {
		opts.ProtoName = s
	}
	if s := strings.TrimSpace(protoFile); s != "" {
		opts.ProtoFile = s
	}
	if opts.ProtoName != "" && opts.ProtoFile == "" {
		opts.ProtoFile = opts.ProtoName + ".proto"
	}
	return opts
}

// path resolves p against the workspace root unless it is absolute.
func (ws *workspaceCtx) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ws.root, p)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
