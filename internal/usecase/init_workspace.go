package usecase

import (
	"path/filepath"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/ports"
)

type InitWorkspace struct {
	initializer ports.WorkspaceInitializer
}

func NewInitWorkspace(initializer ports.WorkspaceInitializer) *InitWorkspace {
	return &InitWorkspace{initializer: initializer}
}

// Execute lays out a workspace under root. Blank settings in cfg fall back to
// domain.DefaultConfig.
func (uc *InitWorkspace) Execute(root string, cfg domain.Config, force bool) ([]string, error) {
	def := domain.DefaultConfig()
	if cfg.Delim == "" {
		cfg.Delim = def.Delim
	}
	if cfg.Binary == "" {
		cfg.Binary = def.Binary
	}
	if cfg.AdsPort == 0 {
		cfg.AdsPort = def.AdsPort
	}
	if cfg.Paths.DBDir == "" {
		cfg.Paths.DBDir = "db"
	}
	if cfg.Paths.TemplateDir == "" {
		cfg.Paths.TemplateDir = def.Paths.TemplateDir
	}
	if cfg.Paths.RunsDir == "" {
		cfg.Paths.RunsDir = def.Paths.RunsDir
	}
	if cfg.Proto.Name != "" && cfg.Proto.File == "" {
		cfg.Proto.File = cfg.Proto.Name + ".proto"
	}

	return uc.initializer.Init(domain.WorkspaceSpec{
		Root:   filepath.Clean(root),
		Config: cfg,
		Force:  force,
	})
}
