package ports

import "github.com/pcdshub/pytmc/internal/domain"

// WorkspaceInitializer lays out a workspace and reports the paths it created
// or rewrote.
type WorkspaceInitializer interface {
	Init(spec domain.WorkspaceSpec) ([]string, error)
}
