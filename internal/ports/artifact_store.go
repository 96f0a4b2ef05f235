package ports

import "github.com/pcdshub/pytmc/internal/domain"

// ArtifactStore persists generated files and pipeline runs.
type ArtifactStore interface {
	SaveRun(run domain.PipelineRun) (id string, err error)
	WriteFile(name string, data []byte) (path string, err error)
}
