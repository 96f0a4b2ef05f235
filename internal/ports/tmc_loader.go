package ports

import "github.com/pcdshub/pytmc/internal/domain"

// TmcLoader reads a TwinCAT .tmc file into the domain model.
type TmcLoader interface {
	LoadTmc(path string) (*domain.TmcFile, error)
}
