package ports

import "github.com/pcdshub/pytmc/internal/domain"

// DescriptorLoader loads a CI pipeline descriptor from a source (e.g., filesystem).
type DescriptorLoader interface {
	LoadDescriptor(path string) (domain.Descriptor, error)
}
