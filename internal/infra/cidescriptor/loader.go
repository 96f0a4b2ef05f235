package cidescriptor

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/ports"
)

// DefaultFile is the descriptor read when no path is given.
const DefaultFile = ".travis.yml"

type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

var _ ports.DescriptorLoader = (*Loader)(nil)

func (l *Loader) LoadDescriptor(path string) (domain.Descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Descriptor{}, &domain.OpError{
			Op:   "cidescriptor.load",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var dto yamlDescriptor
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return domain.Descriptor{}, &domain.OpError{
			Op:   "cidescriptor.load",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	return MapDescriptor(path, dto)
}
