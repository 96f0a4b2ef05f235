package tui

import (
	"log/slog"

	"github.com/pcdshub/pytmc/internal/ports"
	"github.com/pcdshub/pytmc/internal/usecase"
)

type Deps struct {
	Loader           ports.TmcLoader
	WorkspaceLocator ports.WorkspaceLocator

	// Options are used to assemble the packages being browsed.
	Options usecase.BuildOptions

	Logger *slog.Logger
	Debug  bool
}
