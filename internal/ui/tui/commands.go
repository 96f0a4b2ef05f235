package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pcdshub/pytmc/internal/ctxlog"
	"github.com/pcdshub/pytmc/internal/usecase"
)

func cmdRefreshWorkspace(deps Deps) tea.Cmd {
	return func() tea.Msg {
		wd, err := os.Getwd()
		if err != nil {
			return workspaceRefreshedMsg{cwd: "", found: false, err: fmt.Errorf("getwd: %w", err)}
		}
		if deps.WorkspaceLocator == nil {
			return workspaceRefreshedMsg{cwd: wd, found: false, err: errors.New("WorkspaceLocator is nil")}
		}

		root, findErr := deps.WorkspaceLocator.FindRoot(wd)
		if findErr != nil {
			return workspaceRefreshedMsg{cwd: wd, found: false, err: findErr}
		}

		return workspaceRefreshedMsg{cwd: wd, found: true, root: root, err: nil}
	}
}

func cmdLoadPackages(deps Deps, path string) tea.Cmd {
	return func() tea.Msg {
		if deps.Loader == nil {
			return packagesLoadedMsg{path: path, err: errors.New("Loader is nil")}
		}

		log := deps.Logger
		if log == nil {
			log = slog.New(slog.NewJSONHandler(io.Discard, nil))
		}
		ctx := ctxlog.WithLogger(context.Background(), log)

		rs, err := usecase.NewBuildRecords(deps.Loader).Execute(ctx, path, deps.Options)
		if err != nil {
			log.Error("debug.load.failed", "path", path, "err", err)
		} else if deps.Debug {
			log.Debug("debug.load.ok",
				"path", path,
				"packages", len(rs.Packages),
				"incomplete", len(rs.Incomplete),
			)
		}
		return packagesLoadedMsg{path: path, set: rs, err: err}
	}
}
