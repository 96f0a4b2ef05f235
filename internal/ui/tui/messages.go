package tui

import "github.com/pcdshub/pytmc/internal/usecase"

type workspaceRefreshedMsg struct {
	cwd   string
	found bool
	root  string
	err   error
}

type packagesLoadedMsg struct {
	path string
	set  usecase.RecordSet
	err  error
}
