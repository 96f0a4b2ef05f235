package ports

// WorkspaceLocator finds a pytmc workspace root starting from an arbitrary directory.
type WorkspaceLocator interface {
	FindRoot(startDir string) (string, error)
}
