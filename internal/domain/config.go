package domain

// Config represents the pytmc workspace configuration loaded from pytmc.yaml.
type Config struct {
	Delim   string
	Prefix  string
	Binary  string
	AdsPort int

	Paths   PathsConfig
	Proto   ProtoConfig
	Masking MaskingConfig
}

type PathsConfig struct {
	DBDir       string
	TemplateDir string
	RunsDir     string
}

// ProtoConfig names the StreamDevice protocol used by generated records.
// Both empty means records are generated without protocols.
type ProtoConfig struct {
	Name string
	File string
}

type MaskingConfig struct {
	Enabled bool
}

// DefaultConfig provides sane defaults if pytmc.yaml is partially missing.
func DefaultConfig() Config {
	return Config{
		Delim:   ":",
		Binary:  "adsMotion",
		AdsPort: 851,
		Paths: PathsConfig{
			DBDir:       ".",
			TemplateDir: ".",
			RunsDir:     "runs",
		},
		Masking: MaskingConfig{Enabled: true},
	}
}

// WorkspaceSpec describes what `pytmc init` writes. Config seeds pytmc.yaml;
// Force overwrites an existing one.
type WorkspaceSpec struct {
	Root   string
	Config Config
	Force  bool
}
