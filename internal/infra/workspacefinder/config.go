package workspacefinder

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pcdshub/pytmc/internal/domain"
)

// LoadConfig reads pytmc.yaml from root over domain.DefaultConfig. A missing
// file is reported as not_found together with the defaults so callers can
// carry on without a workspace.
func LoadConfig(root string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	path := filepath.Join(root, ConfigFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var y yamlConfig
	if err := yaml.Unmarshal(b, &y); err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	p := y.Pytmc
	if p.Delim != nil {
		cfg.Delim = *p.Delim
	}
	if p.Prefix != "" {
		cfg.Prefix = p.Prefix
	}
	if p.Binary != "" {
		cfg.Binary = p.Binary
	}
	if p.AdsPort != 0 {
		cfg.AdsPort = p.AdsPort
	}
	if p.Masking.Enabled != nil {
		cfg.Masking.Enabled = *p.Masking.Enabled
	}
	if s := strings.TrimSpace(p.Paths.DBDir); s != "" {
		cfg.Paths.DBDir = s
	}
	if s := strings.TrimSpace(p.Paths.TemplateDir); s != "" {
		cfg.Paths.TemplateDir = s
	}
	if s := strings.TrimSpace(p.Paths.RunsDir); s != "" {
		cfg.Paths.RunsDir = s
	}
	cfg.Proto.Name = strings.TrimSpace(p.Proto.Name)
	cfg.Proto.File = strings.TrimSpace(p.Proto.File)

	return cfg, nil
}

type yamlConfig struct {
	Pytmc struct {
		Delim   *string `yaml:"delim"`
		Prefix  string  `yaml:"prefix"`
		Binary  string  `yaml:"binary"`
		AdsPort int     `yaml:"ads_port"`

		Paths struct {
			DBDir       string `yaml:"db_dir"`
			TemplateDir string `yaml:"template_dir"`
			RunsDir     string `yaml:"runs_dir"`
		} `yaml:"paths"`

		Proto struct {
			Name string `yaml:"name"`
			File string `yaml:"file"`
		} `yaml:"proto"`

		Masking struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"masking"`
	} `yaml:"pytmc"`
}
