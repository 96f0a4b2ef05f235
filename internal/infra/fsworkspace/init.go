// Package fsworkspace writes a fresh pytmc workspace to disk.
package fsworkspace

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/infra/logger"
	"github.com/pcdshub/pytmc/internal/ports"
)

const configFile = "pytmc.yaml"

type Initializer struct{}

func NewInitializer() *Initializer {
	return &Initializer{}
}

var _ ports.WorkspaceInitializer = (*Initializer)(nil)

// Init creates the db, runs and log directories, writes pytmc.yaml from
// spec.Config and keeps .gitignore free of generated artifacts. An existing
// pytmc.yaml is left alone unless spec.Force is set.
func (i *Initializer) Init(spec domain.WorkspaceSpec) ([]string, error) {
	root := filepath.Clean(spec.Root)
	cfg := spec.Config
	var created []string

	for _, d := range []string{cfg.Paths.DBDir, cfg.Paths.RunsDir, filepath.Join(logger.Dir, "logs")} {
		if d == "" || d == "." {
			continue
		}
		dir := filepath.Join(root, d)
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			created = append(created, dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return created, initError(dir, err)
		}
	}

	path := filepath.Join(root, configFile)
	if _, err := os.Stat(path); err == nil && !spec.Force {
		return created, nil
	}
	data, err := encodeConfig(cfg)
	if err != nil {
		return created, initError(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return created, initError(path, err)
	}
	created = append(created, path)

	changed, err := ensureGitignore(root, cfg.Paths.RunsDir)
	if err != nil {
		return created, initError(filepath.Join(root, ".gitignore"), err)
	}
	if changed {
		created = append(created, filepath.Join(root, ".gitignore"))
	}
	return created, nil
}

func initError(path string, err error) error {
	return &domain.OpError{Op: "fsworkspace.init", Kind: domain.KindExecution, Path: path, Err: err}
}

type configDoc struct {
	Pytmc struct {
		Delim   string `yaml:"delim"`
		Prefix  string `yaml:"prefix"`
		Binary  string `yaml:"binary"`
		AdsPort int    `yaml:"ads_port"`

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
			Enabled bool `yaml:"enabled"`
		} `yaml:"masking"`
	} `yaml:"pytmc"`
}

var keyComments = map[string]string{
	"delim":  "PV delimiter used between nested pragma PVs.",
	"prefix": "IOC prefix; the upper-cased IOC name when empty.",
	"proto":  "StreamDevice protocol for generated records.\nLeave both empty for Soft Channel records.",
}

// encodeConfig renders cfg as pytmc.yaml with a comment above the keys users
// most often edit.
func encodeConfig(cfg domain.Config) ([]byte, error) {
	var doc configDoc
	p := &doc.Pytmc
	p.Delim = cfg.Delim
	p.Prefix = cfg.Prefix
	p.Binary = cfg.Binary
	p.AdsPort = cfg.AdsPort
	p.Paths.DBDir = cfg.Paths.DBDir
	p.Paths.TemplateDir = cfg.Paths.TemplateDir
	p.Paths.RunsDir = cfg.Paths.RunsDir
	p.Proto.Name = cfg.Proto.Name
	p.Proto.File = cfg.Proto.File
	p.Masking.Enabled = cfg.Masking.Enabled

	var node yaml.Node
	if err := node.Encode(&doc); err != nil {
		return nil, err
	}
	if len(node.Content) == 2 {
		body := node.Content[1]
		for k := 0; k+1 < len(body.Content); k += 2 {
			if c, ok := keyComments[body.Content[k].Value]; ok {
				body.Content[k].HeadComment = c
			}
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
