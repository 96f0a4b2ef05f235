package cidescriptor

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type yamlDescriptor struct {
	Language string     `yaml:"language"`
	Python   stringList `yaml:"python"`
	Env      yamlEnv    `yaml:"env"`
	Matrix   yamlMatrix `yaml:"matrix"`
	Jobs     yamlMatrix `yaml:"jobs"`

	BeforeInstall stringList `yaml:"before_install"`
	Install       stringList `yaml:"install"`
	Script        stringList `yaml:"script"`
	AfterSuccess  stringList `yaml:"after_success"`
}

type yamlMatrix struct {
	Include []yamlMatrixEntry `yaml:"include"`
}

type yamlMatrixEntry struct {
	Python scalar     `yaml:"python"`
	Env    stringList `yaml:"env"`
}

// yamlEnv accepts either a plain list (the matrix axis) or a mapping with
// global and matrix keys.
type yamlEnv struct {
	Global []yamlEnvEntry
	Matrix []string
}

func (e *yamlEnv) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode, yaml.SequenceNode:
		var l stringList
		if err := n.Decode(&l); err != nil {
			return err
		}
		e.Matrix = l
		return nil
	case yaml.MappingNode:
		var m struct {
			Global []yamlEnvEntry `yaml:"global"`
			Matrix stringList     `yaml:"matrix"`
		}
		if err := n.Decode(&m); err != nil {
			return err
		}
		e.Global = m.Global
		e.Matrix = m.Matrix
		return nil
	default:
		return fmt.Errorf("line %d: env must be a list or a mapping", n.Line)
	}
}

// yamlEnvEntry is either a KEY=VALUE string or an encrypted {secure: ...}.
type yamlEnvEntry struct {
	Assignment string
	Secure     string
}

func (e *yamlEnvEntry) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		e.Assignment = n.Value
		return nil
	case yaml.MappingNode:
		var m struct {
			Secure string `yaml:"secure"`
		}
		if err := n.Decode(&m); err != nil {
			return err
		}
		if m.Secure == "" {
			return fmt.Errorf("line %d: env entry mapping must carry a secure value", n.Line)
		}
		e.Secure = m.Secure
		return nil
	default:
		return fmt.Errorf("line %d: env entry must be a string or {secure: ...}", n.Line)
	}
}

// stringList accepts a single scalar or a list of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*l = stringList{n.Value}
		return nil
	case yaml.SequenceNode:
		out := make(stringList, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected a string", c.Line)
			}
			out = append(out, c.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", n.Line)
	}
}

// scalar keeps the literal text so versions like 3.10 are not read as floats.
type scalar string

func (s *scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", n.Line)
	}
	*s = scalar(n.Value)
	return nil
}
