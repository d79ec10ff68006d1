package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/specvital/phpunit-runner/pkg/argbuilder"
)

// Config is the top-level configuration.
type Config struct {
	PHP            string       `yaml:"php,omitempty"`
	PHPUnit        string       `yaml:"phpunit,omitempty"`
	Command        string       `yaml:"command,omitempty"`
	ExecPath       string       `yaml:"execPath,omitempty"`
	DriverPriority []string     `yaml:"driverPriority,omitempty"`
	Args           []string     `yaml:"args,omitempty"`
	Colors         string       `yaml:"colors,omitempty"`
	Paths          PathMappings `yaml:"paths,omitempty"`
	Docker         DockerConfig `yaml:"docker,omitempty"`
	SSH            string       `yaml:"ssh,omitempty"`

	ClearOutputOnRun                      bool `yaml:"clearOutputOnRun"`
	PreferRunClassTestOverQuickPickWindow bool `yaml:"preferRunClassTestOverQuickPickWindow"`

	CodeLens     CodeLensConfig     `yaml:"codeLens"`
	TestExplorer TestExplorerConfig `yaml:"testExplorer"`

	LogLevel string `yaml:"logLevel,omitempty"`
}

// DockerConfig configures the Docker and DockerContainer drivers.
type DockerConfig struct {
	Image     string `yaml:"image,omitempty"`
	Container string `yaml:"container,omitempty"`
}

// CodeLensConfig toggles run lenses.
type CodeLensConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TestExplorerConfig configures test discovery.
type TestExplorerConfig struct {
	Enabled bool     `yaml:"enabled"`
	Lazy    bool     `yaml:"lazy"`
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// PathMappings is an ordered local-to-remote path table. In YAML it is either
// a mapping (local: remote) or a list of {local, remote} entries.
type PathMappings []argbuilder.PathMapping

func (p *PathMappings) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(PathMappings, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var local, remote string
			if err := node.Content[i].Decode(&local); err != nil {
				return err
			}
			if err := node.Content[i+1].Decode(&remote); err != nil {
				return fmt.Errorf("paths.%s: %w", local, err)
			}
			out = append(out, argbuilder.PathMapping{Local: local, Remote: remote})
		}
		*p = out
		return nil
	case yaml.SequenceNode:
		var list []argbuilder.PathMapping
		if err := node.Decode(&list); err != nil {
			return err
		}
		*p = list
		return nil
	}
	return fmt.Errorf("line %d: paths must be a mapping or a list", node.Line)
}

func (p PathMappings) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, m := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: m.Local},
			&yaml.Node{Kind: yaml.ScalarNode, Value: m.Remote},
		)
	}
	return node, nil
}
