// Package argbuilder accumulates PHPUnit CLI fragments and serializes them
// into an argument vector in a fixed order.
package argbuilder

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// WorkspaceFolderVar is substituted with the workspace root inside path mapping keys.
const WorkspaceFolderVar = "${workspaceFolder}"

// ColorMode is the value of PHPUnit's --colors option.
type ColorMode string

const (
	ColorsNever  ColorMode = "never"
	ColorsAuto   ColorMode = "auto"
	ColorsAlways ColorMode = "always"
)

// ParseColorMode validates a color mode string. The empty string is accepted
// and means "leave the option out".
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case "", ColorsNever, ColorsAuto, ColorsAlways:
		return m, nil
	default:
		return "", fmt.Errorf("argbuilder: invalid color mode %q", s)
	}
}

// PathMapping maps a local path prefix onto the filesystem a remote driver sees.
type PathMapping struct {
	Local  string `json:"local" yaml:"local"`
	Remote string `json:"remote" yaml:"remote"`
}

// Builder accumulates the parameters of one PHPUnit invocation.
// Mutators return the receiver so calls can be chained.
type Builder struct {
	directoryOrFiles []string
	suites           []string
	groups           []string
	filter           string
	configFile       string
	color            ColorMode
	args             []string
	pathMappings     []PathMapping
	workspaceFolder  string
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// AddDirectoryOrFile appends a positional test path.
func (b *Builder) AddDirectoryOrFile(path string) *Builder {
	b.directoryOrFiles = append(b.directoryOrFiles, normalizeSlashes(path))
	return b
}

// AddSuite appends one --testsuite name.
func (b *Builder) AddSuite(name string) *Builder {
	b.suites = append(b.suites, name)
	return b
}

// AddSuites appends several --testsuite names.
func (b *Builder) AddSuites(names []string) *Builder {
	b.suites = append(b.suites, names...)
	return b
}

// WithFilter sets the --filter pattern.
func (b *Builder) WithFilter(filter string) *Builder {
	b.filter = filter
	return b
}

// AddGroup appends one --group name.
func (b *Builder) AddGroup(group string) *Builder {
	b.groups = append(b.groups, group)
	return b
}

// AddGroups appends several --group names.
func (b *Builder) AddGroups(groups []string) *Builder {
	b.groups = append(b.groups, groups...)
	return b
}

// WithConfig sets the --configuration file.
func (b *Builder) WithConfig(configFile string) *Builder {
	b.configFile = normalizeSlashes(configFile)
	return b
}

// WithColors sets the --colors mode.
func (b *Builder) WithColors(mode ColorMode) *Builder {
	b.color = mode
	return b
}

// AddArgs appends raw passthrough arguments.
func (b *Builder) AddArgs(args []string) *Builder {
	b.args = append(b.args, args...)
	return b
}

// WithPathMappings installs an ordered local→remote table applied to the
// finalized arguments. workspaceFolder replaces ${workspaceFolder} in keys.
func (b *Builder) WithPathMappings(mappings []PathMapping, workspaceFolder string) *Builder {
	b.pathMappings = append([]PathMapping(nil), mappings...)
	b.workspaceFolder = workspaceFolder
	return b
}

// ConfigFile returns the configured --configuration file, if any.
func (b *Builder) ConfigFile() string { return b.configFile }

// Filter returns the configured --filter pattern, if any.
func (b *Builder) Filter() string { return b.filter }

// Suites returns a copy of the selected test suites.
func (b *Builder) Suites() []string { return append([]string(nil), b.suites...) }

// DirectoryOrFiles returns a copy of the positional test paths.
func (b *Builder) DirectoryOrFiles() []string {
	return append([]string(nil), b.directoryOrFiles...)
}

// Clone returns a deep copy of b.
func (b *Builder) Clone() *Builder {
	return &Builder{
		directoryOrFiles: append([]string(nil), b.directoryOrFiles...),
		suites:           append([]string(nil), b.suites...),
		groups:           append([]string(nil), b.groups...),
		filter:           b.filter,
		configFile:       b.configFile,
		color:            b.color,
		args:             append([]string(nil), b.args...),
		pathMappings:     append([]PathMapping(nil), b.pathMappings...),
		workspaceFolder:  b.workspaceFolder,
	}
}

// Args serializes the builder. The order is fixed: --configuration, --colors,
// --testsuite, --filter, --group, passthrough args, then positional paths.
// Empty fragments are dropped. Args does not mutate b.
func (b *Builder) Args() []string {
	var args []string
	if b.configFile != "" {
		args = append(args, "--configuration", b.configFile)
	}
	if b.color != "" {
		args = append(args, "--colors="+string(b.color))
	}
	if len(b.suites) > 0 {
		args = append(args, "--testsuite", strings.Join(b.suites, ","))
	}
	if b.filter != "" {
		args = append(args, "--filter", "'"+b.filter+"'")
	}
	if len(b.groups) > 0 {
		args = append(args, "--group", strings.Join(b.groups, ","))
	}
	args = append(args, b.args...)
	args = append(args, b.directoryOrFiles...)

	args = dropEmpty(args)

	for _, m := range b.pathMappings {
		local := normalizeSlashes(workspaceFolderPattern.ReplaceAllLiteralString(m.Local, b.workspaceFolder))
		if local == "" {
			continue
		}
		pattern := regexp.MustCompile("(?i)" + regexp.QuoteMeta(local))
		for i, arg := range args {
			args[i] = pattern.ReplaceAllLiteralString(arg, m.Remote)
		}
	}

	return dropEmpty(args)
}

var workspaceFolderPattern = regexp.MustCompile("(?i)" + regexp.QuoteMeta(WorkspaceFolderVar))

// String joins Args with single spaces.
func (b *Builder) String() string {
	return strings.Join(b.Args(), " ")
}

func dropEmpty(args []string) []string {
	out := args[:0]
	for _, a := range args {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

type builderJSON struct {
	DirectoryOrFiles []string      `json:"directoryOrFiles,omitempty"`
	Suites           []string      `json:"suites,omitempty"`
	Groups           []string      `json:"groups,omitempty"`
	Filter           string        `json:"filter,omitempty"`
	ConfigFile       string        `json:"configFile,omitempty"`
	Color            ColorMode     `json:"color,omitempty"`
	Args             []string      `json:"args,omitempty"`
	PathMappings     []PathMapping `json:"pathMappings,omitempty"`
	WorkspaceFolder  string        `json:"workspaceFolder,omitempty"`
}

// MarshalJSON encodes the builder's parameters, not its serialized arguments.
func (b *Builder) MarshalJSON() ([]byte, error) {
	return json.Marshal(builderJSON{
		DirectoryOrFiles: b.directoryOrFiles,
		Suites:           b.suites,
		Groups:           b.groups,
		Filter:           b.filter,
		ConfigFile:       b.configFile,
		Color:            b.color,
		Args:             b.args,
		PathMappings:     b.pathMappings,
		WorkspaceFolder:  b.workspaceFolder,
	})
}

// UnmarshalJSON restores a builder saved by MarshalJSON. Unknown color modes are rejected.
func (b *Builder) UnmarshalJSON(data []byte) error {
	var v builderJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if _, err := ParseColorMode(string(v.Color)); err != nil {
		return err
	}
	*b = Builder{
		directoryOrFiles: v.DirectoryOrFiles,
		suites:           v.Suites,
		groups:           v.Groups,
		filter:           v.Filter,
		configFile:       v.ConfigFile,
		color:            v.Color,
		args:             v.Args,
		pathMappings:     v.PathMappings,
		workspaceFolder:  v.WorkspaceFolder,
	}
	return nil
}
