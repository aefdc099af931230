// SPDX-License-Identifier: Apache-2.0
// Package solution loads solution.yaml descriptors and renders them into the
// root CMakeLists.txt that the build steps configure.
package solution

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	terrors "github.com/provide-io/trellis/pkg/errors"
)

// FileName is the descriptor looked up in every solution directory.
const FileName = "solution.yaml"

// DefaultCMakeMinVersion is used when cmake_min_ver is absent.
const DefaultCMakeMinVersion = "3.9"

// Kind selects the CMake constructor emitted for a project.
type Kind string

const (
	KindLib      Kind = "lib"
	KindApp      Kind = "app"
	KindPlugin   Kind = "plugin"
	KindDelegate Kind = "delegate"
)

func parseKind(raw string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindLib, KindApp, KindPlugin, KindDelegate:
		return k, true
	}
	return "", false
}

// Project is one buildable entry of a group.
type Project struct {
	Group   string
	Name    string
	Kind    Kind
	Path    string // relative to the solution directory
	Version string
	Defs    []string
	Incs    []string
	Libs    []string
	WD      []string
	PCH     string
	AppID   string
}

// Group is a named set of projects that NO_<GROUP> can disable.
type Group struct {
	Name     string
	Projects []*Project
}

// Solution is an immutable, loaded descriptor.
type Solution struct {
	path        string
	name        string
	cmakeMinVer string
	groups      []*Group
}

// stringList accepts either a scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*l = stringList{n.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", n.Line)
}

type record struct {
	Type    string     `yaml:"type"`
	Path    string     `yaml:"path"`
	Version string     `yaml:"version"`
	Defs    stringList `yaml:"defs"`
	Incs    stringList `yaml:"incs"`
	Libs    stringList `yaml:"libs"`
	WD      stringList `yaml:"wd"`
	PCH     string     `yaml:"pch"`
	AppID   string     `yaml:"app_id"`
}

type document struct {
	Name        string    `yaml:"name"`
	CMakeMinVer string    `yaml:"cmake_min_ver"`
	Projects    yaml.Node `yaml:"projects"`
}

// Load reads and validates the descriptor at path.
func Load(path string) (*Solution, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", terrors.ErrInvalidSolution, err)
	}
	return parse(abs, data)
}

func parse(abs string, data []byte) (*Solution, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalid(abs, err)
	}

	s := &Solution{
		path:        abs,
		name:        doc.Name,
		cmakeMinVer: doc.CMakeMinVer,
	}
	if s.name == "" {
		s.name = filepath.Base(filepath.Dir(abs))
	}
	if s.cmakeMinVer == "" {
		s.cmakeMinVer = DefaultCMakeMinVersion
	}

	groups, err := parseGroups(&doc.Projects)
	if err != nil {
		return nil, invalid(abs, err)
	}
	s.groups = groups

	for _, p := range s.Projects() {
		if p.Kind == KindDelegate && !s.delegates(p) {
			return nil, invalid(abs, fmt.Errorf("project %q is a delegate but %s does not exist", p.Name, s.delegateFile(p)))
		}
	}
	return s, nil
}

func invalid(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", terrors.ErrInvalidSolution, path, err)
}

// parseGroups walks the projects mapping node so that group and project order
// follow the file.
func parseGroups(n *yaml.Node) ([]*Group, error) {
	if n.Kind == 0 || n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: projects must be a mapping of groups", n.Line)
	}

	var groups []*Group
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		g := &Group{Name: key.Value}
		if value.Tag != "!!null" {
			if value.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: group %q must be a mapping of projects", value.Line, g.Name)
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				p, err := parseProject(g.Name, value.Content[j], value.Content[j+1])
				if err != nil {
					return nil, err
				}
				g.Projects = append(g.Projects, p)
			}
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func parseProject(group string, key, value *yaml.Node) (*Project, error) {
	var rec record
	switch value.Kind {
	case yaml.ScalarNode:
		rec.Type = value.Value
	case yaml.MappingNode:
		if err := value.Decode(&rec); err != nil {
			return nil, fmt.Errorf("project %q: %w", key.Value, err)
		}
	default:
		return nil, fmt.Errorf("line %d: project %q must be a type name or a mapping", value.Line, key.Value)
	}

	kind, ok := parseKind(rec.Type)
	if !ok {
		return nil, fmt.Errorf("line %d: project %q has unknown type %q", value.Line, key.Value, rec.Type)
	}

	p := &Project{
		Group:   group,
		Name:    key.Value,
		Kind:    kind,
		Path:    filepath.ToSlash(rec.Path),
		Version: rec.Version,
		Defs:    rec.Defs,
		Incs:    rec.Incs,
		Libs:    rec.Libs,
		WD:      rec.WD,
		PCH:     rec.PCH,
		AppID:   rec.AppID,
	}
	if p.Path == "" {
		p.Path = group + "/" + p.Name
	}
	return p, nil
}

// List loads the descriptor of every "|"-separated sub-directory of root
// that contains one. Directories without a descriptor are skipped.
func List(spec, root string) ([]*Solution, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	var out []*Solution
	for _, sub := range strings.Split(spec, "|") {
		sub = strings.TrimSpace(sub)
		if sub == "" {
			continue
		}
		path := filepath.Join(root, sub, FileName)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		s, err := Load(path)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (s *Solution) Name() string            { return s.name }
func (s *Solution) CMakeMinVersion() string { return s.cmakeMinVer }
func (s *Solution) Groups() []*Group        { return s.groups }

// Path is the absolute path of the descriptor file.
func (s *Solution) Path() string { return s.path }

// Dir is the solution root: the directory holding the descriptor.
func (s *Solution) Dir() string { return filepath.Dir(s.path) }

// Projects returns every project in file order.
func (s *Solution) Projects() []*Project {
	var out []*Project
	for _, g := range s.groups {
		out = append(out, g.Projects...)
	}
	return out
}

func (s *Solution) delegateFile(p *Project) string {
	return filepath.Join(s.Dir(), filepath.FromSlash(p.Path), p.Name+".cmake")
}

// delegates reports whether a <path>/<name>.cmake file replaces the generated
// statements of p.
func (s *Solution) delegates(p *Project) bool {
	info, err := os.Stat(s.delegateFile(p))
	return err == nil && !info.IsDir()
}

// PreGeneration is a project with its own CMakeLists.txt that is configured
// standalone before the solution itself.
type PreGeneration struct {
	Name    string
	Dir     string
	Options []string
}

// PreGenerations lists projects whose directory carries a CMakeLists.txt.
func (s *Solution) PreGenerations() []PreGeneration {
	var out []PreGeneration
	for _, p := range s.Projects() {
		dir := filepath.Join(s.Dir(), filepath.FromSlash(p.Path))
		if _, err := os.Stat(filepath.Join(dir, "CMakeLists.txt")); err != nil {
			continue
		}
		opts := []string{"-DBUILD_GROUP=" + p.Group}
		if p.Version != "" {
			opts = append(opts, fmt.Sprintf("-D%s_VERSION=%s", strings.ToUpper(p.Name), p.Version))
		}
		out = append(out, PreGeneration{Name: p.Name, Dir: dir, Options: opts})
	}
	return out
}
