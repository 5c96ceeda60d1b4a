// Package spec loads test specifications.
//
// A spec is a YAML file describing one differential test:
//
//	name: fibonacci
//	source: 00-fibonacci.c
//	args: [10, 20]
//
// name and source are required. source is relative to the test-programs
// root and is stored as an absolute path. args is optional; each entry is
// passed to the program as the literal text written in the file.
package spec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Field names in a spec file.
const (
	FieldName   = "name"
	FieldSource = "source"
	FieldArgs   = "args"
)

// TestSpec is one differential test case.
type TestSpec struct {
	// Name identifies the test. Artifact filenames derive from it.
	Name string `json:"name"`

	// Source is the absolute path of the program under test.
	Source string `json:"source"`

	// Args is the program's argument vector. Never nil.
	Args []string `json:"args"`

	// Path is the spec file this record was loaded from.
	Path string `json:"path"`
}

// Load reads and validates the spec file at path. source is resolved
// against programsDir.
//
// Returns *InvalidSpecError when a required field is absent or null, a field
// has the wrong type, or source does not name a regular file.
func Load(path, programsDir string) (*TestSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return Parse(data, path, programsDir)
}

// Parse validates spec content that was read from path.
func Parse(data []byte, path, programsDir string) (*TestSpec, error) {
	var root yaml.Node
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid(path, "", "spec file is empty")
		}
		return nil, invalid(path, "", "malformed YAML: %v", err)
	}

	doc := document(&root)
	if doc == nil || doc.Kind != yaml.MappingNode {
		return nil, invalid(path, "", "spec must be a mapping with 'name' and 'source' fields")
	}

	fields := mappingFields(doc)

	for _, key := range []string{FieldName, FieldSource} {
		if err := required(fields, key, path); err != nil {
			return nil, err
		}
	}

	// Type-check the whole document before trusting any node kinds.
	if err := validateSchema(doc, path); err != nil {
		return nil, err
	}
	name := fields[FieldName].Value
	source := fields[FieldSource].Value

	args, err := scalarArgs(fields[FieldArgs], path)
	if err != nil {
		return nil, err
	}

	resolved, err := resolveSource(programsDir, source)
	if err != nil {
		return nil, invalid(path, FieldSource, "%v", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	return &TestSpec{
		Name:   name,
		Source: resolved,
		Args:   args,
		Path:   absPath,
	}, nil
}

// resolveSource joins source onto programsDir and checks it is a regular file.
func resolveSource(programsDir, source string) (string, error) {
	p := source
	if !filepath.IsAbs(p) {
		p = filepath.Join(programsDir, p)
	}
	p, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve source %q: %w", source, err)
	}

	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("source file not found: %s", p)
		}
		return "", fmt.Errorf("stat source %s: %w", p, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("source is not a regular file: %s", p)
	}
	return p, nil
}

// document unwraps the document node and any top-level alias.
func document(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		n = n.Content[0]
	}
	return deref(n)
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// mappingFields indexes a mapping node by key. Later duplicates win.
func mappingFields(m *yaml.Node) map[string]*yaml.Node {
	fields := make(map[string]*yaml.Node, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		fields[m.Content[i].Value] = deref(m.Content[i+1])
	}
	return fields
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// required reports a missing, null or empty field.
func required(fields map[string]*yaml.Node, key, path string) error {
	n := fields[key]
	if isNull(n) || n.Kind == yaml.ScalarNode && n.Value == "" {
		return invalid(path, key, "the '%s' field is required", key)
	}
	return nil
}

// scalarArgs returns the literal text of each args entry.
func scalarArgs(n *yaml.Node, path string) ([]string, error) {
	args := []string{}
	if isNull(n) {
		return args, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, invalid(path, FieldArgs, "the 'args' field must be a sequence")
	}
	for i, item := range n.Content {
		item = deref(item)
		if item.Kind != yaml.ScalarNode || isNull(item) {
			return nil, invalid(path, FieldArgs, "args[%d] must be a string, number or boolean", i)
		}
		args = append(args, item.Value)
	}
	return args, nil
}
