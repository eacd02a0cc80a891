package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// RawProfile is a named rule list as read from a source, not yet validated.
type RawProfile struct {
	Name  string
	Rules []Rule
}

// SourceExtensions lists the file extensions read as profile sources.
var SourceExtensions = []string{".yaml", ".yml", ".toml"}

// IsSource reports whether path has a profile source extension.
func IsSource(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseFile reads one profile source. Failures are *SourceParseError.
func ParseFile(path string) ([]RawProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SourceParseError{Source: path, Err: err}
	}

	var raws []RawProfile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		raws, err = ParseTOML(data)
	default:
		raws, err = ParseYAML(data)
	}
	if err != nil {
		return nil, &SourceParseError{Source: path, Err: err}
	}
	return raws, nil
}

// ParseYAML reads profiles from YAML. Each document is a mapping of profile
// name to a mapping of pattern to replacement; rule order follows the file.
func ParseYAML(data []byte) ([]RawProfile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []RawProfile
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(doc.Content) == 0 {
			continue
		}
		root := resolveAlias(doc.Content[0])
		if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
			continue
		}
		if root.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: expected a mapping of profile names", root.Line)
		}
		for i := 0; i+1 < len(root.Content); i += 2 {
			name := root.Content[i]
			if name.Kind != yaml.ScalarNode || name.Value == "" {
				return nil, fmt.Errorf("line %d: profile name must be a non-empty string", name.Line)
			}
			rules, err := yamlRules(resolveAlias(root.Content[i+1]))
			if err != nil {
				return nil, fmt.Errorf("profile %q: %w", name.Value, err)
			}
			out = append(out, RawProfile{Name: name.Value, Rules: rules})
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no profiles defined")
	}
	return out, nil
}

func yamlRules(n *yaml.Node) ([]Rule, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of pattern to replacement", n.Line)
	}
	var rules []Rule
	seen := make(map[string]int)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := resolveAlias(n.Content[i]), resolveAlias(n.Content[i+1])
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: pattern and replacement must be strings", k.Line)
		}
		repl := v.Value
		if v.Tag == "!!null" {
			repl = ""
		}
		// a repeated pattern keeps its first position and takes the last value
		if at, ok := seen[k.Value]; ok {
			rules[at].Replacement = repl
			continue
		}
		seen[k.Value] = len(rules)
		rules = append(rules, Rule{Pattern: k.Value, Replacement: repl})
	}
	return rules, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// ParseTOML reads profiles from TOML: one table per profile, one string key
// per rule. Rule order follows the file.
func ParseTOML(data []byte) ([]RawProfile, error) {
	var tables map[string]map[string]string
	md, err := toml.Decode(string(data), &tables)
	if err != nil {
		return nil, err
	}

	var (
		out   []RawProfile
		index = make(map[string]int)
	)
	for _, key := range md.Keys() {
		switch len(key) {
		case 1:
			if _, ok := index[key[0]]; !ok {
				index[key[0]] = len(out)
				out = append(out, RawProfile{Name: key[0]})
			}
		case 2:
			at, ok := index[key[0]]
			if !ok {
				at = len(out)
				index[key[0]] = at
				out = append(out, RawProfile{Name: key[0]})
			}
			out[at].Rules = append(out[at].Rules, Rule{Pattern: key[1], Replacement: tables[key[0]][key[1]]})
		default:
			return nil, fmt.Errorf("key %q: profiles are flat tables of pattern = replacement", key.String())
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no profiles defined")
	}
	return out, nil
}
