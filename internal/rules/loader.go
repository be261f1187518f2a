package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk layout:
//
//	rules:
//	  "3":
//	    dtype:
//	      Mã thuế: str
//	      Thuế suất: float
//
// dtype is decoded as a yaml.Node so column declaration order survives.
type ruleFile struct {
	Rules map[string]struct {
		Dtype yaml.Node `yaml:"dtype"`
	} `yaml:"rules"`
}

// Parse decodes rule sets from YAML.
func Parse(data []byte) ([]*RuleSet, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	sets := make([]*RuleSet, 0, len(f.Rules))
	for id, def := range f.Rules {
		node := def.Dtype
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("rule set %q: dtype must be a mapping", id)
		}

		cols := make([]ColumnRule, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i].Value
			typ, err := ParseType(node.Content[i+1].Value)
			if err != nil {
				return nil, fmt.Errorf("rule set %q column %q: %w", id, name, err)
			}
			cols = append(cols, ColumnRule{Name: name, Type: typ})
		}

		rs, err := NewRuleSet(id, cols...)
		if err != nil {
			return nil, err
		}
		sets = append(sets, rs)
	}

	return sets, nil
}

// Load returns the built-in registry, overlaid with the rule sets in path
// when path is non-empty. File entries replace built-ins with the same ID.
func Load(path string) (*Registry, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	sets, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return base.withOverrides(sets), nil
}
