package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Treatments is treatmentCultivarMap in document order.
type Treatments []Treatment

func (t *Treatments) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: treatmentCultivarMap must be a mapping of treatment to cultivar", node.Line)
	}
	out := make(Treatments, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: treatment entries must be scalar", key.Line)
		}
		out = append(out, Treatment{ID: key.Value, Cultivar: val.Value})
	}
	*t = out
	return nil
}

// ParameterGroups is cultivarParameters in document order. A group value may
// be a list or a comma-separated string ("P1V, P1D").
type ParameterGroups []ParameterGroup

func (p *ParameterGroups) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: cultivarParameters must be a mapping of group to parameters", node.Line)
	}
	out := make(ParameterGroups, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var params []string
		switch val.Kind {
		case yaml.ScalarNode:
			params = cleanList(strings.Split(val.Value, ","))
		case yaml.SequenceNode:
			if err := val.Decode(&params); err != nil {
				return err
			}
			params = cleanList(params)
		default:
			return fmt.Errorf("line %d: cultivarParameters.%s must be a list or a string", val.Line, key.Value)
		}
		out = append(out, ParameterGroup{Name: key.Value, Parameters: params})
	}
	*p = out
	return nil
}
