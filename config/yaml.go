package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/psim/types"
)

// ParseYAML reads a YAML document whose nested mappings form namespaces.
// Scalars keep their resolved tag, so 5 is an Integer and 5.0 a Real.
// Sequences of numbers are vectors and sequences of sequences are matrices.
func ParseYAML(source string, src []byte) (*Configuration, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, source, err)
	}
	b := newBuilder()
	if len(doc.Content) == 0 {
		return b.build(), nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: top level must be a mapping", ErrConfig, source)
	}
	if err := walkYAML(b, source, "", root); err != nil {
		return nil, err
	}
	return b.build(), nil
}

func walkYAML(b *builder, source, prefix string, m *yaml.Node) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		key := joinKey(prefix, k.Value)
		where := fmt.Sprintf("%s:%d", source, k.Line)
		if v.Kind == yaml.MappingNode {
			if err := walkYAML(b, source, key, v); err != nil {
				return err
			}
			continue
		}
		val, err := fromYAML(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %q: %v", ErrConfig, where, key, err)
		}
		if err := b.set(where, key, val); err != nil {
			return err
		}
	}
	return nil
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!int":
			var i int64
			err := n.Decode(&i)
			return types.Integer(i), err
		case "!!float":
			var f float64
			err := n.Decode(&f)
			return types.Real(f), err
		case "!!bool":
			var v bool
			err := n.Decode(&v)
			return v, err
		case "!!str":
			return n.Value, nil
		}
		return nil, fmt.Errorf("unsupported scalar tag %s", n.Tag)
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return nil, fmt.Errorf("empty sequence")
		}
		if n.Content[0].Kind == yaml.SequenceNode {
			rows := make([][]types.Real, len(n.Content))
			for i, row := range n.Content {
				var r []float64
				if err := row.Decode(&r); err != nil {
					return nil, fmt.Errorf("row %d: %v", i, err)
				}
				rows[i] = r
			}
			return rows, nil
		}
		var out []float64
		if err := n.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported node kind %d", n.Kind)
}
