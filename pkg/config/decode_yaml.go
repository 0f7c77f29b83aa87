package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// decodeYAML parses data into a yaml.Node tree, which keeps mapping key order.
func decodeYAML(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Value{}, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Value{Kind: KindNull}, nil
	}
	return fromYAML(doc.Content[0], 0)
}

// maxAliasDepth bounds alias expansion so self-referencing documents fail instead of looping.
const maxAliasDepth = 32

func fromYAML(n *yaml.Node, depth int) (Value, error) {
	if depth > maxAliasDepth {
		return Value{}, fmt.Errorf("line %d: alias nesting too deep", n.Line)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Value{Kind: KindNull}, nil
		}
		return fromYAML(n.Content[0], depth)
	case yaml.AliasNode:
		return fromYAML(n.Alias, depth+1)
	case yaml.MappingNode:
		obj := newObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			v, err := fromYAML(val, depth)
			if err != nil {
				return Value{}, err
			}
			obj.set(key.Value, v)
		}
		return Value{Kind: KindObject, Object: obj}, nil
	case yaml.SequenceNode:
		list := make([]Value, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := fromYAML(item, depth)
			if err != nil {
				return Value{}, err
			}
			list = append(list, v)
		}
		return Value{Kind: KindList, List: list}, nil
	case yaml.ScalarNode:
		var raw any
		if err := n.Decode(&raw); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		switch s := raw.(type) {
		case nil:
			return Value{Kind: KindNull}, nil
		case string:
			return Value{Kind: KindString, Str: s}, nil
		case bool:
			return Value{Kind: KindBool, Bool: s}, nil
		case int:
			return Value{Kind: KindNumber, Num: float64(s)}, nil
		case int64:
			return Value{Kind: KindNumber, Num: float64(s)}, nil
		case uint64:
			return Value{Kind: KindNumber, Num: float64(s)}, nil
		case float64:
			return Value{Kind: KindNumber, Num: s}, nil
		default:
			// Timestamps and binary scalars are kept verbatim.
			return Value{Kind: KindString, Str: n.Value}, nil
		}
	}
	return Value{Kind: KindNull}, nil
}
