package config

import (
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// entry is one key/value pair of a YAML mapping.
type entry struct {
	key   string
	value *yaml.Node
}

// deref follows aliases and unwraps document nodes.
func deref(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.AliasNode:
			n = n.Alias
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		default:
			return n
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// hasKey reports whether the mapping n has key at its top level.
func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

// entries returns the validated key/value pairs of a mapping in source order.
func entries(n *yaml.Node, container string) ([]entry, error) {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, invalid(ErrInvalidType, "object '%s' must be a mapping", container)
	}
	out := make([]entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if err := checkProperty(container, key); err != nil {
			return nil, err
		}
		out = append(out, entry{key: key, value: n.Content[i+1]})
	}
	return out, nil
}

// str decodes a scalar property into a string.
func (l *loader) str(n *yaml.Node, property string) (string, error) {
	n = deref(n)
	if isNull(n) {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", invalid(ErrInvalidType, "property '%s' must be a string value", property)
	}
	return l.expand(n.Value), nil
}

// strList accepts a scalar CSV value or a sequence of scalars.
func (l *loader) strList(n *yaml.Node, property string) ([]string, error) {
	n = deref(n)
	if isNull(n) {
		return nil, nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		var out []string
		for _, part := range strings.Split(l.expand(n.Value), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := l.str(item, property)
			if err != nil {
				return nil, err
			}
			out = append(out, strings.TrimSpace(v))
		}
		return out, nil
	default:
		return nil, invalid(ErrInvalidType, "property '%s' must be a string or a list of strings", property)
	}
}

// strMap decodes a free-form mapping. A sequence value is rendered in the
// bracketed array form so it compares like its quoted string spelling.
func (l *loader) strMap(n *yaml.Node, property string) (map[string]string, error) {
	n = deref(n)
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, invalid(ErrInvalidType, "property '%s' must be a mapping", property)
	}
	out := make(map[string]string, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		value := deref(n.Content[i+1])
		if value != nil && value.Kind == yaml.SequenceNode {
			items, err := l.strList(value, property)
			if err != nil {
				return nil, err
			}
			out[key] = "[" + strings.Join(items, ",") + "]"
			continue
		}
		v, err := l.str(value, property)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func (l *loader) integer(n *yaml.Node, property string) (int, error) {
	s, err := l.str(n, property)
	if err != nil || s == "" {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, invalid(ErrInvalidType, "property '%s' must be an integer, got: %s", property, s)
	}
	return v, nil
}

// millis decodes an integer number of milliseconds.
func (l *loader) millis(n *yaml.Node, property string) (time.Duration, error) {
	v, err := l.integer(n, property)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, invalid(ErrInvalidType, "property '%s' must not be negative, got: %d", property, v)
	}
	return time.Duration(v) * time.Millisecond, nil
}
