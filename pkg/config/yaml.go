package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlIndent is the indentation used when rendering blocks back to YAML.
const yamlIndent = 2

// CompleteYAML renders a loaded block (a lifecycle, a proxy-config, a
// web-socket or an on-message entry) as a one item YAML sequence. Keys are
// written in canonical order for their block whatever order the source used;
// scalar styles are taken from the source node.
func CompleteYAML(source *yaml.Node) (string, error) {
	if source == nil {
		return "", fmt.Errorf("%w: no source node", ErrInvalidType)
	}
	return render(&yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{canonical(source)}})
}

// RenderAll renders every block of cfg in load order: lifecycles, proxy
// configs, then web socket configs.
func RenderAll(cfg *Configuration) (string, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	add := func(n *yaml.Node) {
		if n != nil {
			seq.Content = append(seq.Content, canonical(n))
		}
	}
	for _, lc := range cfg.Lifecycles {
		add(lc.Source)
	}
	for _, p := range cfg.ProxyConfigs {
		add(p.Source)
	}
	for _, ws := range cfg.WebSocketConfigs {
		add(ws.Source)
	}
	if len(seq.Content) == 0 {
		return "", nil
	}
	return render(seq)
}

// nestedContainers maps a property holding an object to the container that
// object is validated as.
var nestedContainers = map[string]map[string]string{
	objRoot:      {propProxyConfig: objProxyConfig, propWebSocket: objWebSocket},
	objStub:      {propRequest: objRequest, propResponse: objResponse},
	objWebSocket: {propOnOpen: objServerResponse, propOnMessage: objOnMessage},
	objOnMessage: {propClientReq: objClientRequest, propServerResp: objServerResponse},
}

// canonical returns a copy of a top level block with every mapping reordered
// by propertyOrder. The source node is left untouched.
func canonical(n *yaml.Node) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return n
	}
	container := objStub
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch n.Content[i].Value {
		case propProxyConfig, propWebSocket:
			container = objRoot
		case propClientReq, propServerResp:
			container = objOnMessage
		}
	}
	return reorder(n, container)
}

func reorder(n *yaml.Node, container string) *yaml.Node {
	switch n.Kind {
	case yaml.SequenceNode:
		cp := *n
		cp.Content = make([]*yaml.Node, len(n.Content))
		for i, item := range n.Content {
			cp.Content[i] = reorder(item, container)
		}
		return &cp
	case yaml.MappingNode:
	default:
		return n
	}

	rank := make(map[string]int, len(propertyOrder[container]))
	for i, key := range propertyOrder[container] {
		rank[key] = i
	}
	type pair struct{ key, value *yaml.Node }
	pairs := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if child, ok := nestedContainers[container][key.Value]; ok {
			value = reorder(value, child)
		}
		pairs = append(pairs, pair{key, value})
	}
	pos := func(p pair) int {
		if r, ok := rank[p.key.Value]; ok {
			return r
		}
		return len(rank)
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pos(pairs[i]) < pos(pairs[j]) })

	cp := *n
	cp.Content = make([]*yaml.Node, 0, len(pairs)*2)
	for _, p := range pairs {
		cp.Content = append(cp.Content, p.key, p.value)
	}
	return &cp
}

func render(n *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(n); err != nil {
		return "", fmt.Errorf("rendering YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("rendering YAML: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
