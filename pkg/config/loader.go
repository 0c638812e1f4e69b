package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/stubby/pkg/logging"
	"github.com/getmockd/stubby/pkg/stub"
)

// Configuration is the result of a successful load.
type Configuration struct {
	// Lifecycles in declaration order; index i has resource id i.
	Lifecycles       []*stub.Lifecycle
	ProxyConfigs     []*stub.ProxyConfig
	WebSocketConfigs []*stub.WebSocketConfig
	// Warnings lists 'file' references that could not be read.
	Warnings []FileWarning
	// Sources lists the files the configuration was read from, main file first.
	Sources []string
}

// LoadOption configures a load.
type LoadOption func(*loader)

// WithLogger sets the logger receiving file load warnings.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithEnvExpansion enables ${VAR} expansion in scalar values.
func WithEnvExpansion(enabled bool) LoadOption {
	return func(l *loader) {
		l.expandEnv = enabled
	}
}

// WithFileReader replaces the function used to read 'file' references and includes.
func WithFileReader(fn func(path string) ([]byte, error)) LoadOption {
	return func(l *loader) {
		if fn != nil {
			l.readFile = fn
		}
	}
}

type loader struct {
	logger    *slog.Logger
	readFile  func(path string) ([]byte, error)
	expandEnv bool
	warnings  []FileWarning
	sources   []string
}

// block is one top-level sequence entry and the directory its file lives in.
type block struct {
	node    *yaml.Node
	baseDir string
}

func newLoader(opts []LoadOption) *loader {
	l := &loader{
		logger:   logging.Nop(),
		readFile: readFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads and loads the stubs file at path.
func LoadFile(path string, opts ...LoadOption) (*Configuration, error) {
	l := newLoader(opts)
	data, err := l.readFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	l.sources = append(l.sources, path)

	root, err := parseYAML(data, path)
	if err != nil {
		return nil, err
	}
	return l.load(root, filepath.Dir(path))
}

// LoadBytes parses data as YAML and loads it, resolving relative references
// against baseDir.
func LoadBytes(data []byte, baseDir string, opts ...LoadOption) (*Configuration, error) {
	root, err := parseYAML(data, "<bytes>")
	if err != nil {
		return nil, err
	}
	return Load(root, baseDir, opts...)
}

// Load builds a Configuration from an already parsed YAML tree. Any
// validation failure aborts the whole load.
func Load(root *yaml.Node, baseDir string, opts ...LoadOption) (*Configuration, error) {
	return newLoader(opts).load(root, baseDir)
}

func parseYAML(data []byte, path string) (*yaml.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &LoadError{Path: path, Message: ErrInvalidYAML.Error(), Err: errors.Join(ErrInvalidYAML, err)}
	}
	return &root, nil
}

func (l *loader) expand(s string) string {
	if l.expandEnv {
		return ExpandEnvVars(s)
	}
	return s
}

func (l *loader) load(root *yaml.Node, baseDir string) (*Configuration, error) {
	blocks, err := l.blocks(root, baseDir, true)
	if err != nil {
		return nil, err
	}

	cfg := &Configuration{}
	stubUUIDs := make(map[string]struct{})
	proxyUUIDs := make(map[string]struct{})
	wsURLs := make(map[string]struct{})

	for _, b := range blocks {
		switch {
		case hasKey(b.node, propProxyConfig):
			p, err := l.parseProxyBlock(b)
			if err != nil {
				return nil, err
			}
			if _, dup := proxyUUIDs[p.UUID]; dup {
				return nil, invalid(ErrDuplicateUUID, "proxy config YAML contains duplicate UUIDs: %s", p.UUID)
			}
			proxyUUIDs[p.UUID] = struct{}{}
			cfg.ProxyConfigs = append(cfg.ProxyConfigs, p)

		case hasKey(b.node, propWebSocket):
			ws, err := l.parseWebSocketBlock(b)
			if err != nil {
				return nil, err
			}
			if _, dup := wsURLs[ws.URL]; dup {
				return nil, invalid(ErrDuplicateURL, "web socket config YAML contains duplicate URL: %s", ws.URL)
			}
			wsURLs[ws.URL] = struct{}{}
			cfg.WebSocketConfigs = append(cfg.WebSocketConfigs, ws)

		default:
			lc, err := l.parseLifecycle(b, len(cfg.Lifecycles))
			if err != nil {
				return nil, err
			}
			if lc.UUID != "" {
				if _, dup := stubUUIDs[lc.UUID]; dup {
					return nil, invalid(ErrDuplicateUUID, "stubs YAML contains duplicate UUIDs: %s", lc.UUID)
				}
				stubUUIDs[lc.UUID] = struct{}{}
			}
			cfg.Lifecycles = append(cfg.Lifecycles, lc)
		}
	}

	cfg.Warnings = l.warnings
	cfg.Sources = l.sources
	return cfg, nil
}

// blocks flattens the document into top-level entries, following includes
// when the root is an includes mapping.
func (l *loader) blocks(root *yaml.Node, baseDir string, allowIncludes bool) ([]block, error) {
	n := deref(root)
	if n == nil {
		return nil, invalid(ErrRootNotSequence, "%s", ErrRootNotSequence.Error())
	}

	switch {
	case n.Kind == yaml.SequenceNode:
		out := make([]block, 0, len(n.Content))
		for _, item := range n.Content {
			item = deref(item)
			if item == nil || item.Kind != yaml.MappingNode {
				return nil, invalid(ErrInvalidType, "each top-level entry must be a mapping")
			}
			out = append(out, block{node: item, baseDir: baseDir})
		}
		return out, nil

	case n.Kind == yaml.MappingNode && allowIncludes && hasKey(n, propIncludes):
		return l.includes(n, baseDir)
	}

	return nil, invalid(ErrRootNotSequence, "%s", ErrRootNotSequence.Error())
}

func (l *loader) includes(n *yaml.Node, baseDir string) ([]block, error) {
	es, err := entries(n, objIncludes)
	if err != nil {
		return nil, err
	}
	patterns, err := l.strList(es[0].value, propIncludes)
	if err != nil {
		return nil, err
	}

	var out []block
	for _, pattern := range patterns {
		paths, err := expandGlob(ResolvePath(baseDir, pattern))
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			data, err := l.readFile(path)
			if err != nil {
				return nil, &LoadError{Path: path, Message: "failed to load included file", Err: err}
			}
			root, err := parseYAML(data, path)
			if err != nil {
				return nil, err
			}
			bs, err := l.blocks(root, filepath.Dir(path), false)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			l.sources = append(l.sources, path)
			out = append(out, bs...)
		}
	}
	return out, nil
}
