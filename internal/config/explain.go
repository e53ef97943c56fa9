package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Explain returns the effective value at a dotted YAML path, e.g.
// "bridge.listen" or "window.width", together with the source that last
// set it.
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// lookupValue walks the YAML form of cfg so paths match the file keys.
func lookupValue(cfg *Config, path string) (any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	var cur any = tree
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unknown path %q", path)
		}
		next, ok := m[part]
		if !ok {
			return nil, fmt.Errorf("unknown path %q", path)
		}
		cur = next
	}
	return cur, nil
}

// FormatSource renders a source for CLI output.
func FormatSource(src Source) string {
	switch src.Kind {
	case SourceFile:
		return fmt.Sprintf("%s:%d:%d", src.File, src.Line, src.Column)
	case SourceEnv:
		return "$" + src.Name
	default:
		return "default"
	}
}
