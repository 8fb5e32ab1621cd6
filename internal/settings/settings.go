// Package settings reads and writes the per-scope settings.json documents,
// including the mcpServers registrations, curated setting aliases, and the
// list-valued keys (allowed tools, include directories, context file names).
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yalp/jsonpath"
)

// Load reads a settings document. A missing file yields an empty document,
// not an error; a present but unreadable file is surfaced.
func Load(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]any), nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings.Load %s: %w", path, err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("settings.Load %s: %w", path, err)
	}
	if m == nil {
		m = make(map[string]any)
	}
	return m, nil
}

// Save writes a settings document with two-space indentation and a trailing
// newline, creating parent directories as needed.
func Save(path string, data map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("settings.Save %s: %w", path, err)
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("settings.Save %s: %w", path, err)
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil { // #nosec G306 -- settings.json holds launch specs and preferences, not secrets
		return fmt.Errorf("settings.Save %s: %w", path, err)
	}
	return nil
}

// GetPath resolves a dot path ("context.includeDirectories") against a
// settings document. The second return is false when the path is absent.
func GetPath(data map[string]any, dotPath string) (any, bool) {
	v, err := jsonpath.Read(data, "$."+dotPath)
	if err != nil {
		return nil, false
	}
	return v, true
}

// SetPath writes value at a dot path, creating intermediate objects.
func SetPath(data map[string]any, dotPath string, value any) {
	parts := strings.Split(dotPath, ".")
	curr := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := curr[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			curr[part] = next
		}
		curr = next
	}
	curr[parts[len(parts)-1]] = value
}

// Merge deep-merges src into dst and returns dst. Nested objects merge key
// by key; any other value in src replaces the dst value.
func Merge(dst, src map[string]any) map[string]any {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				dst[k] = Merge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}

// ---------------------------------------------------------------------------
// List-valued keys
// ---------------------------------------------------------------------------

// asList normalizes a settings value into a string list. context.fileName is
// historically either a single string or a list; both shapes are accepted.
func asList(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	default:
		return nil
	}
}

// GetList reads the list value at dotPath from the settings file at path.
func GetList(path, dotPath string) ([]string, error) {
	data, err := Load(path)
	if err != nil {
		return nil, err
	}
	v, ok := GetPath(data, dotPath)
	if !ok {
		return nil, nil
	}
	return asList(v), nil
}

// AddListItem appends item to the list at dotPath, persisting only when the
// item was not already present. Returns whether the file changed.
func AddListItem(path, dotPath, item string) (bool, error) {
	return modifyList(path, dotPath, item, true)
}

// RemoveListItem removes item from the list at dotPath. Returns whether the
// file changed.
func RemoveListItem(path, dotPath, item string) (bool, error) {
	return modifyList(path, dotPath, item, false)
}

func modifyList(path, dotPath, item string, add bool) (bool, error) {
	data, err := Load(path)
	if err != nil {
		return false, err
	}

	var list []string
	if v, ok := GetPath(data, dotPath); ok {
		list = asList(v)
	}

	idx := -1
	for i, existing := range list {
		if existing == item {
			idx = i
			break
		}
	}

	switch {
	case add && idx < 0:
		list = append(list, item)
	case !add && idx >= 0:
		list = append(list[:idx], list[idx+1:]...)
	default:
		return false, nil
	}

	SetPath(data, dotPath, list)
	return true, Save(path, data)
}
