package settings

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed settings_map.yaml
var aliasMapYAML []byte

// Alias describes one curated setting exposed under a short name.
type Alias struct {
	Path        string `yaml:"path"`
	Type        string `yaml:"type"` // string | bool | int | list
	Description string `yaml:"description"`
	Restart     bool   `yaml:"restart"` // change requires an assistant restart
}

// Aliases returns the bundled alias map.
func Aliases() (map[string]Alias, error) {
	var m map[string]Alias
	if err := yaml.Unmarshal(aliasMapYAML, &m); err != nil {
		return nil, fmt.Errorf("settings: parse alias map: %w", err)
	}
	return m, nil
}

// AliasNames returns the alias keys in sorted order.
func AliasNames(m map[string]Alias) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAliasValue reads the aliased setting from the settings file at path.
// The value is nil when unset.
func GetAliasValue(path, alias string) (any, error) {
	aliases, err := Aliases()
	if err != nil {
		return nil, err
	}
	info, ok := aliases[alias]
	if !ok {
		return nil, fmt.Errorf("unknown setting alias %q", alias)
	}

	data, err := Load(path)
	if err != nil {
		return nil, err
	}
	v, _ := GetPath(data, info.Path)
	return v, nil
}

// SetAliasValue coerces raw to the alias's declared type, persists it, and
// reports the typed value plus whether the assistant must restart to pick
// the change up.
func SetAliasValue(path, alias, raw string) (any, bool, error) {
	aliases, err := Aliases()
	if err != nil {
		return nil, false, err
	}
	info, ok := aliases[alias]
	if !ok {
		return nil, false, fmt.Errorf("unknown setting alias %q", alias)
	}

	typed, err := coerce(raw, info.Type)
	if err != nil {
		return nil, false, fmt.Errorf("setting %q: %w", alias, err)
	}

	data, err := Load(path)
	if err != nil {
		return nil, false, err
	}
	SetPath(data, info.Path, typed)
	if err := Save(path, data); err != nil {
		return nil, false, err
	}
	return typed, info.Restart, nil
}

// ListAliasValues resolves every alias against the merged view of the user
// and (optionally) project settings files, project values winning.
func ListAliasValues(userPath, projectPath string) (map[string]Alias, map[string]any, error) {
	aliases, err := Aliases()
	if err != nil {
		return nil, nil, err
	}

	data, err := Load(userPath)
	if err != nil {
		return nil, nil, err
	}
	if projectPath != "" {
		project, err := Load(projectPath)
		if err != nil {
			return nil, nil, err
		}
		data = Merge(data, project)
	}

	values := make(map[string]any, len(aliases))
	for name, info := range aliases {
		v, _ := GetPath(data, info.Path)
		values[name] = v
	}
	return aliases, values, nil
}

func coerce(raw, typ string) (any, error) {
	switch typ {
	case "bool":
		switch strings.ToLower(raw) {
		case "true", "1", "yes", "on":
			return true, nil
		default:
			return false, nil
		}
	case "int":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", raw)
		}
		return n, nil
	case "list":
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return raw, nil
	}
}
