// Package registry maintains the per-scope MCP server registrations stored
// under mcpServers in each scope's settings.json, and probes registered
// servers for liveness.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/go-ports/aicfg/internal/scope"
	"github.com/go-ports/aicfg/internal/settings"
)

var (
	// ErrNameCollision is returned when a registration would shadow an
	// existing entry in the same scope without overwrite.
	ErrNameCollision = errors.New("server name already registered")
	// ErrNotFound is returned when a named entry is absent.
	ErrNotFound = errors.New("server not registered")
)

var nameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Entry is one registered MCP server launch specification. Exactly one of
// Command or URL identifies the transport.
type Entry struct {
	Name    string            `json:"-"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
}

// Listed pairs an Entry with the scope it is registered in.
type Listed struct {
	Entry
	Scope scope.Scope
}

// ValidateName checks a server name against the accepted character set.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("invalid server name %q: use lowercase letters, digits and hyphens", name)
	}
	return nil
}

// DeriveName produces a default server name from a launch command by
// stripping mcp affixes ("mcp-tool", "tool-mcp", "a-mcp-b" all become the
// bare tool name).
func DeriveName(command string) string {
	base := path.Base(strings.ReplaceAll(command, "\\", "/"))
	parts := strings.Split(base, "-")
	kept := parts[:0]
	for _, p := range parts {
		if p != "mcp" && p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return base
	}
	return strings.Join(kept, "-")
}

// Registry operates on the settings files of both scopes.
type Registry struct {
	paths map[scope.Scope]string
}

// New resolves both scope roots from sc and returns a Registry over their
// settings files.
func New(sc scope.Context) (*Registry, error) {
	user, err := sc.UserRoot()
	if err != nil {
		return nil, err
	}
	project, err := sc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	return &Registry{paths: map[scope.Scope]string{
		scope.User:    user.SettingsPath(),
		scope.Project: project.SettingsPath(),
	}}, nil
}

// SettingsPath returns the settings file backing a scope.
func (r *Registry) SettingsPath(s scope.Scope) string { return r.paths[s] }

// Register adds entry to the given scope. A colliding name within the scope
// fails with ErrNameCollision unless overwrite is set; the same name in the
// other scope is an independent namespace and never conflicts.
func (r *Registry) Register(s scope.Scope, entry Entry, overwrite bool) (string, error) {
	if err := ValidateName(entry.Name); err != nil {
		return "", err
	}
	if entry.Command == "" && entry.URL == "" {
		return "", fmt.Errorf("server %q: a command or url is required", entry.Name)
	}

	file := r.paths[s]
	data, err := settings.Load(file)
	if err != nil {
		return "", err
	}

	servers, _ := data["mcpServers"].(map[string]any)
	if servers == nil {
		servers = make(map[string]any)
		data["mcpServers"] = servers
	}
	if _, exists := servers[entry.Name]; exists && !overwrite {
		return "", fmt.Errorf("%w: %s (%s scope)", ErrNameCollision, entry.Name, s)
	}

	servers[entry.Name] = entryToMap(entry)
	if err := settings.Save(file, data); err != nil {
		return "", err
	}
	return file, nil
}

// Remove deletes the named entry from the given scope.
func (r *Registry) Remove(s scope.Scope, name string) error {
	file := r.paths[s]
	data, err := settings.Load(file)
	if err != nil {
		return err
	}

	servers, _ := data["mcpServers"].(map[string]any)
	if _, exists := servers[name]; !exists {
		return fmt.Errorf("%w: %s (%s scope)", ErrNotFound, name, s)
	}
	delete(servers, name)
	if len(servers) == 0 {
		delete(data, "mcpServers")
	}
	return settings.Save(file, data)
}

// Get returns the named entry from the given scope.
func (r *Registry) Get(s scope.Scope, name string) (Entry, error) {
	entries, err := r.scopeEntries(s)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s (%s scope)", ErrNotFound, name, s)
}

// List returns entries across the resolved scopes in scope order (project
// first) then name order. scopeFilter narrows to one scope; pattern is a
// case-sensitive shell glob on names.
func (r *Registry) List(scopeFilter scope.Scope, pattern string) ([]Listed, error) {
	scopes := scope.ValidScopes
	if scopeFilter != "" {
		scopes = []scope.Scope{scopeFilter}
	}

	var out []Listed
	for _, s := range scopes {
		entries, err := r.scopeEntries(s)
		if err != nil {
			return nil, err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			if pattern != "" {
				ok, err := path.Match(pattern, e.Name)
				if err != nil {
					return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
				}
				if !ok {
					continue
				}
			}
			out = append(out, Listed{Entry: e, Scope: s})
		}
	}
	return out, nil
}

func (r *Registry) scopeEntries(s scope.Scope) ([]Entry, error) {
	data, err := settings.Load(r.paths[s])
	if err != nil {
		return nil, err
	}
	servers, _ := data["mcpServers"].(map[string]any)

	entries := make([]Entry, 0, len(servers))
	for name, raw := range servers {
		e := mapToEntry(raw)
		e.Name = name
		entries = append(entries, e)
	}
	return entries, nil
}

// entryToMap converts an Entry into the plain-JSON shape persisted in
// settings.json, going through encoding/json so omitempty applies.
func entryToMap(e Entry) map[string]any {
	b, _ := json.Marshal(e)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

func mapToEntry(raw any) Entry {
	b, _ := json.Marshal(raw)
	var e Entry
	_ = json.Unmarshal(b, &e)
	return e
}
