// Package scope resolves abstract configuration scopes (user, project) to
// concrete filesystem roots. The resolver is a pure function of its Context;
// it never reads the process working directory or any other ambient state.
package scope

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Scope identifies a configuration location tier.
type Scope string

const (
	// User is the per-user configuration home.
	User Scope = "user"
	// Project is the repository-local configuration directory.
	Project Scope = "project"
)

// Intent distinguishes read resolution (aggregate all scopes) from write
// resolution (pick exactly one target).
type Intent int

const (
	Read Intent = iota
	Write
)

// ErrScopeUnavailable is returned when a scope's root directory cannot be
// determined, e.g. no resolvable home directory for the user scope.
var ErrScopeUnavailable = errors.New("scope unavailable")

// ValidScopes lists the accepted scope values in read-resolution order.
var ValidScopes = []Scope{Project, User}

// Parse converts a CLI string into a Scope.
func Parse(s string) (Scope, error) {
	switch Scope(s) {
	case User, Project:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("invalid scope %q (expected user or project)", s)
	}
}

// Context carries the inputs scope resolution depends on. All fields are
// explicit so resolution stays testable without touching process state.
type Context struct {
	// WorkDir is the caller's working directory, used for repository
	// detection and the project-root fallback.
	WorkDir string
	// UserDir overrides the user scope root. When empty, resolution falls
	// through to $AICFG_USER_DIR and then <home>/.gemini.
	UserDir string
	// ProjectDir overrides the project scope root. When empty, resolution
	// falls through to $AICFG_PROJECT_DIR, the enclosing repository's
	// .gemini directory, and finally <WorkDir>/.gemini.
	ProjectDir string
}

// Root is one resolved scope location.
type Root struct {
	Scope Scope
	Dir   string
}

// CommandsDir returns the slash-command artifact directory under this root.
func (r Root) CommandsDir() string { return filepath.Join(r.Dir, "commands") }

// SettingsPath returns the settings.json path under this root.
func (r Root) SettingsPath() string { return filepath.Join(r.Dir, "settings.json") }

// UserRoot resolves the user scope root.
// Priority: Context override → $AICFG_USER_DIR → <home>/.gemini.
func (c Context) UserRoot() (Root, error) {
	if c.UserDir != "" {
		return Root{Scope: User, Dir: c.UserDir}, nil
	}
	if env := os.Getenv("AICFG_USER_DIR"); env != "" {
		return Root{Scope: User, Dir: env}, nil
	}
	if xdg.Home == "" {
		return Root{}, fmt.Errorf("%w: no home directory for user scope", ErrScopeUnavailable)
	}
	return Root{Scope: User, Dir: filepath.Join(xdg.Home, ".gemini")}, nil
}

// ProjectRoot resolves the project scope root.
// Priority: Context override → $AICFG_PROJECT_DIR → <repository
// toplevel>/.gemini → <WorkDir>/.gemini.
func (c Context) ProjectRoot() (Root, error) {
	if c.ProjectDir != "" {
		return Root{Scope: Project, Dir: c.ProjectDir}, nil
	}
	if env := os.Getenv("AICFG_PROJECT_DIR"); env != "" {
		return Root{Scope: Project, Dir: filepath.Join(env, ".gemini")}, nil
	}
	if c.WorkDir == "" {
		return Root{}, fmt.Errorf("%w: no working directory for project scope", ErrScopeUnavailable)
	}
	if top, ok := repositoryToplevel(c.WorkDir); ok {
		return Root{Scope: Project, Dir: filepath.Join(top, ".gemini")}, nil
	}
	return Root{Scope: Project, Dir: filepath.Join(c.WorkDir, ".gemini")}, nil
}

// Resolve maps an optional explicit scope and an intent to an ordered list of
// concrete roots.
//
//   - explicit scope: that scope's root only, regardless of intent
//   - Read, no scope: project then user, so callers can overlay
//   - Write, no scope: project when WorkDir is inside a repository, else user
func (c Context) Resolve(explicit Scope, intent Intent) ([]Root, error) {
	if explicit != "" {
		r, err := c.root(explicit)
		if err != nil {
			return nil, err
		}
		return []Root{r}, nil
	}

	if intent == Write {
		if c.InRepository() {
			r, err := c.ProjectRoot()
			if err != nil {
				return nil, err
			}
			return []Root{r}, nil
		}
		r, err := c.UserRoot()
		if err != nil {
			return nil, err
		}
		return []Root{r}, nil
	}

	roots := make([]Root, 0, len(ValidScopes))
	for _, s := range ValidScopes {
		r, err := c.root(s)
		if err != nil {
			return nil, err
		}
		roots = append(roots, r)
	}
	return roots, nil
}

func (c Context) root(s Scope) (Root, error) {
	switch s {
	case User:
		return c.UserRoot()
	case Project:
		return c.ProjectRoot()
	default:
		return Root{}, fmt.Errorf("%w: unknown scope %q", ErrScopeUnavailable, s)
	}
}

// InRepository reports whether WorkDir is inside a version-controlled
// repository (a .git entry at WorkDir or any parent).
func (c Context) InRepository() bool {
	_, ok := repositoryToplevel(c.WorkDir)
	return ok
}

// repositoryToplevel walks from dir upward looking for a .git entry.
func repositoryToplevel(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Lstat(filepath.Join(dir, ".git")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
