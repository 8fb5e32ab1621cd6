// Package shared holds the context passed to all CLI commands.
package shared

import (
	"os"

	"github.com/go-ports/aicfg/internal/scope"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// UserDir overrides the user scope root.
	// When empty, resolution falls through to AICFG_USER_DIR env var → ~/.gemini.
	UserDir string
	// ProjectDir overrides the project scope root.
	// When empty, resolution falls through to AICFG_PROJECT_DIR env var →
	// <repository toplevel>/.gemini → <working directory>/.gemini.
	ProjectDir string
	// Verbose enables debug logging.
	Verbose bool
}

// ScopeContext builds the scope resolution context for the current working
// directory plus any root overrides.
func (c *Context) ScopeContext() (scope.Context, error) {
	wd, err := os.Getwd()
	if err != nil {
		return scope.Context{}, err
	}
	return scope.Context{
		WorkDir:    wd,
		UserDir:    c.UserDir,
		ProjectDir: c.ProjectDir,
	}, nil
}
