// Package contextcmd implements the `aicfg context` command group for
// unifying per-assistant context files.
package contextcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/aicfg/cmd/aicfg/shared"
	"github.com/go-ports/aicfg/internal/contextfile"
	"github.com/go-ports/aicfg/internal/scope"
)

// Command implements the `aicfg context` group.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	scopeName string
}

// New creates the context command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "context",
		Short: "Inspect and unify CLAUDE.md / GEMINI.md context files",
		RunE:  func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the unification state of each scope's context files",
		Args:  cobra.NoArgs,
		RunE:  c.runStatus,
	}
	status.Flags().StringVar(&c.scopeName, "scope", "", "Limit to one scope: user or project")

	unify := &cobra.Command{
		Use:   "unify",
		Short: "Merge the assistant files into CONTEXT.md and symlink them to it",
		Args:  cobra.NoArgs,
		RunE:  c.runUnify,
	}
	unify.Flags().StringVar(&c.scopeName, "scope", "user", "Scope to unify: user or project")

	c.cmd.AddCommand(status, unify)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// pathsFor resolves the context file locations of one scope.
func (c *Command) pathsFor(s scope.Scope) (contextfile.Paths, error) {
	if s == scope.User {
		return contextfile.UserPaths(""), nil
	}
	sc, err := c.ctx.ScopeContext()
	if err != nil {
		return contextfile.Paths{}, err
	}
	return contextfile.ProjectPaths(sc)
}

func (c *Command) runStatus(cmd *cobra.Command, _ []string) error {
	scopes := scope.ValidScopes
	if c.scopeName != "" {
		s, err := scope.Parse(c.scopeName)
		if err != nil {
			return err
		}
		scopes = []scope.Scope{s}
	}

	out := cmd.OutOrStdout()
	for _, s := range scopes {
		paths, err := c.pathsFor(s)
		if err != nil {
			return err
		}
		st := contextfile.Status(paths)
		fmt.Fprintf(out, "%s scope: %s\n", s, st.State)
		for _, f := range st.Files {
			detail := ""
			if f.Target != "" {
				detail = " -> " + f.Target
			}
			fmt.Fprintf(out, "  %-12s %-18s %s%s\n", f.Name, f.State, f.Path, detail)
		}
	}
	return nil
}

func (c *Command) runUnify(cmd *cobra.Command, _ []string) error {
	s, err := scope.Parse(c.scopeName)
	if err != nil {
		return err
	}
	paths, err := c.pathsFor(s)
	if err != nil {
		return err
	}

	res, err := contextfile.Unify(paths)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.AlreadyUnified {
		fmt.Fprintf(out, "Already unified: both assistant files link to %s.\n", res.UnifiedPath)
		return nil
	}

	fmt.Fprintf(out, "Unified %d source(s) into %s.\n", len(res.Sources), res.UnifiedPath)
	for _, b := range res.Backups {
		fmt.Fprintf(out, "  backup:  %s\n", b)
	}
	for _, l := range res.Symlinks {
		fmt.Fprintf(out, "  symlink: %s\n", l)
	}
	if len(res.Sources) > 1 {
		fmt.Fprintln(out, "Review the merged file and integrate the imported sections.")
	}
	return nil
}
