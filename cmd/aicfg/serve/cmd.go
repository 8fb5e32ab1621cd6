// Package servecmd implements the `aicfg serve` command, running the stdio
// MCP server.
package servecmd

import (
	"github.com/spf13/cobra"

	"github.com/go-ports/aicfg/cmd/aicfg/shared"
	"github.com/go-ports/aicfg/internal/mcp"
)

// Command implements `aicfg serve`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the serve command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the stdio MCP server exposing configuration tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := ctx.ScopeContext()
			if err != nil {
				return err
			}
			return mcp.Serve(cmd.Context(), sc)
		},
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }
