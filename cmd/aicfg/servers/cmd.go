// Package serverscmd implements the `aicfg mcp` command group for managing
// MCP server registrations.
package serverscmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/go-ports/aicfg/cmd/aicfg/shared"
	"github.com/go-ports/aicfg/internal/registry"
	"github.com/go-ports/aicfg/internal/scope"
)

// Command implements the `aicfg mcp` group.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	// add
	name      string
	url       string
	env       []string
	addScope  string
	overwrite bool

	// list
	listScope string
	pattern   string

	// remove
	removeScope string

	// check
	checkScope string
	timeout    time.Duration
}

// New creates the mcp command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "mcp",
		Short: "Manage MCP server registrations in settings.json",
		RunE:  func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	add := &cobra.Command{
		Use:   "add [command] [args...]",
		Short: "Register an MCP server launch specification",
		Long: `Register an MCP server. Pass the launch command and its arguments, or
--url for a remote server. The server name defaults to the command's base
name with mcp affixes stripped (mcp-github becomes github).`,
		Args: cobra.ArbitraryArgs,
		RunE: c.runAdd,
	}
	f := add.Flags()
	f.StringVar(&c.name, "name", "", "Server name (derived from the command when omitted)")
	f.StringVar(&c.url, "url", "", "Remote server URL instead of a launch command")
	f.StringArrayVar(&c.env, "env", nil, "Environment variable KEY=VALUE (repeatable)")
	f.StringVar(&c.addScope, "scope", "", "Scope to register in: user or project (default: write scope)")
	f.BoolVar(&c.overwrite, "overwrite", false, "Replace an existing registration with the same name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered MCP servers",
		Args:  cobra.NoArgs,
		RunE:  c.runList,
	}
	list.Flags().StringVar(&c.listScope, "scope", "", "Limit to one scope: user or project")
	list.Flags().StringVar(&c.pattern, "pattern", "", "Shell glob filtering server names")

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an MCP server registration",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runRemove,
	}
	remove.Flags().StringVar(&c.removeScope, "scope", "", "Scope to remove from: user or project (default: write scope)")

	check := &cobra.Command{
		Use:   "check <name>",
		Short: "Start a registered server and verify the initialize handshake",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runCheck,
	}
	check.Flags().StringVar(&c.checkScope, "scope", "", "Scope to look the server up in (default: project, then user)")
	check.Flags().DurationVar(&c.timeout, "timeout", registry.DefaultHealthTimeout, "Handshake deadline")

	c.cmd.AddCommand(add, list, remove, check)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) registry() (*registry.Registry, scope.Context, error) {
	sc, err := c.ctx.ScopeContext()
	if err != nil {
		return nil, scope.Context{}, err
	}
	reg, err := registry.New(sc)
	return reg, sc, err
}

// resolveScope maps an optional --scope value to a concrete scope, falling
// back to the default write scope of the working directory.
func resolveScope(sc scope.Context, explicit string) (scope.Scope, error) {
	var s scope.Scope
	if explicit != "" {
		parsed, err := scope.Parse(explicit)
		if err != nil {
			return "", err
		}
		s = parsed
	}
	roots, err := sc.Resolve(s, scope.Write)
	if err != nil {
		return "", err
	}
	return roots[0].Scope, nil
}

func (c *Command) runAdd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && c.url == "" {
		return fmt.Errorf("a launch command or --url is required")
	}
	if len(args) > 0 && c.url != "" {
		return fmt.Errorf("use either a launch command or --url, not both")
	}

	entry := registry.Entry{Name: c.name, URL: c.url}
	if len(args) > 0 {
		entry.Command = args[0]
		entry.Args = args[1:]
	}
	if entry.Name == "" {
		if entry.Command == "" {
			return fmt.Errorf("--name is required when registering by --url")
		}
		entry.Name = registry.DeriveName(entry.Command)
		log.Debug("derived server name", "name", entry.Name, "command", entry.Command)
	}
	for _, kv := range c.env {
		key, value, ok := splitEnv(kv)
		if !ok {
			return fmt.Errorf("invalid --env %q: expected KEY=VALUE", kv)
		}
		if entry.Env == nil {
			entry.Env = make(map[string]string)
		}
		entry.Env[key] = value
	}

	reg, sc, err := c.registry()
	if err != nil {
		return err
	}
	s, err := resolveScope(sc, c.addScope)
	if err != nil {
		return err
	}

	file, err := reg.Register(s, entry, c.overwrite)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s scope (%s).\n", entry.Name, s, file)
	return nil
}

func (c *Command) runList(cmd *cobra.Command, _ []string) error {
	reg, _, err := c.registry()
	if err != nil {
		return err
	}

	var filter scope.Scope
	if c.listScope != "" {
		if filter, err = scope.Parse(c.listScope); err != nil {
			return err
		}
	}

	entries, err := reg.List(filter, c.pattern)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No servers registered.")
		return nil
	}
	for _, e := range entries {
		target := e.URL
		if target == "" {
			target = e.Command
			for _, a := range e.Args {
				target += " " + a
			}
		}
		fmt.Fprintf(out, "%-20s %-8s %s\n", e.Name, e.Scope, target)
	}
	return nil
}

func (c *Command) runRemove(cmd *cobra.Command, args []string) error {
	reg, sc, err := c.registry()
	if err != nil {
		return err
	}
	s, err := resolveScope(sc, c.removeScope)
	if err != nil {
		return err
	}
	if err := reg.Remove(s, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s scope.\n", args[0], s)
	return nil
}

func (c *Command) runCheck(cmd *cobra.Command, args []string) error {
	reg, _, err := c.registry()
	if err != nil {
		return err
	}

	name := args[0]
	entry, found, err := c.lookup(reg, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Checking %s (%s scope)...\n", name, found)
	res := registry.CheckHealth(cmd.Context(), registry.DefaultProbe(entry), entry, c.timeout)

	out := cmd.OutOrStdout()
	if res.Healthy {
		fmt.Fprintf(out, "OK: %s responded", name)
		if res.Version != "" {
			fmt.Fprintf(out, " (%s)", res.Version)
		}
		fmt.Fprintln(out)
		return nil
	}

	fmt.Fprintf(out, "FAILED: %s\n", res.Err)
	if res.Detail != "" {
		fmt.Fprintf(out, "  %s\n", res.Detail)
	}
	return nil
}

// lookup finds the entry, searching project then user unless --scope narrows
// the search.
func (c *Command) lookup(reg *registry.Registry, name string) (registry.Entry, scope.Scope, error) {
	if c.checkScope != "" {
		s, err := scope.Parse(c.checkScope)
		if err != nil {
			return registry.Entry{}, "", err
		}
		entry, err := reg.Get(s, name)
		return entry, s, err
	}
	for _, s := range scope.ValidScopes {
		if entry, err := reg.Get(s, name); err == nil {
			return entry, s, nil
		}
	}
	return registry.Entry{}, "", fmt.Errorf("%w: %s", registry.ErrNotFound, name)
}

func splitEnv(kv string) (key, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			if i == 0 {
				return "", "", false
			}
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}
