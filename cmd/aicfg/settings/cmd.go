// Package settingscmd implements the `aicfg settings`, `aicfg paths` and
// `aicfg allowed-tools` command groups over the per-scope settings files.
package settingscmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/go-ports/aicfg/cmd/aicfg/shared"
	"github.com/go-ports/aicfg/internal/scope"
	"github.com/go-ports/aicfg/internal/settings"
)

// Command implements the `aicfg settings` group.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	scopeName string
}

// New creates the settings command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "settings",
		Short: "Read and write curated assistant settings",
		RunE:  func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all known settings with their effective values",
		Args:  cobra.NoArgs,
		RunE:  c.runList,
	}

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Show one setting's effective value",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runGet,
	}
	get.Flags().StringVar(&c.scopeName, "scope", "", "Read from one scope only: user or project")

	set := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Set a setting, coerced to its declared type",
		Args:  cobra.ExactArgs(2),
		RunE:  c.runSet,
	}
	set.Flags().StringVar(&c.scopeName, "scope", "", "Scope to write to: user or project (default: write scope)")

	c.cmd.AddCommand(list, get, set)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// settingsPaths resolves both scopes' settings files. The project path is
// empty when no project root can be determined.
func settingsPaths(ctx *shared.Context) (userPath, projectPath string, sc scope.Context, err error) {
	sc, err = ctx.ScopeContext()
	if err != nil {
		return "", "", sc, err
	}
	userRoot, err := sc.UserRoot()
	if err != nil {
		return "", "", sc, err
	}
	userPath = userRoot.SettingsPath()
	if projectRoot, err := sc.ProjectRoot(); err == nil {
		projectPath = projectRoot.SettingsPath()
	}
	return userPath, projectPath, sc, nil
}

// scopeSettingsPath resolves the settings file of one scope, defaulting to
// the write scope when explicit is empty.
func scopeSettingsPath(ctx *shared.Context, explicit string, intent scope.Intent) (string, scope.Scope, error) {
	sc, err := ctx.ScopeContext()
	if err != nil {
		return "", "", err
	}
	var s scope.Scope
	if explicit != "" {
		if s, err = scope.Parse(explicit); err != nil {
			return "", "", err
		}
	}
	roots, err := sc.Resolve(s, intent)
	if err != nil {
		return "", "", err
	}
	return roots[0].SettingsPath(), roots[0].Scope, nil
}

func (c *Command) runList(cmd *cobra.Command, _ []string) error {
	userPath, projectPath, _, err := settingsPaths(c.ctx)
	if err != nil {
		return err
	}
	aliases, values, err := settings.ListAliasValues(userPath, projectPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range settings.AliasNames(aliases) {
		value := values[name]
		display := "(unset)"
		if value != nil {
			display = fmt.Sprintf("%v", value)
		}
		fmt.Fprintf(out, "%-22s %-14s %s\n", name, display, aliases[name].Description)
	}
	return nil
}

func (c *Command) runGet(cmd *cobra.Command, args []string) error {
	name := args[0]

	if c.scopeName != "" {
		path, _, err := scopeSettingsPath(c.ctx, c.scopeName, scope.Read)
		if err != nil {
			return err
		}
		value, err := settings.GetAliasValue(path, name)
		if err != nil {
			return err
		}
		printValue(cmd, value)
		return nil
	}

	userPath, projectPath, _, err := settingsPaths(c.ctx)
	if err != nil {
		return err
	}
	_, values, err := settings.ListAliasValues(userPath, projectPath)
	if err != nil {
		return err
	}
	value, ok := values[name]
	if !ok {
		return fmt.Errorf("unknown setting alias %q", name)
	}
	printValue(cmd, value)
	return nil
}

func printValue(cmd *cobra.Command, value any) {
	if value == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "(unset)")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%v\n", value)
}

func (c *Command) runSet(cmd *cobra.Command, args []string) error {
	path, s, err := scopeSettingsPath(c.ctx, c.scopeName, scope.Write)
	if err != nil {
		return err
	}

	typed, restart, err := settings.SetAliasValue(path, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v (%s scope)\n", args[0], typed, s)
	if restart {
		log.Warn("restart the assistant for this change to take effect", "setting", args[0])
	}
	return nil
}

// ---------------------------------------------------------------------------
// List-valued setting groups
// ---------------------------------------------------------------------------

// ListCommand implements a command group over one list-valued setting
// (context include directories, allowed tools).
type ListCommand struct {
	ctx *shared.Context
	cmd *cobra.Command

	dotPath   string
	noun      string
	scopeName string
}

// NewPaths creates the paths command group over context.includeDirectories.
func NewPaths(ctx *shared.Context) *ListCommand {
	return newListCommand(ctx, &cobra.Command{
		Use:   "paths",
		Short: "Manage directories included in the assistant context",
	}, "context.includeDirectories", "path")
}

// NewAllowedTools creates the allowed-tools command group over tools.allowed.
func NewAllowedTools(ctx *shared.Context) *ListCommand {
	return newListCommand(ctx, &cobra.Command{
		Use:   "allowed-tools",
		Short: "Manage tools the assistant may invoke without confirmation",
	}, "tools.allowed", "tool")
}

func newListCommand(ctx *shared.Context, group *cobra.Command, dotPath, noun string) *ListCommand {
	c := &ListCommand{ctx: ctx, cmd: group, dotPath: dotPath, noun: noun}
	group.RunE = func(cmd *cobra.Command, _ []string) error { return cmd.Help() }

	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List configured %ss", noun),
		Args:  cobra.NoArgs,
		RunE:  c.runList,
	}
	add := &cobra.Command{
		Use:   fmt.Sprintf("add <%s>", noun),
		Short: fmt.Sprintf("Add a %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE:  c.runAdd,
	}
	remove := &cobra.Command{
		Use:   fmt.Sprintf("remove <%s>", noun),
		Short: fmt.Sprintf("Remove a %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE:  c.runRemove,
	}
	for _, sub := range []*cobra.Command{list, add, remove} {
		sub.Flags().StringVar(&c.scopeName, "scope", "", "Scope to operate on: user or project (default: write scope)")
	}

	group.AddCommand(list, add, remove)
	return c
}

// Cmd returns the cobra command.
func (c *ListCommand) Cmd() *cobra.Command { return c.cmd }

func (c *ListCommand) runList(cmd *cobra.Command, _ []string) error {
	path, s, err := scopeSettingsPath(c.ctx, c.scopeName, scope.Write)
	if err != nil {
		return err
	}
	items, err := settings.GetList(path, c.dotPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintf(out, "No %ss configured in %s scope.\n", c.noun, s)
		return nil
	}
	for _, item := range items {
		fmt.Fprintln(out, item)
	}
	return nil
}

func (c *ListCommand) runAdd(cmd *cobra.Command, args []string) error {
	path, s, err := scopeSettingsPath(c.ctx, c.scopeName, scope.Write)
	if err != nil {
		return err
	}
	changed, err := settings.AddListItem(path, c.dotPath, args[0])
	if err != nil {
		return err
	}
	if changed {
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s scope).\n", args[0], s)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already configured (%s scope).\n", args[0], s)
	}
	return nil
}

func (c *ListCommand) runRemove(cmd *cobra.Command, args []string) error {
	path, s, err := scopeSettingsPath(c.ctx, c.scopeName, scope.Write)
	if err != nil {
		return err
	}
	changed, err := settings.RemoveListItem(path, c.dotPath, args[0])
	if err != nil {
		return err
	}
	if changed {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s scope).\n", args[0], s)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s was not configured (%s scope).\n", args[0], s)
	}
	return nil
}
