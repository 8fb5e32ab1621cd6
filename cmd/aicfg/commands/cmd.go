// Package commandscmd implements the `aicfg cmd` command group for managing
// slash-command artifacts.
package commandscmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/go-ports/aicfg/cmd/aicfg/shared"
	"github.com/go-ports/aicfg/internal/artifact"
	"github.com/go-ports/aicfg/internal/scope"
	"github.com/go-ports/aicfg/internal/store"
)

// Command implements the `aicfg cmd` group.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	// add
	description string
	prompt      string
	promptFile  string
	overwrite   bool

	// list
	pattern string

	// remove
	removeScope string

	// publish / install
	force bool
}

// New creates the cmd command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "cmd",
		Short: "Manage slash commands across the user and project scopes",
		RunE:  func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a slash command in the user scope",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runAdd,
	}
	f := add.Flags()
	f.StringVar(&c.description, "description", "", "One-line description shown in listings")
	f.StringVar(&c.prompt, "prompt", "", "Prompt text the command expands to")
	f.StringVar(&c.promptFile, "prompt-file", "", "Path to a file containing the prompt text")
	f.BoolVar(&c.overwrite, "overwrite", false, "Replace an existing command with the same name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List slash commands with their sync status",
		Args:  cobra.NoArgs,
		RunE:  c.runList,
	}
	list.Flags().StringVar(&c.pattern, "pattern", "", "Shell glob filtering command names")

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a slash command, project copy taking precedence",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runShow,
	}

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a slash command from one scope",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runRemove,
	}
	remove.Flags().StringVar(&c.removeScope, "scope", "user", "Scope to delete from: user or project")

	publish := &cobra.Command{
		Use:   "publish <name>",
		Short: "Copy a slash command from the user scope into the project scope",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runPublish,
	}
	publish.Flags().BoolVar(&c.force, "force", false, "Overwrite a diverged project copy")

	install := &cobra.Command{
		Use:   "install <name>",
		Short: "Copy a slash command from the project scope into the user scope",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runInstall,
	}
	install.Flags().BoolVar(&c.force, "force", false, "Overwrite a diverged user copy")

	diff := &cobra.Command{
		Use:   "diff <name>",
		Short: "Show the line difference between the user and project copies",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runDiff,
	}

	c.cmd.AddCommand(add, list, show, remove, publish, install, diff)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) engine() (*artifact.Engine, error) {
	sc, err := c.ctx.ScopeContext()
	if err != nil {
		return nil, err
	}
	return artifact.NewEngineFromScope(sc)
}

func (c *Command) runAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	if c.prompt != "" && c.promptFile != "" {
		return fmt.Errorf("use either --prompt or --prompt-file, not both")
	}
	prompt := c.prompt
	if c.promptFile != "" {
		data, err := readFile(c.promptFile)
		if err != nil {
			return err
		}
		prompt = data
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("a prompt is required (--prompt or --prompt-file)")
	}

	eng, err := c.engine()
	if err != nil {
		return err
	}
	res, err := eng.Add(name, artifact.Doc{Description: c.description, Prompt: prompt}, c.overwrite)
	if err != nil {
		if errors.Is(err, artifact.ErrExists) {
			return fmt.Errorf("command %q already exists; use --overwrite to replace it", name)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", capitalize(string(res.Action)), res.Path)
	return nil
}

func (c *Command) runList(cmd *cobra.Command, _ []string) error {
	eng, err := c.engine()
	if err != nil {
		return err
	}
	infos, err := eng.List(c.pattern)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No commands found.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(out, "%-24s %s\n", info.Name, info.Status)
	}
	return nil
}

func (c *Command) runShow(cmd *cobra.Command, args []string) error {
	eng, err := c.engine()
	if err != nil {
		return err
	}
	doc, from, err := eng.Show(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name: %s (%s scope)\n", args[0], from)
	if doc.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", doc.Description)
	}
	fmt.Fprintf(out, "\n%s\n", doc.Prompt)
	return nil
}

func (c *Command) runRemove(cmd *cobra.Command, args []string) error {
	s, err := scope.Parse(c.removeScope)
	if err != nil {
		return err
	}
	eng, err := c.engine()
	if err != nil {
		return err
	}

	st := eng.Local()
	if s == scope.Project {
		st = eng.Repo()
	}
	if err := st.Remove(args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("command %q not found in %s scope", args[0], s)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s scope.\n", args[0], s)
	return nil
}

func (c *Command) runPublish(cmd *cobra.Command, args []string) error {
	eng, err := c.engine()
	if err != nil {
		return err
	}
	res, err := eng.Publish(args[0], c.force)
	if err != nil {
		if errors.Is(err, artifact.ErrConflict) {
			return fmt.Errorf("project copy of %q has diverged; run `aicfg cmd diff %s` or use --force", args[0], args[0])
		}
		return err
	}
	reportSync(cmd, res, "project")
	return nil
}

func (c *Command) runInstall(cmd *cobra.Command, args []string) error {
	eng, err := c.engine()
	if err != nil {
		return err
	}
	res, err := eng.Install(args[0], c.force)
	if err != nil {
		if errors.Is(err, artifact.ErrConflict) {
			return fmt.Errorf("user copy of %q has diverged; run `aicfg cmd diff %s` or use --force", args[0], args[0])
		}
		return err
	}
	reportSync(cmd, res, "user")
	return nil
}

func (c *Command) runDiff(cmd *cobra.Command, args []string) error {
	eng, err := c.engine()
	if err != nil {
		return err
	}
	changes, err := eng.Diff(args[0])
	if err != nil {
		if errors.Is(err, artifact.ErrNotComparable) {
			return fmt.Errorf("command %q does not exist in both scopes", args[0])
		}
		return err
	}

	out := cmd.OutOrStdout()
	if len(changes) == 0 {
		fmt.Fprintf(out, "%s is identical in both scopes.\n", args[0])
		return nil
	}
	for _, ch := range changes {
		prefix := "  "
		switch ch.Op {
		case artifact.OpDelete:
			prefix = "- "
		case artifact.OpInsert:
			prefix = "+ "
		}
		for _, line := range strings.Split(strings.TrimRight(ch.Text, "\n"), "\n") {
			fmt.Fprintf(out, "%s%s\n", prefix, line)
		}
	}
	return nil
}

func reportSync(cmd *cobra.Command, res artifact.Result, dest string) {
	switch res.Action {
	case artifact.ActionUnchanged:
		fmt.Fprintf(cmd.OutOrStdout(), "%s already up to date in %s scope.\n", res.Name, dest)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", capitalize(string(res.Action)), res.Path)
	}
}

func readFile(path string) (string, error) {
	log.Debug("reading prompt file", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %q: %w", path, err)
	}
	return string(data), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
