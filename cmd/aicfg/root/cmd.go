// Package rootcmd wires the root cobra.Command for the aicfg CLI binary.
package rootcmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	commandscmd "github.com/go-ports/aicfg/cmd/aicfg/commands"
	"github.com/go-ports/aicfg/cmd/aicfg/contextcmd"
	patternscmd "github.com/go-ports/aicfg/cmd/aicfg/patterns"
	servecmd "github.com/go-ports/aicfg/cmd/aicfg/serve"
	serverscmd "github.com/go-ports/aicfg/cmd/aicfg/servers"
	settingscmd "github.com/go-ports/aicfg/cmd/aicfg/settings"
	"github.com/go-ports/aicfg/cmd/aicfg/shared"
	"github.com/go-ports/aicfg/internal/buildinfo"
)

// New creates and returns the root cobra.Command for the aicfg CLI.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "aicfg",
		Short:         "Portable configuration for AI coding assistants",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if ctx.Verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&ctx.UserDir, "user-dir", "",
		"Override the user scope root (default: $AICFG_USER_DIR env → ~/.gemini)")
	pf.StringVar(&ctx.ProjectDir, "project-dir", "",
		"Override the project scope root (default: $AICFG_PROJECT_DIR env → <git toplevel>/.gemini)")
	pf.BoolVarP(&ctx.Verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		commandscmd.New(ctx).Cmd(),
		serverscmd.New(ctx).Cmd(),
		settingscmd.New(ctx).Cmd(),
		settingscmd.NewPaths(ctx).Cmd(),
		settingscmd.NewAllowedTools(ctx).Cmd(),
		contextcmd.New(ctx).Cmd(),
		patternscmd.New(ctx).Cmd(),
		servecmd.New(ctx).Cmd(),
	)

	return root
}
