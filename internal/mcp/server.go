// Package mcp provides the stdio MCP server exposing configuration tools for
// coding agents.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/go-ports/aicfg/internal/artifact"
	"github.com/go-ports/aicfg/internal/buildinfo"
	"github.com/go-ports/aicfg/internal/registry"
	"github.com/go-ports/aicfg/internal/scope"
	"github.com/go-ports/aicfg/internal/settings"
)

const addDescription = `Create a slash command in the private (user) scope. The command becomes available to the assistant immediately; use command_publish to share it with the project.`

const listDescription = `List slash commands across the user and project scopes with their sync status: private (user only), available (project only), published (identical in both) or dirty (diverged).`

const publishDescription = `Copy a slash command from the user scope into the project scope so it can be committed and shared. Refuses to overwrite a diverged project copy unless force is set.`

const installDescription = `Copy a slash command from the project scope into the user scope. Refuses to overwrite a diverged user copy unless force is set.`

const diffDescription = `Show the line-level difference between the user and project copies of a slash command. An empty change list means the copies are identical.`

const contextPathDescription = `Add a directory to the assistant's context include list in the user settings.`

const checkDescription = `Start a registered MCP server and perform the initialize handshake to verify it is healthy. Failures come back as data (timeout, unreachable, protocol error), never as tool errors.`

// NewServer creates and registers all configuration tools on a new MCP
// server. It is intentionally separate from Serve so that tests and other
// callers can obtain a fully configured server without committing to the
// stdio transport.
func NewServer(sc scope.Context) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("aicfg", buildinfo.Version)
	registerTools(s, sc)
	return s
}

// Serve starts the stdio MCP server, blocking until stdin closes. A zero
// WorkDir in sc is filled from the current working directory.
func Serve(_ context.Context, sc scope.Context) error {
	if sc.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("mcp: resolve working directory: %w", err)
		}
		sc.WorkDir = wd
	}
	return mcpserver.ServeStdio(NewServer(sc))
}

// registerTools wires all configuration tools into the server.
func registerTools(s *mcpserver.MCPServer, sc scope.Context) {
	s.AddTool(mcp.NewTool("command_add",
		mcp.WithDescription(addDescription),
		mcp.WithString("name",
			mcp.Description("Command name, used as the file stem."),
			mcp.Required(),
		),
		mcp.WithString("prompt",
			mcp.Description("Prompt text the command expands to."),
			mcp.Required(),
		),
		mcp.WithString("description",
			mcp.Description("One-line description shown in listings."),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Replace an existing command with the same name."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAdd(sc, req)
	})

	s.AddTool(mcp.NewTool("command_list",
		mcp.WithDescription(listDescription),
		mcp.WithString("pattern",
			mcp.Description("Shell glob filtering command names."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleList(sc, req)
	})

	s.AddTool(mcp.NewTool("command_publish",
		mcp.WithDescription(publishDescription),
		mcp.WithString("name",
			mcp.Description("Command to publish."),
			mcp.Required(),
		),
		mcp.WithBoolean("force",
			mcp.Description("Overwrite a diverged project copy."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSync(sc, req, syncPublish)
	})

	s.AddTool(mcp.NewTool("command_install",
		mcp.WithDescription(installDescription),
		mcp.WithString("name",
			mcp.Description("Command to install."),
			mcp.Required(),
		),
		mcp.WithBoolean("force",
			mcp.Description("Overwrite a diverged user copy."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSync(sc, req, syncInstall)
	})

	s.AddTool(mcp.NewTool("command_diff",
		mcp.WithDescription(diffDescription),
		mcp.WithString("name",
			mcp.Description("Command to compare."),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleDiff(sc, req)
	})

	s.AddTool(mcp.NewTool("context_path_add",
		mcp.WithDescription(contextPathDescription),
		mcp.WithString("path",
			mcp.Description("Directory to include in the assistant context."),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleContextPathAdd(sc, req)
	})

	s.AddTool(mcp.NewTool("server_check",
		mcp.WithDescription(checkDescription),
		mcp.WithString("name",
			mcp.Description("Registered server name."),
			mcp.Required(),
		),
		mcp.WithString("scope",
			mcp.Description("Scope to look the server up in; both are searched when omitted."),
			mcp.Enum(string(scope.Project), string(scope.User)),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Handshake deadline (default 5)."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCheck(ctx, sc, req)
	})
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func handleAdd(sc scope.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	doc := artifact.Doc{
		Description: req.GetString("description", ""),
		Prompt:      req.GetString("prompt", ""),
	}

	eng, err := artifact.NewEngineFromScope(sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := eng.Add(name, doc, req.GetBool("overwrite", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"name":   res.Name,
		"path":   res.Path,
		"action": string(res.Action),
	})
}

func handleList(sc scope.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eng, err := artifact.NewEngineFromScope(sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	infos, err := eng.List(req.GetString("pattern", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	commands := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		commands = append(commands, map[string]any{
			"name":       info.Name,
			"status":     string(info.Status),
			"in_user":    info.InLocal,
			"in_project": info.InRepo,
		})
	}
	return jsonResult(map[string]any{
		"total":    len(commands),
		"commands": commands,
	})
}

type syncDirection int

const (
	syncPublish syncDirection = iota
	syncInstall
)

func handleSync(sc scope.Context, req mcp.CallToolRequest, dir syncDirection) (*mcp.CallToolResult, error) {
	eng, err := artifact.NewEngineFromScope(sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := req.GetString("name", "")
	force := req.GetBool("force", false)

	var res artifact.Result
	if dir == syncPublish {
		res, err = eng.Publish(name, force)
	} else {
		res, err = eng.Install(name, force)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"name":   res.Name,
		"path":   res.Path,
		"action": string(res.Action),
	})
}

func handleDiff(sc scope.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eng, err := artifact.NewEngineFromScope(sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	changes, err := eng.Diff(req.GetString("name", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := make([]map[string]any, 0, len(changes))
	for _, ch := range changes {
		out = append(out, map[string]any{
			"op":   ch.Op.String(),
			"text": ch.Text,
		})
	}
	return jsonResult(map[string]any{
		"identical": len(out) == 0,
		"changes":   out,
	})
}

func handleContextPathAdd(sc scope.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := req.GetString("path", "")
	if dir == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	root, err := sc.UserRoot()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	changed, err := settings.AddListItem(root.SettingsPath(), "context.includeDirectories", dir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"path":    dir,
		"added":   changed,
		"file":    root.SettingsPath(),
		"message": addMessage(changed, dir),
	})
}

func addMessage(changed bool, dir string) string {
	if changed {
		return "Added " + dir + " to context.includeDirectories."
	}
	return dir + " is already in context.includeDirectories."
}

func handleCheck(ctx context.Context, sc scope.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg, err := registry.New(sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := req.GetString("name", "")
	entry, entryScope, err := lookupEntry(reg, name, req.GetString("scope", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	timeout := time.Duration(req.GetFloat("timeout_seconds", 0) * float64(time.Second))
	res := registry.CheckHealth(ctx, registry.DefaultProbe(entry), entry, timeout)

	return jsonResult(map[string]any{
		"name":    name,
		"scope":   string(entryScope),
		"healthy": res.Healthy,
		"version": res.Version,
		"error":   string(res.Err),
		"detail":  res.Detail,
	})
}

// lookupEntry finds a registered server, searching project then user when no
// scope is given.
func lookupEntry(reg *registry.Registry, name, scopeName string) (registry.Entry, scope.Scope, error) {
	if scopeName != "" {
		s, err := scope.Parse(scopeName)
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

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
