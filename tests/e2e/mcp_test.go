// Package e2e_test holds MCP server end-to-end tests.
//
// Each test wires the real MCP server in-process via the mcp-go
// InProcessTransport, backed by scope roots in temporary directories.  No
// binary needs to be compiled; the full stack, from tool handler down to the
// artifact stores, is exercised within a single test process.
package e2e_test

import (
	"context"
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	internalmcp "github.com/go-ports/aicfg/internal/mcp"
	"github.com/go-ports/aicfg/internal/scope"
	"github.com/go-ports/aicfg/internal/settings"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newMCPClient creates an in-process MCP client backed by scope roots rooted
// at fresh temporary directories.  The client is started and initialized
// before it is returned; cleanup is registered on c automatically.
func newMCPClient(c *qt.C) (*mcpclient.Client, scope.Context) {
	c.TB.Helper()

	sc := scope.Context{
		WorkDir:    c.TB.TempDir(),
		UserDir:    c.TB.TempDir(),
		ProjectDir: c.TB.TempDir(),
	}

	cl, err := mcpclient.NewInProcessClient(internalmcp.NewServer(sc))
	c.Assert(err, qt.IsNil)
	c.TB.Cleanup(func() { _ = cl.Close() })

	c.Assert(cl.Start(context.Background()), qt.IsNil)

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "e2e-test", Version: "0.0.1"}
	_, err = cl.Initialize(context.Background(), initReq)
	c.Assert(err, qt.IsNil)

	return cl, sc
}

// callTool invokes the named MCP tool, asserts success, and returns the text
// of the first content item decoded into a map.
func callTool(c *qt.C, cl *mcpclient.Client, name string, args map[string]any) map[string]any {
	c.TB.Helper()

	result := rawCall(c, cl, name, args)
	c.Assert(result.IsError, qt.IsFalse)
	c.Assert(result.Content, qt.HasLen, 1)

	tc, ok := mcp.AsTextContent(result.Content[0])
	c.Assert(ok, qt.IsTrue)

	var out map[string]any
	c.Assert(json.Unmarshal([]byte(tc.Text), &out), qt.IsNil)
	return out
}

// callToolErr invokes the named MCP tool expecting an error result, and
// returns the error text.
func callToolErr(c *qt.C, cl *mcpclient.Client, name string, args map[string]any) string {
	c.TB.Helper()

	result := rawCall(c, cl, name, args)
	c.Assert(result.IsError, qt.IsTrue)
	c.Assert(result.Content, qt.HasLen, 1)

	tc, ok := mcp.AsTextContent(result.Content[0])
	c.Assert(ok, qt.IsTrue)
	return tc.Text
}

func rawCall(c *qt.C, cl *mcpclient.Client, name string, args map[string]any) *mcp.CallToolResult {
	c.TB.Helper()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := cl.CallTool(context.Background(), req)
	c.Assert(err, qt.IsNil)
	return result
}

// ---------------------------------------------------------------------------
// ListTools
// ---------------------------------------------------------------------------

func TestMCPListTools_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c)

	result, err := cl.ListTools(context.Background(), mcp.ListToolsRequest{})
	c.Assert(err, qt.IsNil)
	c.Assert(result.Tools, qt.HasLen, 7)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	for _, want := range []string{
		"command_add", "command_list", "command_publish", "command_install",
		"command_diff", "context_path_add", "server_check",
	} {
		c.Assert(names, qt.Contains, want)
	}
}

// ---------------------------------------------------------------------------
// command lifecycle
// ---------------------------------------------------------------------------

func TestMCPCommandLifecycle_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c)

	added := callTool(c, cl, "command_add", map[string]any{
		"name":        "explain-bug",
		"prompt":      "Explain this bug",
		"description": "Explain the selected bug",
	})
	c.Assert(added["action"], qt.Equals, "created")

	listed := callTool(c, cl, "command_list", map[string]any{})
	c.Assert(listed["total"], qt.Equals, float64(1))
	commands := listed["commands"].([]any)
	first := commands[0].(map[string]any)
	c.Assert(first["name"], qt.Equals, "explain-bug")
	c.Assert(first["status"], qt.Equals, "private")

	published := callTool(c, cl, "command_publish", map[string]any{"name": "explain-bug"})
	c.Assert(published["action"], qt.Equals, "created")

	listed = callTool(c, cl, "command_list", map[string]any{})
	commands = listed["commands"].([]any)
	first = commands[0].(map[string]any)
	c.Assert(first["status"], qt.Equals, "published")

	diffed := callTool(c, cl, "command_diff", map[string]any{"name": "explain-bug"})
	c.Assert(diffed["identical"], qt.Equals, true)
	c.Assert(diffed["changes"], qt.HasLen, 0)
}

func TestMCPCommandDirtyFlow(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c)

	callTool(c, cl, "command_add", map[string]any{
		"name":   "review",
		"prompt": "Review this change",
	})
	callTool(c, cl, "command_publish", map[string]any{"name": "review"})

	// Diverge the user copy.
	updated := callTool(c, cl, "command_add", map[string]any{
		"name":      "review",
		"prompt":    "Review this change thoroughly",
		"overwrite": true,
	})
	c.Assert(updated["action"], qt.Equals, "updated")

	listed := callTool(c, cl, "command_list", map[string]any{"pattern": "rev*"})
	first := listed["commands"].([]any)[0].(map[string]any)
	c.Assert(first["status"], qt.Equals, "dirty")

	diffed := callTool(c, cl, "command_diff", map[string]any{"name": "review"})
	c.Assert(diffed["identical"], qt.Equals, false)
	c.Assert(len(diffed["changes"].([]any)) > 0, qt.IsTrue)

	// Install without force refuses to clobber the diverged user copy.
	callToolErr(c, cl, "command_install", map[string]any{"name": "review"})

	forced := callTool(c, cl, "command_install", map[string]any{"name": "review", "force": true})
	c.Assert(forced["action"], qt.Equals, "updated")

	diffed = callTool(c, cl, "command_diff", map[string]any{"name": "review"})
	c.Assert(diffed["identical"], qt.Equals, true)
}

func TestMCPCommandAdd_Error(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c)

	callTool(c, cl, "command_add", map[string]any{"name": "dup", "prompt": "one"})
	errText := callToolErr(c, cl, "command_add", map[string]any{"name": "dup", "prompt": "two"})
	c.Assert(errText, qt.Contains, "dup")
}

// ---------------------------------------------------------------------------
// context_path_add
// ---------------------------------------------------------------------------

func TestMCPContextPathAdd_HappyPath(t *testing.T) {
	c := qt.New(t)
	cl, sc := newMCPClient(c)

	added := callTool(c, cl, "context_path_add", map[string]any{"path": "/src/shared"})
	c.Assert(added["added"], qt.Equals, true)

	// Second add is a no-op.
	again := callTool(c, cl, "context_path_add", map[string]any{"path": "/src/shared"})
	c.Assert(again["added"], qt.Equals, false)

	root, err := sc.UserRoot()
	c.Assert(err, qt.IsNil)
	list, err := settings.GetList(root.SettingsPath(), "context.includeDirectories")
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.DeepEquals, []string{"/src/shared"})
}

// ---------------------------------------------------------------------------
// server_check
// ---------------------------------------------------------------------------

func TestMCPServerCheck_UnknownServer(t *testing.T) {
	c := qt.New(t)
	cl, _ := newMCPClient(c)

	errText := callToolErr(c, cl, "server_check", map[string]any{"name": "ghost"})
	c.Assert(errText, qt.Contains, "not registered")
}
