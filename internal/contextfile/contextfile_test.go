package contextfile_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/aicfg/internal/contextfile"
)

func tempPaths(c *qt.C) contextfile.Paths {
	return contextfile.UserPaths(c.TB.TempDir())
}

func writeSource(c *qt.C, path, content string) {
	c.Assert(os.MkdirAll(filepath.Dir(path), 0o755), qt.IsNil)
	c.Assert(os.WriteFile(path, []byte(content), 0o644), qt.IsNil)
}

func TestUserPaths(t *testing.T) {
	c := qt.New(t)

	p := contextfile.UserPaths("/home/dev")
	c.Assert(p.Unified, qt.Equals, "/home/dev/.config/ai-common/CONTEXT.md")
	c.Assert(p.Claude, qt.Equals, "/home/dev/.claude/CLAUDE.md")
	c.Assert(p.Gemini, qt.Equals, "/home/dev/.gemini/GEMINI.md")
}

func TestStatus(t *testing.T) {
	c := qt.New(t)

	c.Run("nothing exists", func(c *qt.C) {
		p := tempPaths(c)
		st := contextfile.Status(p)
		c.Assert(st.State, qt.Equals, contextfile.ScopeNotUnified)
		c.Assert(st.Files, qt.HasLen, 3)
		for _, f := range st.Files {
			c.Assert(f.State, qt.Equals, contextfile.StateMissing)
		}
	})

	c.Run("plain files present", func(c *qt.C) {
		p := tempPaths(c)
		writeSource(c, p.Claude, "claude notes")
		writeSource(c, p.Gemini, "gemini notes")

		st := contextfile.Status(p)
		c.Assert(st.State, qt.Equals, contextfile.ScopeNotUnified)
		c.Assert(st.Files[1].State, qt.Equals, contextfile.StatePresent)
		c.Assert(st.Files[2].State, qt.Equals, contextfile.StatePresent)
	})

	c.Run("context only", func(c *qt.C) {
		p := tempPaths(c)
		writeSource(c, p.Unified, "shared notes")

		st := contextfile.Status(p)
		c.Assert(st.State, qt.Equals, contextfile.ScopeContextOnly)
	})

	c.Run("partial", func(c *qt.C) {
		p := tempPaths(c)
		writeSource(c, p.Unified, "shared notes")
		c.Assert(os.MkdirAll(filepath.Dir(p.Claude), 0o755), qt.IsNil)
		c.Assert(os.Symlink(p.Unified, p.Claude), qt.IsNil)

		st := contextfile.Status(p)
		c.Assert(st.State, qt.Equals, contextfile.ScopePartial)
		c.Assert(st.Files[1].State, qt.Equals, contextfile.StateSymlinkUnified)
	})

	c.Run("symlink elsewhere", func(c *qt.C) {
		p := tempPaths(c)
		other := filepath.Join(c.TB.TempDir(), "OTHER.md")
		writeSource(c, other, "elsewhere")
		c.Assert(os.MkdirAll(filepath.Dir(p.Gemini), 0o755), qt.IsNil)
		c.Assert(os.Symlink(other, p.Gemini), qt.IsNil)

		st := contextfile.Status(p)
		c.Assert(st.Files[2].State, qt.Equals, contextfile.StateSymlinkOther)
		c.Assert(st.Files[2].Target, qt.Equals, other)
	})
}

func TestUnify_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("both sources merge with headers", func(c *qt.C) {
		p := tempPaths(c)
		writeSource(c, p.Claude, "claude instructions\n")
		writeSource(c, p.Gemini, "gemini instructions\n")

		res, err := contextfile.Unify(p)
		c.Assert(err, qt.IsNil)
		c.Assert(res.Sources, qt.DeepEquals, []string{"CLAUDE.md", "GEMINI.md"})
		c.Assert(res.Backups, qt.HasLen, 2)
		c.Assert(res.Symlinks, qt.HasLen, 2)

		content, err := os.ReadFile(p.Unified)
		c.Assert(err, qt.IsNil)
		c.Assert(string(content), qt.Contains, "CONTEXT IMPORTED FROM CLAUDE.md")
		c.Assert(string(content), qt.Contains, "CONTEXT IMPORTED FROM GEMINI.md")
		c.Assert(string(content), qt.Contains, "claude instructions")
		c.Assert(string(content), qt.Contains, "gemini instructions")

		// Both assistant names now resolve to the unified file.
		for _, link := range []string{p.Claude, p.Gemini} {
			through, err := os.ReadFile(link)
			c.Assert(err, qt.IsNil)
			c.Assert(string(through), qt.Equals, string(content))
		}

		// Originals survive as backups.
		backup, err := os.ReadFile(filepath.Join(filepath.Dir(p.Claude), "CLAUDE.md.bak"))
		c.Assert(err, qt.IsNil)
		c.Assert(string(backup), qt.Equals, "claude instructions\n")

		st := contextfile.Status(p)
		c.Assert(st.State, qt.Equals, contextfile.ScopeUnified)
	})

	c.Run("single source", func(c *qt.C) {
		p := tempPaths(c)
		writeSource(c, p.Gemini, "gemini only")

		res, err := contextfile.Unify(p)
		c.Assert(err, qt.IsNil)
		c.Assert(res.Sources, qt.DeepEquals, []string{"GEMINI.md"})
		c.Assert(res.Symlinks, qt.HasLen, 2)

		st := contextfile.Status(p)
		c.Assert(st.State, qt.Equals, contextfile.ScopeUnified)
	})

	c.Run("existing unified content is kept", func(c *qt.C) {
		p := tempPaths(c)
		writeSource(c, p.Unified, "long-standing notes")
		writeSource(c, p.Claude, "fresh claude notes")

		_, err := contextfile.Unify(p)
		c.Assert(err, qt.IsNil)

		content, err := os.ReadFile(p.Unified)
		c.Assert(err, qt.IsNil)
		c.Assert(string(content), qt.Contains, "long-standing notes")
		c.Assert(string(content), qt.Contains, "fresh claude notes")
	})
}

func TestUnify_Idempotent(t *testing.T) {
	c := qt.New(t)
	p := tempPaths(c)
	writeSource(c, p.Claude, "claude notes")
	writeSource(c, p.Gemini, "gemini notes")

	_, err := contextfile.Unify(p)
	c.Assert(err, qt.IsNil)
	before, err := os.ReadFile(p.Unified)
	c.Assert(err, qt.IsNil)

	res, err := contextfile.Unify(p)
	c.Assert(err, qt.IsNil)
	c.Assert(res.AlreadyUnified, qt.IsTrue)
	c.Assert(res.Backups, qt.HasLen, 0)

	after, err := os.ReadFile(p.Unified)
	c.Assert(err, qt.IsNil)
	c.Assert(string(after), qt.Equals, string(before))
}

func TestUnify_Error(t *testing.T) {
	c := qt.New(t)

	c.Run("no sources", func(c *qt.C) {
		p := tempPaths(c)
		_, err := contextfile.Unify(p)
		c.Assert(err, qt.ErrorIs, contextfile.ErrNoSources)
	})

	c.Run("foreign symlink aborts before any change", func(c *qt.C) {
		p := tempPaths(c)
		other := filepath.Join(c.TB.TempDir(), "OTHER.md")
		writeSource(c, other, "elsewhere")
		c.Assert(os.MkdirAll(filepath.Dir(p.Claude), 0o755), qt.IsNil)
		c.Assert(os.Symlink(other, p.Claude), qt.IsNil)
		writeSource(c, p.Gemini, "gemini notes")

		_, err := contextfile.Unify(p)
		c.Assert(err, qt.ErrorIs, contextfile.ErrSymlinkConflict)

		// Nothing was written or moved.
		_, statErr := os.Lstat(p.Unified)
		c.Assert(os.IsNotExist(statErr), qt.IsTrue)
		content, readErr := os.ReadFile(p.Gemini)
		c.Assert(readErr, qt.IsNil)
		c.Assert(string(content), qt.Equals, "gemini notes")
	})
}
