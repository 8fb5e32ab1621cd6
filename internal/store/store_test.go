package store_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/aicfg/internal/store"
)

func TestWriteRead_HappyPath(t *testing.T) {
	c := qt.New(t)
	s := store.New(filepath.Join(t.TempDir(), "commands"))

	err := s.Write("my-fix", []byte("prompt = \"Explain this bug\"\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Exists("my-fix"), qt.IsTrue)

	data, err := s.Read("my-fix")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "prompt = \"Explain this bug\"\n")
}

func TestWrite_CreatesIntermediateDirs(t *testing.T) {
	c := qt.New(t)
	dir := filepath.Join(t.TempDir(), "a", "b", "commands")
	s := store.New(dir)

	c.Assert(s.Write("x", []byte("y")), qt.IsNil)
	_, err := os.Stat(filepath.Join(dir, "x.toml"))
	c.Assert(err, qt.IsNil)
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	s := store.New(dir)

	c.Assert(s.Write("a", []byte("1")), qt.IsNil)
	c.Assert(s.Write("a", []byte("2")), qt.IsNil)

	entries, err := os.ReadDir(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 1)
	c.Assert(entries[0].Name(), qt.Equals, "a.toml")
}

func TestRead_NotFound(t *testing.T) {
	c := qt.New(t)
	s := store.New(t.TempDir())

	_, err := s.Read("missing")
	c.Assert(err, qt.ErrorIs, store.ErrNotFound)
}

func TestRemove(t *testing.T) {
	c := qt.New(t)
	s := store.New(t.TempDir())

	c.Run("missing artifact", func(c *qt.C) {
		c.Assert(s.Remove("nope"), qt.ErrorIs, store.ErrNotFound)
	})

	c.Run("existing artifact", func(c *qt.C) {
		c.Assert(s.Write("gone", []byte("x")), qt.IsNil)
		c.Assert(s.Remove("gone"), qt.IsNil)
		c.Assert(s.Exists("gone"), qt.IsFalse)
	})
}

func TestList(t *testing.T) {
	c := qt.New(t)

	c.Run("missing directory yields empty list", func(c *qt.C) {
		s := store.New(filepath.Join(c.TB.TempDir(), "never-created"))
		names, err := s.List()
		c.Assert(err, qt.IsNil)
		c.Assert(names, qt.HasLen, 0)
	})

	c.Run("sorted names, non-artifacts skipped", func(c *qt.C) {
		dir := c.TB.TempDir()
		s := store.New(dir)
		c.Assert(s.Write("zeta", []byte("z")), qt.IsNil)
		c.Assert(s.Write("alpha", []byte("a")), qt.IsNil)
		c.Assert(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("n"), 0o644), qt.IsNil)
		c.Assert(os.Mkdir(filepath.Join(dir, "sub.toml"), 0o755), qt.IsNil)

		names, err := s.List()
		c.Assert(err, qt.IsNil)
		c.Assert(names, qt.DeepEquals, []string{"alpha", "zeta"})
	})
}
