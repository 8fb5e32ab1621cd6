package registry_test

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/aicfg/internal/registry"
	"github.com/go-ports/aicfg/internal/scope"
	"github.com/go-ports/aicfg/internal/settings"
)

func newRegistry(c *qt.C) *registry.Registry {
	sc := scope.Context{
		WorkDir:    c.TB.TempDir(),
		UserDir:    c.TB.TempDir(),
		ProjectDir: c.TB.TempDir(),
	}
	r, err := registry.New(sc)
	c.Assert(err, qt.IsNil)
	return r
}

func TestValidateName(t *testing.T) {
	c := qt.New(t)

	for _, name := range []string{"fs", "github-tools", "a1-b2"} {
		c.Assert(registry.ValidateName(name), qt.IsNil, qt.Commentf("name %q", name))
	}
	for _, name := range []string{"", "-lead", "Upper", "under_score", "dot.ted", "spa ce"} {
		c.Assert(registry.ValidateName(name), qt.IsNotNil, qt.Commentf("name %q", name))
	}
}

func TestDeriveName(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		command string
		want    string
	}{
		{"mcp-github", "github"},
		{"github-mcp", "github"},
		{"files-mcp-server", "files-server"},
		{"/usr/local/bin/mcp-sqlite", "sqlite"},
		{"plain", "plain"},
		{"mcp", "mcp"},
	}
	for _, tt := range tests {
		c.Assert(registry.DeriveName(tt.command), qt.Equals, tt.want, qt.Commentf("command %q", tt.command))
	}
}

func TestRegister_HappyPath(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(c)

	file, err := r.Register(scope.User, registry.Entry{
		Name:    "github",
		Command: "mcp-github",
		Args:    []string{"--stdio"},
		Env:     map[string]string{"GITHUB_TOKEN": "x"},
	}, false)
	c.Assert(err, qt.IsNil)
	c.Assert(file, qt.Equals, r.SettingsPath(scope.User))

	got, err := r.Get(scope.User, "github")
	c.Assert(err, qt.IsNil)
	c.Assert(got.Command, qt.Equals, "mcp-github")
	c.Assert(got.Args, qt.DeepEquals, []string{"--stdio"})
	c.Assert(got.Env, qt.DeepEquals, map[string]string{"GITHUB_TOKEN": "x"})

	// Registration must not clobber unrelated settings.
	data, err := settings.Load(r.SettingsPath(scope.User))
	c.Assert(err, qt.IsNil)
	settings.SetPath(data, "ui.theme", "dark")
	c.Assert(settings.Save(r.SettingsPath(scope.User), data), qt.IsNil)

	_, err = r.Register(scope.User, registry.Entry{Name: "files", Command: "mcp-files"}, false)
	c.Assert(err, qt.IsNil)

	data, err = settings.Load(r.SettingsPath(scope.User))
	c.Assert(err, qt.IsNil)
	theme, ok := settings.GetPath(data, "ui.theme")
	c.Assert(ok, qt.IsTrue)
	c.Assert(theme, qt.Equals, "dark")
}

func TestRegister_Error(t *testing.T) {
	c := qt.New(t)

	c.Run("invalid name", func(c *qt.C) {
		r := newRegistry(c)
		_, err := r.Register(scope.User, registry.Entry{Name: "Bad_Name", Command: "x"}, false)
		c.Assert(err, qt.IsNotNil)
	})

	c.Run("no transport", func(c *qt.C) {
		r := newRegistry(c)
		_, err := r.Register(scope.User, registry.Entry{Name: "empty"}, false)
		c.Assert(err, qt.ErrorMatches, `.*command or url is required.*`)
	})

	c.Run("name collision within scope", func(c *qt.C) {
		r := newRegistry(c)
		_, err := r.Register(scope.User, registry.Entry{Name: "github", Command: "a"}, false)
		c.Assert(err, qt.IsNil)
		_, err = r.Register(scope.User, registry.Entry{Name: "github", Command: "b"}, false)
		c.Assert(err, qt.ErrorIs, registry.ErrNameCollision)

		// The original registration stays intact.
		got, err := r.Get(scope.User, "github")
		c.Assert(err, qt.IsNil)
		c.Assert(got.Command, qt.Equals, "a")
	})
}

func TestRegister_OverwriteReplaces(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(c)

	_, err := r.Register(scope.User, registry.Entry{Name: "github", Command: "old", Args: []string{"-v"}}, false)
	c.Assert(err, qt.IsNil)
	_, err = r.Register(scope.User, registry.Entry{Name: "github", Command: "new"}, true)
	c.Assert(err, qt.IsNil)

	got, err := r.Get(scope.User, "github")
	c.Assert(err, qt.IsNil)
	c.Assert(got.Command, qt.Equals, "new")
	c.Assert(got.Args, qt.HasLen, 0)

	// Overwrite replaces; it never duplicates the entry.
	listed, err := r.List(scope.User, "")
	c.Assert(err, qt.IsNil)
	c.Assert(listed, qt.HasLen, 1)
}

func TestRegister_ScopesAreIndependentNamespaces(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(c)

	_, err := r.Register(scope.User, registry.Entry{Name: "github", Command: "user-side"}, false)
	c.Assert(err, qt.IsNil)
	_, err = r.Register(scope.Project, registry.Entry{Name: "github", Command: "project-side"}, false)
	c.Assert(err, qt.IsNil)

	u, err := r.Get(scope.User, "github")
	c.Assert(err, qt.IsNil)
	c.Assert(u.Command, qt.Equals, "user-side")
	p, err := r.Get(scope.Project, "github")
	c.Assert(err, qt.IsNil)
	c.Assert(p.Command, qt.Equals, "project-side")
}

func TestList(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(c)

	_, err := r.Register(scope.User, registry.Entry{Name: "zeta", Command: "z"}, false)
	c.Assert(err, qt.IsNil)
	_, err = r.Register(scope.User, registry.Entry{Name: "alpha", Command: "a"}, false)
	c.Assert(err, qt.IsNil)
	_, err = r.Register(scope.Project, registry.Entry{Name: "github", URL: "https://mcp.example.com"}, false)
	c.Assert(err, qt.IsNil)

	c.Run("project first, then name order", func(c *qt.C) {
		listed, err := r.List("", "")
		c.Assert(err, qt.IsNil)
		c.Assert(listed, qt.HasLen, 3)
		c.Assert(listed[0].Name, qt.Equals, "github")
		c.Assert(listed[0].Scope, qt.Equals, scope.Project)
		c.Assert(listed[1].Name, qt.Equals, "alpha")
		c.Assert(listed[2].Name, qt.Equals, "zeta")
	})

	c.Run("scope filter", func(c *qt.C) {
		listed, err := r.List(scope.Project, "")
		c.Assert(err, qt.IsNil)
		c.Assert(listed, qt.HasLen, 1)
		c.Assert(listed[0].URL, qt.Equals, "https://mcp.example.com")
	})

	c.Run("glob filter", func(c *qt.C) {
		listed, err := r.List(scope.User, "a*")
		c.Assert(err, qt.IsNil)
		c.Assert(listed, qt.HasLen, 1)
		c.Assert(listed[0].Name, qt.Equals, "alpha")
	})

	c.Run("bad glob", func(c *qt.C) {
		_, err := r.List("", "[")
		c.Assert(err, qt.IsNotNil)
	})
}

func TestRemove(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(c)

	_, err := r.Register(scope.User, registry.Entry{Name: "github", Command: "x"}, false)
	c.Assert(err, qt.IsNil)

	c.Assert(r.Remove(scope.User, "github"), qt.IsNil)
	_, err = r.Get(scope.User, "github")
	c.Assert(err, qt.ErrorIs, registry.ErrNotFound)

	c.Assert(r.Remove(scope.User, "github"), qt.ErrorIs, registry.ErrNotFound)
	c.Assert(r.Remove(scope.Project, "never-there"), qt.ErrorIs, registry.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Health checks
// ---------------------------------------------------------------------------

type fakeProbe struct {
	result registry.HealthResult
	delay  time.Duration
}

func (f fakeProbe) Probe(ctx context.Context, _ registry.Entry) registry.HealthResult {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return registry.HealthResult{Err: registry.HealthTimeout, Detail: ctx.Err().Error()}
		}
	}
	return f.result
}

func TestCheckHealth_HappyPath(t *testing.T) {
	c := qt.New(t)

	probe := fakeProbe{result: registry.HealthResult{Healthy: true, Version: "files-server 1.2.0"}}
	res := registry.CheckHealth(context.Background(), probe, registry.Entry{Name: "files", Command: "mcp-files"}, 0)
	c.Assert(res.Healthy, qt.IsTrue)
	c.Assert(res.Version, qt.Equals, "files-server 1.2.0")
	c.Assert(res.Err, qt.Equals, registry.HealthError(""))
}

func TestCheckHealth_FailuresAreDataNotErrors(t *testing.T) {
	c := qt.New(t)

	c.Run("unreachable", func(c *qt.C) {
		probe := fakeProbe{result: registry.HealthResult{
			Err:    registry.HealthUnreachable,
			Detail: "exec: no such file or directory",
		}}
		res := registry.CheckHealth(context.Background(), probe, registry.Entry{Name: "gone", Command: "missing"}, time.Second)
		c.Assert(res.Healthy, qt.IsFalse)
		c.Assert(res.Err, qt.Equals, registry.HealthUnreachable)
		c.Assert(res.Detail, qt.Contains, "no such file")
	})

	c.Run("timeout honored within bound", func(c *qt.C) {
		probe := fakeProbe{delay: 10 * time.Second}
		start := time.Now()
		res := registry.CheckHealth(context.Background(), probe, registry.Entry{Name: "slow", Command: "x"}, 50*time.Millisecond)
		c.Assert(res.Healthy, qt.IsFalse)
		c.Assert(res.Err, qt.Equals, registry.HealthTimeout)
		c.Assert(time.Since(start) < 5*time.Second, qt.IsTrue)
	})

	c.Run("protocol error", func(c *qt.C) {
		probe := fakeProbe{result: registry.HealthResult{
			Err:    registry.HealthProtocol,
			Detail: "unexpected response to initialize",
		}}
		res := registry.CheckHealth(context.Background(), probe, registry.Entry{Name: "odd", Command: "x"}, time.Second)
		c.Assert(res.Err, qt.Equals, registry.HealthProtocol)
	})
}

func TestDefaultProbe(t *testing.T) {
	c := qt.New(t)

	_, ok := registry.DefaultProbe(registry.Entry{URL: "https://mcp.example.com"}).(registry.HTTPProbe)
	c.Assert(ok, qt.IsTrue)
	_, ok = registry.DefaultProbe(registry.Entry{Command: "mcp-files"}).(registry.StdioProbe)
	c.Assert(ok, qt.IsTrue)
}
