// Package contextfile reports on and unifies the per-assistant context files
// (CLAUDE.md, GEMINI.md) into a single shared CONTEXT.md, replacing the
// originals with symlinks so every assistant reads the same instructions.
package contextfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/go-ports/aicfg/internal/scope"
)

var (
	// ErrSymlinkConflict is returned when a source file is already a symlink
	// pointing somewhere other than the unified file.
	ErrSymlinkConflict = errors.New("symlink points to unexpected location")
	// ErrNoSources is returned when neither per-assistant file exists.
	ErrNoSources = errors.New("no context files to unify")
)

// Paths locates the three context files of one scope.
type Paths struct {
	Unified string // CONTEXT.md, the shared file
	Claude  string // CLAUDE.md
	Gemini  string // GEMINI.md
}

// UserPaths returns the user-scope context file locations. An empty home
// selects the XDG defaults.
func UserPaths(home string) Paths {
	if home == "" {
		return Paths{
			Unified: filepath.Join(xdg.ConfigHome, "ai-common", "CONTEXT.md"),
			Claude:  filepath.Join(xdg.Home, ".claude", "CLAUDE.md"),
			Gemini:  filepath.Join(xdg.Home, ".gemini", "GEMINI.md"),
		}
	}
	return Paths{
		Unified: filepath.Join(home, ".config", "ai-common", "CONTEXT.md"),
		Claude:  filepath.Join(home, ".claude", "CLAUDE.md"),
		Gemini:  filepath.Join(home, ".gemini", "GEMINI.md"),
	}
}

// ProjectPaths returns the project-scope context file locations, anchored at
// the repository toplevel (or the working directory outside a repository).
func ProjectPaths(sc scope.Context) (Paths, error) {
	root, err := sc.ProjectRoot()
	if err != nil {
		return Paths{}, err
	}
	base := filepath.Dir(root.Dir)
	return Paths{
		Unified: filepath.Join(base, ".config", "ai-common", "CONTEXT.md"),
		Claude:  filepath.Join(base, ".claude", "CLAUDE.md"),
		Gemini:  filepath.Join(base, ".gemini", "GEMINI.md"),
	}, nil
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// FileState classifies one context file.
type FileState string

const (
	StateMissing        FileState = "missing"
	StatePresent        FileState = "present"
	StateSymlinkUnified FileState = "symlink (unified)"
	StateSymlinkOther   FileState = "symlink (other)"
)

// ScopeState summarizes a whole scope.
type ScopeState string

const (
	// ScopeUnified: CONTEXT.md exists and both assistant files link to it.
	ScopeUnified ScopeState = "unified"
	// ScopePartial: exactly one assistant file links to CONTEXT.md.
	ScopePartial ScopeState = "partial"
	// ScopeContextOnly: CONTEXT.md exists but no symlinks do.
	ScopeContextOnly ScopeState = "context only"
	// ScopeNotUnified: nothing is linked and CONTEXT.md is absent.
	ScopeNotUnified ScopeState = "not unified"
)

// FileStatus is the classification of one file.
type FileStatus struct {
	Name   string // CONTEXT.md, CLAUDE.md or GEMINI.md
	Path   string
	State  FileState
	Target string // symlink target, when State is a symlink state
}

// ScopeStatus is the classification of one scope's three files.
type ScopeStatus struct {
	State ScopeState
	Files []FileStatus // CONTEXT.md, CLAUDE.md, GEMINI.md in that order
}

// Status classifies the context files at p.
func Status(p Paths) ScopeStatus {
	context := classify("CONTEXT.md", p.Unified, p.Unified)
	claude := classify("CLAUDE.md", p.Claude, p.Unified)
	gemini := classify("GEMINI.md", p.Gemini, p.Unified)

	var state ScopeState
	contextExists := context.State != StateMissing
	claudeLinked := claude.State == StateSymlinkUnified
	geminiLinked := gemini.State == StateSymlinkUnified
	switch {
	case contextExists && claudeLinked && geminiLinked:
		state = ScopeUnified
	case claudeLinked || geminiLinked:
		state = ScopePartial
	case contextExists:
		state = ScopeContextOnly
	default:
		state = ScopeNotUnified
	}

	return ScopeStatus{
		State: state,
		Files: []FileStatus{context, claude, gemini},
	}
}

func classify(name, path, unified string) FileStatus {
	fs := FileStatus{Name: name, Path: path, State: StateMissing}

	fi, err := os.Lstat(path)
	if err != nil {
		return fs
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		fs.State = StatePresent
		return fs
	}

	target := linkTarget(path)
	fs.Target = target
	if samePath(target, unified) {
		fs.State = StateSymlinkUnified
	} else {
		fs.State = StateSymlinkOther
	}
	return fs
}

// linkTarget reads a symlink and makes relative targets absolute against the
// link's own directory.
func linkTarget(path string) string {
	target, err := os.Readlink(path)
	if err != nil {
		return ""
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return target
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if ra, err := filepath.EvalSymlinks(a); err == nil {
		a = ra
	}
	if rb, err := filepath.EvalSymlinks(b); err == nil {
		b = rb
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

// ---------------------------------------------------------------------------
// Unify
// ---------------------------------------------------------------------------

// UnifyResult reports what Unify did.
type UnifyResult struct {
	UnifiedPath    string
	Sources        []string // file names merged into the unified file
	Backups        []string // paths of .md.bak files created
	Symlinks       []string // symlink paths created
	AlreadyUnified bool
}

// Unify merges the assistant files at p into the unified CONTEXT.md, renames
// the originals to .md.bak and symlinks both assistant names to the unified
// file. A second run on a unified scope is a no-op. A symlink pointing
// anywhere other than the unified file aborts with ErrSymlinkConflict before
// any change is made.
func Unify(p Paths) (UnifyResult, error) {
	res := UnifyResult{UnifiedPath: p.Unified}

	sources := []struct {
		name string
		path string
	}{
		{"CLAUDE.md", p.Claude},
		{"GEMINI.md", p.Gemini},
	}

	linked := 0
	for _, src := range sources {
		fi, err := os.Lstat(src.path)
		if err != nil || fi.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if !samePath(linkTarget(src.path), p.Unified) {
			return res, fmt.Errorf("%w: %s -> %s", ErrSymlinkConflict, src.name, linkTarget(src.path))
		}
		linked++
	}
	if linked == len(sources) {
		res.AlreadyUnified = true
		return res, nil
	}

	type section struct {
		name    string
		content string
	}
	var merged []section
	for _, src := range sources {
		content, ok := readRegular(src.path)
		if !ok {
			continue
		}
		merged = append(merged, section{src.name, content})
	}
	if len(merged) == 0 {
		return res, ErrNoSources
	}

	if err := os.MkdirAll(filepath.Dir(p.Unified), 0o755); err != nil {
		return res, err
	}

	var b strings.Builder
	if existing, ok := readRegular(p.Unified); ok {
		b.WriteString(strings.TrimSpace(existing))
		b.WriteString("\n\n")
	}
	stamp := time.Now().Format("2006-01-02 15:04:05")
	for i, sec := range merged {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "*** CONTEXT IMPORTED FROM %s (%s) ***\n\n%s", sec.name, stamp, strings.TrimSpace(sec.content))
		res.Sources = append(res.Sources, sec.name)
	}
	b.WriteString("\n")

	if err := os.WriteFile(p.Unified, []byte(b.String()), 0o644); err != nil {
		return res, err
	}

	for _, src := range sources {
		if fi, err := os.Lstat(src.path); err == nil && fi.Mode()&os.ModeSymlink == 0 {
			backup := strings.TrimSuffix(src.path, ".md") + ".md.bak"
			if err := os.Rename(src.path, backup); err != nil {
				return res, err
			}
			res.Backups = append(res.Backups, backup)
		}
		if _, err := os.Lstat(src.path); err == nil {
			continue // already a symlink to the unified file
		}
		if err := os.MkdirAll(filepath.Dir(src.path), 0o755); err != nil {
			return res, err
		}
		if err := os.Symlink(p.Unified, src.path); err != nil {
			return res, err
		}
		res.Symlinks = append(res.Symlinks, src.path)
	}

	return res, nil
}

// readRegular returns the content of path when it is a regular file, not a
// symlink or a directory.
func readRegular(path string) (string, bool) {
	fi, err := os.Lstat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return "", false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(content), true
}
