// Package artifact implements the scope-aware synchronization core: status
// classification, line diffs, and the publish/install/add operations over a
// pair of artifact stores (user-local and project-repository).
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/go-ports/aicfg/internal/scope"
	"github.com/go-ports/aicfg/internal/store"
)

// Status classifies an artifact's cross-scope state.
type Status string

const (
	// StatusPrivate: exists locally only.
	StatusPrivate Status = "private"
	// StatusAvailable: exists in the repository only.
	StatusAvailable Status = "available"
	// StatusPublished: both copies exist and are byte-identical.
	StatusPublished Status = "published"
	// StatusDirty: both copies exist with differing content.
	StatusDirty Status = "dirty"
)

var (
	// ErrNotComparable is returned by Diff when either side is absent.
	ErrNotComparable = errors.New("artifact not comparable: both copies must exist")
	// ErrConflict is returned when publish/install would overwrite divergent
	// content without force.
	ErrConflict = errors.New("destination exists with different content")
	// ErrExists is returned by Add when the artifact is already present and
	// overwrite was not requested.
	ErrExists = errors.New("artifact already exists")
)

// Engine computes statuses and diffs over the local (user) and repository
// (project) copies of artifacts. Statuses are derived on demand from live
// file state and never cached.
type Engine struct {
	local *store.Store
	repo  *store.Store
}

// NewEngine creates an Engine over the two stores.
func NewEngine(local, repo *store.Store) *Engine {
	return &Engine{local: local, repo: repo}
}

// NewEngineFromScope resolves both scope roots from sc and returns an Engine
// over their command stores.
func NewEngineFromScope(sc scope.Context) (*Engine, error) {
	user, err := sc.UserRoot()
	if err != nil {
		return nil, err
	}
	project, err := sc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	return NewEngine(store.New(user.CommandsDir()), store.New(project.CommandsDir())), nil
}

// Local returns the user-local store.
func (e *Engine) Local() *store.Store { return e.local }

// Repo returns the repository-side store.
func (e *Engine) Repo() *store.Store { return e.repo }

// Status classifies the named artifact. store.ErrNotFound is returned when
// neither copy exists.
func (e *Engine) Status(name string) (Status, error) {
	localData, localErr := e.local.Read(name)
	repoData, repoErr := e.repo.Read(name)

	localOK := localErr == nil
	repoOK := repoErr == nil
	if localErr != nil && !errors.Is(localErr, store.ErrNotFound) {
		return "", localErr
	}
	if repoErr != nil && !errors.Is(repoErr, store.ErrNotFound) {
		return "", repoErr
	}

	switch {
	case localOK && !repoOK:
		return StatusPrivate, nil
	case !localOK && repoOK:
		return StatusAvailable, nil
	case localOK && repoOK:
		if bytes.Equal(localData, repoData) {
			return StatusPublished, nil
		}
		return StatusDirty, nil
	default:
		return "", fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
}

// Info describes one artifact in a listing.
type Info struct {
	Name    string
	Status  Status
	InLocal bool
	InRepo  bool
}

// List returns the union of artifact names present in either location,
// sorted by name. pattern, when non-empty, is a shell-style glob applied
// case-sensitively against names.
func (e *Engine) List(pattern string) ([]Info, error) {
	localNames, err := e.local.List()
	if err != nil {
		return nil, err
	}
	repoNames, err := e.repo.List()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(localNames)+len(repoNames))
	for _, n := range localNames {
		seen[n] = true
	}
	for _, n := range repoNames {
		seen[n] = true
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		if pattern != "" {
			ok, err := path.Match(pattern, n)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
		}
		names = append(names, n)
	}
	sort.Strings(names)

	infos := make([]Info, 0, len(names))
	for _, n := range names {
		st, err := e.Status(n)
		if err != nil {
			return nil, err
		}
		infos = append(infos, Info{
			Name:    n,
			Status:  st,
			InLocal: e.local.Exists(n),
			InRepo:  e.repo.Exists(n),
		})
	}
	return infos, nil
}

// ChangeOp identifies one side of a line-level diff.
type ChangeOp int

const (
	OpEqual ChangeOp = iota
	OpDelete
	OpInsert
)

func (op ChangeOp) String() string {
	switch op {
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	default:
		return "equal"
	}
}

// Change is one line-level edit between the repository and local copies.
// Delete lines belong to the repository side, insert lines to the local side.
type Change struct {
	Op   ChangeOp
	Text string
}

// Diff computes the line-level changes from the repository copy to the local
// copy. Both copies must exist; otherwise ErrNotComparable is returned.
// Equal content is a legal call yielding an empty change set.
func (e *Engine) Diff(name string) ([]Change, error) {
	localData, localErr := e.local.Read(name)
	repoData, repoErr := e.repo.Read(name)
	if errors.Is(localErr, store.ErrNotFound) || errors.Is(repoErr, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotComparable, name)
	}
	if localErr != nil {
		return nil, localErr
	}
	if repoErr != nil {
		return nil, repoErr
	}

	if bytes.Equal(localData, repoData) {
		return []Change{}, nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(repoData), string(localData))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	changes := make([]Change, 0, len(diffs))
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		}
		changes = append(changes, Change{Op: op, Text: d.Text})
	}
	return changes, nil
}
