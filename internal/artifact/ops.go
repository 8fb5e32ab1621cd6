package artifact

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-ports/aicfg/internal/store"
)

// Action reports what a sync operation did to the destination file.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
)

// Result is the outcome of a mutating artifact operation.
type Result struct {
	Name   string
	Path   string
	Action Action
}

// Add writes a new artifact document to the local store. When the name is
// already taken, overwrite must be set or ErrExists is returned. Writing
// identical content is reported as unchanged without touching the file.
func (e *Engine) Add(name string, doc Doc, overwrite bool) (Result, error) {
	content, err := doc.Encode()
	if err != nil {
		return Result{}, err
	}
	return e.put(e.local, name, content, overwrite, ErrExists)
}

// Publish copies the local artifact content to the repository location.
// The artifact must exist locally. When the repository copy exists with
// different content, force must be set or ErrConflict is returned.
// Re-publishing identical content is an idempotent no-op.
func (e *Engine) Publish(name string, force bool) (Result, error) {
	content, err := e.local.Read(name)
	if err != nil {
		return Result{}, err
	}
	return e.put(e.repo, name, content, force, ErrConflict)
}

// Install copies the repository artifact content to the local location,
// mirroring Publish's conflict protection and idempotency.
func (e *Engine) Install(name string, force bool) (Result, error) {
	content, err := e.repo.Read(name)
	if err != nil {
		return Result{}, err
	}
	return e.put(e.local, name, content, force, ErrConflict)
}

// put writes content into dst under name. An existing identical copy is left
// untouched; an existing divergent copy fails with onClash unless force.
func (e *Engine) put(dst *store.Store, name string, content []byte, force bool, onClash error) (Result, error) {
	res := Result{Name: name, Path: dst.Path(name)}

	existing, err := dst.Read(name)
	switch {
	case err == nil:
		if bytes.Equal(existing, content) {
			res.Action = ActionUnchanged
			return res, nil
		}
		if !force {
			return Result{}, fmt.Errorf("%w: %s", onClash, name)
		}
		res.Action = ActionUpdated
	case errors.Is(err, store.ErrNotFound):
		res.Action = ActionCreated
	default:
		return Result{}, err
	}

	if err := dst.Write(name, content); err != nil {
		return Result{}, err
	}
	return res, nil
}
