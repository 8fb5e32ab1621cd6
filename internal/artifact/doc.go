package artifact

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/go-ports/aicfg/internal/scope"
	"github.com/go-ports/aicfg/internal/store"
)

// Doc is the structured slash-command document. The sync core itself treats
// artifact content as opaque bytes; Doc exists only at the edges where a
// command is scaffolded or displayed.
type Doc struct {
	Description string `toml:"description"`
	Prompt      string `toml:"prompt"`
}

// Encode renders the document as TOML.
func (d Doc) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(d); err != nil {
		return nil, fmt.Errorf("encode command document: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDoc parses a TOML command document.
func DecodeDoc(content []byte) (Doc, error) {
	var d Doc
	if err := toml.Unmarshal(content, &d); err != nil {
		return Doc{}, fmt.Errorf("invalid command document: %w", err)
	}
	return d, nil
}

// Show resolves the named artifact with project-before-user precedence and
// returns its decoded document and the scope it was found in.
func (e *Engine) Show(name string) (Doc, scope.Scope, error) {
	if data, err := e.repo.Read(name); err == nil {
		doc, err := DecodeDoc(data)
		return doc, scope.Project, err
	} else if !errors.Is(err, store.ErrNotFound) {
		return Doc{}, "", err
	}

	data, err := e.local.Read(name)
	if err != nil {
		return Doc{}, "", err
	}
	doc, err := DecodeDoc(data)
	return doc, scope.User, err
}
