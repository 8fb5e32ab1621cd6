package artifact_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/aicfg/internal/artifact"
	"github.com/go-ports/aicfg/internal/scope"
	"github.com/go-ports/aicfg/internal/store"
)

func TestDocRoundTrip(t *testing.T) {
	c := qt.New(t)

	doc := artifact.Doc{Description: "Commit helper", Prompt: "Write a commit message\nfor the staged changes."}
	data, err := doc.Encode()
	c.Assert(err, qt.IsNil)

	got, err := artifact.DecodeDoc(data)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, doc)
}

func TestDecodeDoc_Invalid(t *testing.T) {
	c := qt.New(t)
	_, err := artifact.DecodeDoc([]byte("prompt = [unclosed"))
	c.Assert(err, qt.IsNotNil)
}

func TestShow_ProjectBeforeUser(t *testing.T) {
	c := qt.New(t)
	e, local, repo := newEngine(c)

	userDoc := artifact.Doc{Description: "user copy", Prompt: "u"}
	projDoc := artifact.Doc{Description: "project copy", Prompt: "p"}

	userData, err := userDoc.Encode()
	c.Assert(err, qt.IsNil)
	projData, err := projDoc.Encode()
	c.Assert(err, qt.IsNil)

	c.Assert(local.Write("cmd", userData), qt.IsNil)
	c.Assert(repo.Write("cmd", projData), qt.IsNil)

	doc, where, err := e.Show("cmd")
	c.Assert(err, qt.IsNil)
	c.Assert(where, qt.Equals, scope.Project)
	c.Assert(doc.Description, qt.Equals, "project copy")

	c.Assert(repo.Remove("cmd"), qt.IsNil)
	doc, where, err = e.Show("cmd")
	c.Assert(err, qt.IsNil)
	c.Assert(where, qt.Equals, scope.User)
	c.Assert(doc.Description, qt.Equals, "user copy")
}

func TestShow_Missing(t *testing.T) {
	c := qt.New(t)
	e, _, _ := newEngine(c)

	_, _, err := e.Show("ghost")
	c.Assert(err, qt.ErrorIs, store.ErrNotFound)
}
