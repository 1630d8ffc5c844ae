// Package model defines the canonical intermediate representation of a
// component source file: the markup tree, property values, structural
// type descriptors, data queries and import declarations, plus the
// component-level envelope that ties them to a file on disk.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MetaEntry is one key of the component's metadata object literal, in
// source order. Value holds a decoded scalar when the source was a plain
// literal, otherwise Expr keeps the source text verbatim.
type MetaEntry struct {
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
	Expr  string `json:"expr,omitempty"`
}

// ParseError is a recoverable diagnostic recorded during parsing. It is
// carried on the model rather than returned, so the editing surface
// always has a renderable model.
type ParseError struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (e ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// ComponentModel is the canonical model of one component file.
type ComponentModel struct {
	ID        string              `json:"id"` // logical identifier derived from the file path
	Path      string              `json:"path"`
	Signature StructuralSignature `json:"signature"`
	Root      *MarkupNode         `json:"root,omitempty"`
	Queries   []DataQuery         `json:"queries,omitempty"`
	Imports   []ImportDecl        `json:"imports,omitempty"`
	Meta      []MetaEntry         `json:"meta,omitempty"`

	// SourceHash is the content hash of the source text this model was
	// parsed from (or last generated to).
	SourceHash string    `json:"sourceHash,omitempty"`
	ModTime    time.Time `json:"modTime,omitempty"`

	// RootSpan and MetaSpan locate the rendered-markup expression and the
	// metadata object literal in the source, for patch generation.
	RootSpan Span `json:"rootSpan,omitempty"`
	MetaSpan Span `json:"metaSpan,omitempty"`

	ParseErrors []ParseError `json:"parseErrors,omitempty"`
}

// Hash returns the content hash used for conflict detection.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IDFromPath derives the logical component identifier for a file below
// the components root: the slash-separated relative path without its
// extension.
func IDFromPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// NameFromID derives the component's declared name from its identifier:
// the last path segment in PascalCase.
func NameFromID(id string) string {
	base := id
	if i := strings.LastIndex(id, "/"); i >= 0 {
		base = id[i+1:]
	}
	parts := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	if b.Len() == 0 {
		return "Component"
	}
	return b.String()
}

// New creates a minimal model for a brand-new component file: a single
// root element wrapping a placeholder text child, an empty schema, and
// the declared name derived from the identifier.
func New(id, path string) *ComponentModel {
	root := NewElement("div")
	root.Children = []*MarkupNode{NewText(NameFromID(id))}
	return &ComponentModel{
		ID:   id,
		Path: path,
		Signature: StructuralSignature{
			Name: NameFromID(id),
		},
		Root: root,
	}
}

// Clone returns a deep copy of the model. Node identifiers are
// preserved; the copy shares no mutable memory with the original.
// Components exchange models by value: nothing mutates a model another
// component holds.
func (m *ComponentModel) Clone() *ComponentModel {
	if m == nil {
		return nil
	}
	c := *m
	c.Root = m.Root.Clone()
	c.Queries = append([]DataQuery(nil), m.Queries...)
	for i := range c.Queries {
		c.Queries[i].Interpolations = append([]Interpolation(nil), m.Queries[i].Interpolations...)
	}
	c.Imports = append([]ImportDecl(nil), m.Imports...)
	for i := range c.Imports {
		c.Imports[i].Named = append([]ImportBinding(nil), m.Imports[i].Named...)
	}
	c.Meta = append([]MetaEntry(nil), m.Meta...)
	c.ParseErrors = append([]ParseError(nil), m.ParseErrors...)
	return &c
}

// HasErrors returns true when parsing recorded diagnostics.
func (m *ComponentModel) HasErrors() bool {
	return len(m.ParseErrors) > 0
}
