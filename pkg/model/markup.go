package model

import "github.com/google/uuid"

// NodeKind discriminates the markup node union.
type NodeKind string

const (
	KindElement    NodeKind = "element"
	KindFragment   NodeKind = "fragment"
	KindText       NodeKind = "text"
	KindExpression NodeKind = "expression"
)

// MarkupNode is one node of the rendered-output tree: an element with
// properties and children, a fragment, a literal text run, or an opaque
// embedded expression. The Kind field selects which of the remaining
// fields are meaningful.
type MarkupNode struct {
	// ID is the stable identifier assigned at parse time. It is never
	// derived from content and never reused, so structurally identical
	// subtrees stay distinguishable across edits.
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`

	// Element fields
	Tag      string        `json:"tag,omitempty"`
	Props    []Property    `json:"props,omitempty"`
	Children []*MarkupNode `json:"children,omitempty"` // also used by Fragment

	// Text field
	Text string `json:"text,omitempty"`

	// Expression field: opaque source expression, never evaluated here.
	Expr string `json:"expr,omitempty"`

	// Span is the byte range this node occupied in the source it was
	// parsed from. Zero for nodes created by the editing surface.
	Span Span `json:"span,omitempty"`
}

// NewNodeID returns a fresh stable node identifier.
func NewNodeID() string {
	return uuid.New().String()
}

// NewElement creates an element node with a fresh identifier.
func NewElement(tag string) *MarkupNode {
	return &MarkupNode{ID: NewNodeID(), Kind: KindElement, Tag: tag}
}

// NewFragment creates a fragment node with a fresh identifier.
func NewFragment() *MarkupNode {
	return &MarkupNode{ID: NewNodeID(), Kind: KindFragment}
}

// NewText creates a text node with a fresh identifier.
func NewText(text string) *MarkupNode {
	return &MarkupNode{ID: NewNodeID(), Kind: KindText, Text: text}
}

// NewExpression creates an expression node with a fresh identifier.
func NewExpression(expr string) *MarkupNode {
	return &MarkupNode{ID: NewNodeID(), Kind: KindExpression, Expr: expr}
}

// Clone returns a deep copy of the node sharing no memory with the
// original. Identifiers are preserved: a clone represents the same
// logical node.
func (n *MarkupNode) Clone() *MarkupNode {
	if n == nil {
		return nil
	}
	c := *n
	c.Props = make([]Property, len(n.Props))
	for i, p := range n.Props {
		c.Props[i] = p.Clone()
	}
	c.Children = make([]*MarkupNode, len(n.Children))
	for i, ch := range n.Children {
		c.Children[i] = ch.Clone()
	}
	return &c
}

// Find returns the node with the given identifier in this subtree,
// or nil if absent.
func (n *MarkupNode) Find(id string) *MarkupNode {
	if n == nil {
		return nil
	}
	if n.ID == id {
		return n
	}
	for _, ch := range n.Children {
		if found := ch.Find(id); found != nil {
			return found
		}
	}
	for _, p := range n.Props {
		if p.Value.Markup != nil {
			if found := p.Value.Markup.Find(id); found != nil {
				return found
			}
		}
	}
	return nil
}

// Walk calls fn for every node in the subtree in depth-first order,
// including nodes nested inside property values.
func (n *MarkupNode) Walk(fn func(*MarkupNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, p := range n.Props {
		if p.Value.Markup != nil {
			p.Value.Markup.Walk(fn)
		}
	}
	for _, ch := range n.Children {
		ch.Walk(fn)
	}
}

// StructuralEqual reports whether two subtrees carry the same structure
// and content, ignoring identifiers and spans.
func StructuralEqual(a, b *MarkupNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Tag != b.Tag || a.Text != b.Text || a.Expr != b.Expr {
		return false
	}
	if !SelfEqual(a, b) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !StructuralEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// SelfEqual reports whether two nodes match in their own content (kind,
// tag, text, expression and properties), ignoring children, identifiers
// and spans.
func SelfEqual(a, b *MarkupNode) bool {
	if a.Kind != b.Kind || a.Tag != b.Tag || a.Text != b.Text || a.Expr != b.Expr {
		return false
	}
	if len(a.Props) != len(b.Props) {
		return false
	}
	for i := range a.Props {
		if !a.Props[i].Equal(b.Props[i]) {
			return false
		}
	}
	return true
}
