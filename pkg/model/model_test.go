package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromPath(t *testing.T) {
	root := filepath.Join("project", "components")
	assert.Equal(t, "hero", IDFromPath(root, filepath.Join(root, "hero.tsx")))
	assert.Equal(t, "cards/stat-card", IDFromPath(root, filepath.Join(root, "cards", "stat-card.tsx")))
}

func TestNameFromID(t *testing.T) {
	cases := map[string]string{
		"hero":             "Hero",
		"cards/stat-card":  "StatCard",
		"nav_bar":          "NavBar",
		"deeply/nested/ok": "Ok",
		"":                 "Component",
	}
	for id, want := range cases {
		assert.Equal(t, want, NameFromID(id), "id %q", id)
	}
}

func TestHash_Deterministic(t *testing.T) {
	assert.Equal(t, Hash("abc"), Hash("abc"))
	assert.NotEqual(t, Hash("abc"), Hash("abd"))
	assert.Len(t, Hash(""), 64)
}

func TestNew_SeedsPlaceholderTree(t *testing.T) {
	m := New("cards/hero", "components/cards/hero.tsx")
	assert.Equal(t, "Hero", m.Signature.Name)
	require.NotNil(t, m.Root)
	assert.Equal(t, KindElement, m.Root.Kind)
	require.Len(t, m.Root.Children, 1)
	assert.Equal(t, "Hero", m.Root.Children[0].Text)
}

func buildTree() *MarkupNode {
	root := NewElement("div")
	root.Props = []Property{{Name: "class", Value: LiteralValue("card")}}
	h1 := NewElement("h1")
	h1.Children = []*MarkupNode{NewText("Title")}
	root.Children = []*MarkupNode{h1, NewExpression("body")}
	return root
}

func TestMarkupNode_ClonePreservesIDs(t *testing.T) {
	root := buildTree()
	c := root.Clone()

	assert.True(t, StructuralEqual(root, c))
	assert.Equal(t, root.ID, c.ID)
	assert.Equal(t, root.Children[0].ID, c.Children[0].ID)

	c.Children[0].Children[0].Text = "Changed"
	c.Props[0].Value = LiteralValue("other")
	assert.Equal(t, "Title", root.Children[0].Children[0].Text)
	assert.Equal(t, "card", root.Props[0].Value.Literal)
}

func TestMarkupNode_Find(t *testing.T) {
	root := buildTree()
	text := root.Children[0].Children[0]

	assert.Same(t, text, root.Find(text.ID))
	assert.Nil(t, root.Find("missing"))
}

func TestMarkupNode_Walk(t *testing.T) {
	root := buildTree()
	var kinds []NodeKind
	root.Walk(func(n *MarkupNode) { kinds = append(kinds, n.Kind) })
	assert.Equal(t, []NodeKind{KindElement, KindElement, KindText, KindExpression}, kinds)
}

func TestStructuralEqual_IgnoresIDsAndSpans(t *testing.T) {
	a := buildTree()
	b := buildTree()
	a.Span = Span{Start: 10, End: 20}

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, StructuralEqual(a, b))

	b.Children[1].Expr = "other"
	assert.False(t, StructuralEqual(a, b))
}

func TestStructuralEqual_NilHandling(t *testing.T) {
	assert.True(t, StructuralEqual(nil, nil))
	assert.False(t, StructuralEqual(buildTree(), nil))
}

func TestComponentModel_Clone(t *testing.T) {
	m := New("hero", "hero.tsx")
	m.Queries = []DataQuery{{Var: "rows", Text: "SELECT 1", Interpolations: []Interpolation{{Index: 1, Expr: "ctx.x"}}}}
	m.Meta = []MetaEntry{{Key: "title", Value: "Hero"}}

	c := m.Clone()
	c.Queries[0].Interpolations[0].Expr = "ctx.y"
	c.Meta[0].Value = "Other"
	c.Root.Children[0].Text = "Changed"

	assert.Equal(t, "ctx.x", m.Queries[0].Interpolations[0].Expr)
	assert.Equal(t, "Hero", m.Meta[0].Value)
	assert.Equal(t, "Hero", m.Root.Children[0].Text)
	assert.Equal(t, m.Root.ID, c.Root.ID)
}
