package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewsmith/viewsmith/pkg/model"
	"github.com/viewsmith/viewsmith/pkg/parser"
)

func TestFresh_NewComponent(t *testing.T) {
	m := model.New("cards/stat-card", "components/cards/stat-card.tsx")
	out := New().Fresh(m)

	want := `export default function StatCard({ ctx }) {
  return (
    <div>StatCard</div>
  );
}
`
	assert.Equal(t, want, out)
}

func TestFresh_SchemaAndMeta(t *testing.T) {
	m := model.New("badge", "badge.tsx")
	m.Signature.Props = model.PropertySchema{
		Fields: []model.SchemaField{
			{Name: "label", Def: model.PropertyDef{Kind: model.PropString}},
			{Name: "variant", Def: model.PropertyDef{
				Kind:    model.PropUnion,
				Options: []string{"primary", "danger"},
				Editor:  "select",
				Default: "primary",
			}},
		},
		Required: []string{"label"},
	}
	m.Meta = []model.MetaEntry{
		{Key: "title", Value: "Badge"},
		{Key: "order", Value: float64(3)},
	}

	out := New().Fresh(m)

	assert.Contains(t, out, "export type BadgeProps = {\n  label: string;\n  variant?: \"primary\" | \"danger\";\n};")
	assert.Contains(t, out, `export default function Badge({ ctx, label, variant = "primary" }: BadgeProps) {`)
	assert.Contains(t, out, "export const meta = {\n  title: \"Badge\",\n  order: 3,\n};")
}

func TestFresh_RoundTrip(t *testing.T) {
	src := "import Icon from \"./icon\";\n" +
		"\n" +
		"export default async function Panel({ ctx, title }) {\n" +
		"  const rows = await sql`SELECT id, label FROM panels WHERE owner = ${ctx.user}`;\n" +
		"  return (\n" +
		"    <section class=\"panel\" data-count={rows.length}>\n" +
		"      <h2>{title}</h2>\n" +
		"      <Icon name=\"chevron\" />\n" +
		"    </section>\n" +
		"  );\n" +
		"}\n" +
		"\n" +
		"export const meta = {\n" +
		"  title: \"Panel\",\n" +
		"};\n"

	p := parser.New()
	m := p.Parse("panel.tsx", src)
	require.Empty(t, m.ParseErrors)

	out := New().Fresh(m)
	m2 := p.Parse("panel.tsx", out)
	require.Empty(t, m2.ParseErrors, "generated output must re-parse cleanly:\n%s", out)

	assert.True(t, model.StructuralEqual(m.Root, m2.Root), "markup must survive a regenerate round trip")
	assert.Equal(t, m.Signature.Name, m2.Signature.Name)
	assert.Equal(t, m.Signature.Async, m2.Signature.Async)
	require.Len(t, m2.Queries, 1)
	assert.Equal(t, m.Queries[0].Text, m2.Queries[0].Text)
	assert.Equal(t, m.Queries[0].Interpolations, m2.Queries[0].Interpolations)
	assert.Equal(t, m.Meta, m2.Meta)
	assert.Equal(t, m.Imports[0].Module, m2.Imports[0].Module)
}

const patchSource = `export default function Card({ ctx, title }) {
  // layout container
  return (
    <div class="card">
      <h1>Title</h1>
      <p>Body text</p>
    </div>
  );
}
`

func TestPatch_NoChangeIsByteIdentical(t *testing.T) {
	m := parser.New().Parse("card.tsx", patchSource)
	require.Empty(t, m.ParseErrors)

	out, err := New().Patch(m, patchSource)
	require.NoError(t, err)
	assert.Equal(t, patchSource, out, "patching an unchanged model must be a no-op")
}

func TestPatch_TextLeafOnly(t *testing.T) {
	m := parser.New().Parse("card.tsx", patchSource)
	require.Empty(t, m.ParseErrors)

	h1 := m.Root.Children[0]
	h1.Children[0].Text = "Updated"

	out, err := New().Patch(m, patchSource)
	require.NoError(t, err)
	assert.Equal(t, strings.Replace(patchSource, "Title", "Updated", 1), out,
		"only the changed text leaf may be rewritten")
	assert.Contains(t, out, "// layout container", "comments outside the edit must survive")
}

func TestPatch_PropertyChangeRewritesNode(t *testing.T) {
	m := parser.New().Parse("card.tsx", patchSource)
	require.Empty(t, m.ParseErrors)

	m.Root.Props[0].Value = model.LiteralValue("card wide")

	g := New()
	out, err := g.Patch(m, patchSource)
	require.NoError(t, err)

	m2 := parser.New().Parse("card.tsx", out)
	require.Empty(t, m2.ParseErrors)
	assert.True(t, model.StructuralEqual(m.Root, m2.Root))
	assert.Contains(t, out, `class="card wide"`)
}

func TestPatch_QueriesNeverRewritten(t *testing.T) {
	src := "export default async function List({ ctx }) {\n" +
		"  const rows = await sql`SELECT *\n" +
		"      FROM items   WHERE x = ${ctx.x}`;\n" +
		"  return (\n" +
		"    <ul>\n" +
		"      <li>one</li>\n" +
		"    </ul>\n" +
		"  );\n" +
		"}\n"

	m := parser.New().Parse("list.tsx", src)
	require.Empty(t, m.ParseErrors)

	m.Root.Children[0].Children[0].Text = "first"

	out, err := New().Patch(m, src)
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT *\n      FROM items   WHERE x = ${ctx.x}",
		"query text keeps its original formatting through a patch")
	assert.Contains(t, out, "<li>first</li>")
}

func TestPatch_MetaReplacedInPlace(t *testing.T) {
	src := patchSource + "\nexport const meta = {\n  title: \"Card\",\n};\n"
	m := parser.New().Parse("card.tsx", src)
	require.Empty(t, m.ParseErrors)

	m.Meta[0].Value = "Card v2"

	out, err := New().Patch(m, src)
	require.NoError(t, err)
	assert.Contains(t, out, `title: "Card v2",`)
	assert.NotContains(t, out, `title: "Card",`)
	assert.Contains(t, out, "<h1>Title</h1>", "markup stays untouched by a meta-only patch")
}

func TestPatch_MetaAppendedWhenAbsent(t *testing.T) {
	m := parser.New().Parse("card.tsx", patchSource)
	require.Empty(t, m.ParseErrors)

	m.Meta = []model.MetaEntry{{Key: "title", Value: "Card"}}

	out, err := New().Patch(m, patchSource)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, patchSource), "existing text is preserved, meta is appended")
	assert.Contains(t, out, "export const meta = {\n  title: \"Card\",\n};")

	m2 := parser.New().Parse("card.tsx", out)
	assert.Equal(t, m.Meta, m2.Meta)
}

func TestPatch_FailsWithoutMarkupAnchor(t *testing.T) {
	src := `export default function Calc({ ctx }) {
  compute(ctx);
}
`
	m := model.New("calc", "calc.tsx")

	_, err := New().Patch(m, src)
	require.Error(t, err)
	var fe *FailureError
	require.ErrorAs(t, err, &fe)
}

func TestRenderAt_IndentsContinuationLines(t *testing.T) {
	root := model.NewElement("div")
	root.Children = []*model.MarkupNode{
		model.NewElement("span"),
		model.NewElement("span"),
	}
	root.Children[0].Children = []*model.MarkupNode{model.NewText("a")}
	root.Children[1].Children = []*model.MarkupNode{model.NewText("b")}

	out := New().RenderAt(root, "    ")
	want := "<div>\n" +
		"      <span>a</span>\n" +
		"      <span>b</span>\n" +
		"    </div>"
	assert.Equal(t, want, out)
}
