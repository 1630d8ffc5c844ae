package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewsmith/viewsmith/pkg/model"
)

func TestParse_BasicComponent(t *testing.T) {
	src := `import Button from "./button";

type CardProps = {
  title: string;
  count?: number;
};

export default function Card({ ctx, title, count = 1 }: CardProps) {
  return (
    <div class="card">
      <h1>{title}</h1>
      <Button label="Go" />
    </div>
  );
}
`
	m := New().Parse("card.tsx", src)

	require.Empty(t, m.ParseErrors)
	assert.Equal(t, "Card", m.Signature.Name)
	assert.False(t, m.Signature.Async)

	require.Len(t, m.Imports, 1)
	assert.Equal(t, "./button", m.Imports[0].Module)
	assert.Equal(t, "Button", m.Imports[0].Default)

	props := m.Signature.Props
	require.Len(t, props.Fields, 2)
	assert.Equal(t, "title", props.Fields[0].Name)
	assert.Equal(t, model.PropString, props.Fields[0].Def.Kind)
	assert.True(t, props.IsRequired("title"))
	assert.Equal(t, "count", props.Fields[1].Name)
	assert.Equal(t, model.PropNumber, props.Fields[1].Def.Kind)
	assert.False(t, props.IsRequired("count"))
	assert.Equal(t, float64(1), props.Fields[1].Def.Default)

	root := m.Root
	require.NotNil(t, root)
	assert.Equal(t, model.KindElement, root.Kind)
	assert.Equal(t, "div", root.Tag)
	require.Len(t, root.Props, 1)
	assert.Equal(t, "class", root.Props[0].Name)
	assert.Equal(t, "card", root.Props[0].Value.Literal)

	require.Len(t, root.Children, 2)
	h1 := root.Children[0]
	assert.Equal(t, "h1", h1.Tag)
	require.Len(t, h1.Children, 1)
	assert.Equal(t, model.KindExpression, h1.Children[0].Kind)
	assert.Equal(t, "title", h1.Children[0].Expr)

	button := root.Children[1]
	assert.Equal(t, "Button", button.Tag)
	assert.Empty(t, button.Children)
	require.Len(t, button.Props, 1)
	assert.Equal(t, "Go", button.Props[0].Value.Literal)

	// Spans anchor edits: the root span must cover the returned markup.
	assert.Equal(t, strings.Index(src, "<div"), m.RootSpan.Start)
	assert.Equal(t, "div", src[root.Span.Start+1:root.Span.Start+4])
}

func TestParse_ArrowComponentBinding(t *testing.T) {
	src := `const Hello = ({ ctx, name }) => (
  <span>Hello {name}</span>
);

export default Hello;
`
	m := New().Parse("hello.tsx", src)

	require.Empty(t, m.ParseErrors)
	assert.Equal(t, "Hello", m.Signature.Name)
	require.NotNil(t, m.Root)
	assert.Equal(t, "span", m.Root.Tag)
	require.Len(t, m.Root.Children, 2)
	assert.Equal(t, "Hello", m.Root.Children[0].Text)
	assert.Equal(t, "name", m.Root.Children[1].Expr)

	require.Len(t, m.Signature.Props.Fields, 1)
	assert.Equal(t, "name", m.Signature.Props.Fields[0].Name)
}

func TestParse_AsyncComponentWithQuery(t *testing.T) {
	src := "export default async function Users({ ctx }) {\n" +
		"  const users: User[] = await sql`SELECT * FROM users WHERE org = ${ctx.org} LIMIT ${limit}`;\n" +
		"  return (\n" +
		"    <ul>\n" +
		"      <li>static</li>\n" +
		"    </ul>\n" +
		"  );\n" +
		"}\n"
	m := New().Parse("users.tsx", src)

	require.Empty(t, m.ParseErrors)
	assert.True(t, m.Signature.Async)

	require.Len(t, m.Queries, 1)
	q := m.Queries[0]
	assert.Equal(t, "users", q.Var)
	assert.Equal(t, "User[]", q.ResultType)
	assert.Equal(t, "sql", q.Tag)
	assert.Equal(t, "SELECT * FROM users WHERE org = $1 LIMIT $2", q.Text)
	require.Len(t, q.Interpolations, 2)
	assert.Equal(t, "ctx.org", q.Interpolations[0].Expr)
	assert.Equal(t, 1, q.Interpolations[0].Index)
	assert.Equal(t, "limit", q.Interpolations[1].Expr)

	require.NotNil(t, m.Root)
	assert.Equal(t, "ul", m.Root.Tag)
}

func TestParse_CustomQueryTags(t *testing.T) {
	src := "export default function Report({ ctx }) {\n" +
		"  const rows = await db.analytics`SELECT 1`;\n" +
		"  return <div>Report</div>;\n" +
		"}\n"

	m := New().Parse("report.tsx", src)
	assert.Empty(t, m.Queries)

	m = NewWithOptions(Options{QueryTags: []string{"analytics"}}).Parse("report.tsx", src)
	require.Len(t, m.Queries, 1)
	assert.Equal(t, "analytics", m.Queries[0].Tag)
	assert.Equal(t, "SELECT 1", m.Queries[0].Text)
}

func TestParse_MultipleReturnsDiagnosed(t *testing.T) {
	src := `export default function Gate({ ctx, ok }) {
  if (ok) {
    return <p>Yes</p>;
  }
  return <p>No</p>;
}
`
	m := New().Parse("gate.tsx", src)

	require.NotNil(t, m.Root)
	assert.Equal(t, "p", m.Root.Tag)
	require.Len(t, m.Root.Children, 1)
	assert.Equal(t, "No", m.Root.Children[0].Text)

	require.NotEmpty(t, m.ParseErrors)
	found := false
	for _, pe := range m.ParseErrors {
		if strings.Contains(pe.Message, "multiple return statements") {
			found = true
		}
	}
	assert.True(t, found, "expected a multiple-return diagnostic, got %v", m.ParseErrors)
}

func TestParse_MismatchedTagRecovers(t *testing.T) {
	src := `export default function Broken({ ctx }) {
  return (
    <div>
      <span>Text
    </div>
  );
}
`
	m := New().Parse("broken.tsx", src)

	require.NotNil(t, m.Root, "a model must come back even from malformed markup")
	assert.True(t, m.HasErrors())
	found := false
	for _, pe := range m.ParseErrors {
		if strings.Contains(pe.Message, "mismatched closing tag") {
			found = true
		}
	}
	assert.True(t, found, "expected a mismatched-tag diagnostic, got %v", m.ParseErrors)
}

func TestParse_LiteralUnionBecomesOptions(t *testing.T) {
	src := `type BadgeProps = {
  variant: "primary" | "danger" | "ghost";
  size?: number | null;
};

export default function Badge({ ctx, variant, size }: BadgeProps) {
  return <span class={variant}>badge</span>;
}
`
	m := New().Parse("badge.tsx", src)

	require.Empty(t, m.ParseErrors)
	props := m.Signature.Props
	require.Len(t, props.Fields, 2)

	variant := props.Fields[0]
	assert.Equal(t, model.PropUnion, variant.Def.Kind)
	assert.Equal(t, []string{"primary", "danger", "ghost"}, variant.Def.Options)
	assert.Equal(t, "select", variant.Def.Editor)

	// T | null collapses to T.
	size := props.Fields[1]
	assert.Equal(t, model.PropNumber, size.Def.Kind)
}

func TestParse_InlinePropsType(t *testing.T) {
	src := `export default function Tag({ ctx, label, items }: { ctx: unknown; label: string; items: string[] }) {
  return <div>{label}</div>;
}
`
	m := New().Parse("tag.tsx", src)

	require.Empty(t, m.ParseErrors)
	props := m.Signature.Props
	require.Len(t, props.Fields, 2, "ctx must be dropped from the schema")
	assert.Equal(t, "label", props.Fields[0].Name)
	assert.Equal(t, model.PropString, props.Fields[0].Def.Kind)
	assert.Equal(t, "items", props.Fields[1].Name)
	assert.Equal(t, model.PropArray, props.Fields[1].Def.Kind)
	require.NotNil(t, props.Fields[1].Def.Elem)
	assert.Equal(t, model.PropString, props.Fields[1].Def.Elem.Kind)
}

func TestParse_Meta(t *testing.T) {
	src := `export default function Page({ ctx }) {
  return (
    <div>Page</div>
  );
}

export const meta = {
  title: "Landing",
  order: 2,
  tags: ["home", "landing"],
};
`
	m := New().Parse("page.tsx", src)

	require.Empty(t, m.ParseErrors)
	require.Len(t, m.Meta, 3)
	assert.Equal(t, "title", m.Meta[0].Key)
	assert.Equal(t, "Landing", m.Meta[0].Value)
	assert.Equal(t, "order", m.Meta[1].Key)
	assert.Equal(t, float64(2), m.Meta[1].Value)
	assert.Equal(t, "tags", m.Meta[2].Key)
	assert.Equal(t, `["home", "landing"]`, m.Meta[2].Expr)

	require.False(t, m.MetaSpan.IsZero())
	assert.Equal(t, byte('{'), src[m.MetaSpan.Start])
	assert.Equal(t, byte('}'), src[m.MetaSpan.End-1])
}

func TestParse_ImportForms(t *testing.T) {
	src := `import "./styles.css";
import Def from "a";
import { one, two as alias } from "b";
import * as ns from "c";
import type { Shape } from "d";

export default function Many({ ctx }) {
  return <div>imports</div>;
}
`
	m := New().Parse("many.tsx", src)

	require.Empty(t, m.ParseErrors)
	require.Len(t, m.Imports, 5)

	assert.Equal(t, "./styles.css", m.Imports[0].Module)
	assert.Equal(t, "Def", m.Imports[1].Default)
	require.Len(t, m.Imports[2].Named, 2)
	assert.Equal(t, "one", m.Imports[2].Named[0].Name)
	assert.Equal(t, "alias", m.Imports[2].Named[1].Alias)
	assert.Equal(t, "ns", m.Imports[3].Namespace)
	assert.True(t, m.Imports[4].TypeOnly)
}

func TestParse_FragmentAndSpread(t *testing.T) {
	src := `export default function Pair({ ctx, rest }) {
  return (
    <>
      <input {...rest} disabled />
      <label for="x">Name</label>
    </>
  );
}
`
	m := New().Parse("pair.tsx", src)

	require.Empty(t, m.ParseErrors)
	require.NotNil(t, m.Root)
	assert.Equal(t, model.KindFragment, m.Root.Kind)
	require.Len(t, m.Root.Children, 2)

	input := m.Root.Children[0]
	require.Len(t, input.Props, 2)
	assert.Equal(t, "...", input.Props[0].Name)
	assert.Equal(t, "rest", input.Props[0].Value.Expr)
	assert.Equal(t, "disabled", input.Props[1].Name)
	assert.Equal(t, true, input.Props[1].Value.Literal)
}

func TestParse_NoMarkupReturn(t *testing.T) {
	src := `export default function Calc({ ctx }) {
  return compute(ctx);
}
`
	m := New().Parse("calc.tsx", src)

	require.NotNil(t, m.Root)
	assert.Equal(t, model.KindExpression, m.Root.Kind)
	assert.Equal(t, "compute(ctx)", m.Root.Expr)
}

func TestParse_SizeLimit(t *testing.T) {
	p := NewWithOptions(Options{MaxSourceBytes: 16})
	m := p.Parse("big.tsx", strings.Repeat("x", 32))
	require.Len(t, m.ParseErrors, 1)
	assert.Contains(t, m.ParseErrors[0].Message, "maximum size")
}

func TestParse_StableIDsAreUnique(t *testing.T) {
	src := `export default function Twins({ ctx }) {
  return (
    <div>
      <p>same</p>
      <p>same</p>
    </div>
  );
}
`
	m := New().Parse("twins.tsx", src)
	require.Empty(t, m.ParseErrors)

	seen := map[string]bool{}
	m.Root.Walk(func(n *model.MarkupNode) {
		assert.NotEmpty(t, n.ID)
		assert.False(t, seen[n.ID], "node identifiers must be unique")
		seen[n.ID] = true
	})
	// Structurally identical siblings stay distinguishable.
	assert.True(t, model.StructuralEqual(m.Root.Children[0], m.Root.Children[1]))
	assert.NotEqual(t, m.Root.Children[0].ID, m.Root.Children[1].ID)
}
