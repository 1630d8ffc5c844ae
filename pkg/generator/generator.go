// Package generator renders a component model back to source text.
//
// Fresh mode emits a complete deterministic file for new components.
// Patch mode edits an existing file surgically: it re-parses the
// original text, aligns the model against it structurally, and replaces
// only the subtrees that changed, leaving every other byte alone.
package generator

import (
	"fmt"
	"strings"

	"github.com/viewsmith/viewsmith/pkg/model"
	"github.com/viewsmith/viewsmith/pkg/mutate"
	"github.com/viewsmith/viewsmith/pkg/parser"
)

// FailureError reports that patch generation could not locate or apply
// the structural regions it needed. The original text is untouched; the
// caller decides whether to fall back to fresh generation.
type FailureError struct {
	Reason string
}

func (e *FailureError) Error() string {
	return "patch generation failed: " + e.Reason
}

// Options configures a Generator.
type Options struct {
	// Indent is the indentation unit for rendered blocks. Defaults to
	// two spaces.
	Indent string
}

// Generator renders component models to source text. It is stateless
// and safe for concurrent use.
type Generator struct {
	opts   Options
	parser *parser.Parser
}

// New creates a Generator with default options.
func New() *Generator {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a Generator with explicit options.
func NewWithOptions(opts Options) *Generator {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	return &Generator{opts: opts, parser: parser.New()}
}

// Fresh renders a complete new source file for the model: imports, a
// derived props type when the schema is non-empty, the component
// function with queries and markup, and the metadata literal, in fixed
// order with deterministic formatting.
func (g *Generator) Fresh(m *model.ComponentModel) string {
	var b strings.Builder

	for _, imp := range m.Imports {
		b.WriteString(renderImport(imp))
		b.WriteByte('\n')
	}
	if len(m.Imports) > 0 {
		b.WriteByte('\n')
	}

	name := m.Signature.Name
	if name == "" {
		name = model.NameFromID(m.ID)
	}

	if !m.Signature.Props.IsEmpty() {
		b.WriteString("export type " + name + "Props = ")
		b.WriteString(g.renderSchema(m.Signature.Props, ""))
		b.WriteString(";\n\n")
	}

	b.WriteString("export default ")
	if m.Signature.Async {
		b.WriteString("async ")
	}
	b.WriteString("function " + name + "(")
	b.WriteString(g.renderParams(m.Signature, name))
	b.WriteString(") {\n")

	for _, q := range m.Queries {
		b.WriteString(g.opts.Indent)
		b.WriteString(renderQuery(q))
		b.WriteByte('\n')
	}
	if len(m.Queries) > 0 {
		b.WriteByte('\n')
	}

	if m.Root != nil {
		b.WriteString(g.opts.Indent + "return (\n")
		b.WriteString(g.renderBlock(m.Root, 2))
		b.WriteString(g.opts.Indent + ");\n")
	} else {
		b.WriteString(g.opts.Indent + "return null;\n")
	}
	b.WriteString("}\n")

	if len(m.Meta) > 0 {
		b.WriteByte('\n')
		b.WriteString("export const meta = ")
		b.WriteString(g.renderMetaObject(m.Meta, ""))
		b.WriteString(";\n")
	}

	return b.String()
}

// Patch renders the model against existing source text, preserving
// everything the model does not cover byte-for-byte. Query statements
// are never rewritten: existing query text always survives a patch.
func (g *Generator) Patch(m *model.ComponentModel, original string) (string, error) {
	orig := g.parser.Parse(m.Path, original)

	var muts []mutate.Mutation

	switch {
	case orig.Root == nil || orig.RootSpan.IsZero():
		if m.Root != nil {
			return "", &FailureError{Reason: "cannot locate the returned markup in the original source"}
		}
	case m.Root == nil:
		return "", &FailureError{Reason: "model has no markup root"}
	default:
		muts = append(muts, g.patchNode(orig.Root, m.Root, original)...)
	}

	muts = append(muts, g.patchMeta(orig, m, original)...)

	if len(muts) == 0 {
		return original, nil
	}
	out, err := mutate.Apply(original, muts)
	if err != nil {
		return "", &FailureError{Reason: err.Error()}
	}
	return out, nil
}

// patchNode aligns two subtrees positionally and yields the minimal
// replacements. A node whose own content changed is replaced whole;
// unchanged structure is descended into, changed leaves are replaced in
// place.
func (g *Generator) patchNode(orig, next *model.MarkupNode, source string) []mutate.Mutation {
	replaceWhole := func() []mutate.Mutation {
		return []mutate.Mutation{mutate.Replace(
			orig.Span.Start, orig.Span.End,
			g.RenderAt(next, indentAt(source, orig.Span.Start)),
		)}
	}

	if orig.Kind != next.Kind {
		return replaceWhole()
	}

	switch orig.Kind {
	case model.KindText:
		if orig.Text != next.Text {
			return []mutate.Mutation{mutate.Replace(orig.Span.Start, orig.Span.End, escapeText(next.Text))}
		}
		return nil
	case model.KindExpression:
		if orig.Expr != next.Expr {
			return []mutate.Mutation{mutate.Replace(orig.Span.Start, orig.Span.End, "{"+next.Expr+"}")}
		}
		return nil
	}

	// Element / Fragment.
	if !model.SelfEqual(orig, next) {
		return replaceWhole()
	}
	if len(orig.Children) != len(next.Children) {
		return replaceWhole()
	}
	var muts []mutate.Mutation
	for i := range orig.Children {
		muts = append(muts, g.patchNode(orig.Children[i], next.Children[i], source)...)
	}
	return muts
}

// patchMeta reconciles the metadata literal: replace in place when
// present and changed, append when the original never declared one.
func (g *Generator) patchMeta(orig, m *model.ComponentModel, original string) []mutate.Mutation {
	if metaEqual(orig.Meta, m.Meta) {
		return nil
	}
	if !orig.MetaSpan.IsZero() {
		indent := indentAt(original, orig.MetaSpan.Start)
		return []mutate.Mutation{mutate.Replace(
			orig.MetaSpan.Start, orig.MetaSpan.End,
			g.renderMetaObject(m.Meta, indent),
		)}
	}
	if len(m.Meta) == 0 {
		return nil
	}
	text := "\nexport const meta = " + g.renderMetaObject(m.Meta, "") + ";\n"
	if !strings.HasSuffix(original, "\n") {
		text = "\n" + text
	}
	return []mutate.Mutation{mutate.Insert(len(original), text)}
}

func metaEqual(a, b []model.MetaEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// indentAt returns the leading whitespace of the line containing the
// offset.
func indentAt(src string, off int) string {
	if off > len(src) {
		off = len(src)
	}
	lineStart := strings.LastIndexByte(src[:off], '\n') + 1
	i := lineStart
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	return src[lineStart:i]
}

// renderQuery renders one data-query statement, substituting positional
// placeholders back with their interpolation expressions.
func renderQuery(q model.DataQuery) string {
	var b strings.Builder
	b.WriteString("const " + q.Var)
	if q.ResultType != "" {
		b.WriteString(": " + q.ResultType)
	}
	b.WriteString(" = await ")
	tag := q.Tag
	if tag == "" {
		tag = "sql"
	}
	b.WriteString(tag + "`")
	b.WriteString(expandPlaceholders(q.Text, q.Interpolations))
	b.WriteString("`;")
	return b.String()
}

// expandPlaceholders replaces $N markers with ${expr} interpolations.
func expandPlaceholders(text string, interps []model.Interpolation) string {
	byIndex := map[int]string{}
	for _, ip := range interps {
		byIndex[ip.Index] = ip.Expr
	}
	var b strings.Builder
	for i := 0; i < len(text); {
		if text[i] == '$' && i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9' {
			j := i + 1
			n := 0
			for j < len(text) && text[j] >= '0' && text[j] <= '9' {
				n = n*10 + int(text[j]-'0')
				j++
			}
			if expr, ok := byIndex[n]; ok {
				fmt.Fprintf(&b, "${%s}", expr)
				i = j
				continue
			}
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}
