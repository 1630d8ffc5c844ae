package generator

import (
	"strconv"
	"strings"

	"github.com/viewsmith/viewsmith/pkg/model"
)

// RenderAt renders a markup subtree for insertion at a position whose
// line already carries the given indentation: the first line is bare,
// continuation lines are prefixed so the block stays aligned.
func (g *Generator) RenderAt(n *model.MarkupNode, baseIndent string) string {
	rendered := g.renderNode(n, "")
	if baseIndent == "" {
		return rendered
	}
	return strings.ReplaceAll(rendered, "\n", "\n"+baseIndent)
}

// renderBlock renders a subtree as an indented block at the given
// nesting level, each line terminated by a newline.
func (g *Generator) renderBlock(n *model.MarkupNode, level int) string {
	indent := strings.Repeat(g.opts.Indent, level)
	return indent + g.RenderAt(n, indent) + "\n"
}

// renderNode renders one node. The first line carries no prefix;
// nested lines are indented by one unit relative to the node.
func (g *Generator) renderNode(n *model.MarkupNode, indent string) string {
	switch n.Kind {
	case model.KindText:
		return escapeText(n.Text)
	case model.KindExpression:
		return "{" + n.Expr + "}"
	case model.KindFragment:
		return g.renderContainer("<>", "</>", n.Children, indent)
	case model.KindElement:
		open := g.renderOpenTag(n)
		if len(n.Children) == 0 {
			return open + " />"
		}
		if len(n.Children) == 1 && n.Children[0].Kind == model.KindText {
			return open + ">" + escapeText(n.Children[0].Text) + "</" + n.Tag + ">"
		}
		return g.renderContainer(open+">", "</"+n.Tag+">", n.Children, indent)
	}
	return ""
}

// renderContainer renders children as an indented block between an
// opening and closing delimiter.
func (g *Generator) renderContainer(open, closing string, children []*model.MarkupNode, indent string) string {
	inner := indent + g.opts.Indent
	var b strings.Builder
	b.WriteString(open)
	for _, ch := range children {
		b.WriteByte('\n')
		b.WriteString(inner)
		b.WriteString(g.renderNode(ch, inner))
	}
	b.WriteByte('\n')
	b.WriteString(indent)
	b.WriteString(closing)
	return b.String()
}

// renderOpenTag renders `<tag` plus attributes, without the closing
// bracket.
func (g *Generator) renderOpenTag(n *model.MarkupNode) string {
	var b strings.Builder
	b.WriteString("<" + n.Tag)
	for _, p := range n.Props {
		b.WriteByte(' ')
		b.WriteString(g.renderProp(p))
	}
	return b.String()
}

// renderProp renders one attribute: boolean-true shorthand, quoted
// strings, braced everything else.
func (g *Generator) renderProp(p model.Property) string {
	if p.Name == "..." {
		return "{..." + p.Value.Expr + "}"
	}
	switch p.Value.Kind {
	case model.ValueLiteral:
		switch v := p.Value.Literal.(type) {
		case bool:
			if v {
				return p.Name
			}
			return p.Name + "={false}"
		case string:
			return p.Name + "=" + strconv.Quote(v)
		default:
			return p.Name + "={" + renderLiteral(p.Value.Literal) + "}"
		}
	case model.ValueMarkup:
		return p.Name + "={" + g.renderInline(p.Value.Markup) + "}"
	default:
		return p.Name + "={" + p.Value.Expr + "}"
	}
}

// renderInline renders a subtree on a single line, for markup nested
// inside attribute values.
func (g *Generator) renderInline(n *model.MarkupNode) string {
	rendered := g.renderNode(n, "")
	var parts []string
	for _, line := range strings.Split(rendered, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "")
}

// escapeText renders literal text content. Text containing markup
// delimiters is emitted as a braced string expression so it survives a
// re-parse.
func escapeText(text string) string {
	if strings.ContainsAny(text, "<>{}") {
		return "{" + strconv.Quote(text) + "}"
	}
	return text
}

// renderLiteral renders a scalar literal in source form.
func renderLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case string:
		return strconv.Quote(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return "null"
	}
}

// renderImport renders one import declaration.
func renderImport(imp model.ImportDecl) string {
	var b strings.Builder
	b.WriteString("import ")
	if imp.TypeOnly {
		b.WriteString("type ")
	}

	var clauses []string
	if imp.Default != "" {
		clauses = append(clauses, imp.Default)
	}
	if len(imp.Named) > 0 {
		var names []string
		for _, n := range imp.Named {
			if n.Alias != "" {
				names = append(names, n.Name+" as "+n.Alias)
			} else {
				names = append(names, n.Name)
			}
		}
		clauses = append(clauses, "{ "+strings.Join(names, ", ")+" }")
	}
	if imp.Namespace != "" {
		clauses = append(clauses, "* as "+imp.Namespace)
	}

	if len(clauses) == 0 {
		b.WriteString(strconv.Quote(imp.Module) + ";")
		return b.String()
	}
	b.WriteString(strings.Join(clauses, ", "))
	b.WriteString(" from " + strconv.Quote(imp.Module) + ";")
	return b.String()
}

// renderSchema renders a property schema as a type literal, one member
// per line.
func (g *Generator) renderSchema(s model.PropertySchema, indent string) string {
	if s.IsEmpty() {
		return "{}"
	}
	inner := indent + g.opts.Indent
	var b strings.Builder
	b.WriteString("{\n")
	for _, f := range s.Fields {
		b.WriteString(inner)
		b.WriteString(f.Name)
		if !s.IsRequired(f.Name) {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		b.WriteString(renderTypeDef(f.Def))
		b.WriteString(";\n")
	}
	b.WriteString(indent + "}")
	return b.String()
}

// renderTypeDef renders one property definition as a type expression.
// Nested shapes render inline.
func renderTypeDef(d model.PropertyDef) string {
	switch d.Kind {
	case model.PropString:
		return "string"
	case model.PropNumber:
		return "number"
	case model.PropBoolean:
		return "boolean"
	case model.PropUnion:
		opts := make([]string, len(d.Options))
		for i, o := range d.Options {
			opts[i] = strconv.Quote(o)
		}
		return strings.Join(opts, " | ")
	case model.PropArray:
		if d.Elem == nil {
			return "unknown[]"
		}
		elem := renderTypeDef(*d.Elem)
		if d.Elem.Kind == model.PropUnion {
			return "(" + elem + ")[]"
		}
		return elem + "[]"
	case model.PropObject:
		if d.Schema == nil {
			return "object"
		}
		var members []string
		for _, f := range d.Schema.Fields {
			opt := ""
			if !d.Schema.IsRequired(f.Name) {
				opt = "?"
			}
			members = append(members, f.Name+opt+": "+renderTypeDef(f.Def))
		}
		return "{ " + strings.Join(members, "; ") + " }"
	case model.PropFunction:
		return "(...args: unknown[]) => unknown"
	default:
		return "unknown"
	}
}

// renderParams renders the component function's destructured parameter,
// context first, with destructuring defaults.
func (g *Generator) renderParams(sig model.StructuralSignature, name string) string {
	parts := []string{"ctx"}
	for _, f := range sig.Props.Fields {
		part := f.Name
		if f.Def.Default != nil {
			part += " = " + renderLiteral(f.Def.Default)
		}
		parts = append(parts, part)
	}
	out := "{ " + strings.Join(parts, ", ") + " }"
	if !sig.Props.IsEmpty() {
		out += ": " + name + "Props"
	}
	return out
}

// renderMetaObject renders the metadata object literal, one entry per
// line, trailing commas throughout.
func (g *Generator) renderMetaObject(meta []model.MetaEntry, indent string) string {
	if len(meta) == 0 {
		return "{}"
	}
	inner := indent + g.opts.Indent
	var b strings.Builder
	b.WriteString("{\n")
	for _, e := range meta {
		b.WriteString(inner)
		b.WriteString(renderMetaKey(e.Key) + ": ")
		if e.Expr != "" {
			b.WriteString(e.Expr)
		} else {
			b.WriteString(renderLiteral(e.Value))
		}
		b.WriteString(",\n")
	}
	b.WriteString(indent + "}")
	return b.String()
}

// renderMetaKey quotes object keys that are not plain identifiers.
func renderMetaKey(key string) string {
	for i := 0; i < len(key); i++ {
		ch := key[i]
		ident := ch == '_' || ch == '$' ||
			('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') ||
			(i > 0 && '0' <= ch && ch <= '9')
		if !ident {
			return strconv.Quote(key)
		}
	}
	if key == "" {
		return `""`
	}
	return key
}
