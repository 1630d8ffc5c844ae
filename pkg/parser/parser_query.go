package parser

import (
	"fmt"
	"strings"

	"github.com/viewsmith/viewsmith/pkg/model"
	"github.com/viewsmith/viewsmith/pkg/token"
)

// parseBodyBinding inspects a const/let/var statement inside the
// component body. Bindings matching a recognized tagged-template call
// become data queries; everything else is skipped.
//
//	const users: User[] = await sql`SELECT ... ${id} ...`;
func (r *run) parseBodyBinding(fi *funcInfo) {
	stmtStart := r.tok.Pos.Offset
	r.next() // const / let / var

	if !r.at(token.IDENT) {
		r.skipBodyStatement()
		return
	}
	name := r.tok.Literal
	r.next()

	resultType := ""
	if r.at(token.COLON) {
		typeStart := r.tok.End
		r.skipAnnotation()
		resultType = r.annotationText(typeStart, r.tok.Pos.Offset)
	}

	if !r.accept(token.ASSIGN) {
		r.skipBodyStatement()
		return
	}
	r.accept(token.AWAIT)

	// Tag path: ident (.ident)*; the last segment names the tag.
	if !r.at(token.IDENT) {
		r.skipBodyStatement()
		return
	}
	tag := r.tok.Literal
	r.next()
	for r.at(token.DOT) && r.peek.Type == token.IDENT {
		r.next()
		tag = r.tok.Literal
		r.next()
	}

	if !r.at(token.TEMPLATE) || !r.isQueryTag(tag) {
		r.skipBodyStatement()
		return
	}

	raw := r.tok.Literal
	end := r.tok.End
	r.next()
	if r.at(token.SEMICOLON) {
		end = r.tok.End
		r.next()
	}

	q := buildQuery(name, resultType, tag, raw)
	q.Span = model.Span{Start: stmtStart, End: end}
	fi.queries = append(fi.queries, q)
}

// skipBodyStatement advances past the rest of a statement inside a
// function body without disturbing the body's brace depth.
func (r *run) skipBodyStatement() {
	depth := 0
	for !r.at(token.EOF) {
		switch r.tok.Type {
		case token.LBRACE, token.LPAREN, token.LBRACKET:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACKET:
			if depth == 0 {
				return
			}
			depth--
		case token.SEMICOLON:
			if depth == 0 {
				r.next()
				return
			}
		}
		r.next()
	}
}

func (r *run) isQueryTag(tag string) bool {
	for _, t := range r.opts.QueryTags {
		if t == tag {
			return true
		}
	}
	return false
}

// buildQuery turns a raw template literal into query text with
// positional placeholders plus the ordered interpolation list.
func buildQuery(name, resultType, tag, rawTemplate string) model.DataQuery {
	content := rawTemplate
	if len(content) >= 2 && content[0] == '`' && content[len(content)-1] == '`' {
		content = content[1 : len(content)-1]
	}

	var text strings.Builder
	var interps []model.Interpolation
	for i := 0; i < len(content); {
		if content[i] == '\\' && i+1 < len(content) {
			text.WriteByte(content[i])
			text.WriteByte(content[i+1])
			i += 2
			continue
		}
		if content[i] == '$' && i+1 < len(content) && content[i+1] == '{' {
			exprStart := i + 2
			depth := 1
			j := exprStart
			for j < len(content) && depth > 0 {
				switch content[j] {
				case '{':
					depth++
				case '}':
					depth--
				case '"', '\'', '`':
					j = skipQuotedIn(content, j)
					continue
				}
				j++
			}
			expr := strings.TrimSpace(content[exprStart : j-1])
			idx := len(interps) + 1
			interps = append(interps, model.Interpolation{Index: idx, Expr: expr})
			fmt.Fprintf(&text, "$%d", idx)
			i = j
			continue
		}
		text.WriteByte(content[i])
		i++
	}

	return model.DataQuery{
		Var:            name,
		ResultType:     resultType,
		Tag:            tag,
		Text:           strings.TrimSpace(text.String()),
		Interpolations: interps,
	}
}

// skipQuotedIn advances past a quoted region inside template
// interpolation text and returns the index just after it.
func skipQuotedIn(s string, i int) int {
	quote := s[i]
	i++
	for i < len(s) {
		if s[i] == '\\' {
			i += 2
			continue
		}
		if s[i] == quote {
			return i + 1
		}
		i++
	}
	return i
}
