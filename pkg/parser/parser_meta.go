package parser

import (
	"strings"

	"github.com/viewsmith/viewsmith/pkg/model"
	"github.com/viewsmith/viewsmith/pkg/token"
)

// parseMeta extracts the exported metadata object literal starting at
// the opening brace offset. Scalar values are decoded; anything else is
// kept verbatim as an expression. The literal's span is recorded so
// patch generation can replace exactly this region.
func (r *run) parseMeta(braceOffset int) {
	s := &markupScanner{src: r.src, pos: braceOffset, maxDepth: r.opts.MaxDepth, errs: &r.errs}
	inner, ok := s.readBraced()
	if !ok {
		r.errs = append(r.errs, model.ParseError{Message: "unterminated meta object literal"})
		r.resync(len(r.src))
		return
	}
	r.metaSpan = model.Span{Start: braceOffset, End: s.pos}
	r.meta = parseMetaEntries(inner)

	r.resync(s.pos)
	r.accept(token.SEMICOLON)
}

// parseMetaEntries best-effort parses `key: value` pairs from the inner
// text of an object literal.
func parseMetaEntries(inner string) []model.MetaEntry {
	var entries []model.MetaEntry
	lx := NewLexer(inner)
	tok := lx.NextToken()
	for tok.Type != token.EOF {
		// Key: identifier or string.
		var key string
		switch {
		case tok.Type == token.IDENT || tok.Type.IsKeyword():
			key = tok.Literal
		case tok.Type == token.STRING:
			key = decodeString(tok.Literal)
		default:
			tok = lx.NextToken()
			continue
		}
		tok = lx.NextToken()
		if tok.Type != token.COLON {
			continue
		}
		tok = lx.NextToken()

		// Value: raw text until a comma at depth zero.
		start := tok.Pos.Offset
		end := start
		depth := 0
	value:
		for tok.Type != token.EOF {
			switch tok.Type {
			case token.LBRACE, token.LPAREN, token.LBRACKET:
				depth++
			case token.RBRACE, token.RPAREN, token.RBRACKET:
				if depth == 0 {
					break value
				}
				depth--
			case token.COMMA:
				if depth == 0 {
					break value
				}
			}
			end = tok.End
			tok = lx.NextToken()
		}
		raw := strings.TrimSpace(inner[start:min(end, len(inner))])
		entry := model.MetaEntry{Key: key}
		if lit, ok := decodeLiteral(raw); ok {
			entry.Value = lit
		} else {
			entry.Expr = raw
		}
		entries = append(entries, entry)

		if tok.Type == token.COMMA {
			tok = lx.NextToken()
		}
	}
	return entries
}
