package parser

import (
	"strings"

	"github.com/viewsmith/viewsmith/pkg/model"
)

// markupScanner is a byte-level recursive-descent scanner for markup
// regions. It runs over the original source so every node it creates
// carries an exact byte span, which the mutation engine and patch
// generator rely on.
type markupScanner struct {
	src      string
	pos      int
	depth    int
	maxDepth int
	errs     *[]model.ParseError
}

func (s *markupScanner) cur() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *markupScanner) peekAt(i int) byte {
	if s.pos+i >= len(s.src) {
		return 0
	}
	return s.src[s.pos+i]
}

func (s *markupScanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *markupScanner) error(msg string) {
	line := 1 + strings.Count(s.src[:min(s.pos, len(s.src))], "\n")
	*s.errs = append(*s.errs, model.ParseError{Message: msg, Line: line})
}

// parseNode parses one element or fragment starting at '<'. Returns nil
// on malformed input after recording a diagnostic; the scanner position
// is always advanced so parsing cannot loop.
func (s *markupScanner) parseNode() *model.MarkupNode {
	if s.depth >= s.maxDepth {
		s.error("markup nesting exceeds depth limit")
		s.pos = len(s.src)
		return nil
	}
	s.depth++
	defer func() { s.depth-- }()

	start := s.pos
	if s.cur() != '<' {
		s.error("expected markup element")
		s.pos++
		return nil
	}
	s.pos++ // <

	// Fragment: <> children </>
	if s.cur() == '>' {
		s.pos++
		node := model.NewFragment()
		node.Children = s.parseChildren("")
		// consume </>
		if strings.HasPrefix(s.src[s.pos:], "</") {
			s.pos += 2
			s.skipSpace()
			if s.cur() == '>' {
				s.pos++
			}
		}
		node.Span = model.Span{Start: start, End: s.pos}
		return node
	}

	tag := s.readTagName()
	if tag == "" {
		s.error("missing element tag")
		s.pos++
		return nil
	}
	node := model.NewElement(tag)
	node.Props = s.parseAttrs()

	s.skipSpace()
	if s.cur() == '/' && s.peekAt(1) == '>' {
		s.pos += 2
		node.Span = model.Span{Start: start, End: s.pos}
		return node
	}
	if s.cur() != '>' {
		s.error("unterminated element <" + tag + ">")
		node.Span = model.Span{Start: start, End: s.pos}
		return node
	}
	s.pos++ // >

	node.Children = s.parseChildren(tag)

	// Closing tag.
	if strings.HasPrefix(s.src[s.pos:], "</") {
		closeStart := s.pos
		s.pos += 2
		closing := s.readTagName()
		s.skipSpace()
		if s.cur() == '>' {
			s.pos++
		}
		if closing != tag {
			s.error("mismatched closing tag </" + closing + "> for <" + tag + ">")
			// Treat the element as closed here; re-scan nothing.
			_ = closeStart
		}
	} else {
		s.error("missing closing tag for <" + tag + ">")
	}
	node.Span = model.Span{Start: start, End: s.pos}
	return node
}

// readTagName reads a tag identifier (letters, digits, dot, dash,
// underscore).
func (s *markupScanner) readTagName() string {
	start := s.pos
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		if ch == '.' || ch == '-' || ch == '_' || isIdentStart(ch) || isDigit(ch) {
			s.pos++
			continue
		}
		break
	}
	return s.src[start:s.pos]
}

// parseAttrs parses attributes until the tag closes.
func (s *markupScanner) parseAttrs() []model.Property {
	var props []model.Property
	for {
		s.skipSpace()
		ch := s.cur()
		if ch == 0 || ch == '>' || (ch == '/' && s.peekAt(1) == '>') {
			return props
		}

		// Spread attribute: {...expr}
		if ch == '{' {
			inner, ok := s.readBraced()
			if !ok {
				return props
			}
			props = append(props, model.Property{
				Name:  "...",
				Value: model.ExprValue(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(inner), "..."))),
			})
			continue
		}

		name := s.readAttrName()
		if name == "" {
			s.error("malformed attribute")
			s.pos++
			continue
		}
		s.skipSpace()
		if s.cur() != '=' {
			// Attribute-only shorthand: boolean true.
			props = append(props, model.Property{Name: name, Value: model.LiteralValue(true)})
			continue
		}
		s.pos++ // =
		s.skipSpace()
		props = append(props, model.Property{Name: name, Value: s.parseAttrValue()})
	}
}

// readAttrName reads an attribute identifier (allows dash and colon).
func (s *markupScanner) readAttrName() string {
	start := s.pos
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		if ch == '-' || ch == ':' || ch == '_' || isIdentStart(ch) || isDigit(ch) {
			s.pos++
			continue
		}
		break
	}
	return s.src[start:s.pos]
}

// parseAttrValue parses a quoted string or a braced expression. Braced
// values reducible to scalar literals are decoded; braced markup is
// parsed as a nested tree; everything else stays a verbatim expression.
func (s *markupScanner) parseAttrValue() model.PropertyValue {
	switch s.cur() {
	case '"', '\'':
		return model.LiteralValue(s.readQuoted())
	case '{':
		inner, ok := s.readBraced()
		if !ok {
			return model.ExprValue(inner)
		}
		trimmed := strings.TrimSpace(inner)
		if strings.HasPrefix(trimmed, "<") {
			sub := &markupScanner{
				src:      trimmed,
				maxDepth: s.maxDepth - s.depth,
				errs:     s.errs,
			}
			if node := sub.parseNode(); node != nil {
				node.Span = model.Span{} // inner offsets are not file offsets
				return model.MarkupValue(node)
			}
			return model.ExprValue(trimmed)
		}
		if lit, ok := decodeLiteral(trimmed); ok {
			return model.LiteralValue(lit)
		}
		return model.ExprValue(trimmed)
	default:
		s.error("malformed attribute value")
		return model.ExprValue("")
	}
}

// readQuoted reads a quoted attribute string and returns its decoded
// content.
func (s *markupScanner) readQuoted() string {
	quote := s.cur()
	start := s.pos
	s.pos++
	for s.pos < len(s.src) && s.src[s.pos] != quote {
		if s.src[s.pos] == '\\' {
			s.pos++
		}
		s.pos++
	}
	if s.pos < len(s.src) {
		s.pos++
	}
	return decodeString(s.src[start:s.pos])
}

// readBraced reads a {...} region with balanced braces, aware of
// strings, templates and comments. Returns the inner text.
func (s *markupScanner) readBraced() (string, bool) {
	start := s.pos
	s.pos++ // {
	depth := 1
	for s.pos < len(s.src) && depth > 0 {
		ch := s.src[s.pos]
		switch ch {
		case '{':
			depth++
			s.pos++
		case '}':
			depth--
			s.pos++
		case '"', '\'', '`':
			s.skipStringLike(ch)
		case '/':
			if s.peekAt(1) == '/' {
				for s.pos < len(s.src) && s.src[s.pos] != '\n' {
					s.pos++
				}
			} else if s.peekAt(1) == '*' {
				s.pos += 2
				for s.pos+1 < len(s.src) && !(s.src[s.pos] == '*' && s.src[s.pos+1] == '/') {
					s.pos++
				}
				s.pos += 2
			} else {
				s.pos++
			}
		default:
			s.pos++
		}
	}
	if depth > 0 {
		s.error("unterminated expression block")
		return s.src[start+1:], false
	}
	return s.src[start+1 : s.pos-1], true
}

// skipStringLike advances past a string or template literal.
func (s *markupScanner) skipStringLike(quote byte) {
	s.pos++
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		if ch == '\\' {
			s.pos += 2
			continue
		}
		if ch == quote {
			s.pos++
			return
		}
		if ch == '\n' && quote != '`' {
			return
		}
		s.pos++
	}
}

// parseChildren parses child nodes until a closing tag (or EOF).
func (s *markupScanner) parseChildren(tag string) []*model.MarkupNode {
	var children []*model.MarkupNode
	for s.pos < len(s.src) {
		if strings.HasPrefix(s.src[s.pos:], "</") {
			return children
		}
		switch s.cur() {
		case '<':
			if node := s.parseNode(); node != nil {
				children = append(children, node)
			}
		case '{':
			start := s.pos
			inner, ok := s.readBraced()
			trimmed := strings.TrimSpace(inner)
			if !ok || trimmed == "" || isMarkupComment(trimmed) {
				continue
			}
			node := model.NewExpression(trimmed)
			node.Span = model.Span{Start: start, End: s.pos}
			children = append(children, node)
		case 0:
			s.error("unterminated children of <" + tag + ">")
			return children
		default:
			if node := s.parseText(); node != nil {
				children = append(children, node)
			}
		}
	}
	return children
}

// parseText reads a literal text run up to the next element or
// expression. Whitespace-only runs are dropped; multi-line runs are
// collapsed the way the renderer writes them.
func (s *markupScanner) parseText() *model.MarkupNode {
	start := s.pos
	for s.pos < len(s.src) && s.cur() != '<' && s.cur() != '{' {
		s.pos++
	}
	raw := s.src[start:s.pos]
	text := cleanText(raw)
	if text == "" {
		return nil
	}

	// Span covers the trimmed region so a replacement preserves the
	// surrounding indentation.
	lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
	trail := len(raw) - len(strings.TrimRight(raw, " \t\r\n"))
	node := model.NewText(text)
	node.Span = model.Span{Start: start + lead, End: s.pos - trail}
	return node
}

// cleanText normalizes a raw text run: single-line runs keep their
// inner spacing (trimmed at the ends), multi-line runs collapse to
// space-joined trimmed lines. Whitespace-only runs become empty.
func cleanText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if !strings.Contains(raw, "\n") {
		return strings.TrimSpace(raw)
	}
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// isMarkupComment reports whether a braced region is only a comment.
func isMarkupComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "/*") && strings.HasSuffix(trimmed, "*/")
}

// skipTrivia advances an offset past whitespace and comments.
func skipTrivia(src string, off int) int {
	for off < len(src) {
		switch {
		case src[off] == ' ' || src[off] == '\t' || src[off] == '\r' || src[off] == '\n':
			off++
		case src[off] == '/' && off+1 < len(src) && src[off+1] == '/':
			for off < len(src) && src[off] != '\n' {
				off++
			}
		case src[off] == '/' && off+1 < len(src) && src[off+1] == '*':
			off += 2
			for off+1 < len(src) && !(src[off] == '*' && src[off+1] == '/') {
				off++
			}
			off += 2
		default:
			return off
		}
	}
	return off
}
