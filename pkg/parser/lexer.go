package parser

import (
	"strings"

	"github.com/viewsmith/viewsmith/pkg/token"
)

// Lexer tokenizes component source text. Markup regions are not lexed
// here: the parser hands those offsets to the byte-level markup scanner
// and resyncs the lexer past them.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// Resync repositions the lexer at an absolute byte offset. Used after
// the markup scanner has consumed a region the lexer should not see.
func (l *Lexer) Resync(offset int) {
	if offset > len(l.input) {
		offset = len(l.input)
	}
	before := l.input[:offset]
	l.line = 1 + strings.Count(before, "\n")
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		l.col = offset - i - 1
	} else {
		l.col = offset
	}
	l.readPos = offset
	l.readChar()
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()

	var tok token.Token
	switch {
	case l.ch == 0:
		tok = token.Token{Type: token.EOF, Pos: pos, End: l.pos}
		return tok
	case isIdentStart(l.ch):
		lit := l.readIdent()
		return token.Token{Type: token.LookupIdent(lit), Literal: lit, Pos: pos, End: pos.Offset + len(lit)}
	case isDigit(l.ch):
		lit := l.readNumber()
		return token.Token{Type: token.NUMBER, Literal: lit, Pos: pos, End: pos.Offset + len(lit)}
	case l.ch == '"' || l.ch == '\'':
		lit, ok := l.readString(l.ch)
		typ := token.STRING
		if !ok {
			typ = token.ILLEGAL
		}
		return token.Token{Type: typ, Literal: lit, Pos: pos, End: pos.Offset + len(lit)}
	case l.ch == '`':
		lit, ok := l.readTemplate()
		typ := token.TEMPLATE
		if !ok {
			typ = token.ILLEGAL
		}
		return token.Token{Type: typ, Literal: lit, Pos: pos, End: pos.Offset + len(lit)}
	default:
		tok = l.readPunct(pos)
	}

	l.readChar()
	return tok
}

// skipWhitespaceAndComments advances past whitespace, line comments and
// block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

// readIdent reads an identifier starting at the current char.
func (l *Lexer) readIdent() string {
	start := l.pos
	for isIdentStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal or exponent form).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) || l.ch == '.' || l.ch == 'e' || l.ch == 'E' ||
		((l.ch == '+' || l.ch == '-') && l.pos > start && (l.input[l.pos-1] == 'e' || l.input[l.pos-1] == 'E')) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readString reads a quoted string literal including its quotes.
// Returns the literal and whether it was terminated.
func (l *Lexer) readString(quote byte) (string, bool) {
	start := l.pos
	l.readChar()
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return l.input[start:l.pos], false
		}
		if l.ch == '\\' {
			l.readChar()
		}
		l.readChar()
	}
	l.readChar() // closing quote
	return l.input[start:l.pos], true
}

// readTemplate reads a backtick template literal including its backticks.
// Interpolations are kept raw inside the literal; ${...} braces are
// balanced so a template containing nested braces stays one token.
func (l *Lexer) readTemplate() (string, bool) {
	start := l.pos
	l.readChar()
	for l.ch != '`' {
		if l.ch == 0 {
			return l.input[start:l.pos], false
		}
		if l.ch == '\\' {
			l.readChar()
			l.readChar()
			continue
		}
		if l.ch == '$' && l.peekChar() == '{' {
			l.readChar() // $
			l.readChar() // {
			depth := 1
			for depth > 0 && l.ch != 0 {
				switch l.ch {
				case '{':
					depth++
				case '}':
					depth--
				}
				l.readChar()
			}
			continue
		}
		l.readChar()
	}
	l.readChar() // closing backtick
	return l.input[start:l.pos], true
}

// readPunct reads a punctuation token at the current char.
func (l *Lexer) readPunct(pos token.Position) token.Token {
	mk := func(t token.TokenType, lit string) token.Token {
		return token.Token{Type: t, Literal: lit, Pos: pos, End: pos.Offset + len(lit)}
	}

	switch l.ch {
	case '{':
		return mk(token.LBRACE, "{")
	case '}':
		return mk(token.RBRACE, "}")
	case '(':
		return mk(token.LPAREN, "(")
	case ')':
		return mk(token.RPAREN, ")")
	case '[':
		return mk(token.LBRACKET, "[")
	case ']':
		return mk(token.RBRACKET, "]")
	case '<':
		return mk(token.LT, "<")
	case '>':
		return mk(token.GT, ">")
	case '/':
		return mk(token.SLASH, "/")
	case '=':
		if l.peekChar() == '>' {
			l.readChar()
			return mk(token.ARROW, "=>")
		}
		return mk(token.ASSIGN, "=")
	case ':':
		return mk(token.COLON, ":")
	case ';':
		return mk(token.SEMICOLON, ";")
	case ',':
		return mk(token.COMMA, ",")
	case '.':
		if l.peekChar() == '.' && l.readPos+1 < len(l.input) && l.input[l.readPos+1] == '.' {
			l.readChar()
			l.readChar()
			return mk(token.SPREAD, "...")
		}
		return mk(token.DOT, ".")
	case '?':
		return mk(token.QUESTION, "?")
	case '|':
		return mk(token.PIPE, "|")
	case '&':
		return mk(token.AMP, "&")
	case '*':
		return mk(token.STAR, "*")
	case '+':
		return mk(token.PLUS, "+")
	case '-':
		return mk(token.MINUS, "-")
	case '!':
		return mk(token.BANG, "!")
	}
	return mk(token.ILLEGAL, string(l.ch))
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
