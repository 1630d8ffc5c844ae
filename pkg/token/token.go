// Package token defines the token types for component source parsing.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT    // identifier
	NUMBER   // 123, 45.67, 1e10
	STRING   // "hello" or 'hello'
	TEMPLATE // `hello ${name}`, one token, raw text includes interpolations

	// Punctuation
	LBRACE    // {
	RBRACE    // }
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LT        // <
	GT        // >
	SLASH     // /
	ASSIGN    // =
	ARROW     // =>
	COLON     // :
	SEMICOLON // ;
	COMMA     // ,
	DOT       // .
	QUESTION  // ?
	PIPE      // |
	AMP       // &
	STAR      // *
	PLUS      // +
	MINUS     // -
	BANG      // !
	SPREAD    // ...

	// Keywords
	IMPORT
	EXPORT
	DEFAULT
	FUNCTION
	ASYNC
	AWAIT
	CONST
	LET
	VAR
	RETURN
	TYPE
	INTERFACE
	FROM
	AS
	TRUE
	FALSE
	NULL
	UNDEFINED
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps token types to their string representations.
var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:    "IDENT",
	NUMBER:   "NUMBER",
	STRING:   "STRING",
	TEMPLATE: "TEMPLATE",

	LBRACE:    "{",
	RBRACE:    "}",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
	LT:        "<",
	GT:        ">",
	SLASH:     "/",
	ASSIGN:    "=",
	ARROW:     "=>",
	COLON:     ":",
	SEMICOLON: ";",
	COMMA:     ",",
	DOT:       ".",
	QUESTION:  "?",
	PIPE:      "|",
	AMP:       "&",
	STAR:      "*",
	PLUS:      "+",
	MINUS:     "-",
	BANG:      "!",
	SPREAD:    "...",

	IMPORT:    "import",
	EXPORT:    "export",
	DEFAULT:   "default",
	FUNCTION:  "function",
	ASYNC:     "async",
	AWAIT:     "await",
	CONST:     "const",
	LET:       "let",
	VAR:       "var",
	RETURN:    "return",
	TYPE:      "type",
	INTERFACE: "interface",
	FROM:      "from",
	AS:        "as",
	TRUE:      "true",
	FALSE:     "false",
	NULL:      "null",
	UNDEFINED: "undefined",
}

// keywords maps identifier text to keyword token types.
var keywords = map[string]TokenType{
	"import":    IMPORT,
	"export":    EXPORT,
	"default":   DEFAULT,
	"function":  FUNCTION,
	"async":     ASYNC,
	"await":     AWAIT,
	"const":     CONST,
	"let":       LET,
	"var":       VAR,
	"return":    RETURN,
	"type":      TYPE,
	"interface": INTERFACE,
	"from":      FROM,
	"as":        AS,
	"true":      TRUE,
	"false":     FALSE,
	"null":      NULL,
	"undefined": UNDEFINED,
}

// LookupIdent returns the keyword token type for an identifier,
// or IDENT if it is not a keyword.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func (t TokenType) IsKeyword() bool {
	return t >= IMPORT && t <= UNDEFINED
}

// Token represents a lexical token with its type, literal text and position.
type Token struct {
	Type    TokenType
	Literal string   // literal text as it appears in source
	Pos     Position // start position
	End     int      // byte offset just past the token
}
