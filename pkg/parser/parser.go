// Package parser extracts the canonical component model from source
// text.
//
// The parser never fails: diagnostics are accumulated on the returned
// model and every structure is extracted best-effort. It recognizes a
// TSX-style dialect:
//
//	import declarations (default / named / namespace / type-only)
//	one exported component function, direct or via an intermediate binding
//	a props schema inferred from the destructured input parameter
//	data queries as recognized tagged-template bindings
//	returned markup (elements, fragments, text, embedded expressions)
//	an exported metadata object literal
//
// Statement structure is lexed token-by-token; markup regions are
// scanned at the byte level and the lexer is resynced past them.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/viewsmith/viewsmith/pkg/model"
	"github.com/viewsmith/viewsmith/pkg/token"
)

const (
	// defaultMaxDepth bounds markup nesting so malformed input cannot
	// recurse without limit.
	defaultMaxDepth = 64

	// defaultMaxSourceBytes bounds the accepted file size.
	defaultMaxSourceBytes = 1 << 20
)

// Options configures a Parser.
type Options struct {
	// QueryTags lists the tagged-template names recognized as data
	// queries. Defaults to "sql" and "query".
	QueryTags []string

	// MaxDepth bounds markup nesting depth.
	MaxDepth int

	// MaxSourceBytes bounds accepted source size.
	MaxSourceBytes int
}

// Parser turns component source text into a ComponentModel. A Parser is
// stateless and safe for concurrent use; construct one per process or
// per session as needed.
type Parser struct {
	opts Options
}

// New creates a Parser with default options.
func New() *Parser {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a Parser with explicit options.
func NewWithOptions(opts Options) *Parser {
	if len(opts.QueryTags) == 0 {
		opts.QueryTags = []string{"sql", "query"}
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	if opts.MaxSourceBytes <= 0 {
		opts.MaxSourceBytes = defaultMaxSourceBytes
	}
	return &Parser{opts: opts}
}

// Parse extracts the component model from source text. It never returns
// an error; diagnostics are recorded on the model.
func (p *Parser) Parse(path, src string) *model.ComponentModel {
	m := &model.ComponentModel{
		ID:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:       path,
		SourceHash: model.Hash(src),
		ModTime:    time.Now(),
	}

	if len(src) > p.opts.MaxSourceBytes {
		m.ParseErrors = append(m.ParseErrors, model.ParseError{
			Message: "source exceeds maximum size, parsing skipped",
		})
		return m
	}

	r := &run{
		opts:    p.opts,
		src:     src,
		lexer:   NewLexer(src),
		aliases: map[string]model.PropertySchema{},
		funcs:   map[string]*funcInfo{},
	}
	// Fill the three-token window.
	r.next()
	r.next()
	r.next()

	r.parseFile()
	r.finish(m)
	return m
}

// run holds the state of a single parse.
type run struct {
	opts  Options
	src   string
	lexer *Lexer

	tok, peek, peek2 token.Token

	errs []model.ParseError

	imports []model.ImportDecl
	aliases map[string]model.PropertySchema
	funcs   map[string]*funcInfo

	defaultFunc *funcInfo
	defaultName string

	meta     []model.MetaEntry
	metaSpan model.Span
}

// funcInfo records one function declaration (or arrow binding) seen at
// the top level.
type funcInfo struct {
	name      string
	async     bool
	exported  bool
	isDefault bool

	params       []paramInfo
	destructured bool

	annotation   string // props type reference, "" when inline or absent
	inlineSchema *model.PropertySchema

	queries []model.DataQuery

	returnCount int
	lastRoot    *model.MarkupNode
	lastSpan    model.Span
}

// paramInfo is one destructured input name, with its default if any.
type paramInfo struct {
	name       string
	hasDefault bool
	defLit     any    // decoded literal default, when decodable
	defExpr    string // verbatim default expression otherwise
}

// ---------- Token helpers ----------

func (r *run) next() {
	r.tok = r.peek
	r.peek = r.peek2
	r.peek2 = r.lexer.NextToken()
}

// resync repositions the token window at an absolute byte offset.
func (r *run) resync(offset int) {
	r.lexer.Resync(offset)
	r.tok = r.lexer.NextToken()
	r.peek = r.lexer.NextToken()
	r.peek2 = r.lexer.NextToken()
}

func (r *run) at(t token.TokenType) bool {
	return r.tok.Type == t
}

func (r *run) accept(t token.TokenType) bool {
	if r.tok.Type == t {
		r.next()
		return true
	}
	return false
}

func (r *run) errorf(pos token.Position, format string, args ...any) {
	r.errs = append(r.errs, model.ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    pos.Line,
		Column:  pos.Column,
	})
}

// skipStatement advances past the current statement: to the next
// semicolon at bracket depth zero, or past a balanced brace block.
func (r *run) skipStatement() {
	depth := 0
	for !r.at(token.EOF) {
		switch r.tok.Type {
		case token.LBRACE, token.LPAREN, token.LBRACKET:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACKET:
			depth--
			if depth <= 0 && r.tok.Type == token.RBRACE {
				r.next()
				return
			}
		case token.SEMICOLON:
			if depth == 0 {
				r.next()
				return
			}
		}
		r.next()
	}
}

// ---------- File structure ----------

func (r *run) parseFile() {
	for !r.at(token.EOF) {
		switch r.tok.Type {
		case token.IMPORT:
			r.parseImport()
		case token.EXPORT:
			r.parseExport()
		case token.TYPE:
			r.parseTypeAlias()
		case token.INTERFACE:
			r.parseInterface()
		case token.ASYNC:
			if r.peek.Type == token.FUNCTION {
				r.parseFunction(false, false)
			} else {
				r.skipStatement()
			}
		case token.FUNCTION:
			r.parseFunction(false, false)
		case token.CONST, token.LET, token.VAR:
			r.parseTopBinding(false)
		default:
			r.skipStatement()
		}
	}
}

func (r *run) parseExport() {
	r.next() // export
	switch r.tok.Type {
	case token.DEFAULT:
		r.next()
		switch {
		case r.at(token.FUNCTION) || (r.at(token.ASYNC) && r.peek.Type == token.FUNCTION):
			r.parseFunction(true, true)
		case r.at(token.IDENT):
			r.defaultName = r.tok.Literal
			r.next()
			r.accept(token.SEMICOLON)
		default:
			r.errorf(r.tok.Pos, "unsupported default export")
			r.skipStatement()
		}
	case token.CONST, token.LET, token.VAR:
		r.parseTopBinding(true)
	case token.TYPE:
		r.parseTypeAlias()
	case token.INTERFACE:
		r.parseInterface()
	case token.FUNCTION:
		r.parseFunction(true, false)
	case token.ASYNC:
		if r.peek.Type == token.FUNCTION {
			r.parseFunction(true, false)
		} else {
			r.skipStatement()
		}
	default:
		r.skipStatement()
	}
}

// parseTopBinding handles a top-level const/let/var: the exported meta
// literal, an arrow-function component binding, or an ignored statement.
func (r *run) parseTopBinding(exported bool) {
	r.next() // const / let / var
	if !r.at(token.IDENT) && !r.tok.Type.IsKeyword() {
		r.skipStatement()
		return
	}
	name := r.tok.Literal
	r.next()

	if exported && name == "meta" && r.at(token.ASSIGN) && r.peek.Type == token.LBRACE {
		r.parseMeta(r.peek.Pos.Offset)
		return
	}

	// Skip a type annotation on the binding.
	if r.at(token.COLON) {
		r.skipAnnotation()
	}

	if !r.accept(token.ASSIGN) {
		r.skipStatement()
		return
	}

	// Arrow-function binding: const Name = [async] (...) => ...
	async := false
	if r.at(token.ASYNC) && r.peek.Type == token.LPAREN {
		async = true
		r.next()
	}
	if r.at(token.LPAREN) {
		fi := &funcInfo{name: name, async: async, exported: exported}
		r.next()
		r.parseParams(fi)
		if r.accept(token.ARROW) {
			r.parseArrowBody(fi)
			r.funcs[name] = fi
			r.accept(token.SEMICOLON)
			return
		}
	}

	r.skipStatement()
}

// skipAnnotation consumes a type annotation after a colon, up to an
// assignment, statement end or closing bracket at depth zero.
func (r *run) skipAnnotation() {
	r.next() // :
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
		case token.ASSIGN, token.SEMICOLON, token.COMMA:
			if depth == 0 {
				return
			}
		}
		r.next()
	}
}

// annotationText returns the verbatim annotation source between two
// offsets, trimmed.
func (r *run) annotationText(start, end int) string {
	if start < 0 || end > len(r.src) || start >= end {
		return ""
	}
	return strings.TrimSpace(r.src[start:end])
}

// ---------- Functions ----------

// parseFunction parses `[async] function Name(params) { body }`.
func (r *run) parseFunction(exported, isDefault bool) {
	fi := &funcInfo{exported: exported, isDefault: isDefault}
	if r.at(token.ASYNC) {
		fi.async = true
		r.next()
	}
	r.next() // function
	if r.at(token.IDENT) {
		fi.name = r.tok.Literal
		r.next()
	}
	if r.accept(token.LPAREN) {
		r.parseParams(fi)
	}
	// Skip a return-type annotation.
	if r.at(token.COLON) {
		r.skipAnnotation()
	}
	if r.at(token.LBRACE) {
		r.parseBody(fi)
	}

	if fi.name != "" {
		r.funcs[fi.name] = fi
	}
	if isDefault {
		r.defaultFunc = fi
	}
}

// parseParams parses a parameter list from just after the opening paren
// through the closing paren. Only the destructured object form
// contributes to the schema; anything else is consumed and ignored.
func (r *run) parseParams(fi *funcInfo) {
	if r.at(token.LBRACE) {
		fi.destructured = true
		r.next()
		for !r.at(token.RBRACE) && !r.at(token.EOF) {
			if r.at(token.SPREAD) {
				r.next()
				if r.at(token.IDENT) {
					r.next()
				}
				r.accept(token.COMMA)
				continue
			}
			if !r.at(token.IDENT) && !r.tok.Type.IsKeyword() {
				r.next()
				continue
			}
			pi := paramInfo{name: r.tok.Literal}
			r.next()
			if r.accept(token.ASSIGN) {
				start := r.tok.Pos.Offset
				end := r.skipDefaultExpr()
				raw := r.annotationText(start, end)
				pi.hasDefault = true
				if lit, ok := decodeLiteral(raw); ok {
					pi.defLit = lit
				} else {
					pi.defExpr = raw
				}
			}
			fi.params = append(fi.params, pi)
			r.accept(token.COMMA)
		}
		r.accept(token.RBRACE)

		// Annotation on the destructured object.
		if r.at(token.COLON) {
			r.next()
			if r.at(token.IDENT) && r.peek.Type != token.LBRACE {
				fi.annotation = r.tok.Literal
				r.next()
			} else if r.at(token.LBRACE) {
				schema := r.parseObjectType()
				fi.inlineSchema = &schema
			} else {
				r.skipAnnotation()
			}
		}
	}

	// Consume the rest of the parameter list.
	depth := 0
	for !r.at(token.EOF) {
		switch r.tok.Type {
		case token.LPAREN, token.LBRACE, token.LBRACKET:
			depth++
		case token.RPAREN:
			if depth == 0 {
				r.next()
				return
			}
			depth--
		case token.RBRACE, token.RBRACKET:
			depth--
		}
		r.next()
	}
}

// skipDefaultExpr consumes a default-value expression inside a
// destructuring pattern and returns the offset just past it.
func (r *run) skipDefaultExpr() int {
	depth := 0
	end := r.tok.Pos.Offset
	for !r.at(token.EOF) {
		switch r.tok.Type {
		case token.LPAREN, token.LBRACE, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACE, token.RBRACKET:
			if depth == 0 {
				return end
			}
			depth--
		case token.COMMA:
			if depth == 0 {
				return end
			}
		}
		end = r.tok.End
		r.next()
	}
	return end
}

// parseBody walks a function block, collecting data queries and return
// points. Markup returns are byte-scanned and the lexer resynced.
func (r *run) parseBody(fi *funcInfo) {
	r.next() // {
	depth := 1
	for depth > 0 && !r.at(token.EOF) {
		switch r.tok.Type {
		case token.LBRACE:
			depth++
			r.next()
		case token.RBRACE:
			depth--
			r.next()
		case token.CONST, token.LET, token.VAR:
			r.parseBodyBinding(fi)
		case token.RETURN:
			r.parseReturn(fi)
		default:
			r.next()
		}
	}
}

// parseArrowBody handles an arrow function's body: a block, or a bare
// expression (usually markup) that counts as the single return point.
func (r *run) parseArrowBody(fi *funcInfo) {
	if r.at(token.LBRACE) {
		r.parseBody(fi)
		return
	}
	r.captureReturnExpr(fi, r.tok.Pos.Offset)
}

// parseReturn records a return point. The last one wins; every extra
// one is diagnosed so masked early-return branches stay visible.
func (r *run) parseReturn(fi *funcInfo) {
	pos := r.tok.Pos
	exprStart := r.tok.End
	r.next()
	fi.returnCount++
	if fi.returnCount > 1 {
		r.errorf(pos, "multiple return statements; the visual editor tracks the last one")
	}

	if r.at(token.SEMICOLON) {
		// Bare return.
		r.next()
		return
	}
	r.captureReturnExpr(fi, exprStart)
}

// captureReturnExpr extracts the returned expression starting at a byte
// offset: markup via the byte scanner, anything else verbatim.
func (r *run) captureReturnExpr(fi *funcInfo, exprStart int) {
	off := skipTrivia(r.src, exprStart)
	wrapped := false
	if off < len(r.src) && r.src[off] == '(' {
		inner := skipTrivia(r.src, off+1)
		if inner < len(r.src) && r.src[inner] == '<' {
			wrapped = true
			off = inner
		}
	}

	if off < len(r.src) && r.src[off] == '<' {
		s := &markupScanner{src: r.src, pos: off, maxDepth: r.opts.MaxDepth, errs: &r.errs}
		node := s.parseNode()
		end := s.pos
		if wrapped {
			after := skipTrivia(r.src, end)
			if after < len(r.src) && r.src[after] == ')' {
				end = after + 1
			}
		}
		if node != nil {
			fi.lastRoot = node
			fi.lastSpan = node.Span
		}
		r.resync(end)
		r.accept(token.SEMICOLON)
		return
	}

	// Non-markup return: keep the expression opaque.
	start := r.tok.Pos.Offset
	end := start
	depth := 0
	for !r.at(token.EOF) {
		switch r.tok.Type {
		case token.LPAREN, token.LBRACE, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACE, token.RBRACKET:
			if depth == 0 {
				goto done
			}
			depth--
		case token.SEMICOLON:
			if depth == 0 {
				r.next()
				goto done
			}
		}
		end = r.tok.End
		r.next()
	}
done:
	if expr := r.annotationText(start, end); expr != "" {
		node := model.NewExpression(expr)
		node.Span = model.Span{Start: start, End: end}
		fi.lastRoot = node
		fi.lastSpan = node.Span
	}
}

// ---------- Assembly ----------

// component picks the exported component function: a direct default
// export, an intermediate binding, or (best effort, diagnosed) the sole
// declared function.
func (r *run) component() *funcInfo {
	if r.defaultFunc != nil {
		return r.defaultFunc
	}
	if r.defaultName != "" {
		if fi, ok := r.funcs[r.defaultName]; ok {
			return fi
		}
		r.errs = append(r.errs, model.ParseError{
			Message: fmt.Sprintf("default export %q does not resolve to a function", r.defaultName),
		})
	}
	r.errs = append(r.errs, model.ParseError{
		Message: "no exported component function found",
	})
	if len(r.funcs) == 1 {
		for _, fi := range r.funcs {
			return fi
		}
	}
	return nil
}

func (r *run) finish(m *model.ComponentModel) {
	m.Imports = r.imports
	m.Meta = r.meta
	m.MetaSpan = r.metaSpan

	fi := r.component()
	if fi != nil {
		m.Signature = model.StructuralSignature{
			Name:  fi.name,
			Async: fi.async,
			Props: r.inferSchema(fi),
		}
		if m.Signature.Name == "" {
			m.Signature.Name = model.NameFromID(m.ID)
		}
		m.Queries = fi.queries
		m.Root = fi.lastRoot
		m.RootSpan = fi.lastSpan
		if fi.lastRoot == nil {
			r.errs = append(r.errs, model.ParseError{
				Message: "component function has no returned markup",
			})
		}
	}

	m.ParseErrors = r.errs
}
