package parser

import (
	"github.com/viewsmith/viewsmith/pkg/model"
	"github.com/viewsmith/viewsmith/pkg/token"
)

// parseImport parses one import declaration:
//
//	import "mod";
//	import Def from "mod";
//	import Def, { a, b as c } from "mod";
//	import { a, b as c } from "mod";
//	import * as NS from "mod";
//	import type { ... } from "mod";
func (r *run) parseImport() {
	decl := model.ImportDecl{Span: model.Span{Start: r.tok.Pos.Offset}}
	r.next() // import

	if r.at(token.TYPE) && r.peek.Type != token.FROM {
		decl.TypeOnly = true
		r.next()
	}

	switch r.tok.Type {
	case token.STRING:
		// Side-effect import.
		decl.Module = decodeString(r.tok.Literal)
		decl.Span.End = r.tok.End
		r.next()
		if r.at(token.SEMICOLON) {
			decl.Span.End = r.tok.End
			r.next()
		}
		r.imports = append(r.imports, decl)
		return
	case token.STAR:
		r.parseNamespaceBinding(&decl)
	case token.LBRACE:
		r.parseNamedBindings(&decl)
	default:
		if r.at(token.IDENT) || r.tok.Type.IsKeyword() {
			decl.Default = r.tok.Literal
			r.next()
			if r.accept(token.COMMA) {
				switch r.tok.Type {
				case token.LBRACE:
					r.parseNamedBindings(&decl)
				case token.STAR:
					r.parseNamespaceBinding(&decl)
				}
			}
		}
	}

	if !r.accept(token.FROM) {
		r.errorf(r.tok.Pos, "malformed import declaration")
		r.skipStatement()
		return
	}
	if !r.at(token.STRING) {
		r.errorf(r.tok.Pos, "import declaration missing module specifier")
		r.skipStatement()
		return
	}
	decl.Module = decodeString(r.tok.Literal)
	decl.Span.End = r.tok.End
	r.next()
	if r.at(token.SEMICOLON) {
		decl.Span.End = r.tok.End
		r.next()
	}
	r.imports = append(r.imports, decl)
}

func (r *run) parseNamespaceBinding(decl *model.ImportDecl) {
	r.next() // *
	if r.accept(token.AS) && (r.at(token.IDENT) || r.tok.Type.IsKeyword()) {
		decl.Namespace = r.tok.Literal
		r.next()
	}
}

func (r *run) parseNamedBindings(decl *model.ImportDecl) {
	r.next() // {
	for !r.at(token.RBRACE) && !r.at(token.EOF) {
		if !r.at(token.IDENT) && !r.tok.Type.IsKeyword() {
			r.next()
			continue
		}
		b := model.ImportBinding{Name: r.tok.Literal}
		r.next()
		if r.accept(token.AS) && (r.at(token.IDENT) || r.tok.Type.IsKeyword()) {
			b.Alias = r.tok.Literal
			r.next()
		}
		decl.Named = append(decl.Named, b)
		r.accept(token.COMMA)
	}
	r.accept(token.RBRACE)
}
