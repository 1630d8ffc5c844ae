package parser

import (
	"github.com/viewsmith/viewsmith/pkg/model"
	"github.com/viewsmith/viewsmith/pkg/token"
)

// ctxParamName is the injected execution-context parameter. It is never
// part of the inferred property schema.
const ctxParamName = "ctx"

// parseTypeAlias parses `type Name = { ... };` into a property schema.
// Aliases whose right-hand side is not an object type are ignored.
func (r *run) parseTypeAlias() {
	r.next() // type
	if !r.at(token.IDENT) {
		r.skipStatement()
		return
	}
	name := r.tok.Literal
	r.next()
	if !r.accept(token.ASSIGN) {
		r.skipStatement()
		return
	}
	if !r.at(token.LBRACE) {
		r.skipStatement()
		return
	}
	r.aliases[name] = r.parseObjectType()
	r.accept(token.SEMICOLON)
}

// parseInterface parses `interface Name { ... }` like an object-type
// alias.
func (r *run) parseInterface() {
	r.next() // interface
	if !r.at(token.IDENT) {
		r.skipStatement()
		return
	}
	name := r.tok.Literal
	r.next()
	if !r.at(token.LBRACE) {
		r.skipStatement()
		return
	}
	r.aliases[name] = r.parseObjectType()
}

// parseObjectType parses `{ name?: type; ... }` starting at the opening
// brace, leaving the token window just past the closing brace.
func (r *run) parseObjectType() model.PropertySchema {
	var schema model.PropertySchema
	r.next() // {
	for !r.at(token.RBRACE) && !r.at(token.EOF) {
		var name string
		switch {
		case r.at(token.IDENT) || r.tok.Type.IsKeyword():
			name = r.tok.Literal
		case r.at(token.STRING):
			name = decodeString(r.tok.Literal)
		default:
			r.next()
			continue
		}
		r.next()

		optional := r.accept(token.QUESTION)
		if !r.accept(token.COLON) {
			r.skipMember()
			continue
		}
		def := r.parseTypeExpr()
		schema.Fields = append(schema.Fields, model.SchemaField{Name: name, Def: def})
		if !optional {
			schema.Required = append(schema.Required, name)
		}
		r.accept(token.SEMICOLON)
		r.accept(token.COMMA)
	}
	r.accept(token.RBRACE)
	return schema
}

// skipMember advances past a malformed object-type member.
func (r *run) skipMember() {
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
		case token.SEMICOLON, token.COMMA:
			if depth == 0 {
				r.next()
				return
			}
		}
		r.next()
	}
}

// typeMember is one alternative of a union type while it is being
// assembled.
type typeMember struct {
	def     model.PropertyDef
	literal string
	isLit   bool
	isNilly bool // null / undefined
}

// parseTypeExpr parses a type expression: union members separated by
// pipes. A union of literals becomes an enumerated option list with a
// select editor hint; `T | null` collapses to T; anything mixed is
// unknown.
func (r *run) parseTypeExpr() model.PropertyDef {
	members := []typeMember{r.parseTypeMember()}
	for r.accept(token.PIPE) {
		members = append(members, r.parseTypeMember())
	}

	if len(members) == 1 {
		return members[0].def
	}

	var real []typeMember
	allLits := true
	for _, m := range members {
		if m.isNilly {
			continue
		}
		real = append(real, m)
		if !m.isLit {
			allLits = false
		}
	}
	switch {
	case len(real) == 0:
		return model.PropertyDef{Kind: model.PropUnknown}
	case len(real) == 1:
		return real[0].def
	case allLits:
		opts := make([]string, len(real))
		for i, m := range real {
			opts[i] = m.literal
		}
		return model.PropertyDef{Kind: model.PropUnion, Options: opts, Editor: "select"}
	default:
		return model.PropertyDef{Kind: model.PropUnknown}
	}
}

// parseTypeMember parses one union alternative including [] postfixes.
func (r *run) parseTypeMember() typeMember {
	m := r.parseTypePrimary()
	for r.at(token.LBRACKET) && r.peek.Type == token.RBRACKET {
		r.next()
		r.next()
		elem := m.def
		m = typeMember{def: model.PropertyDef{Kind: model.PropArray, Elem: &elem}}
	}
	return m
}

// parseTypePrimary maps the closed set of recognized type shapes:
// scalar keywords, literal values, Array<T>, inline object types and
// function types. Everything else is unknown.
func (r *run) parseTypePrimary() typeMember {
	switch r.tok.Type {
	case token.IDENT:
		name := r.tok.Literal
		switch name {
		case "string":
			r.next()
			return typeMember{def: model.PropertyDef{Kind: model.PropString}}
		case "number":
			r.next()
			return typeMember{def: model.PropertyDef{Kind: model.PropNumber}}
		case "boolean":
			r.next()
			return typeMember{def: model.PropertyDef{Kind: model.PropBoolean}}
		case "Array":
			r.next()
			if r.accept(token.LT) {
				elem := r.parseTypeExpr()
				r.accept(token.GT)
				return typeMember{def: model.PropertyDef{Kind: model.PropArray, Elem: &elem}}
			}
			return typeMember{def: model.PropertyDef{Kind: model.PropUnknown}}
		default:
			r.next()
			r.skipGenericArgs()
			return typeMember{def: model.PropertyDef{Kind: model.PropUnknown}}
		}
	case token.STRING:
		lit := decodeString(r.tok.Literal)
		r.next()
		return typeMember{
			def:     model.PropertyDef{Kind: model.PropUnion, Options: []string{lit}, Editor: "select"},
			literal: lit,
			isLit:   true,
		}
	case token.NUMBER:
		lit := r.tok.Literal
		r.next()
		return typeMember{
			def:     model.PropertyDef{Kind: model.PropUnion, Options: []string{lit}, Editor: "select"},
			literal: lit,
			isLit:   true,
		}
	case token.TRUE, token.FALSE:
		lit := r.tok.Literal
		r.next()
		return typeMember{
			def:     model.PropertyDef{Kind: model.PropBoolean},
			literal: lit,
			isLit:   true,
		}
	case token.NULL, token.UNDEFINED:
		r.next()
		return typeMember{def: model.PropertyDef{Kind: model.PropUnknown}, isNilly: true}
	case token.LBRACE:
		schema := r.parseObjectType()
		return typeMember{def: model.PropertyDef{Kind: model.PropObject, Schema: &schema}}
	case token.LPAREN:
		return r.parseFunctionType()
	default:
		r.next()
		return typeMember{def: model.PropertyDef{Kind: model.PropUnknown}}
	}
}

// skipGenericArgs consumes `<...>` after a type reference.
func (r *run) skipGenericArgs() {
	if !r.at(token.LT) {
		return
	}
	depth := 0
	for !r.at(token.EOF) {
		switch r.tok.Type {
		case token.LT:
			depth++
		case token.GT:
			depth--
			if depth == 0 {
				r.next()
				return
			}
		}
		r.next()
	}
}

// parseFunctionType consumes `(...) => T`. The parameter list is not
// modeled; the property is simply a function.
func (r *run) parseFunctionType() typeMember {
	depth := 0
	for !r.at(token.EOF) {
		switch r.tok.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				r.next()
				goto params
			}
		}
		r.next()
	}
params:
	if r.accept(token.ARROW) {
		r.parseTypeMember() // return type, discarded
		return typeMember{def: model.PropertyDef{Kind: model.PropFunction}}
	}
	return typeMember{def: model.PropertyDef{Kind: model.PropUnknown}}
}

// inferSchema combines the annotation-derived schema with destructured
// parameter defaults. Without an annotation the defaults alone drive
// kind inference. The injected context parameter never appears.
func (r *run) inferSchema(fi *funcInfo) model.PropertySchema {
	var schema model.PropertySchema
	switch {
	case fi.annotation != "":
		if s, ok := r.aliases[fi.annotation]; ok {
			schema = s
		} else {
			r.errs = append(r.errs, model.ParseError{
				Message: "props type " + fi.annotation + " is not declared in this file",
			})
			schema = r.schemaFromParams(fi)
		}
	case fi.inlineSchema != nil:
		schema = *fi.inlineSchema
	default:
		schema = r.schemaFromParams(fi)
	}

	// Drop the context member wherever it came from.
	fields := schema.Fields[:0:0]
	for _, f := range schema.Fields {
		if f.Name != ctxParamName {
			fields = append(fields, f)
		}
	}
	schema.Fields = fields
	required := schema.Required[:0:0]
	for _, name := range schema.Required {
		if name != ctxParamName {
			required = append(required, name)
		}
	}
	schema.Required = required

	// Fold destructuring defaults into the schema.
	for _, p := range fi.params {
		if !p.hasDefault {
			continue
		}
		// Only decoded literals become schema defaults; a verbatim
		// default expression would be indistinguishable from a string
		// literal once rendered.
		for i := range schema.Fields {
			if schema.Fields[i].Name == p.name && p.defLit != nil {
				schema.Fields[i].Def.Default = p.defLit
			}
		}
	}
	return schema
}

// schemaFromParams infers a schema from destructured names alone: kinds
// come from default literals, anything else is unknown.
func (r *run) schemaFromParams(fi *funcInfo) model.PropertySchema {
	var schema model.PropertySchema
	for _, p := range fi.params {
		if p.name == ctxParamName {
			continue
		}
		def := model.PropertyDef{Kind: model.PropUnknown}
		if p.hasDefault {
			switch p.defLit.(type) {
			case string:
				def.Kind = model.PropString
			case float64:
				def.Kind = model.PropNumber
			case bool:
				def.Kind = model.PropBoolean
			}
		}
		schema.Fields = append(schema.Fields, model.SchemaField{Name: p.name, Def: def})
		if !p.hasDefault {
			schema.Required = append(schema.Required, p.name)
		}
	}
	return schema
}
