package model

// PropValueKind discriminates the property value union.
type PropValueKind string

const (
	ValueLiteral    PropValueKind = "literal"
	ValueExpression PropValueKind = "expression"
	ValueMarkup     PropValueKind = "markup"
)

// Property is one named property on an element, in source order.
type Property struct {
	Name  string        `json:"name"`
	Value PropertyValue `json:"value"`
}

// PropertyValue holds a property's value. Literal carries a scalar
// (string, float64, bool) or nil; Expr keeps anything not reducible to a
// constant verbatim so no information is lost; Markup carries nested
// markup passed as a value.
type PropertyValue struct {
	Kind    PropValueKind `json:"kind"`
	Literal any           `json:"literal,omitempty"`
	Expr    string        `json:"expr,omitempty"`
	Markup  *MarkupNode   `json:"markup,omitempty"`
}

// LiteralValue builds a literal property value.
func LiteralValue(v any) PropertyValue {
	return PropertyValue{Kind: ValueLiteral, Literal: v}
}

// ExprValue builds an expression property value.
func ExprValue(src string) PropertyValue {
	return PropertyValue{Kind: ValueExpression, Expr: src}
}

// MarkupValue builds a nested-markup property value.
func MarkupValue(n *MarkupNode) PropertyValue {
	return PropertyValue{Kind: ValueMarkup, Markup: n}
}

// Clone returns a deep copy of the property.
func (p Property) Clone() Property {
	c := p
	if p.Value.Markup != nil {
		c.Value.Markup = p.Value.Markup.Clone()
	}
	return c
}

// Equal reports whether two properties match in name and value,
// comparing nested markup structurally.
func (p Property) Equal(o Property) bool {
	if p.Name != o.Name || p.Value.Kind != o.Value.Kind {
		return false
	}
	switch p.Value.Kind {
	case ValueLiteral:
		return p.Value.Literal == o.Value.Literal
	case ValueExpression:
		return p.Value.Expr == o.Value.Expr
	case ValueMarkup:
		return StructuralEqual(p.Value.Markup, o.Value.Markup)
	}
	return false
}
