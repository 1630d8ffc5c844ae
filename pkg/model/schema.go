package model

// PropertyKind is the closed set of type shapes the schema inferrer maps
// component inputs onto.
type PropertyKind string

const (
	PropString   PropertyKind = "string"
	PropNumber   PropertyKind = "number"
	PropBoolean  PropertyKind = "boolean"
	PropObject   PropertyKind = "object"
	PropArray    PropertyKind = "array"
	PropUnion    PropertyKind = "union"
	PropFunction PropertyKind = "function"
	PropUnknown  PropertyKind = "unknown"
)

// PropertyDef describes one input property of a component.
type PropertyDef struct {
	Kind        PropertyKind `json:"kind"`
	Description string       `json:"description,omitempty"`
	Default     any          `json:"default,omitempty"`

	// Elem describes array element types (Kind == PropArray).
	Elem *PropertyDef `json:"elem,omitempty"`

	// Schema describes nested object shapes (Kind == PropObject).
	Schema *PropertySchema `json:"schema,omitempty"`

	// Options lists the literal values of a literal union
	// (Kind == PropUnion).
	Options []string `json:"options,omitempty"`

	// Editor hints the editing surface at a widget ("select", "text",
	// "toggle", ...). Informational only.
	Editor string `json:"editor,omitempty"`
}

// SchemaField pairs a property name with its definition, in declaration
// order.
type SchemaField struct {
	Name string      `json:"name"`
	Def  PropertyDef `json:"def"`
}

// PropertySchema is the inferred shape of a component's input, an
// ordered name -> definition mapping plus the set of required names.
type PropertySchema struct {
	Fields   []SchemaField `json:"fields,omitempty"`
	Required []string      `json:"required,omitempty"`
}

// IsEmpty returns true when the schema declares no properties.
func (s PropertySchema) IsEmpty() bool {
	return len(s.Fields) == 0
}

// Field returns the definition for a property name, if declared.
func (s PropertySchema) Field(name string) (PropertyDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Def, true
		}
	}
	return PropertyDef{}, false
}

// IsRequired returns true when the named property has no optional marker.
func (s PropertySchema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// StructuralSignature is the component's declared surface: its name,
// whether its function is async, and the inferred property schema.
type StructuralSignature struct {
	Name  string         `json:"name"`
	Async bool           `json:"async"`
	Props PropertySchema `json:"props"`
}
