package model

// Interpolation is one dynamic segment of a data query, recorded by
// position. The query text carries a positional placeholder ($1, $2, ...)
// where the expression appeared.
type Interpolation struct {
	Index int    `json:"index"` // 1-based placeholder number
	Expr  string `json:"expr"`  // verbatim source expression
}

// DataQuery is one data-query declaration extracted from the component
// body. The bound variable name is its identity.
type DataQuery struct {
	Var            string          `json:"var"`
	ResultType     string          `json:"resultType,omitempty"` // declared annotation, verbatim
	Tag            string          `json:"tag"`                  // recognized template tag, e.g. "sql"
	Text           string          `json:"text"`                 // query text with positional placeholders
	Interpolations []Interpolation `json:"interpolations,omitempty"`

	// Span covers the whole declaration statement in the source it was
	// parsed from; patch generation never rewrites it.
	Span Span `json:"span,omitempty"`
}
