package model

// ImportBinding is one named import, optionally aliased.
type ImportBinding struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// ImportDecl is one import declaration of a component file.
type ImportDecl struct {
	Module    string          `json:"module"`
	Default   string          `json:"default,omitempty"`
	Named     []ImportBinding `json:"named,omitempty"`
	Namespace string          `json:"namespace,omitempty"`
	TypeOnly  bool            `json:"typeOnly,omitempty"`

	Span Span `json:"span,omitempty"`
}
