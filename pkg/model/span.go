package model

// Span is a half-open byte range [Start, End) in source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsZero returns true for the zero span, used to mean "no recorded
// location".
func (s Span) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int {
	return s.End - s.Start
}

// Within reports whether the span fits inside text of the given length.
func (s Span) Within(n int) bool {
	return s.Start >= 0 && s.Start <= s.End && s.End <= n
}
