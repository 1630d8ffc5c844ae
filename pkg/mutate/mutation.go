// Package mutate turns a structural change between two markup trees
// into the smallest set of text-range edits against the original
// source, and applies such edits atomically.
//
// Nodes are matched across trees by their stable identifiers, never by
// position or content equality; each matched node's byte span was
// recorded at parse time, so no re-parsing is needed to locate an edit.
package mutate

import (
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates mutation variants.
type Kind int

const (
	KindInsert Kind = iota
	KindDelete
	KindReplace
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	case KindReplace:
		return "replace"
	}
	return "unknown"
}

// Mutation is one text-range edit: insert at an offset, delete a range,
// or replace a range.
type Mutation struct {
	Kind  Kind
	Start int
	End   int
	Text  string
}

// Insert builds an insertion at the given offset.
func Insert(offset int, text string) Mutation {
	return Mutation{Kind: KindInsert, Start: offset, End: offset, Text: text}
}

// Delete builds a range deletion.
func Delete(start, end int) Mutation {
	return Mutation{Kind: KindDelete, Start: start, End: end}
}

// Replace builds a range replacement.
func Replace(start, end int, text string) Mutation {
	return Mutation{Kind: KindReplace, Start: start, End: end, Text: text}
}

// BoundsError reports a mutation whose span no longer fits the text it
// is applied to. It signals that a full reparse-and-regenerate is
// required instead of a surgical patch.
type BoundsError struct {
	Mutation Mutation
	TextLen  int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("mutation %s [%d:%d) exceeds text bounds (len %d)",
		e.Mutation.Kind, e.Mutation.Start, e.Mutation.End, e.TextLen)
}

// Apply applies mutations to source text atomically: either every
// mutation fits and the fully edited text is returned, or the first
// out-of-bounds span aborts the whole application with no partial
// result.
//
// Mutations are applied in descending start order, so earlier edits
// never invalidate the offsets of later ones.
func Apply(source string, mutations []Mutation) (string, error) {
	// Validate everything before touching the text.
	for _, m := range mutations {
		if m.Start < 0 || m.Start > m.End || m.End > len(source) {
			return "", &BoundsError{Mutation: m, TextLen: len(source)}
		}
	}

	ordered := make([]Mutation, len(mutations))
	copy(ordered, mutations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start > ordered[j].Start
	})

	out := source
	for _, m := range ordered {
		var b strings.Builder
		b.Grow(len(out) - (m.End - m.Start) + len(m.Text))
		b.WriteString(out[:m.Start])
		if m.Kind != KindDelete {
			b.WriteString(m.Text)
		}
		b.WriteString(out[m.End:])
		out = b.String()
	}
	return out, nil
}
