package mutate

import (
	"errors"
	"strings"

	"github.com/viewsmith/viewsmith/pkg/model"
)

// Renderer renders a markup subtree as source text aligned to a base
// indentation. The generator provides the canonical implementation; the
// indirection keeps this package free of rendering policy.
type Renderer interface {
	RenderAt(n *model.MarkupNode, baseIndent string) string
}

// ErrUnlocatable reports that a changed node has no recorded span to
// anchor an edit to, so a surgical patch is impossible and the caller
// should regenerate instead.
var ErrUnlocatable = errors.New("changed node has no recorded source span")

// Diff computes the ordered mutation list that rewrites the old tree's
// source text into the new tree. Old-tree nodes carry byte spans from
// parse time; new-tree nodes share identifiers with the old tree except
// for freshly inserted nodes.
func Diff(oldRoot, newRoot *model.MarkupNode, source string, r Renderer) ([]Mutation, error) {
	if oldRoot == nil || newRoot == nil {
		return nil, ErrUnlocatable
	}
	d := &differ{source: source, renderer: r}
	var muts []Mutation
	var err error
	if oldRoot.ID != newRoot.ID {
		muts, err = d.replaceNode(oldRoot, newRoot)
	} else {
		muts, err = d.diffNode(oldRoot, newRoot)
	}
	if err != nil {
		return nil, err
	}
	return muts, nil
}

type differ struct {
	source   string
	renderer Renderer
}

// replaceNode rewrites a whole subtree in place.
func (d *differ) replaceNode(o, n *model.MarkupNode) ([]Mutation, error) {
	if o.Span.IsZero() {
		return nil, ErrUnlocatable
	}
	text := d.renderer.RenderAt(n, lineIndent(d.source, o.Span.Start))
	return []Mutation{Replace(o.Span.Start, o.Span.End, text)}, nil
}

// diffNode diffs two nodes known to share an identifier.
func (d *differ) diffNode(o, n *model.MarkupNode) ([]Mutation, error) {
	if o.Kind != n.Kind {
		return d.replaceNode(o, n)
	}
	switch o.Kind {
	case model.KindText:
		if o.Text != n.Text {
			return d.replaceNode(o, n)
		}
		return nil, nil
	case model.KindExpression:
		if o.Expr != n.Expr {
			return d.replaceNode(o, n)
		}
		return nil, nil
	}

	// Element / Fragment: a changed tag or property set rewrites the
	// node whole; unchanged shells descend into their children.
	if !model.SelfEqual(o, n) {
		return d.replaceNode(o, n)
	}
	return d.diffChildren(o, n)
}

func (d *differ) diffChildren(o, n *model.MarkupNode) ([]Mutation, error) {
	oldByID := make(map[string]*model.MarkupNode, len(o.Children))
	for _, ch := range o.Children {
		oldByID[ch.ID] = ch
	}
	newIDs := make(map[string]bool, len(n.Children))
	for _, ch := range n.Children {
		newIDs[ch.ID] = true
	}

	// Reordering of surviving children rewrites the parent whole:
	// span bookkeeping for moves is not worth the complexity.
	if d.sharedOrderChanged(o.Children, n.Children, newIDs) {
		return d.replaceNode(o, n)
	}

	var muts []Mutation

	// Deletions.
	for _, ch := range o.Children {
		if newIDs[ch.ID] {
			continue
		}
		if ch.Span.IsZero() {
			return nil, ErrUnlocatable
		}
		start, end := expandDeletion(d.source, ch.Span)
		muts = append(muts, Delete(start, end))
	}

	// Matches and insert runs. Consecutive inserted siblings become one
	// mutation so their relative order survives application.
	i := 0
	for i < len(n.Children) {
		ch := n.Children[i]
		if old, ok := oldByID[ch.ID]; ok {
			sub, err := d.diffNode(old, ch)
			if err != nil {
				return nil, err
			}
			muts = append(muts, sub...)
			i++
			continue
		}

		runStart := i
		for i < len(n.Children) {
			if _, ok := oldByID[n.Children[i].ID]; ok {
				break
			}
			i++
		}
		ins, err := d.insertRun(o, n, runStart, i, oldByID)
		if err != nil {
			return nil, err
		}
		muts = append(muts, ins)
	}

	return muts, nil
}

// sharedOrderChanged reports whether children present in both trees
// appear in a different relative order.
func (d *differ) sharedOrderChanged(old, next []*model.MarkupNode, newIDs map[string]bool) bool {
	var oldOrder []string
	for _, ch := range old {
		if newIDs[ch.ID] {
			oldOrder = append(oldOrder, ch.ID)
		}
	}
	oldSet := make(map[string]bool, len(oldOrder))
	for _, id := range oldOrder {
		oldSet[id] = true
	}
	var newOrder []string
	for _, ch := range next {
		if oldSet[ch.ID] {
			newOrder = append(newOrder, ch.ID)
		}
	}
	if len(oldOrder) != len(newOrder) {
		return true
	}
	for i := range oldOrder {
		if oldOrder[i] != newOrder[i] {
			return true
		}
	}
	return false
}

// insertRun builds one insertion for new children [from, to), anchored
// to the nearest positioned sibling.
func (d *differ) insertRun(o, n *model.MarkupNode, from, to int, oldByID map[string]*model.MarkupNode) (Mutation, error) {
	// Preceding anchor: insert after its span.
	for i := from - 1; i >= 0; i-- {
		if anchor, ok := oldByID[n.Children[i].ID]; ok && !anchor.Span.IsZero() {
			indent := lineIndent(d.source, anchor.Span.Start)
			var b strings.Builder
			for j := from; j < to; j++ {
				b.WriteString("\n" + indent)
				b.WriteString(d.renderer.RenderAt(n.Children[j], indent))
			}
			return Insert(anchor.Span.End, b.String()), nil
		}
	}
	// Following anchor: insert before its span.
	for i := to; i < len(n.Children); i++ {
		if anchor, ok := oldByID[n.Children[i].ID]; ok && !anchor.Span.IsZero() {
			indent := lineIndent(d.source, anchor.Span.Start)
			var b strings.Builder
			for j := from; j < to; j++ {
				b.WriteString(d.renderer.RenderAt(n.Children[j], indent))
				b.WriteString("\n" + indent)
			}
			return Insert(anchor.Span.Start, b.String()), nil
		}
	}
	return Mutation{}, ErrUnlocatable
}

// expandDeletion widens a deletion to swallow the indentation and the
// preceding newline when the node sat alone on its line.
func expandDeletion(source string, span model.Span) (int, int) {
	start := span.Start
	for start > 0 && (source[start-1] == ' ' || source[start-1] == '\t') {
		start--
	}
	if start > 0 && source[start-1] == '\n' && lineEmptyBefore(source, start-1, span.Start) {
		start--
	}
	return start, span.End
}

// lineEmptyBefore reports whether only whitespace sits between the
// newline at nl and the original start offset.
func lineEmptyBefore(source string, nl, origStart int) bool {
	for i := nl + 1; i < origStart; i++ {
		if source[i] != ' ' && source[i] != '\t' {
			return false
		}
	}
	return true
}

// lineIndent returns the leading whitespace of the line containing the
// offset.
func lineIndent(source string, off int) string {
	if off > len(source) {
		off = len(source)
	}
	lineStart := strings.LastIndexByte(source[:off], '\n') + 1
	i := lineStart
	for i < len(source) && (source[i] == ' ' || source[i] == '\t') {
		i++
	}
	return source[lineStart:i]
}
