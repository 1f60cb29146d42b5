package mapping

import (
	language "github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/schema"
)

// SelectionSet is the request-side `{ ... }` block. It owns one MappedItemSet
// per concrete object type it was mapped against.
type SelectionSet struct {
	Items    []SelectionItem
	Position *language.Position

	mapped map[string]*MappedItemSet
}

// ItemsFor returns the mapped items for the concrete object type t, or nil if
// the set was never mapped against t.
func (s *SelectionSet) ItemsFor(t *schema.Type) *MappedItemSet {
	if s == nil || t == nil {
		return nil
	}
	return s.mapped[t.Name]
}

// SelectionItem is a Field or a FragmentSpread.
type SelectionItem interface {
	Pos() *language.Position
}

// Field is a field selection as written in the request.
type Field struct {
	Alias        string
	Name         string
	Arguments    language.ArgumentList
	Directives   language.DirectiveList
	SelectionSet *SelectionSet
	Position     *language.Position
}

func (f *Field) Pos() *language.Position { return f.Position }

// Key returns the response key of the field.
func (f *Field) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// FragmentSpread is a named spread or an inline fragment. Inline fragments
// point at a fragment definition synthesized for the site.
type FragmentSpread struct {
	Name       string
	Inline     bool
	Directives language.DirectiveList
	Fragment   *FragmentDef
	Position   *language.Position
}

func (s *FragmentSpread) Pos() *language.Position { return s.Position }

// FragmentDef is a named fragment, or the synthesized definition of an inline
// fragment.
type FragmentDef struct {
	Name         string
	Inline       bool
	OnTypeName   string
	OnType       *schema.Type
	Directives   language.DirectiveList
	SelectionSet *SelectionSet
	Position     *language.Position

	// UsesFragments holds the fragments spread directly at the top level of
	// the body, UsesFragmentsAll its transitive closure.
	UsesFragments    map[string]*FragmentDef
	UsesFragmentsAll map[string]*FragmentDef

	level int
}

// Level is the dependency depth of the fragment: one more than the deepest
// fragment it spreads at the top level. It is valid once the analyzer ran.
func (d *FragmentDef) Level() int {
	if d.level == 0 {
		d.level = 1
		for _, used := range d.UsesFragments {
			if l := used.Level() + 1; l > d.level {
				d.level = l
			}
		}
	}
	return d.level
}

// VariableDef is a declared operation variable. Default is a constant
// evaluator resolved once at mapping time.
type VariableDef struct {
	Name       string
	Type       *schema.TypeRef
	Default    Evaluator
	Directives language.DirectiveList
	Position   *language.Position
}

// Operation is a mapped operation ready for execution.
type Operation struct {
	Name         string
	Kind         language.Operation
	RootType     *schema.Type
	Variables    []*VariableDef
	SelectionSet *SelectionSet
	// Fragments lists the named fragments of the document ordered by
	// dependency level, then name.
	Fragments []*FragmentDef
	Schema    *schema.Schema
	Position  *language.Position

	mapper *Mapper
}

// RootItems returns the mapped items of the root selection set.
func (op *Operation) RootItems() *MappedItemSet {
	return op.SelectionSet.ItemsFor(op.RootType)
}

// buildSelectionSet converts a parsed selection set into the request model.
// Named spreads are linked to fragments by name; inline fragments get a
// synthesized definition.
func buildSelectionSet(set language.SelectionSet, fragments map[string]*FragmentDef, pos *language.Position) *SelectionSet {
	if set == nil {
		return nil
	}
	out := &SelectionSet{Items: make([]SelectionItem, 0, len(set)), Position: pos}
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			out.Items = append(out.Items, &Field{
				Alias:        sel.Alias,
				Name:         sel.Name,
				Arguments:    sel.Arguments,
				Directives:   sel.Directives,
				SelectionSet: buildSelectionSet(sel.SelectionSet, fragments, sel.Position),
				Position:     sel.Position,
			})
		case *language.FragmentSpread:
			out.Items = append(out.Items, &FragmentSpread{
				Name:       sel.Name,
				Directives: sel.Directives,
				Fragment:   fragments[sel.Name],
				Position:   sel.Position,
			})
		case *language.InlineFragment:
			out.Items = append(out.Items, &FragmentSpread{
				Inline:     true,
				Directives: sel.Directives,
				Fragment: &FragmentDef{
					Inline:       true,
					OnTypeName:   sel.TypeCondition,
					SelectionSet: buildSelectionSet(sel.SelectionSet, fragments, sel.Position),
					Position:     sel.Position,
				},
				Position: sel.Position,
			})
		}
	}
	return out
}
