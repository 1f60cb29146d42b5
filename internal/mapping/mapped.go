package mapping

import (
	language "github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/schema"
)

// MappedItemSet is a selection set specialized for one concrete object type.
type MappedItemSet struct {
	ObjectType *schema.Type
	Items      []MappedItem
}

// MappedItem is a *MappedField or a *MappedFragmentSpread.
type MappedItem interface {
	RuntimeDirectives() []*RuntimeDirective
}

// MappedField is a field bound to its definition on a concrete object type.
type MappedField struct {
	Key        string
	Field      *schema.Field
	ObjectType *schema.Type
	// ReturnType is the named type of the field, nil for __typename.
	ReturnType *schema.Type
	Resolver   *schema.Resolver
	Args       []*MappedArg
	Directives []*RuntimeDirective
	// Subset is the nested selection, mapped for every concrete type of
	// ReturnType. Nil for leaf fields.
	Subset   *SelectionSet
	Typename bool
	Position *language.Position
}

func (f *MappedField) RuntimeDirectives() []*RuntimeDirective { return f.Directives }

// Type returns the declared type reference of the field.
func (f *MappedField) Type() *schema.TypeRef {
	if f.Typename {
		return schema.NonNullType(schema.NamedType("String"))
	}
	return f.Field.Type
}

// ArgValues evaluates all arguments in declaration order.
func (f *MappedField) ArgValues(ec *EvalContext) ([]any, map[string]any, error) {
	if len(f.Args) == 0 {
		return nil, nil, nil
	}
	list := make([]any, len(f.Args))
	byName := make(map[string]any, len(f.Args))
	for i, a := range f.Args {
		v, err := a.Evaluate(ec)
		if err != nil {
			return nil, nil, err
		}
		list[i] = v
		byName[a.Def.Name] = v
	}
	return list, byName, nil
}

// MappedFragmentSpread splices the mapped items of a fragment for the same
// concrete type.
type MappedFragmentSpread struct {
	Fragment   *FragmentDef
	Items      *MappedItemSet
	Directives []*RuntimeDirective
	Position   *language.Position
}

func (s *MappedFragmentSpread) RuntimeDirectives() []*RuntimeDirective { return s.Directives }

// MappedArg is an argument definition with the evaluator producing its value.
type MappedArg struct {
	Def      *schema.InputValue
	Eval     Evaluator
	Position *language.Position
}

// Evaluate produces the argument value.
func (a *MappedArg) Evaluate(ec *EvalContext) (any, error) {
	v, err := a.Eval.Evaluate(ec)
	if err != nil {
		return nil, locate(err, a.Position)
	}
	return v, nil
}
