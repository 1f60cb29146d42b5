package mapping

import (
	"sort"
	"strings"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	"github.com/hanpama/gqlexec/internal/schema"
)

// analyzeFragments resolves the on-type of every named fragment, checks the
// fields selected at the top level of its body, computes the fragments it
// spreads and their closure, and orders the fragments by dependency level.
//
// Only top-level spreads (including those inside inline fragments) count as
// uses. A spread nested under a field selection is bounded at runtime by
// nullability and depth, so it is not a cycle. A fragment in its own closure
// is a fatal error, returned separately from the per-item errors.
func (m *Mapper) analyzeFragments(defs []*FragmentDef, errs *errorSet) ([]*FragmentDef, error) {
	for _, def := range defs {
		def.OnType = m.resolveOnType(def, errs)
		if def.OnType != nil {
			m.checkFragmentFields(def.SelectionSet, def.OnType, errs)
		}
		def.UsesFragments = map[string]*FragmentDef{}
		collectTopLevelSpreads(def.SelectionSet, def.UsesFragments)
	}

	var fatal error
	for _, def := range defs {
		def.UsesFragmentsAll = closure(def)
		if _, cyclic := def.UsesFragmentsAll[def.Name]; !cyclic {
			continue
		}
		var err gqlerrors.GraphQLError
		if _, self := def.UsesFragments[def.Name]; self {
			err = badRequestf(def.Position, "CircularFragmentReference: fragment %q spreads itself", def.Name)
		} else {
			err = badRequestf(def.Position, "CircularFragmentReference: fragment %q references itself through %s", def.Name, cycleNames(def))
		}
		errs.add(err)
		if fatal == nil {
			fatal = err
		}
	}
	if fatal != nil {
		return nil, fatal
	}

	sorted := append([]*FragmentDef(nil), defs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := sorted[i].Level(), sorted[j].Level()
		if li != lj {
			return li < lj
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted, nil
}

func (m *Mapper) resolveOnType(def *FragmentDef, errs *errorSet) *schema.Type {
	t := m.schema.Types[def.OnTypeName]
	if t == nil {
		errs.add(badRequestf(def.Position, "fragment %q references unknown type %q", def.Name, def.OnTypeName))
		return nil
	}
	if !t.Kind.IsComposite() {
		errs.add(badRequestf(def.Position, "fragment %q cannot condition on non composite type %q", def.Name, t.Name))
		return nil
	}
	return t
}

// checkFragmentFields reports top-level fields that exist neither on onType
// nor, for unions, on any member.
func (m *Mapper) checkFragmentFields(set *SelectionSet, onType *schema.Type, errs *errorSet) {
	if set == nil {
		return
	}
	for _, item := range set.Items {
		switch item := item.(type) {
		case *Field:
			if item.Name == typenameField || m.fieldExistsOn(onType, item.Name) {
				continue
			}
			errs.add(badRequestf(item.Position, "cannot query field %q on type %q", item.Name, onType.Name))
		case *FragmentSpread:
			if item.Inline && item.Fragment.OnTypeName == "" {
				m.checkFragmentFields(item.Fragment.SelectionSet, onType, errs)
			}
		}
	}
}

func (m *Mapper) fieldExistsOn(t *schema.Type, name string) bool {
	if t.Kind != schema.TypeKindUnion {
		return t.Field(name) != nil
	}
	for _, member := range m.schema.ConcreteTypes(t) {
		if member.Field(name) != nil {
			return true
		}
	}
	return false
}

func collectTopLevelSpreads(set *SelectionSet, into map[string]*FragmentDef) {
	if set == nil {
		return
	}
	for _, item := range set.Items {
		spread, ok := item.(*FragmentSpread)
		if !ok || spread.Fragment == nil {
			continue
		}
		if spread.Inline {
			collectTopLevelSpreads(spread.Fragment.SelectionSet, into)
			continue
		}
		into[spread.Name] = spread.Fragment
	}
}

// closure returns every fragment reachable from the direct uses of def.
func closure(def *FragmentDef) map[string]*FragmentDef {
	all := map[string]*FragmentDef{}
	stack := make([]*FragmentDef, 0, len(def.UsesFragments))
	for _, used := range def.UsesFragments {
		stack = append(stack, used)
	}
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := all[next.Name]; ok {
			continue
		}
		all[next.Name] = next
		for _, used := range next.UsesFragments {
			stack = append(stack, used)
		}
	}
	return all
}

func cycleNames(def *FragmentDef) string {
	names := make([]string, 0, len(def.UsesFragmentsAll))
	for name, f := range def.UsesFragmentsAll {
		if _, back := f.UsesFragmentsAll[def.Name]; back && name != def.Name {
			names = append(names, "\""+name+"\"")
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// spreadCompatible reports whether a fragment on fragType may be spread where
// parentType is expected: some object type must be possible for both.
func (m *Mapper) spreadCompatible(parentType, fragType *schema.Type) bool {
	if parentType == fragType {
		return true
	}
	for _, a := range m.schema.ConcreteTypes(parentType) {
		for _, b := range m.schema.ConcreteTypes(fragType) {
			if a == b {
				return true
			}
		}
	}
	return false
}

// appliesTo reports whether a fragment on fragType applies to the concrete
// object type t.
func (m *Mapper) appliesTo(fragType, t *schema.Type) bool {
	switch fragType.Kind {
	case schema.TypeKindObject:
		return fragType == t
	case schema.TypeKindInterface:
		return t.Implements(fragType.Name) || fragType.HasPossibleType(t.Name)
	case schema.TypeKindUnion:
		return fragType.HasPossibleType(t.Name)
	}
	return false
}
