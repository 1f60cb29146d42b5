package executor

// mergeScope merges sibling entries sharing a key whose field is object-typed:
// the second entry's sub-scope is appended to the first and the second is
// dropped. Leaf-typed duplicates stay separate. Nested scopes and lists are
// merged recursively.
func mergeScope(s *OutputObjectScope) {
	if s == nil {
		return
	}
	for i := 0; i < len(s.entries); i++ {
		e := s.entries[i]
		if e.merged || !e.composite() {
			continue
		}
		for _, other := range s.entries[i+1:] {
			if other.merged || other.key != e.key || !other.composite() {
				continue
			}
			if mergeable(e.value, other.value) {
				mergeValues(e.value, other.value)
				other.merged = true
			}
		}
	}
	for _, e := range s.entries {
		if !e.merged {
			mergeChildren(e.value)
		}
	}
}

func (e *outputEntry) composite() bool {
	return e.field != nil && !e.field.Typename && e.field.ReturnType != nil && e.field.ReturnType.Kind.IsComposite()
}

// mergeable reports whether a and b have the same shape: both scopes, or
// lists of equal length whose elements are pairwise mergeable or both null.
func mergeable(a, b any) bool {
	switch a := a.(type) {
	case *OutputObjectScope:
		_, ok := b.(*OutputObjectScope)
		return ok
	case []any:
		bl, ok := b.([]any)
		if !ok || len(a) != len(bl) {
			return false
		}
		for i := range a {
			if a[i] == nil && bl[i] == nil {
				continue
			}
			if !mergeable(a[i], bl[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func mergeValues(a, b any) {
	switch a := a.(type) {
	case *OutputObjectScope:
		a.entries = append(a.entries, b.(*OutputObjectScope).entries...)
	case []any:
		bl := b.([]any)
		for i := range a {
			if a[i] != nil {
				mergeValues(a[i], bl[i])
			}
		}
	}
}

func mergeChildren(v any) {
	switch v := v.(type) {
	case *OutputObjectScope:
		mergeScope(v)
	case []any:
		for _, item := range v {
			mergeChildren(item)
		}
	}
}
