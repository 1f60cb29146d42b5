package executor

import "github.com/hanpama/gqlexec/internal/schema"

// propagateNulls replaces values holding a null in a non-null position with
// null, up to the nearest nullable ancestor. The second result reports that v
// itself sits in a non-null position and became null, so the caller must null
// its own position.
func propagateNulls(v any, typ *schema.TypeRef) (any, bool) {
	if typ.IsNonNull() {
		out, bubble := propagateNulls(v, typ.Unwrap())
		if bubble || out == nil {
			return nil, true
		}
		return out, false
	}
	switch v := v.(type) {
	case *OutputObjectScope:
		for _, e := range v.entries {
			if e.merged || e.field == nil {
				continue
			}
			out, bubble := propagateNulls(e.value, e.field.Type())
			if bubble {
				return nil, false
			}
			e.value = out
		}
		return v, false
	case []any:
		if !typ.IsList() {
			return v, false
		}
		inner := typ.Unwrap()
		for i := range v {
			out, bubble := propagateNulls(v[i], inner)
			if bubble {
				return nil, false
			}
			v[i] = out
		}
		return v, false
	}
	return v, false
}
