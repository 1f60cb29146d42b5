package mapping

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	"github.com/hanpama/gqlexec/internal/schema"
)

// CoerceVariables converts raw (JSON-decoded) variable values to the declared
// variable types. Variables that are absent and have a default receive it;
// absent variables without one stay absent. Any failure is an input error and
// the request must not execute.
func (op *Operation) CoerceVariables(raw map[string]any) (map[string]any, []gqlerrors.GraphQLError) {
	out := make(map[string]any, len(op.Variables))
	var errs []gqlerrors.GraphQLError
	for _, vd := range op.Variables {
		v, provided := raw[vd.Name]
		if !provided {
			switch {
			case vd.Default != nil:
				dv, err := vd.Default.Evaluate(nil)
				if err != nil {
					errs = append(errs, inputErrorf(vd.Position, "variable $%s: %s", vd.Name, err.Error()))
					continue
				}
				out[vd.Name] = dv
			case vd.Type.IsNonNull():
				errs = append(errs, inputErrorf(vd.Position, "variable $%s of required type %q was not provided", vd.Name, vd.Type.String()))
			}
			continue
		}
		cv, err := op.coerceInput(v, vd.Type, "")
		if err != nil {
			errs = append(errs, inputErrorf(vd.Position, "variable $%s got invalid value %s", vd.Name, err.Error()))
			continue
		}
		out[vd.Name] = cv
	}
	return out, errs
}

// coerceInput converts v to typ. path names the offending position within
// nested values.
func (op *Operation) coerceInput(v any, typ *schema.TypeRef, path string) (any, error) {
	if v == nil {
		if typ.IsNonNull() {
			return nil, pathErr(path, "expected value of type %q, found null", typ.String())
		}
		return nil, nil
	}
	t := typ.Nullable()
	if t.Kind == schema.TypeRefKindList {
		items, ok := v.([]any)
		if !ok {
			item, err := op.coerceInput(v, t.OfType, path)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := op.coerceInput(item, t.OfType, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}

	named := op.Schema.TypeOf(t)
	switch named.Kind {
	case schema.TypeKindScalar:
		cv, err := named.Codec().ParseValue(v)
		if err != nil {
			return nil, pathErr(path, "%s", err.Error())
		}
		return cv, nil
	case schema.TypeKindEnum:
		name, ok := v.(string)
		if !ok {
			return nil, pathErr(path, "enum %q cannot represent non-string value: %v", named.Name, v)
		}
		cv, err := named.ParseEnum(name)
		if err != nil {
			return nil, pathErr(path, "%s", err.Error())
		}
		return cv, nil
	case schema.TypeKindInputObject:
		return op.coerceObject(v, named, path)
	}
	return nil, pathErr(path, "type %q is not an input type", named.Name)
}

func (op *Operation) coerceObject(v any, t *schema.Type, path string) (any, error) {
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, pathErr(path, "expected an object for type %q, found %v", t.Name, v)
	}
	for name := range fields {
		if t.InputField(name) == nil {
			return nil, pathErr(path, "field %q is not defined by type %q", name, t.Name)
		}
	}
	out := make(map[string]any, len(t.InputFields))
	set := 0
	for _, iv := range t.InputFields {
		fv, provided := fields[iv.Name]
		switch {
		case provided:
			cv, err := op.coerceInput(fv, iv.Type, joinPath(path, iv.Name))
			if err != nil {
				return nil, err
			}
			out[iv.Name] = cv
		case iv.HasDefault:
			e, err := op.mapper.defaultOf(iv)
			if err != nil {
				return nil, err
			}
			out[iv.Name], _ = e.Evaluate(nil)
		case iv.Type.IsNonNull():
			return nil, pathErr(path, "MissingRequiredField: field %q of required type %q was not provided", iv.Name, iv.Type.String())
		}
		if out[iv.Name] != nil {
			set++
		}
	}
	if t.OneOf && set != 1 {
		return nil, pathErr(path, "OneOf input object %q must specify exactly one non-null field", t.Name)
	}
	return out, nil
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func pathErr(path, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = "at " + path + ": " + msg
	}
	return errors.New(msg)
}
