package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render prints s as SDL. Types and directives come out sorted by name;
// built-in scalars, built-in directives and introspection meta-types and
// meta-fields are left out.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	r := &renderer{s: s}
	r.schemaBlock()

	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		if IsBuiltinScalar(name) || isMetaName(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.typeDef(s.Types[name])
	}

	directives := make([]string, 0, len(s.Directives))
	for name := range s.Directives {
		if !isBuiltinDirective(name) {
			directives = append(directives, name)
		}
	}
	sort.Strings(directives)
	for _, name := range directives {
		r.directiveDef(s.Directives[name])
	}
	return strings.TrimRight(r.b.String(), "\n") + "\n"
}

func isMetaName(name string) bool { return strings.HasPrefix(name, "__") }

func isBuiltinDirective(name string) bool {
	switch name {
	case "skip", "include", "deprecated", "flags", "specifiedBy", "oneOf", "defer":
		return true
	}
	return false
}

type renderer struct {
	s *Schema
	b strings.Builder
}

// schemaBlock writes the schema definition only when a root type does not
// carry its conventional name.
func (r *renderer) schemaBlock() {
	s := r.s
	if (s.QueryType == "" || s.QueryType == "Query") &&
		(s.MutationType == "" || s.MutationType == "Mutation") &&
		(s.SubscriptionType == "" || s.SubscriptionType == "Subscription") &&
		s.Description == "" {
		return
	}
	r.description(s.Description, "")
	r.b.WriteString("schema {\n")
	for _, root := range [][2]string{{"query", s.QueryType}, {"mutation", s.MutationType}, {"subscription", s.SubscriptionType}} {
		if root[1] != "" {
			fmt.Fprintf(&r.b, "  %s: %s\n", root[0], root[1])
		}
	}
	r.b.WriteString("}\n\n")
}

func (r *renderer) typeDef(t *Type) {
	r.description(t.Description, "")
	switch t.Kind {
	case TypeKindScalar:
		r.b.WriteString("scalar " + t.Name)
		if t.SpecifiedByURL != nil {
			r.b.WriteString(` @specifiedBy(url: ` + strconv.Quote(*t.SpecifiedByURL) + `)`)
		}
		r.b.WriteString("\n\n")
	case TypeKindEnum:
		r.b.WriteString("enum " + t.Name)
		if t.FlagSet {
			r.b.WriteString(" @flags")
		}
		r.b.WriteString(" {\n")
		for _, v := range t.EnumValues {
			r.description(v.Description, "  ")
			r.b.WriteString("  " + v.Name)
			r.deprecation(v.IsDeprecated, v.DeprecationReason)
			r.b.WriteString("\n")
		}
		r.b.WriteString("}\n\n")
	case TypeKindInputObject:
		r.b.WriteString("input " + t.Name)
		if t.OneOf {
			r.b.WriteString(" @oneOf")
		}
		r.b.WriteString(" {\n")
		for _, f := range t.InputFields {
			r.description(f.Description, "  ")
			r.b.WriteString("  " + r.inputValue(f) + "\n")
		}
		r.b.WriteString("}\n\n")
	case TypeKindObject, TypeKindInterface:
		keyword := "type "
		if t.Kind == TypeKindInterface {
			keyword = "interface "
		}
		r.b.WriteString(keyword + t.Name)
		if len(t.Interfaces) > 0 {
			r.b.WriteString(" implements " + strings.Join(t.Interfaces, " & "))
		}
		r.b.WriteString(" {\n")
		for _, f := range t.Fields {
			if !isMetaName(f.Name) {
				r.field(f)
			}
		}
		r.b.WriteString("}\n\n")
	case TypeKindUnion:
		r.b.WriteString("union " + t.Name + " = " + strings.Join(t.PossibleTypes, " | ") + "\n\n")
	}
}

func (r *renderer) field(f *Field) {
	r.description(f.Description, "  ")
	r.b.WriteString("  " + f.Name + r.arguments(f.Arguments) + ": " + f.Type.String())
	r.deprecation(f.IsDeprecated, f.DeprecationReason)
	r.b.WriteString("\n")
}

func (r *renderer) directiveDef(d *Directive) {
	r.description(d.Description, "")
	r.b.WriteString("directive @" + d.Name + r.arguments(d.Arguments))
	if d.IsRepeatable {
		r.b.WriteString(" repeatable")
	}
	r.b.WriteString(" on " + strings.Join(d.Locations, " | ") + "\n\n")
}

func (r *renderer) arguments(args []*InputValue) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = r.inputValue(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (r *renderer) inputValue(v *InputValue) string {
	out := v.Name + ": " + v.Type.String()
	switch {
	case v.DefaultLiteral != nil:
		out += " = " + v.DefaultLiteral.String()
	case v.HasDefault:
		out += " = " + r.value(v.Type, v.DefaultValue)
	}
	if v.IsDeprecated {
		var b strings.Builder
		r.deprecationTo(&b, v.DeprecationReason)
		out += b.String()
	}
	return out
}

// value prints a host default as a GraphQL literal. Enum names print bare.
func (r *renderer) value(ref *TypeRef, v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		if t := r.s.TypeOf(ref); t != nil && t.Kind == TypeKindEnum {
			return v
		}
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		inner := ref
		if ref != nil {
			inner = ref.Nullable().Unwrap()
		}
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = r.value(inner, item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var fields *Type
		if ref != nil {
			fields = r.s.TypeOf(ref)
		}
		parts := make([]string, len(keys))
		for i, k := range keys {
			var fieldType *TypeRef
			if fields != nil {
				if f := fields.InputField(k); f != nil {
					fieldType = f.Type
				}
			}
			parts[i] = k + ": " + r.value(fieldType, v[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

func (r *renderer) deprecation(deprecated bool, reason string) {
	if deprecated {
		r.deprecationTo(&r.b, reason)
	}
}

func (r *renderer) deprecationTo(b *strings.Builder, reason string) {
	b.WriteString(" @deprecated")
	if reason != "" && reason != DefaultDeprecationReason {
		b.WriteString("(reason: " + strconv.Quote(reason) + ")")
	}
}

func (r *renderer) description(desc, indent string) {
	if desc == "" {
		return
	}
	if !strings.Contains(desc, "\n") {
		r.b.WriteString(indent + strconv.Quote(desc) + "\n")
		return
	}
	r.b.WriteString(indent + `"""` + "\n")
	for _, line := range strings.Split(strings.ReplaceAll(desc, `"""`, `\"""`), "\n") {
		r.b.WriteString(indent + line + "\n")
	}
	r.b.WriteString(indent + `"""` + "\n")
}
