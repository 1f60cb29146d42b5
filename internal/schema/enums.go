package schema

import (
	"fmt"
	"reflect"
)

// EnumValue returns the enum value definition with the given name, or nil.
func (t *Type) EnumValue(name string) *EnumValue {
	for _, v := range t.EnumValues {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// ParseEnum converts an enum value name to its host value. Values without a
// bound host value are represented by their name.
func (t *Type) ParseEnum(name string) (any, error) {
	ev := t.EnumValue(name)
	if ev == nil {
		return nil, fmt.Errorf("value %q does not exist in %q enum", name, t.Name)
	}
	if ev.Value == nil {
		return ev.Name, nil
	}
	return ev.Value, nil
}

// SerializeEnum converts a host value to its enum name. Flag-set enums produce
// the list of names whose bits are set, in declaration order.
func (t *Type) SerializeEnum(v any) (any, error) {
	if t.FlagSet {
		bits, ok := toBits(v)
		if !ok {
			return nil, fmt.Errorf("enum %q cannot represent flags %v (%T)", t.Name, v, v)
		}
		names := []any{}
		for _, ev := range t.EnumValues {
			b, _ := toBits(ev.Value)
			if b != 0 && bits&b == b {
				names = append(names, ev.Name)
			}
		}
		return names, nil
	}
	for _, ev := range t.EnumValues {
		if ev.Value == nil {
			if s, ok := asString(v); ok && s == ev.Name {
				return ev.Name, nil
			}
			continue
		}
		if reflect.DeepEqual(ev.Value, v) {
			return ev.Name, nil
		}
	}
	return nil, fmt.Errorf("enum %q cannot represent value: %v", t.Name, v)
}

// CombineFlagValues folds host values of a flag-set enum into a single value.
// An empty list yields the zero flag value.
func (t *Type) CombineFlagValues(values []any) (any, error) {
	if t.CombineFlags != nil {
		return t.CombineFlags(values)
	}
	var bits uint64
	for _, v := range values {
		b, ok := toBits(v)
		if !ok {
			return nil, fmt.Errorf("enum %q cannot combine value %v (%T)", t.Name, v, v)
		}
		bits |= b
	}
	return bits, nil
}

// maxFlagValues is the number of bits in a flag set mask.
const maxFlagValues = 64

// assignFlagBits gives every value of a flag-set enum without a host value its
// own bit, in declaration order. Values past the mask width stay unassigned;
// Finalize rejects such enums.
func (t *Type) assignFlagBits() {
	for i, ev := range t.EnumValues {
		if ev.Value == nil && i < maxFlagValues {
			ev.Value = uint64(1) << uint(i)
		}
	}
}

func toBits(v any) (uint64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return 0, false
		}
		return uint64(rv.Int()), true
	}
	return 0, false
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
