package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	language "github.com/hanpama/gqlexec/internal/language"
)

// ScalarCodec converts values of a scalar type. ParseLiteral reads a query
// literal, ParseValue reads a variable value, Serialize formats a resolved value
// for output.
type ScalarCodec interface {
	ParseLiteral(v *language.Value) (any, error)
	ParseValue(v any) (any, error)
	Serialize(v any) (any, error)
}

// ScalarFuncs adapts plain functions to ScalarCodec. A nil function passes the
// value through unchanged.
type ScalarFuncs struct {
	Literal func(v *language.Value) (any, error)
	Value   func(v any) (any, error)
	Output  func(v any) (any, error)
}

func (f ScalarFuncs) ParseLiteral(v *language.Value) (any, error) {
	if f.Literal != nil {
		return f.Literal(v)
	}
	return v.Value(nil)
}

func (f ScalarFuncs) ParseValue(v any) (any, error) {
	if f.Value != nil {
		return f.Value(v)
	}
	return v, nil
}

func (f ScalarFuncs) Serialize(v any) (any, error) {
	if f.Output != nil {
		return f.Output(v)
	}
	return v, nil
}

// passThrough is used for custom scalars that have no bound codec.
var passThrough ScalarCodec = ScalarFuncs{}

// Codec returns the scalar codec of t, falling back to a pass-through codec.
func (t *Type) Codec() ScalarCodec {
	if t.Scalar != nil {
		return t.Scalar
	}
	return passThrough
}

var intCodec = ScalarFuncs{
	Literal: func(v *language.Value) (any, error) {
		if v.Kind != language.IntValue {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %s", v.String())
		}
		n, err := strconv.ParseInt(v.Raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %s", v.Raw)
		}
		return int(n), nil
	},
	Value: func(v any) (any, error) {
		if _, ok := v.(string); ok {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %q", v)
		}
		return coerceToInt(v)
	},
	Output: coerceToInt,
}

var floatCodec = ScalarFuncs{
	Literal: func(v *language.Value) (any, error) {
		if v.Kind != language.IntValue && v.Kind != language.FloatValue {
			return nil, fmt.Errorf("Float cannot represent non numeric value: %s", v.String())
		}
		return strconv.ParseFloat(v.Raw, 64)
	},
	Value: func(v any) (any, error) {
		if _, ok := v.(string); ok {
			return nil, fmt.Errorf("Float cannot represent non numeric value: %q", v)
		}
		return coerceToFloat(v)
	},
	Output: coerceToFloat,
}

var stringCodec = ScalarFuncs{
	Literal: func(v *language.Value) (any, error) {
		if v.Kind != language.StringValue && v.Kind != language.BlockValue {
			return nil, fmt.Errorf("String cannot represent a non string value: %s", v.String())
		}
		return v.Raw, nil
	},
	Value: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("String cannot represent a non string value: %v", v)
		}
		return s, nil
	},
	Output: coerceToString,
}

var booleanCodec = ScalarFuncs{
	Literal: func(v *language.Value) (any, error) {
		if v.Kind != language.BooleanValue {
			return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %s", v.String())
		}
		return v.Raw == "true", nil
	},
	Value:  coerceToBoolean,
	Output: coerceToBoolean,
}

var idCodec = ScalarFuncs{
	Literal: func(v *language.Value) (any, error) {
		if v.Kind != language.StringValue && v.Kind != language.IntValue {
			return nil, fmt.Errorf("ID cannot represent a non-string and non-integer value: %s", v.String())
		}
		return v.Raw, nil
	},
	Value: func(v any) (any, error) {
		switch v.(type) {
		case string, int, int32, int64, float64, json.Number:
			return coerceToID(v)
		}
		return nil, fmt.Errorf("ID cannot represent value: %v", v)
	},
	Output: coerceToID,
}

func coerceToInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		if v > math.MaxInt32 || v < math.MinInt32 {
			break
		}
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		if v > math.MaxInt32 {
			break
		}
		return int(v), nil
	case float32:
		return coerceToInt(float64(v))
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			break
		}
		return int(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return coerceToInt(n)
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			return int(n), nil
		}
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			break
		}
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceToString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int32, int64, uint, uint32, uint64, float32, float64, json.Number:
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to String", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	case json.Number:
		return v.String(), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}
