package simserver

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/psim/types"
)

// ErrInvalidValue is returned when a wire value cannot be converted to a
// field's value type.
var ErrInvalidValue = errors.New("simserver: invalid value")

var (
	typeBoolean = reflect.TypeFor[types.Boolean]()
	typeInteger = reflect.TypeFor[types.Integer]()
	typeReal    = reflect.TypeFor[types.Real]()
	typeString  = reflect.TypeFor[types.String]()
	typeVector2 = reflect.TypeFor[types.Vector2]()
	typeVector3 = reflect.TypeFor[types.Vector3]()
	typeVector4 = reflect.TypeFor[types.Vector4]()
	typeMatrix  = reflect.TypeFor[types.Matrix]()
)

// EncodeValue converts a field value to its wire form. Integers travel as
// decimal strings so that 64-bit values survive JSON transcoding.
func EncodeValue(v any) (*structpb.Value, error) {
	switch x := v.(type) {
	case types.Boolean:
		return structpb.NewBoolValue(x), nil
	case types.Integer:
		return structpb.NewStringValue(strconv.FormatInt(x, 10)), nil
	case types.Real:
		return structpb.NewNumberValue(x), nil
	case types.String:
		return structpb.NewStringValue(x), nil
	case types.Vector2:
		return numberList(x[:]), nil
	case types.Vector3:
		return numberList(x[:]), nil
	case types.Vector4:
		return numberList(x[:]), nil
	case types.Matrix:
		if x == nil {
			return structpb.NewNullValue(), nil
		}
		rows := types.MatrixRows(x)
		out := make([]*structpb.Value, len(rows))
		for i, r := range rows {
			out[i] = numberList(r)
		}
		return structpb.NewListValue(&structpb.ListValue{Values: out}), nil
	}
	return nil, fmt.Errorf("%w: unsupported value type %T", ErrInvalidValue, v)
}

func numberList(c []float64) *structpb.Value {
	out := make([]*structpb.Value, len(c))
	for i, x := range c {
		out[i] = structpb.NewNumberValue(x)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: out})
}

// DecodeValue converts a wire value into a value of type t.
func DecodeValue(t reflect.Type, v *structpb.Value) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: missing value", ErrInvalidValue)
	}
	switch t {
	case typeBoolean:
		b, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, mismatch(t, v)
		}
		return b.BoolValue, nil
	case typeInteger:
		switch k := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			i, err := strconv.ParseInt(k.StringValue, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, k.StringValue)
			}
			return i, nil
		case *structpb.Value_NumberValue:
			n := k.NumberValue
			if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
				return nil, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, n)
			}
			return int64(n), nil
		}
		return nil, mismatch(t, v)
	case typeReal:
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, mismatch(t, v)
		}
		return n.NumberValue, nil
	case typeString:
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, mismatch(t, v)
		}
		return s.StringValue, nil
	case typeVector2:
		c, err := numbers(v, 2)
		if err != nil {
			return nil, err
		}
		return types.Vector2(c), nil
	case typeVector3:
		c, err := numbers(v, 3)
		if err != nil {
			return nil, err
		}
		return types.Vector3(c), nil
	case typeVector4:
		c, err := numbers(v, 4)
		if err != nil {
			return nil, err
		}
		return types.Vector4(c), nil
	case typeMatrix:
		l, ok := v.GetKind().(*structpb.Value_ListValue)
		if !ok {
			return nil, mismatch(t, v)
		}
		rows := make([][]float64, len(l.ListValue.GetValues()))
		for i, row := range l.ListValue.GetValues() {
			r, err := numbers(row, -1)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			rows[i] = r
		}
		m, err := types.NewMatrix(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: unsupported field type %s", ErrInvalidValue, t)
}

// numbers reads a list of numbers. n < 0 accepts any length.
func numbers(v *structpb.Value, n int) ([]float64, error) {
	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: want a list of numbers", ErrInvalidValue)
	}
	vals := l.ListValue.GetValues()
	if n >= 0 && len(vals) != n {
		return nil, fmt.Errorf("%w: want %d components, got %d", ErrInvalidValue, n, len(vals))
	}
	out := make([]float64, len(vals))
	for i, e := range vals {
		num, ok := e.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("%w: component %d is not a number", ErrInvalidValue, i)
		}
		out[i] = num.NumberValue
	}
	return out, nil
}

func mismatch(t reflect.Type, v *structpb.Value) error {
	return fmt.Errorf("%w: cannot use %T as %s", ErrInvalidValue, v.GetKind(), t)
}
