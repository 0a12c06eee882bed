package objects

import (
	"fmt"
	"math"
	"reflect"
)

// convertArg converts a decoded bridge value to a Go parameter type.
// Decoded values are nil, bool, int64, float64, string, []byte, []any or a
// native value resolved from a handle.
func convertArg(v any, target reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch target.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, fmt.Errorf("null is not assignable to %s", target)
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}

	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.Bool:
		if b, ok := v.(bool); ok {
			out.SetBool(b)
			return out, nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := asInt(v); ok {
			if out.OverflowInt(n) {
				return reflect.Value{}, fmt.Errorf("%d overflows %s", n, target)
			}
			out.SetInt(n)
			return out, nil
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n, ok := asInt(v); ok {
			if n < 0 || out.OverflowUint(uint64(n)) {
				return reflect.Value{}, fmt.Errorf("%d overflows %s", n, target)
			}
			out.SetUint(uint64(n))
			return out, nil
		}

	case reflect.Float32, reflect.Float64:
		if f, ok := asFloat(v); ok {
			if out.OverflowFloat(f) {
				return reflect.Value{}, fmt.Errorf("%g overflows %s", f, target)
			}
			out.SetFloat(f)
			return out, nil
		}

	case reflect.String:
		switch x := v.(type) {
		case string:
			out.SetString(x)
			return out, nil
		case []byte:
			out.SetString(string(x))
			return out, nil
		}

	case reflect.Slice:
		if target.Elem().Kind() == reflect.Uint8 {
			switch x := v.(type) {
			case []byte:
				return reflect.ValueOf(x).Convert(target), nil
			case string:
				return reflect.ValueOf([]byte(x)).Convert(target), nil
			}
		}
		if list, ok := v.([]any); ok {
			s := reflect.MakeSlice(target, len(list), len(list))
			for i, elem := range list {
				ev, err := convertArg(elem, target.Elem())
				if err != nil {
					return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
				}
				s.Index(i).Set(ev)
			}
			return s, nil
		}

	case reflect.Array:
		if list, ok := v.([]any); ok && len(list) == target.Len() {
			for i, elem := range list {
				ev, err := convertArg(elem, target.Elem())
				if err != nil {
					return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}
	}

	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", describe(v), target)
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func describe(v any) string {
	switch v.(type) {
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case []byte:
		return "bytes"
	case bool:
		return "bool"
	case []any:
		return "list"
	}
	return reflect.TypeOf(v).String()
}
