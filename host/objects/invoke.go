package objects

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// results carries a method's multiple return values.
type results []any

// Invoke reads a member or calls a method on the value named by h.
//
// Member resolution, in order: a Dispatcher handles everything itself;
// otherwise a method named member (or with its first letter upper-cased);
// with no arguments, an exported field of that name or a Get<Member> method.
// A method may take a leading context.Context, which is supplied by the
// bridge, and may return a trailing error.
func (t *Table) Invoke(ctx context.Context, h entities.Handle, member string, args []wireformat.ValueWire) (wireformat.ValueWire, error) {
	obj, err := t.Resolve(h)
	if err != nil {
		return wireformat.ValueWire{}, err
	}

	native, err := t.DecodeArgs(args)
	if err != nil {
		return wireformat.ValueWire{}, invocationError(member, err)
	}

	result, err := dispatch(ctx, obj, member, native)
	if err != nil {
		return wireformat.ValueWire{}, invocationError(member, err)
	}

	v, err := t.EncodeResult(result)
	if err != nil {
		return wireformat.ValueWire{}, invocationError(member, err)
	}
	return v, nil
}

// SetField assigns an exported field (or calls a Set<Field> method) on the
// value named by h.
func (t *Table) SetField(ctx context.Context, h entities.Handle, field string, value wireformat.ValueWire) error {
	obj, err := t.Resolve(h)
	if err != nil {
		return err
	}
	arg, err := t.decodeArg(value)
	if err != nil {
		return err
	}

	rv := reflect.ValueOf(obj)
	if f, ok := settableField(rv, field); ok {
		v, err := convertArg(arg, f.Type())
		if err != nil {
			return &bridgeerrors.TypeMismatchError{Member: field, Detail: err.Error()}
		}
		f.Set(v)
		return nil
	}

	if m, ok := findMethod(rv, "Set"+exportName(field)); ok {
		if _, err := callMethod(ctx, m, field, []any{arg}); err != nil {
			return invocationError(field, err)
		}
		return nil
	}

	return &bridgeerrors.FieldNotFoundError{Field: field}
}

// DecodeArgs turns wire values into native arguments, resolving handles.
func (t *Table) DecodeArgs(args []wireformat.ValueWire) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := t.decodeArg(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (t *Table) decodeArg(a wireformat.ValueWire) (any, error) {
	v, err := a.Interface()
	if err != nil {
		return nil, &bridgeerrors.InvalidArgumentError{Argument: "value", Reason: err.Error()}
	}
	return t.resolveHandles(v)
}

func (t *Table) resolveHandles(v any) (any, error) {
	switch x := v.(type) {
	case entities.Handle:
		return t.Resolve(x)
	case []any:
		for i, elem := range x {
			r, err := t.resolveHandles(elem)
			if err != nil {
				return nil, err
			}
			x[i] = r
		}
		return x, nil
	}
	return v, nil
}

// EncodeResult turns a native result into a wire value. Primitives (and
// slices of primitives) travel by value; anything else is registered and
// returned as a pointer.
func (t *Table) EncodeResult(v any) (wireformat.ValueWire, error) {
	if isNil(v) {
		return wireformat.ValueWire{Kind: wireformat.ValueNull}, nil
	}
	if multi, ok := v.(results); ok {
		list := make([]wireformat.ValueWire, len(multi))
		for i, r := range multi {
			elem, err := t.EncodeResult(r)
			if err != nil {
				return wireformat.ValueWire{}, err
			}
			list[i] = elem
		}
		return wireformat.ValueWire{Kind: wireformat.ValueList, List: list}, nil
	}
	if isPrimitiveType(reflect.TypeOf(v)) {
		return wireformat.ValueOf(v)
	}

	h := t.Register(v)
	class, _ := t.Class(h)
	return wireformat.PtrValue(h, class), nil
}

func isPrimitiveType(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice, reflect.Array:
		return isPrimitiveType(rt.Elem())
	}
	return false
}

func dispatch(ctx context.Context, obj any, member string, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if d, ok := obj.(Dispatcher); ok {
		return d.Dispatch(ctx, member, args)
	}

	rv := reflect.ValueOf(obj)
	if m, ok := findMethod(rv, member); ok {
		return callMethod(ctx, m, member, args)
	}
	if len(args) == 0 {
		if f, ok := findField(rv, member); ok {
			return f.Interface(), nil
		}
		if m, ok := findMethod(rv, "Get"+exportName(member)); ok {
			return callMethod(ctx, m, member, nil)
		}
	}
	return nil, fmt.Errorf("%s has no member %q", ClassOf(obj), member)
}

func invocationError(member string, err error) error {
	var inv *bridgeerrors.InvocationError
	if errors.As(err, &inv) {
		return err
	}
	return &bridgeerrors.InvocationError{Member: member, Err: err}
}

func exportName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func findMethod(rv reflect.Value, name string) (reflect.Value, bool) {
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	for _, candidate := range []string{name, exportName(name)} {
		if m := rv.MethodByName(candidate); m.IsValid() {
			return m, true
		}
	}
	return reflect.Value{}, false
}

func structValue(rv reflect.Value) (reflect.Value, bool) {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid() && rv.Kind() == reflect.Struct
}

func findField(rv reflect.Value, name string) (reflect.Value, bool) {
	sv, ok := structValue(rv)
	if !ok {
		return reflect.Value{}, false
	}
	for _, candidate := range []string{name, exportName(name)} {
		sf, ok := sv.Type().FieldByName(candidate)
		if !ok || !sf.IsExported() {
			continue
		}
		f, err := sv.FieldByIndexErr(sf.Index)
		if err != nil {
			continue
		}
		return f, true
	}
	return reflect.Value{}, false
}

func settableField(rv reflect.Value, name string) (reflect.Value, bool) {
	f, ok := findField(rv, name)
	if !ok || !f.CanSet() {
		return reflect.Value{}, false
	}
	return f, true
}

func callMethod(ctx context.Context, m reflect.Value, member string, args []any) (any, error) {
	mt := m.Type()

	var in []reflect.Value
	offset := 0
	if mt.NumIn() > 0 && mt.In(0) == contextType {
		in = append(in, reflect.ValueOf(ctx))
		offset = 1
	}

	fixed := mt.NumIn() - offset
	if mt.IsVariadic() {
		if len(args) < fixed-1 {
			return nil, &bridgeerrors.TypeMismatchError{
				Member: member,
				Detail: fmt.Sprintf("expects at least %d arguments, got %d", fixed-1, len(args)),
			}
		}
	} else if len(args) != fixed {
		return nil, &bridgeerrors.TypeMismatchError{
			Member: member,
			Detail: fmt.Sprintf("expects %d arguments, got %d", fixed, len(args)),
		}
	}

	for i, a := range args {
		var pt reflect.Type
		if mt.IsVariadic() && i >= fixed-1 {
			pt = mt.In(mt.NumIn() - 1).Elem()
		} else {
			pt = mt.In(offset + i)
		}
		v, err := convertArg(a, pt)
		if err != nil {
			return nil, &bridgeerrors.TypeMismatchError{Member: member, Detail: fmt.Sprintf("argument %d: %v", i, err)}
		}
		in = append(in, v)
	}

	return splitResults(m.Call(in))
}

func splitResults(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if !out[n-1].IsNil() {
			return nil, out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	multi := make(results, len(out))
	for i, v := range out {
		multi[i] = v.Interface()
	}
	return multi, nil
}
