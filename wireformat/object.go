package wireformat

import (
	"fmt"
	"reflect"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
)

// ObjectProtocolVersion is the version of the object invocation envelope.
const ObjectProtocolVersion = 1

// Op is the operation requested on the object bridge.
type Op string

const (
	// OpNew constructs a fresh instance of Class.
	OpNew Op = "new"
	// OpGet reads a zero-argument accessor.
	OpGet Op = "get"
	// OpCall invokes a method with positional arguments.
	OpCall Op = "call"
	// OpSet assigns a field. Fire-and-forget on the guest side.
	OpSet Op = "set"
	// OpRelease disposes a handle. Idempotent.
	OpRelease Op = "release"
)

// ObjectRequestWire is one invocation request from guest to host.
// ID correlates the reply; it is required because several invocations may be
// in flight on the same channel.
type ObjectRequestWire struct {
	Value   *ValueWire  `json:"value,omitempty"`
	ID      string      `json:"id" validate:"required"`
	Op      Op          `json:"op" validate:"required,oneof=new get call set release"`
	Handle  string      `json:"handle,omitempty" validate:"required_unless=Op new"`
	Class   string      `json:"class,omitempty" validate:"required_if=Op new"`
	Member  string      `json:"member,omitempty" validate:"required_if=Op get,required_if=Op call,required_if=Op set"`
	Args    []ValueWire `json:"args,omitempty"`
	Version int         `json:"v" validate:"eq=1"`
}

// ObjectResponseWire is the host reply to one ObjectRequestWire.
// Exactly one of Result and Error is set.
type ObjectResponseWire struct {
	Result  *ValueWire            `json:"result,omitempty"`
	Error   *entities.ErrorDetail `json:"error,omitempty"`
	ID      string                `json:"id"`
	Version int                   `json:"v"`
}

// ValueKind tags a ValueWire.
type ValueKind string

const (
	ValueNull   ValueKind = "null"
	ValueBool   ValueKind = "bool"
	ValueInt    ValueKind = "int"
	ValueFloat  ValueKind = "float"
	ValueString ValueKind = "string"
	ValueBytes  ValueKind = "bytes"
	ValueList   ValueKind = "list"
	// ValuePtr carries a remote handle as "ptr:<id>". The tag only has meaning
	// under this kind, so string results starting with "ptr:" stay strings.
	ValuePtr ValueKind = "ptr"
)

// ValueWire is a tagged argument or result value.
type ValueWire struct {
	Kind  ValueKind   `json:"kind"`
	Str   string      `json:"str,omitempty"`
	Ptr   string      `json:"ptr,omitempty"`
	Class string      `json:"class,omitempty"`
	Bytes []byte      `json:"bytes,omitempty"`
	List  []ValueWire `json:"list,omitempty"`
	Int   int64       `json:"int,omitempty"`
	Float float64     `json:"float,omitempty"`
	Bool  bool        `json:"bool,omitempty"`
}

// Handler is implemented by anything that stands for a remote object
// (guest proxies). ValueOf encodes such values as pointers.
type Handler interface {
	Handle() entities.Handle
}

// PtrValue encodes a handle with its class identifier.
func PtrValue(h entities.Handle, class string) ValueWire {
	return ValueWire{Kind: ValuePtr, Ptr: h.Pointer(), Class: class}
}

// ValueOf encodes a Go primitive, a handle or a Handler.
// Other types are rejected; objects cross the bridge by handle only.
func ValueOf(v any) (ValueWire, error) {
	switch x := v.(type) {
	case nil:
		return ValueWire{Kind: ValueNull}, nil
	case ValueWire:
		return x, nil
	case entities.Handle:
		return PtrValue(x, ""), nil
	case Handler:
		return PtrValue(x.Handle(), ""), nil
	case bool:
		return ValueWire{Kind: ValueBool, Bool: x}, nil
	case string:
		return ValueWire{Kind: ValueString, Str: x}, nil
	case []byte:
		return ValueWire{Kind: ValueBytes, Bytes: x}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ValueWire{Kind: ValueInt, Int: rv.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > 1<<63-1 {
			return ValueWire{}, fmt.Errorf("unsigned value %d overflows int64", u)
		}
		return ValueWire{Kind: ValueInt, Int: int64(u)}, nil //nolint:gosec // G115: bounds checked above
	case reflect.Float32, reflect.Float64:
		return ValueWire{Kind: ValueFloat, Float: rv.Float()}, nil
	case reflect.String:
		return ValueWire{Kind: ValueString, Str: rv.String()}, nil
	case reflect.Bool:
		return ValueWire{Kind: ValueBool, Bool: rv.Bool()}, nil
	case reflect.Slice, reflect.Array:
		list := make([]ValueWire, rv.Len())
		for i := range list {
			elem, err := ValueOf(rv.Index(i).Interface())
			if err != nil {
				return ValueWire{}, fmt.Errorf("element %d: %w", i, err)
			}
			list[i] = elem
		}
		return ValueWire{Kind: ValueList, List: list}, nil
	}
	return ValueWire{}, fmt.Errorf("unsupported value type %T", v)
}

// Interface decodes the value into a Go value: nil, bool, int64, float64,
// string, []byte, []any or entities.Handle for pointers.
func (v ValueWire) Interface() (any, error) {
	switch v.Kind {
	case ValueNull, "":
		return nil, nil
	case ValueBool:
		return v.Bool, nil
	case ValueInt:
		return v.Int, nil
	case ValueFloat:
		return v.Float, nil
	case ValueString:
		return v.Str, nil
	case ValueBytes:
		if v.Bytes == nil {
			return []byte{}, nil
		}
		return v.Bytes, nil
	case ValuePtr:
		h, ok := entities.ParsePointer(v.Ptr)
		if !ok {
			return nil, fmt.Errorf("malformed pointer %q", v.Ptr)
		}
		return h, nil
	case ValueList:
		out := make([]any, len(v.List))
		for i, elem := range v.List {
			x, err := elem.Interface()
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = x
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown value kind %q", v.Kind)
}

// IsPtr reports whether the value references a remote object.
func (v ValueWire) IsPtr() bool { return v.Kind == ValuePtr }
