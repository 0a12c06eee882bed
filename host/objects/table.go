package objects

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"go.uber.org/multierr"
)

// Disposer is implemented by native values that hold resources. The table
// disposes a value once the last handle naming it is released.
type Disposer interface {
	Dispose() error
}

// ClassNamer lets a native value choose the class identifier reported to the
// guest. Values without it are named after their Go type.
type ClassNamer interface {
	ClassName() string
}

// Dispatcher lets a native value serve member access through its own explicit
// table instead of reflection.
type Dispatcher interface {
	Dispatch(ctx context.Context, member string, args []any) (any, error)
}

// tableConfig holds configuration for the Table.
type tableConfig struct {
	classes *ClassRegistry
	logger  *slog.Logger
}

// TableOption configures a Table.
type TableOption func(*tableConfig)

// WithClasses sets the registry used by Construct.
func WithClasses(r *ClassRegistry) TableOption {
	return func(c *tableConfig) {
		if r != nil {
			c.classes = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) TableOption {
	return func(c *tableConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

type entry struct {
	value any
	class string
}

// Table is the handle table of one host session. Handles increase
// monotonically and are never reused, so a stale handle can never alias a
// newer object. All methods are safe for concurrent use.
type Table struct {
	config  tableConfig
	mu      sync.Mutex
	next    entities.Handle
	entries map[entities.Handle]entry
	refs    map[any]int // live handles per shared pointer, for disposal
}

// NewTable creates an empty handle table.
func NewTable(opts ...TableOption) *Table {
	cfg := tableConfig{
		classes: NewClassRegistry(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Table{
		config:  cfg,
		entries: make(map[entities.Handle]entry),
		refs:    make(map[any]int),
	}
}

// Register stores v under a fresh handle.
func (t *Table) Register(v any) entities.Handle {
	return t.register(v, ClassOf(v))
}

func (t *Table) register(v any, class string) entities.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	h := t.next
	t.entries[h] = entry{value: v, class: class}
	if shared(v) {
		t.refs[v]++
	}
	return h
}

// Resolve returns the value a handle names.
func (t *Table) Resolve(h entities.Handle) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[h]
	if !ok {
		return nil, &bridgeerrors.HandleNotFoundError{Handle: h}
	}
	return e.value, nil
}

// Class returns the class identifier recorded for a handle.
func (t *Table) Class(h entities.Handle) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[h]
	return e.class, ok
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Handles returns the live handles in allocation order.
func (t *Table) Handles() []entities.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]entities.Handle, 0, len(t.entries))
	for h := range t.entries {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Release drops a handle. Releasing an unknown or already released handle is
// a no-op. The error, if any, comes from disposing the value.
func (t *Table) Release(h entities.Handle) error {
	v, dispose := t.remove(h)
	if !dispose {
		return nil
	}
	return disposeValue(v)
}

func (t *Table) remove(h entities.Handle) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[h]
	if !ok {
		return nil, false
	}
	delete(t.entries, h)

	if !shared(e.value) {
		return e.value, true
	}
	t.refs[e.value]--
	if t.refs[e.value] > 0 {
		return nil, false
	}
	delete(t.refs, e.value)
	return e.value, true
}

// ReleaseAll drops every handle, disposing values. Used at session teardown.
func (t *Table) ReleaseAll() error {
	var err error
	for _, h := range t.Handles() {
		if rerr := t.Release(h); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("release handle %s: %w", h, rerr))
		}
	}
	return err
}

// Construct builds an instance of a registered class and registers it.
func (t *Table) Construct(ctx context.Context, class string, args []any) (entities.Handle, error) {
	ctor, ok := t.config.classes.Lookup(class)
	if !ok {
		return 0, &bridgeerrors.InvocationError{Member: MemberInit, Err: fmt.Errorf("unknown class %q", class)}
	}

	v, err := safeConstruct(ctx, ctor, args)
	if err != nil {
		return 0, &bridgeerrors.InvocationError{Member: MemberInit, Err: err}
	}
	if isNil(v) {
		return 0, &bridgeerrors.InvocationError{Member: MemberInit, Err: fmt.Errorf("constructor for %q returned nil", class)}
	}

	h := t.register(v, class)
	t.config.logger.DebugContext(ctx, "objects: constructed", "class", class, "handle", h.String())
	return h, nil
}

// MemberInit names the constructor in invocation errors.
const MemberInit = "<init>"

func safeConstruct(ctx context.Context, ctor Constructor, args []any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return ctor(ctx, args)
}

func disposeValue(v any) error {
	if d, ok := v.(Disposer); ok {
		return d.Dispose()
	}
	return nil
}

// ClassOf returns the class identifier for a native value.
func ClassOf(v any) string {
	if n, ok := v.(ClassNamer); ok {
		return n.ClassName()
	}
	if v == nil {
		return ""
	}
	return reflect.TypeOf(v).String()
}

// shared reports whether several handles may name the same value. Only
// pointers are tracked; other values are copies and disposed per handle.
func shared(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Pointer
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
