package objects

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a new native instance. Arguments are already decoded:
// primitives as bool, int64, float64, string, []byte or []any, and handles
// resolved to the values they name.
type Constructor func(ctx context.Context, args []any) (any, error)

// registryConfig holds configuration for the ClassRegistry.
type registryConfig struct {
	strictMode bool // Fail on duplicate registrations
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		strictMode: true,
	}
}

// RegistryOption configures a ClassRegistry instance.
type RegistryOption func(*registryConfig)

// WithStrictMode enables/disables strict mode for duplicate registrations.
// Default is true (fail on duplicates). Disable only for testing or hot-reloading.
func WithStrictMode(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.strictMode = enabled
	}
}

// ClassRegistry maps class identifiers to constructors. It is shared by every
// host session and safe for concurrent use.
type ClassRegistry struct {
	config  registryConfig
	classes sync.Map // map[string]Constructor
}

// NewClassRegistry creates a new ClassRegistry with the given options.
func NewClassRegistry(opts ...RegistryOption) *ClassRegistry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ClassRegistry{config: cfg}
}

// Register adds a constructible class.
func (r *ClassRegistry) Register(class string, ctor Constructor) error {
	if class == "" {
		return fmt.Errorf("class name cannot be empty")
	}
	if ctor == nil {
		return fmt.Errorf("constructor for class %q is nil", class)
	}
	if r.config.strictMode {
		if _, exists := r.classes.Load(class); exists {
			return fmt.Errorf("class %q already registered", class)
		}
	}
	r.classes.Store(class, ctor)
	return nil
}

// MustRegister is Register for static setup code; it panics on error.
func (r *ClassRegistry) MustRegister(class string, ctor Constructor) *ClassRegistry {
	if err := r.Register(class, ctor); err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the constructor for a class.
func (r *ClassRegistry) Lookup(class string) (Constructor, bool) {
	v, ok := r.classes.Load(class)
	if !ok {
		return nil, false
	}
	return v.(Constructor), true
}

// List returns all registered class names, sorted.
func (r *ClassRegistry) List() []string {
	var keys []string
	r.classes.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Singleton returns a constructor that always yields v. Useful for exposing
// process-wide objects (the current application context, for instance).
func Singleton(v any) Constructor {
	return func(context.Context, []any) (any, error) {
		return v, nil
	}
}
