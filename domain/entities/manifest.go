package entities

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
)

// Default limits applied when the manifest leaves them unset.
const (
	// DefaultMaxPayload bounds a single message (one whole file on read).
	DefaultMaxPayload = 64 * 1024 * 1024
	// DefaultMaxChunk bounds one output chunk posted by the guest.
	DefaultMaxChunk = 256 * 1024
)

// Manifest is the static host configuration for one guest application.
// It is read once at startup and never mutated.
type Manifest struct {
	FS             *FileSystemRules `json:"fs,omitempty" yaml:"fs,omitempty" validate:"omitempty"`
	Limits         Limits           `json:"limits,omitempty" yaml:"limits,omitempty"`
	Name           string           `json:"name" yaml:"name" validate:"required"`
	Permissions    []string         `json:"permissions,omitempty" yaml:"permissions,omitempty" validate:"dive,permission"`
	AllowedOrigins []string         `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty" validate:"dive,required"`
}

// FileSystemRules restricts which paths the stream channels may touch.
// An empty list leaves that direction unrestricted.
type FileSystemRules struct {
	Read  []string `json:"read,omitempty" yaml:"read,omitempty" validate:"dive,glob"`
	Write []string `json:"write,omitempty" yaml:"write,omitempty" validate:"dive,glob"`
}

// Limits caps message sizes.
type Limits struct {
	MaxPayload int `json:"max_payload,omitempty" yaml:"max_payload,omitempty" validate:"gte=0"`
	MaxChunk   int `json:"max_chunk,omitempty" yaml:"max_chunk,omitempty" validate:"gte=0"`
}

// PermissionSet returns the granted flags.
func (m *Manifest) PermissionSet() PermissionSet {
	if m == nil {
		return NewPermissionSet()
	}
	return NewPermissionSet(m.Permissions...)
}

// EffectiveLimits returns the limits with defaults filled in.
func (m *Manifest) EffectiveLimits() Limits {
	l := Limits{MaxPayload: DefaultMaxPayload, MaxChunk: DefaultMaxChunk}
	if m == nil {
		return l
	}
	if m.Limits.MaxPayload > 0 {
		l.MaxPayload = m.Limits.MaxPayload
	}
	if m.Limits.MaxChunk > 0 {
		l.MaxChunk = m.Limits.MaxChunk
	}
	return l
}

// validate is a package-level singleton; building a validator is expensive.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("permission", func(fl validator.FieldLevel) bool {
		return KnownPermission(fl.Field().String())
	})
	_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
		return doublestar.ValidatePattern(fl.Field().String())
	})
	return v
}

// Validate checks the manifest against its struct tags.
func (m *Manifest) Validate() error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}
	return nil
}
