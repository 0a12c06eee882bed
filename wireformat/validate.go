package wireformat

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the envelope shape before any dispatch.
func (r *ObjectRequestWire) Validate() error {
	if r == nil {
		return fmt.Errorf("object request is nil")
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("object request validation failed: %w", err)
	}
	return nil
}
