package entities

import (
	"fmt"
	"strconv"
	"strings"
)

// PointerTag prefixes the string form of a handle in invocation results.
const PointerTag = "ptr:"

// Handle names one live remote object for the lifetime of a host session.
// Zero is never allocated and means "no object".
type Handle uint64

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h == 0 }

// String returns the decimal identifier.
func (h Handle) String() string { return strconv.FormatUint(uint64(h), 10) }

// Pointer returns the tagged form, e.g. "ptr:42".
func (h Handle) Pointer() string { return PointerTag + h.String() }

// ParseHandle parses a bare decimal identifier.
func ParseHandle(s string) (Handle, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("invalid handle %q: zero is reserved", s)
	}
	return Handle(v), nil
}

// ParsePointer parses a tagged pointer string. It returns false when s does not
// carry the pointer tag or the identifier is malformed.
func ParsePointer(s string) (Handle, bool) {
	id, ok := strings.CutPrefix(s, PointerTag)
	if !ok {
		return 0, false
	}
	h, err := ParseHandle(id)
	if err != nil {
		return 0, false
	}
	return h, true
}
