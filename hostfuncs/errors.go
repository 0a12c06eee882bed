package hostfuncs

import (
	"fmt"

	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// Failure details shared by the stream handlers. The wording follows the
// reference host so guests written against it keep matching.
const (
	detailEmptyPath       = "Path was empty."
	detailFileMissing     = "File does not exist."
	detailNotRegular      = "Not a regular file."
	detailPathNotSet      = "Path not set before sending chunk."
	detailAccessDenied    = "Access denied: %s"
	detailUnsupported     = "Unsupported message type: %s"
	detailPayloadTooLarge = "Payload exceeds the %s limit."
)

// NewUnsupportedFailure replies to a payload kind the channel does not accept.
// Replying (rather than dropping) keeps the guest from waiting forever.
func NewUnsupportedFailure(kind wireformat.Kind) wireformat.Message {
	return wireformat.Failure(fmt.Sprintf(detailUnsupported, kind))
}

// NewPanicFailure creates a failure reply for recovered panics.
func NewPanicFailure(panicValue any) wireformat.Message {
	var msg string
	if err, ok := panicValue.(error); ok {
		msg = err.Error()
	} else if s, ok := panicValue.(string); ok {
		msg = s
	} else {
		msg = "panic recovered"
	}
	return wireformat.Failure("panic: " + msg)
}
