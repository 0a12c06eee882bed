package ports

// DenialHandler is called when a path policy check denies a request.
// Implementations can log, collect metrics, or take other actions.
type DenialHandler interface {
	// OnDenial is called when a file access is denied.
	// op: "read" or "write"
	// path: the path as requested by the guest
	// reason: human-readable denial reason
	OnDenial(op, path, reason string)
}
