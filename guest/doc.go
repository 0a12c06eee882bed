// Package guest is the calling side of the bridge.
//
// A Bridge wraps the channels a host installed (ports.Globals) and offers two
// things on top of them: file streams over FsInputStream and FsOutputStream,
// and remote objects over ObjectBridge.
//
// Channel lookup doubles as the permission check. Asking for a stream or an
// object client on a channel the host did not install fails with a
// PermissionDeniedError before anything is posted.
//
// Every blocking call takes a context.Context. Cancelling it aborts the
// operation; a reply that arrives afterwards is consumed and dropped, never
// handed to a later operation.
package guest
