// Package hostfuncs provides the host side of every bridge channel: the file
// stream handlers, the object bridge handler and the registry that routes an
// inbound message on a named channel to its handler.
// Handlers have no transport dependencies; any Channel implementation (in
// memory, websocket, wasm) can feed them.
package hostfuncs
