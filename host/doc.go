// Package host assembles the native side of the bridge.
//
// A Host is built once from a manifest: the manifest permissions decide which
// named channels are installed, its fs rules become the path policy and its
// limits bound payload sizes. Every guest connection gets its own Session
// with fresh stream handlers and a private handle table, so nothing a guest
// creates outlives its connection.
//
// Sessions are transport agnostic. Bind attaches one to any ports.Channel
// (in-memory pairs, websockets), and Invoke serves frames directly for WASM
// guests through infrastructure/wazero.
package host
