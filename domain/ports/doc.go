// Package ports defines the interfaces the bridge depends on.
// Transports (in-memory, websocket, wasm) implement Channel and Globals;
// configuration sources implement ManifestParser and TemplateEngine.
package ports
