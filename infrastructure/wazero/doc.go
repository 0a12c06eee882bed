// Package wazero exposes bridge channels to WebAssembly guests running under
// the wazero runtime.
//
// A WASM guest has no callbacks, so each installed channel becomes one host
// function taking and returning a packed i64 (pointer in the upper 32 bits,
// length in the lower 32). The request and reply buffers are frames: one kind
// byte followed by the payload (see wireformat.EncodeFrame). Posting a message
// and receiving its single reply is therefore one synchronous call.
//
// # Basic Usage
//
//	session, _ := h.NewSession()
//	runtime := wazero.NewRuntime(ctx)
//	err := bridgewazero.RegisterWithRuntime(ctx, runtime, session,
//	    bridgewazero.WithModuleName("wxbridge"),
//	)
//
// The guest must export "allocate(size i32) i32" so replies can be written
// into its memory. Channels that were not installed are not exported, so a
// guest importing them fails to link, the WASM analogue of a missing global.
//
// Guests that cannot tolerate link failures import the two generic entry
// points instead: channel_installed(name) reports whether a channel exists
// and channel_post(name, frame) serves a frame on it. guest/wasmchan uses
// these.
package wazero
