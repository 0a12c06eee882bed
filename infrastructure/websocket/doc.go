// Package websocket carries bridge channels over websockets.
//
// Each named channel is its own websocket at /<channel>. Text frames carry
// string payloads and binary frames carry buffers, so the frame type is the
// message kind and no extra envelope is needed. The server answers 404 for
// channels the host did not install, which the client treats as "channel
// absent" rather than as an error.
package websocket
