// Package memchan provides in-process channel pairs.
//
// A pair behaves like the host/guest message channel of a script engine:
// PostMessage never blocks on the receiver, and each end delivers inbound
// messages to its listeners one at a time, in posting order, from its own
// goroutine. Pairs back the host's Pipe and most protocol tests.
package memchan
