// Package stubs holds typed clients for well-known host classes, written on
// top of guest.ObjectProxy. Each stub owns the proxies it creates and releases
// them on Close.
package stubs
