// Package objects is the host half of the object bridge: a per-session table
// mapping handles to live native values, a registry of constructible classes,
// and reflective dispatch of member reads, method calls and field writes.
//
// Values crossing the bridge are either primitives (passed by value) or
// handles. Anything a call returns that is not a primitive is registered in
// the table and handed back as a pointer value.
package objects
