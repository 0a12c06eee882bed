// Package entities provides the core domain entities of the bridge: handles,
// stream session states, the host manifest and structured error details.
// These types are shared by the host and guest sides and carry no transport logic.
package entities
