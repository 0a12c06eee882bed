package ports

import "github.com/reglet-dev/reglet-bridge/domain/entities"

// ManifestParser parses raw bytes into a host Manifest.
type ManifestParser interface {
	// Parse unmarshals bytes into a Manifest struct.
	Parse(data []byte) (*entities.Manifest, error)
}
