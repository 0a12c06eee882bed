// Package schema generates JSON schemas for the bridge manifest and the
// object invocation envelope.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v any) ([]byte, error) {
	return marshal(reflectSchema(v))
}

// ManifestSchema describes the manifest file. Permission entries are limited
// to the permissions this bridge understands.
func ManifestSchema() ([]byte, error) {
	s := reflectSchema(&entities.Manifest{})
	s.Title = "wxbridge manifest"
	s.Description = "Static host configuration for one guest application."

	if perms, ok := s.Properties.Get("permissions"); ok && perms.Items != nil {
		for _, p := range knownPermissions() {
			perms.Items.Enum = append(perms.Items.Enum, p)
		}
	}
	return marshal(s)
}

// ObjectRequestSchema describes one ObjectBridge request.
func ObjectRequestSchema() ([]byte, error) {
	s := reflectSchema(&wireformat.ObjectRequestWire{})
	s.Title = "ObjectBridge request"

	if op, ok := s.Properties.Get("op"); ok {
		for _, o := range []wireformat.Op{
			wireformat.OpNew, wireformat.OpGet, wireformat.OpCall, wireformat.OpSet, wireformat.OpRelease,
		} {
			op.Enum = append(op.Enum, string(o))
		}
	}
	return marshal(s)
}

func reflectSchema(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
	}
	return reflector.Reflect(v)
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}

func knownPermissions() []string {
	var perms []string
	for _, ch := range []string{entities.ChannelFsInputStream, entities.ChannelFsOutputStream, entities.ChannelObjectBridge} {
		if p, ok := entities.PermissionFor(ch); ok {
			perms = append(perms, p)
		}
	}
	sort.Strings(perms)
	return perms
}
