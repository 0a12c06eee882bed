// Package testutil provides assertions shared by the bridge tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCode asserts that err carries the given bridge error code.
func AssertCode(t *testing.T, err error, code string, msgAndArgs ...interface{}) bool {
	t.Helper()
	if !assert.Error(t, err, msgAndArgs...) {
		return false
	}
	return assert.Equal(t, code, bridgeerrors.CodeOf(err), msgAndArgs...)
}

// AssertFailure asserts that reply is a host failure text containing every
// fragment given.
func AssertFailure(t *testing.T, reply wireformat.Message, contains ...string) bool {
	t.Helper()
	ok := assert.True(t, reply.IsText(), "reply should be text, got %s", reply.Kind) &&
		assert.True(t, wireformat.IsFailure(reply.Text), "reply %q is not a failure", reply.Text)
	for _, fragment := range contains {
		ok = assert.Contains(t, reply.Text, fragment) && ok
	}
	return ok
}

// AssertJSONEqual compares two JSON documents for equality, ignoring formatting.
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}

// WriteFile creates dir/name with content and returns its path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
