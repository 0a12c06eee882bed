package wireformat

import (
	"testing"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs(t *testing.T) {
	req := ObjectRequestWire{
		Version: ObjectProtocolVersion,
		ID:      "5f0c",
		Op:      OpCall,
		Handle:  "12",
		Member:  "getSystemService",
		Args: []ValueWire{
			{Kind: ValueString, Str: "window"},
			PtrValue(3, "Context"),
			{Kind: ValueBytes, Bytes: []byte{1, 2}},
		},
	}

	for _, codec := range []Codec{JSON, CBOR} {
		t.Run(codec.Name(), func(t *testing.T) {
			msg, err := codec.Encode(req)
			require.NoError(t, err)
			assert.Equal(t, codec.Name(), CodecFor(msg).Name())

			var got ObjectRequestWire
			require.NoError(t, codec.Decode(msg, &got))
			assert.Equal(t, req, got)
		})
	}
}

func TestCodecs_ResponseWithError(t *testing.T) {
	resp := ObjectResponseWire{
		Version: ObjectProtocolVersion,
		ID:      "1",
		Error:   entities.NewErrorDetail("invocation", "HANDLE_NOT_FOUND", "handle 4 not found"),
	}

	for _, codec := range []Codec{JSON, CBOR} {
		t.Run(codec.Name(), func(t *testing.T) {
			msg, err := codec.Encode(resp)
			require.NoError(t, err)

			var got ObjectResponseWire
			require.NoError(t, codec.Decode(msg, &got))
			assert.Nil(t, got.Result)
			require.NotNil(t, got.Error)
			assert.Equal(t, "HANDLE_NOT_FOUND", got.Error.Code)
		})
	}
}

func TestCodecs_KindMismatch(t *testing.T) {
	var v ObjectResponseWire
	assert.Error(t, JSON.Decode(Binary([]byte("{}")), &v))
	assert.Error(t, CBOR.Decode(Text("{}"), &v))
	assert.Error(t, JSON.Decode(Text("not json"), &v))
}
