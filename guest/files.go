package guest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
)

// ReadBinaryFile returns the whole content of path.
func (b *Bridge) ReadBinaryFile(ctx context.Context, path string) ([]byte, error) {
	s, err := b.OpenInputStream(ctx, path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return io.ReadAll(s)
}

// ReadTextFile returns the content of path as a string.
func (b *Bridge) ReadTextFile(ctx context.Context, path string) (string, error) {
	data, err := b.ReadBinaryFile(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadJSONFile decodes the JSON document at path into a T.
func ReadJSONFile[T any](ctx context.Context, b *Bridge, path string) (T, error) {
	var v T
	data, err := b.ReadBinaryFile(ctx, path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}

// WriteBinaryFile replaces the content of path with data.
func (b *Bridge) WriteBinaryFile(ctx context.Context, path string, data []byte) (err error) {
	s, err := b.OpenOutputStream(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := s.WriteContext(ctx, data); err != nil {
		return err
	}
	return nil
}

// WriteTextFile replaces the content of path with text.
func (b *Bridge) WriteTextFile(ctx context.Context, path, text string) error {
	return b.WriteBinaryFile(ctx, path, []byte(text))
}

// WriteJSONFile encodes v as JSON and writes it to path.
func (b *Bridge) WriteJSONFile(ctx context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &bridgeerrors.InvalidArgumentError{Argument: "value", Reason: err.Error()}
	}
	return b.WriteBinaryFile(ctx, path, data)
}
