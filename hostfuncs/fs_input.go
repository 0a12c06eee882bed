package hostfuncs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jpillora/sizestr"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// NewInputStreamHandler serves the FsInputStream channel.
// A text message names a file; the reply is the whole file as one binary
// message, or a "Failed! ..." text. There is no chunking on read, so the file
// size is bounded by the payload limit.
func NewInputStreamHandler(opts ...FsOption) MessageHandler {
	cfg := newFsConfig(opts)

	return func(ctx context.Context, msg wireformat.Message) wireformat.Message {
		if !msg.IsText() {
			return NewUnsupportedFailure(msg.Kind)
		}
		path := msg.Text
		if path == "" {
			return wireformat.Failure(detailEmptyPath)
		}
		if !cfg.policy.CheckRead(path) {
			return wireformat.Failure(fmt.Sprintf(detailAccessDenied, path))
		}

		data, err := readBounded(path, cfg.maxPayload)
		if err != nil {
			cfg.logger.DebugContext(ctx, "hostfuncs: read failed", "path", path, "error", err)
			return wireformat.Failure(readFailureDetail(err, cfg.maxPayload))
		}

		cfg.logger.DebugContext(ctx, "hostfuncs: file read", "path", path, "size", sizestr.ToString(int64(len(data))))
		return wireformat.Binary(data)
	}
}

var (
	errNotRegular = errors.New("not a regular file")
	errTooLarge   = errors.New("payload too large")
)

func readBounded(path string, limit int) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path checked by the path policy
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, errNotRegular
	}
	if info.Size() > int64(limit) {
		return nil, errTooLarge
	}

	buf := newPayloadBuffer(limit, int(info.Size()))
	if _, err := io.Copy(buf, f); err != nil {
		return nil, err
	}
	data := buf.Bytes()
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func readFailureDetail(err error, limit int) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return detailFileMissing
	case errors.Is(err, errNotRegular):
		return detailNotRegular
	case errors.Is(err, errTooLarge):
		return fmt.Sprintf(detailPayloadTooLarge, sizestr.ToString(int64(limit)))
	default:
		return err.Error()
	}
}
