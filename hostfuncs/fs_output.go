package hostfuncs

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jpillora/sizestr"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// outputStreamHandler serves the FsOutputStream channel for one connection.
// A text message sets the current path (creating or truncating the file); each
// binary message is appended to it. The current path is per connection, which
// is why guests hold an exclusive lease on this channel for a whole session.
type outputStreamHandler struct {
	cfg  fsConfig
	mu   sync.Mutex
	path string
}

// NewOutputStreamHandler returns a fresh, stateful FsOutputStream handler.
// Each host session must use its own.
func NewOutputStreamHandler(opts ...FsOption) MessageHandler {
	h := &outputStreamHandler{cfg: newFsConfig(opts)}
	return h.serve
}

func (h *outputStreamHandler) serve(ctx context.Context, msg wireformat.Message) wireformat.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch msg.Kind {
	case wireformat.KindText:
		return h.setPath(ctx, msg.Text)
	case wireformat.KindBinary:
		return h.writeChunk(ctx, msg.Data)
	default:
		return NewUnsupportedFailure(msg.Kind)
	}
}

func (h *outputStreamHandler) setPath(ctx context.Context, path string) wireformat.Message {
	// A refused path still ends the previous destination; chunks that follow
	// must not land in the old file.
	h.path = ""
	if path == "" {
		return wireformat.Failure(detailEmptyPath)
	}
	if !h.cfg.policy.CheckWrite(path) {
		return wireformat.Failure(fmt.Sprintf(detailAccessDenied, path))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:gosec // G304: path checked by the path policy
	if err != nil {
		return wireformat.FailureWith("create file", err.Error())
	}
	if err := f.Close(); err != nil {
		return wireformat.FailureWith("create file", err.Error())
	}

	h.path = path
	h.cfg.logger.DebugContext(ctx, "hostfuncs: output path set", "path", path)
	return wireformat.Text(wireformat.PathSetReply)
}

func (h *outputStreamHandler) writeChunk(ctx context.Context, chunk []byte) wireformat.Message {
	if h.path == "" {
		return wireformat.Failure(detailPathNotSet)
	}
	if len(chunk) > h.cfg.maxPayload {
		return wireformat.FailureWith("write chunk",
			fmt.Sprintf(detailPayloadTooLarge, sizestr.ToString(int64(h.cfg.maxPayload))))
	}

	if err := appendSync(h.path, chunk); err != nil {
		return wireformat.FailureWith("write chunk", err.Error())
	}

	h.cfg.logger.DebugContext(ctx, "hostfuncs: chunk written", "path", h.path, "size", sizestr.ToString(int64(len(chunk))))
	return wireformat.ChunkWritten(len(chunk))
}

// appendSync appends and flushes so nothing depends on an end-of-file signal,
// which the protocol does not have.
func appendSync(path string, chunk []byte) (err error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0) //nolint:gosec // G304: path checked when it was set
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err = f.Write(chunk); err != nil {
		return err
	}
	return f.Sync()
}
