package hostfuncs

import "bytes"

// payloadBuffer collects a file for one reply. Writes past the limit fail
// with errTooLarge, which stops io.Copy at the first oversized chunk, so a
// file that grows while being read is never loaded whole.
type payloadBuffer struct {
	bytes.Buffer
	limit int
}

func newPayloadBuffer(limit, sizeHint int) *payloadBuffer {
	b := &payloadBuffer{limit: limit}
	if sizeHint > 0 && sizeHint <= limit {
		b.Grow(sizeHint)
	}
	return b
}

func (b *payloadBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.Len(); len(p) > room {
		n, _ := b.Buffer.Write(p[:max(room, 0)])
		return n, errTooLarge
	}
	return b.Buffer.Write(p)
}
