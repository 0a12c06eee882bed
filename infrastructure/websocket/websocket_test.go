package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reglet-dev/reglet-bridge/domain/ports"
	"github.com/reglet-dev/reglet-bridge/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoSession replies to every message with a copy of it.
type echoSession struct {
	closed *atomic.Int32
}

func (s echoSession) Bind(ch ports.Channel) error {
	ch.AddListener(func(m wireformat.Message) {
		if m.IsText() {
			m = wireformat.Text("echo: " + m.Text)
		}
		_ = ch.PostMessage(context.Background(), m)
	})
	return nil
}

func (s echoSession) Close() error {
	s.closed.Add(1)
	return nil
}

func newTestServer(t *testing.T, opts ...ServerOption) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	closed := &atomic.Int32{}
	srv := NewServer([]string{"FsInputStream", "ObjectBridge"}, func() (Session, error) {
		return echoSession{closed: closed}, nil
	}, opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, closed
}

func receive(t *testing.T, ch ports.Channel) <-chan wireformat.Message {
	t.Helper()
	out := make(chan wireformat.Message, 16)
	ch.AddListener(func(m wireformat.Message) { out <- m })
	return out
}

func next(t *testing.T, in <-chan wireformat.Message) wireformat.Message {
	t.Helper()
	select {
	case m := <-in:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return wireformat.Message{}
}

func TestDial_RoundTrip(t *testing.T) {
	ts, closed := newTestServer(t)
	ctx := context.Background()

	globals, err := Dial(ctx, ts.URL, []string{"FsInputStream", "FsOutputStream", "ObjectBridge"})
	require.NoError(t, err)

	assert.Equal(t, []string{"FsInputStream", "ObjectBridge"}, globals.Names())
	_, ok := globals.Lookup("FsOutputStream")
	assert.False(t, ok, "channels answered with 404 are absent")

	ch, ok := globals.Lookup("FsInputStream")
	require.True(t, ok)
	replies := receive(t, ch)

	require.NoError(t, ch.PostMessage(ctx, wireformat.Text("/tmp/a")))
	require.NoError(t, ch.PostMessage(ctx, wireformat.Binary([]byte{0, 1, 2})))

	first := next(t, replies)
	assert.True(t, first.IsText())
	assert.Equal(t, "echo: /tmp/a", first.Text)

	second := next(t, replies)
	assert.True(t, second.IsBinary())
	assert.Equal(t, []byte{0, 1, 2}, second.Data)

	require.NoError(t, globals.Close())
	assert.Eventually(t, func() bool { return closed.Load() == 2 }, 2*time.Second, 10*time.Millisecond,
		"every connection's session is closed")
}

func TestConn_PostAfterClose(t *testing.T) {
	ts, _ := newTestServer(t)
	ctx := context.Background()

	globals, err := Dial(ctx, ts.URL, []string{"ObjectBridge"})
	require.NoError(t, err)
	ch, ok := globals.Lookup("ObjectBridge")
	require.True(t, ok)

	require.NoError(t, globals.Close())
	assert.ErrorIs(t, ch.PostMessage(ctx, wireformat.Text("x")), ErrClosed)
}

func TestServer_UnknownChannelIs404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/FsOutputStream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_AllowedOrigins(t *testing.T) {
	ts, _ := newTestServer(t, WithAllowedOrigins("https://app.example"))
	ctx := context.Background()

	t.Run("allowed", func(t *testing.T) {
		g, err := Dial(ctx, ts.URL, []string{"ObjectBridge"},
			WithHeader(http.Header{"Origin": {"https://app.example"}}))
		require.NoError(t, err)
		assert.Equal(t, []string{"ObjectBridge"}, g.Names())
		require.NoError(t, g.Close())
	})

	t.Run("refused", func(t *testing.T) {
		_, err := Dial(ctx, ts.URL, []string{"ObjectBridge"},
			WithHeader(http.Header{"Origin": {"https://evil.example"}}))
		require.Error(t, err)
	})
}

func TestServer_PathPrefix(t *testing.T) {
	ts, _ := newTestServer(t, WithPathPrefix("/bridge"))

	g, err := Dial(context.Background(), ts.URL+"/bridge", []string{"FsInputStream"})
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, []string{"FsInputStream"}, g.Names())

	resp, err := http.Get(ts.URL + "/FsInputStream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
