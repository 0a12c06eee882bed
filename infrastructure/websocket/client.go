package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/reglet-dev/reglet-bridge/infrastructure/memchan"
)

// DialOption configures Dial.
type DialOption func(*dialConfig)

type dialConfig struct {
	logger *slog.Logger
	header http.Header
	dialer websocket.Dialer
}

func defaultDialConfig() dialConfig {
	return dialConfig{
		logger: slog.Default(),
		dialer: websocket.Dialer{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 45 * time.Second,
		},
	}
}

// WithHeader adds request headers, such as Origin, to every handshake.
func WithHeader(h http.Header) DialOption {
	return func(c *dialConfig) {
		c.header = h
	}
}

// WithDialLogger sets the logger handed to every connection.
func WithDialLogger(l *slog.Logger) DialOption {
	return func(c *dialConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Dial connects to each named channel below baseURL and returns the channels
// the host installed. A 404 means the host did not install that channel; it
// is left out of the result and is not an error. http and https base URLs
// are rewritten to ws and wss.
func Dial(ctx context.Context, baseURL string, names []string, opts ...DialOption) (*memchan.Globals, error) {
	cfg := defaultDialConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("websocket: invalid base url: %w", err)
	}
	base.Scheme = strings.Replace(base.Scheme, "http", "ws", 1)
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	globals := memchan.NewGlobals()
	for _, name := range names {
		target := base.JoinPath(name).String()
		ws, resp, err := cfg.dialer.DialContext(ctx, target, cfg.header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if errors.Is(err, websocket.ErrBadHandshake) && resp != nil && resp.StatusCode == http.StatusNotFound {
				cfg.logger.Debug("websocket: channel not installed", "channel", name)
				continue
			}
			_ = globals.Close()
			return nil, fmt.Errorf("websocket: dial %s: %w", name, err)
		}
		globals.Install(NewConn(name, ws, cfg.logger))
	}
	return globals, nil
}
