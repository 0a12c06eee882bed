// Package serve implements "wxbridge serve".
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/reglet-dev/reglet-bridge/host"
	"github.com/reglet-dev/reglet-bridge/internal/cmd/cmdutil"
	"github.com/reglet-dev/reglet-bridge/infrastructure/websocket"
)

const shutdownGrace = 5 * time.Second

// Command returns the serve command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the bridge channels over websocket",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "listen on `host:port`",
				Value:   "127.0.0.1:8770",
				EnvVars: []string{"WXBRIDGE_ADDR"},
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "serve channels under URL `path`",
				Value: "/",
			},
		}, cmdutil.ManifestFlags()...),
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	h, err := cmdutil.Host(c)
	if err != nil {
		return err
	}

	handler := websocket.NewServer(h.Installed(), sessionFunc(h),
		websocket.WithAllowedOrigins(h.Manifest().AllowedOrigins...),
		websocket.WithPathPrefix(c.String("prefix")),
		websocket.WithServerLogger(slog.Default()),
	)

	ln, err := net.Listen("tcp", c.String("addr"))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, ln, handler)
}

// Serve runs handler on ln until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("serve: listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		slog.Info("serve: shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func sessionFunc(h *host.Host) websocket.SessionFunc {
	return func() (websocket.Session, error) {
		s, err := h.NewSession()
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
