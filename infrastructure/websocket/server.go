package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/reglet-dev/reglet-bridge/domain/ports"
)

// Session serves the channels of one connection. Bind attaches the session to
// a channel; Close releases everything the session holds.
type Session interface {
	Bind(ch ports.Channel) error
	Close() error
}

// SessionFunc opens a new host session.
type SessionFunc func() (Session, error)

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	logger         *slog.Logger
	prefix         string
	allowedOrigins []string
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		logger: slog.Default(),
		prefix: "/",
	}
}

// WithAllowedOrigins restricts which Origin headers may upgrade. An empty
// list keeps the gorilla default of same-host only; "*" allows any origin.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(c *serverConfig) {
		c.allowedOrigins = append(c.allowedOrigins, origins...)
	}
}

// WithPathPrefix mounts the channels below prefix, e.g. "/bridge/".
func WithPathPrefix(prefix string) ServerOption {
	return func(c *serverConfig) {
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		c.prefix = prefix
	}
}

// WithServerLogger sets the server logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Server upgrades /<channel> requests and binds each connection to a fresh
// host session. It implements http.Handler.
type Server struct {
	installed  map[string]bool
	newSession SessionFunc
	upgrader   websocket.Upgrader
	cfg        serverConfig
}

// NewServer creates a server for the installed channel names.
func NewServer(installed []string, newSession SessionFunc, opts ...ServerOption) *Server {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		installed:  make(map[string]bool, len(installed)),
		newSession: newSession,
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, name := range installed {
		s.installed[name] = true
	}
	if len(cfg.allowedOrigins) > 0 {
		s.upgrader.CheckOrigin = s.checkOrigin
	}
	return s
}

// ServeHTTP implements http.Handler. It blocks until the connection ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutPrefix(r.URL.Path, s.cfg.prefix)
	if !ok || !s.installed[name] {
		http.NotFound(w, r)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.cfg.logger.Warn("websocket: upgrade failed", "channel", name, "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := NewConn(name, ws, s.cfg.logger)
	session, err := s.newSession()
	if err != nil {
		s.cfg.logger.Error("websocket: open session failed", "channel", name, "error", err)
		_ = conn.Close()
		return
	}
	if err := session.Bind(conn); err != nil {
		s.cfg.logger.Error("websocket: bind failed", "channel", name, "error", err)
		_ = conn.Close()
		_ = session.Close()
		return
	}

	s.cfg.logger.Debug("websocket: channel connected", "channel", name, "remote", r.RemoteAddr)
	select {
	case <-conn.Done():
	case <-r.Context().Done():
		_ = conn.Close()
	}

	if err := session.Close(); err != nil {
		s.cfg.logger.Warn("websocket: session teardown failed", "channel", name, "error", err)
	}
	s.cfg.logger.Debug("websocket: channel disconnected", "channel", name, "error", conn.Err())
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	if u, err := url.Parse(origin); err == nil {
		s.cfg.logger.Warn("websocket: origin refused", "origin", u.Host)
	}
	return false
}
