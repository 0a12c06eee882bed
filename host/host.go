package host

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/domain/policy"
	"github.com/reglet-dev/reglet-bridge/host/objects"
	"github.com/reglet-dev/reglet-bridge/hostfuncs"
	"github.com/reglet-dev/reglet-bridge/infrastructure/memchan"
)

// Host is the immutable, manifest-derived configuration shared by sessions.
type Host struct {
	config hostConfig
	policy *policy.Policy
	limits entities.Limits
	perms  entities.PermissionSet
}

// NewHost validates the manifest and prepares the path policy.
func NewHost(opts ...Option) (*Host, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.manifest.Validate(); err != nil {
		return nil, err
	}

	if cfg.workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cfg.workingDir = wd
	}

	return &Host{
		config: cfg,
		policy: policy.NewPolicy(cfg.manifest.FS,
			policy.WithWorkingDirectory(cfg.workingDir),
			policy.WithDenialHandler(&policy.SlogDenialHandler{Logger: cfg.logger}),
		),
		limits: cfg.manifest.EffectiveLimits(),
		perms:  cfg.manifest.PermissionSet(),
	}, nil
}

// Manifest returns the manifest the host was built from.
func (h *Host) Manifest() *entities.Manifest {
	return h.config.manifest
}

// Installed returns the names of the channels every session serves, sorted.
// A stream channel is present only when its permission was granted.
func (h *Host) Installed() []string {
	var names []string
	for _, name := range []string{entities.ChannelFsInputStream, entities.ChannelFsOutputStream} {
		if h.perms.AllowsChannel(name) {
			names = append(names, name)
		}
	}
	if h.config.classes != nil {
		names = append(names, entities.ChannelObjectBridge)
	}
	for _, b := range h.config.bundles {
		for name := range b.Handlers() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// NewSession opens a session with fresh stream state and an empty handle
// table.
func (h *Host) NewSession() (*Session, error) {
	id := uuid.NewString()
	logger := h.config.logger.With("session", id)

	table := objects.NewTable(
		objects.WithClasses(h.config.classes),
		objects.WithLogger(logger),
	)

	fsOpts := []hostfuncs.FsOption{
		hostfuncs.WithPathPolicy(h.policy),
		hostfuncs.WithMaxPayload(h.limits.MaxPayload),
		hostfuncs.WithFsLogger(logger),
	}

	regOpts := []hostfuncs.RegistryOption{
		hostfuncs.WithSessionID(id),
		// The logging middleware adds the session id from the host context.
		hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware(), hostfuncs.LoggingMiddleware(h.config.logger)),
		hostfuncs.WithMiddleware(h.config.middleware...),
	}
	if h.perms.AllowsChannel(entities.ChannelFsInputStream) {
		regOpts = append(regOpts, hostfuncs.WithBundle(hostfuncs.InputStreamBundle(fsOpts...)))
	}
	if h.perms.AllowsChannel(entities.ChannelFsOutputStream) {
		regOpts = append(regOpts, hostfuncs.WithBundle(hostfuncs.OutputStreamBundle(fsOpts...)))
	}
	if h.config.classes != nil {
		bridge := hostfuncs.NewObjectBridge(table, logger)
		regOpts = append(regOpts, hostfuncs.WithBundle(hostfuncs.ObjectBridgeBundle(bridge)))
	}
	for _, b := range h.config.bundles {
		regOpts = append(regOpts, hostfuncs.WithBundle(b))
	}

	registry, err := hostfuncs.NewRegistry(regOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build channel registry: %w", err)
	}

	logger.Debug("host: session opened", "channels", registry.Names())
	return newSession(id, registry, table, logger), nil
}

// Pipe opens a session and connects it to in-process channels. The returned
// Globals is the guest's view; closing it, or cancelling ctx, closes the
// session and every channel.
func (h *Host) Pipe(ctx context.Context) (*memchan.Globals, error) {
	session, err := h.NewSession()
	if err != nil {
		return nil, err
	}

	globals := memchan.NewGlobals()
	for _, name := range session.Names() {
		hostEnd, guestEnd := memchan.Pair(name)
		globals.Install(guestEnd)
		if err := session.Bind(hostEnd); err != nil {
			_ = session.Close()
			_ = globals.Close()
			return nil, err
		}
	}
	globals.AddCloser(session)

	context.AfterFunc(ctx, func() { _ = globals.Close() })
	return globals, nil
}
