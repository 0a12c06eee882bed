package policy

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/domain/ports"
)

// Operations checked by the policy.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// policyConfig holds configuration for the Policy engine.
type policyConfig struct {
	cwd             string              // Working directory for relative path resolution
	resolveSymlinks bool                // Whether to resolve symlinks (security feature)
	denialHandler   ports.DenialHandler // Handler invoked on policy denials
}

func defaultPolicyConfig() policyConfig {
	return policyConfig{
		cwd:             "",
		resolveSymlinks: true,
		denialHandler:   &SlogDenialHandler{},
	}
}

// PolicyOption configures the Policy.
type PolicyOption func(*policyConfig)

// WithWorkingDirectory sets the working directory for relative path resolution.
func WithWorkingDirectory(cwd string) PolicyOption {
	return func(c *policyConfig) {
		c.cwd = cwd
	}
}

// WithSymlinkResolution enables/disables symlink resolution.
// Default is true (secure). Disable only for testing.
func WithSymlinkResolution(enabled bool) PolicyOption {
	return func(c *policyConfig) {
		c.resolveSymlinks = enabled
	}
}

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) PolicyOption {
	return func(c *policyConfig) {
		c.denialHandler = h
	}
}

// Policy decides which paths the stream channels may read or write.
// An empty glob list for a direction leaves that direction unrestricted.
// Policy is immutable and safe for concurrent use.
type Policy struct {
	config policyConfig
	read   []string
	write  []string
}

// NewPolicy compiles the manifest file system rules. Invalid globs are
// dropped; manifests are validated before they get here.
func NewPolicy(rules *entities.FileSystemRules, opts ...PolicyOption) *Policy {
	cfg := defaultPolicyConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Policy{config: cfg}
	if rules != nil {
		p.read = validPatterns(rules.Read)
		p.write = validPatterns(rules.Write)
	}
	return p
}

func validPatterns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, pattern := range in {
		if doublestar.ValidatePattern(pattern) {
			out = append(out, filepath.ToSlash(pattern))
		}
	}
	return out
}

// Restricted reports whether any glob constrains the operation.
func (p *Policy) Restricted(op string) bool {
	return len(p.patterns(op)) > 0
}

// CheckRead reports whether path may be read.
func (p *Policy) CheckRead(path string) bool {
	return p.check(OpRead, path)
}

// CheckWrite reports whether path may be created or written.
func (p *Policy) CheckWrite(path string) bool {
	return p.check(OpWrite, path)
}

func (p *Policy) patterns(op string) []string {
	if op == OpWrite {
		return p.write
	}
	return p.read
}

func (p *Policy) check(op, requested string) bool {
	patterns := p.patterns(op)
	if len(patterns) == 0 {
		return true
	}

	path, ok := p.normalize(requested)
	if !ok {
		p.config.denialHandler.OnDenial(op, requested, "relative path without working directory")
		return false
	}

	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, filepath.ToSlash(path)); matched {
			return true
		}
	}

	p.config.denialHandler.OnDenial(op, requested, "path not allowed")
	return false
}

// normalize cleans the path, anchors it at the working directory and resolves
// symlinks. A file about to be created does not exist yet, so its parent
// directory is resolved instead.
func (p *Policy) normalize(requested string) (string, bool) {
	path := filepath.Clean(requested)
	if !filepath.IsAbs(path) {
		if p.config.cwd == "" {
			return "", false
		}
		path = filepath.Join(p.config.cwd, path)
	}

	if !p.config.resolveSymlinks {
		return path, true
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, true
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(path)); err == nil {
		return filepath.Join(dir, filepath.Base(path)), true
	}
	return path, true
}
