// Package template expands manifest templates, so one manifest can be shared
// between devices whose data directories differ.
package template

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/reglet-dev/reglet-bridge/domain/ports"
)

// templateConfig holds configuration for the GoTemplateEngine.
type templateConfig struct {
	lookupEnv func(string) (string, bool)
	strict    bool // Fail on missing keys
}

func defaultTemplateConfig() templateConfig {
	return templateConfig{
		lookupEnv: os.LookupEnv,
		strict:    true,
	}
}

// TemplateOption configures a GoTemplateEngine.
type TemplateOption func(*templateConfig)

// WithStrict enables/disables strict mode for missing keys.
// When enabled (default), template rendering fails if a referenced key is missing.
func WithStrict(enabled bool) TemplateOption {
	return func(c *templateConfig) {
		c.strict = enabled
	}
}

// WithEnvLookup replaces the environment used by the env function.
func WithEnvLookup(fn func(string) (string, bool)) TemplateOption {
	return func(c *templateConfig) {
		if fn != nil {
			c.lookupEnv = fn
		}
	}
}

// GoTemplateEngine implements ports.TemplateEngine with text/template.
//
// Variables are reachable as {{.vars.key}}. Two functions are available:
// {{env "HOME"}} reads the environment (missing variables fail in strict
// mode) and {{default "x" .vars.key}} substitutes empty values.
type GoTemplateEngine struct {
	config templateConfig
}

// NewGoTemplateEngine creates a new GoTemplateEngine.
func NewGoTemplateEngine(opts ...TemplateOption) ports.TemplateEngine {
	cfg := defaultTemplateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GoTemplateEngine{config: cfg}
}

// Render processes the raw manifest bytes with the provided variables.
func (e *GoTemplateEngine) Render(raw []byte, vars map[string]any) ([]byte, error) {
	tmpl := template.New("manifest").Funcs(template.FuncMap{
		"env":     e.env,
		"default": defaultValue,
	})

	if e.config.strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest template: %w", err)
	}

	if vars == nil {
		vars = map[string]any{}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{"vars": vars}); err != nil {
		return nil, fmt.Errorf("failed to execute manifest template: %w", err)
	}

	return buf.Bytes(), nil
}

func (e *GoTemplateEngine) env(name string) (string, error) {
	v, ok := e.config.lookupEnv(name)
	if !ok && e.config.strict {
		return "", fmt.Errorf("environment variable %q is not set", name)
	}
	return v, nil
}

func defaultValue(fallback string, v any) string {
	if v == nil {
		return fallback
	}
	if s := fmt.Sprint(v); s != "" {
		return s
	}
	return fallback
}
