package ports

// TemplateEngine renders a manifest template before it is parsed.
type TemplateEngine interface {
	// Render expands raw with the given variables.
	Render(raw []byte, vars map[string]any) ([]byte, error)
}
