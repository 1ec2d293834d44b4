package display

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown converts markdown to styled terminal output wrapped at
// width. It falls back to the input when rendering fails.
func renderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	// Glamour pads with blank lines; trim for inline use.
	return strings.Trim(out, "\n")
}
