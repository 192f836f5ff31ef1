package changelog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// RenderHTML converts release note markdown into HTML. Rendering is a
// stateless step layered on top of parsing; the parser itself never touches
// markup.
func RenderHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(strings.TrimSpace(text)), &buf); err != nil {
		return "", fmt.Errorf("rendering changelog markdown: %w", err)
	}
	return buf.String(), nil
}
