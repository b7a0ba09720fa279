package models

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
		),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// RenderMarkdown renders a message body into HTML. Assistant replies arrive as GitHub
// flavored markdown; code blocks get syntax highlighting.
func RenderMarkdown(content string) (string, error) {
	var sb strings.Builder
	if err := markdown.Convert([]byte(content), &sb); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return sb.String(), nil
}
