package chat

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md covers the reply dialect requested by SystemPrompt: headings, lists,
// fenced code, tables and emphasis. Raw HTML in replies is not rendered.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts an assistant reply to HTML for display.
func RenderMarkdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
