package notifier

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// RenderMarkdown converts LLM-authored markdown review feedback to HTML,
// preserving fenced code blocks, as required for the email body.
func RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
