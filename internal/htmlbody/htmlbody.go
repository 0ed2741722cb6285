// Package htmlbody turns user-entered message text into the HTML body
// handed to the mail client.
package htmlbody

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// LineBreak replaces every newline of plain text bodies.
const LineBreak = "<br>"

const (
	containerOpen  = "<div style='font-family: Arial, sans-serif;'>"
	containerClose = "</div>"
)

// mdRenderer renders markdown bodies; single newlines stay line breaks so
// markdown and plain text bodies look alike.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Wrap places body inside the styling container.
func Wrap(body string) string {
	return containerOpen + body + containerClose
}

// FromPlainText escapes text, turns each newline into a <br> tag and wraps
// the result in one styling container. CRLF counts as a single newline.
func FromPlainText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	escaped := html.EscapeString(text)
	return Wrap(strings.ReplaceAll(escaped, "\n", LineBreak))
}

// FromMarkdown renders text as markdown inside the styling container.
func FromMarkdown(text string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown body: %w", err)
	}
	return Wrap(strings.TrimSpace(buf.String())), nil
}
