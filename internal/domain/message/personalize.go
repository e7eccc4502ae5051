package message

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Message format constants, as submitted by the compose form.
const (
	FormatText     = "text"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// stripPolicy removes every HTML element, leaving only text content.
var stripPolicy = bluemonday.StrictPolicy()

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Personalize expands placeholder tokens in a template for one recipient.
// {email} is replaced first, then {key} for each personalization field.
// Substitution is literal, case-sensitive, and not recursive; unmatched
// tokens are left verbatim.
func Personalize(template, email string, fields map[string]string) string {
	out := strings.ReplaceAll(template, "{email}", email)
	for key, value := range fields {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}

// PlainTextFallback derives the plain-text alternative body from an HTML body
// by stripping tags and unescaping entities.
func PlainTextFallback(htmlBody string) string {
	return html.UnescapeString(stripPolicy.Sanitize(htmlBody))
}

// RenderMarkdown converts a markdown message body to HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// LooksHTML reports whether a stored message body should be dispatched as
// HTML. Used on resend, where the original format was not persisted.
func LooksHTML(body string) bool {
	return strings.Contains(body, "<html") || strings.Contains(body, "<body")
}
