package lib

import (
	"bytes"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// RenderMarkdown converts a stored message body to HTML for display.
func RenderMarkdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var htmlTagRe = regexp.MustCompile(`(?i)<(p|div|br|span|ul|ol|li|h[1-6]|a|b|i|strong|em|table)[\s/>]`)

// NormalizeReply converts assistant output that arrived as HTML into
// markdown so the thread stores one uniform format. Plain text and markdown
// pass through untouched; a failed conversion keeps the original.
func NormalizeReply(content string) string {
	if !htmlTagRe.MatchString(content) {
		return content
	}
	converted, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(converted)
}
