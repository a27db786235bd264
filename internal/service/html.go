package service

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// htmlToMarkdown converts Calibre comment HTML to Markdown. Calibre
// stores rich descriptions as HTML fragments; clients render Markdown.
// On conversion failure the text is returned with tags crudely intact
// rather than dropping the description.
func htmlToMarkdown(html string) string {
	if html == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(md)
}
