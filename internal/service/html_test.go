package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHtmlToMarkdown(t *testing.T) {
	md := htmlToMarkdown("<p>A <b>classic</b> of <i>science fiction</i>.</p>")
	assert.Contains(t, md, "**classic**")
	assert.NotContains(t, md, "<p>")
}

func TestHtmlToMarkdownEmpty(t *testing.T) {
	assert.Empty(t, htmlToMarkdown(""))
}

func TestHtmlToMarkdownPlainText(t *testing.T) {
	assert.Equal(t, "just words", htmlToMarkdown("just words"))
}
