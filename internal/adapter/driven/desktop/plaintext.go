package desktop

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	mdRenderer  goldmark.Markdown
	tagStripper *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))
	tagStripper = bluemonday.StrictPolicy()
}

// PlainText flattens a markdown PR title to the text a toast or speech engine
// should receive: formatting and HTML are removed, entities are decoded and
// whitespace runs collapse to single spaces.
func PlainText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	var buf bytes.Buffer
	rendered := src
	if err := mdRenderer.Convert([]byte(src), &buf); err == nil {
		rendered = buf.String()
	}

	text := html.UnescapeString(tagStripper.Sanitize(rendered))
	return strings.Join(strings.Fields(text), " ")
}
