// Package convert moves documents in and out of Markdown: HTML pasted or
// uploaded by the user is imported as Markdown, and Markdown is exported as
// a standalone HTML page.
package convert

import (
	"fmt"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"

	"github.com/jun/markpad/core/markdown"
)

var (
	importer     *converter.Converter
	importerOnce sync.Once
)

func getImporter() *converter.Converter {
	importerOnce.Do(func() {
		importer = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
				strikethrough.NewStrikethroughPlugin(),
			),
		)
		importer.Register.RendererFor("img", converter.TagTypeInline, renderDataImage, converter.PriorityEarly)
		importer.Register.RendererFor("div", converter.TagTypeBlock, renderDiagramDiv, converter.PriorityEarly)
	})
	return importer
}

// renderDataImage replaces inline data URI images with their alt text.
func renderDataImage(_ converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	src := dom.GetAttributeOr(n, "src", "")
	if !strings.HasPrefix(src, "data:") {
		return converter.RenderTryNext
	}
	if alt := strings.TrimSpace(dom.GetAttributeOr(n, "alt", "")); alt != "" {
		w.WriteString("[Image: " + alt + "]")
	}
	return converter.RenderSuccess
}

// renderDiagramDiv turns a rendered diagram container back into the fenced
// block it came from.
func renderDiagramDiv(_ converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	if !hasClass(n, markdown.DiagramMarker) {
		return converter.RenderTryNext
	}
	src := strings.TrimSpace(textContent(n))
	if src == "" {
		return converter.RenderSuccess
	}
	w.WriteString("\n\n```" + markdown.DiagramMarker + "\n")
	w.WriteString(src)
	w.WriteString("\n```\n\n")
	return converter.RenderSuccess
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(dom.GetAttributeOr(n, "class", "")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// FromHTML converts an HTML fragment or page to Markdown.
func FromHTML(input string) (string, error) {
	out, err := getImporter().ConvertString(input)
	if err != nil {
		return "", fmt.Errorf("html to markdown: %w", err)
	}
	out = strings.ReplaceAll(out, "\r\n", "\n")
	return strings.TrimSpace(out), nil
}
