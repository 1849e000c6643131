package convert

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/jun/markpad/core/markdown"
)

// Client scripts for the markers the renderer leaves for the browser.
const (
	MermaidScriptURL = "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"
	MathJaxScriptURL = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-chtml.js"
)

// ExportOptions controls ExportHTML.
type ExportOptions struct {
	Title string `json:"title" mapstructure:"title"`
	// TOC adds a table of contents built from the document headings.
	TOC bool `json:"toc" mapstructure:"toc"`
	// NoScripts leaves out the mermaid and MathJax scripts.
	NoScripts bool `json:"no_scripts" mapstructure:"no_scripts"`
}

type pageData struct {
	Title    string
	CSS      template.CSS
	TOC      []markdown.Heading
	Body     template.HTML
	Mermaid  string
	MathJax  string
	MinLevel int
}

var page = template.Must(template.New("page").Funcs(template.FuncMap{
	"indent": func(level, min int) int { return (level - min) * 16 },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{max-width:860px;margin:2rem auto;padding:0 1rem;font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Helvetica,Arial,sans-serif;line-height:1.6}
pre{padding:1rem;overflow:auto}
table{border-collapse:collapse}th,td{border:1px solid #d0d7de;padding:4px 12px}
{{.CSS}}
</style>
</head>
<body>
{{- if .TOC}}
<nav class="toc">
<ul>
{{- range .TOC}}
<li style="margin-left:{{indent .Level $.MinLevel}}px"><a href="#{{.ID}}">{{.Text}}</a></li>
{{- end}}
</ul>
</nav>
{{- end}}
<article>
{{.Body}}
</article>
{{- if .Mermaid}}
<script src="{{.Mermaid}}"></script>
<script>mermaid.initialize({startOnLoad:true});</script>
{{- end}}
{{- if .MathJax}}
<script src="{{.MathJax}}"></script>
{{- end}}
</body>
</html>
`))

// ExportHTML renders source with r and wraps it in a standalone HTML page
// with the stylesheet for r's highlight style.
func ExportHTML(source []byte, r *markdown.Renderer, opts ExportOptions) ([]byte, error) {
	body, err := r.Render(source)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	css, err := highlightCSS(r.HighlightStyle())
	if err != nil {
		return nil, err
	}

	data := pageData{
		Title: opts.Title,
		CSS:   template.CSS(css),
		Body:  template.HTML(body),
	}
	if data.Title == "" {
		data.Title = "Untitled"
	}
	if opts.TOC {
		data.TOC = r.Headings(source)
		data.MinLevel = 6
		for _, h := range data.TOC {
			if h.Level < data.MinLevel {
				data.MinLevel = h.Level
			}
		}
	}
	if !opts.NoScripts {
		if bytes.Contains(body, []byte(`class="`+markdown.DiagramMarker+`"`)) {
			data.Mermaid = MermaidScriptURL
		}
		if bytes.Contains(body, []byte(`class="math`)) {
			data.MathJax = MathJaxScriptURL
		}
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("export page: %w", err)
	}
	return buf.Bytes(), nil
}

// highlightCSS returns the chroma stylesheet for the named style.
func highlightCSS(style string) (string, error) {
	var b strings.Builder
	f := chromahtml.New(chromahtml.WithClasses(true))
	if err := f.WriteCSS(&b, styles.Get(style)); err != nil {
		return "", fmt.Errorf("highlight css: %w", err)
	}
	return b.String(), nil
}
