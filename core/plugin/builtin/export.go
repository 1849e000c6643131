package builtin

import (
	"bytes"
	"fmt"

	"github.com/jun/markpad/core/convert"
	"github.com/jun/markpad/core/markdown"
	"github.com/jun/markpad/core/plugin"
)

var mermaidThemes = map[string]bool{"default": true, "dark": true, "forest": true, "neutral": true}

type previewOptions struct {
	Theme string `mapstructure:"theme"`
}

func mermaidPreview() plugin.Plugin {
	return plugin.Plugin{
		ID:          IDMermaidPreview,
		Name:        "Mermaid preview",
		Description: "Mermaid container for diagram blocks, with the configured theme",
		Payload: plugin.Preview{
			Marker: markdown.DiagramMarker,
			Render: func(src string, cfg plugin.Config) (string, error) {
				var o previewOptions
				if err := plugin.DecodeConfig(cfg, &o); err != nil {
					return "", err
				}
				if o.Theme != "" && o.Theme != "default" {
					src = fmt.Sprintf("%%%%{init: {'theme': '%s'}}%%%%\n%s", o.Theme, src)
				}
				return markdown.DiagramHTML(markdown.DiagramMarker, src), nil
			},
		},
		DefaultConfig: plugin.Config{"theme": "default"},
		ValidateConfig: plugin.Validator(func(o previewOptions) error {
			if !mermaidThemes[o.Theme] {
				return fmt.Errorf("unknown mermaid theme %q", o.Theme)
			}
			return nil
		}),
	}
}

type htmlExportOptions struct {
	Standalone     bool   `mapstructure:"standalone"`
	TOC            bool   `mapstructure:"toc"`
	HighlightStyle string `mapstructure:"highlight_style"`
	Sanitize       bool   `mapstructure:"sanitize"`
}

func htmlExporter(reg *plugin.Registry) plugin.Plugin {
	return plugin.Plugin{
		ID:          IDHTMLExport,
		Name:        "HTML export",
		Description: "Exports the rendered document as HTML",
		Payload: plugin.Export{
			Format:    "html",
			MediaType: "text/html; charset=utf-8",
			Extension: ".html",
			Export: func(title string, src []byte, cfg plugin.Config) ([]byte, error) {
				var o htmlExportOptions
				if err := plugin.DecodeConfig(cfg, &o); err != nil {
					return nil, err
				}
				opts := []markdown.Option{markdown.WithHighlightStyle(o.HighlightStyle)}
				if o.Sanitize {
					opts = append(opts, markdown.WithSanitize())
				}
				r := NewRenderer(reg, opts...)
				if !o.Standalone {
					return r.Render(src)
				}
				return convert.ExportHTML(src, r, convert.ExportOptions{Title: title, TOC: o.TOC})
			},
		},
		DefaultConfig:  plugin.Config{"standalone": true, "toc": false, "highlight_style": markdown.DefaultHighlightStyle, "sanitize": false},
		ValidateConfig: plugin.Validator[htmlExportOptions](nil),
	}
}

func markdownExporter() plugin.Plugin {
	return plugin.Plugin{
		ID:          IDMarkdownExport,
		Name:        "Markdown export",
		Description: "Exports the document source",
		Payload: plugin.Export{
			Format:    "markdown",
			MediaType: "text/markdown; charset=utf-8",
			Extension: ".md",
			Export: func(_ string, src []byte, _ plugin.Config) ([]byte, error) {
				out := bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
				if len(out) > 0 && !bytes.HasSuffix(out, []byte("\n")) {
					out = append(out, '\n')
				}
				return out, nil
			},
		},
	}
}

// Preview renders one diagram body with the enabled preview plugin for
// marker. Without one the body is left to the default diagram container.
func Preview(reg *plugin.Registry, marker, src string) (string, error) {
	for _, rec := range reg.Enabled(plugin.KindPreview) {
		if p, ok := rec.Plugin.Payload.(plugin.Preview); ok && p.Marker == marker && p.Render != nil {
			return p.Render(src, rec.Config)
		}
	}
	return markdown.DiagramHTML(marker, src), nil
}
