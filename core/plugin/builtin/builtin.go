// Package builtin is the plugin set every editor starts with, plus the
// helpers that turn the enabled plugins of a registry into renderer options,
// formatting defaults, key bindings and exporters.
package builtin

import (
	"errors"
	"fmt"

	"github.com/jun/markpad/core/markdown"
	"github.com/jun/markpad/core/plugin"
)

// Plugin ids.
const (
	IDMermaidSyntax  = "syntax.mermaid"
	IDMathSyntax     = "syntax.math"
	IDTrimTrailing   = "transform.trim-trailing-space"
	IDSlashCommands  = "autocomplete.slash"
	IDEmoji          = "autocomplete.emoji"
	IDMermaidPreview = "preview.mermaid"
	IDHTMLExport     = "export.html"
	IDMarkdownExport = "export.markdown"
	toolbarPrefix    = "toolbar."
	shortcutPrefix   = "shortcut."
	builtinVersion   = "1.0.0"
)

// ErrNoExporter is returned when no enabled exporter handles a format.
var ErrNoExporter = errors.New("no exporter for format")

// ErrActionDisabled is returned for a toolbar action whose plugin is
// disabled or missing.
var ErrActionDisabled = errors.New("action disabled")

// ErrInvalidOptions is returned when the options of a formatting request
// are out of range.
var ErrInvalidOptions = errors.New("invalid action options")

// Register installs the built-in plugins into reg.
func Register(reg *plugin.Registry) error {
	plugins := []plugin.Plugin{
		{
			ID:          IDMermaidSyntax,
			Name:        "Mermaid diagrams",
			Description: "Renders mermaid fenced code blocks as diagrams",
			Payload: plugin.Syntax{
				Languages: markdown.DiagramLanguages(),
				Marker:    markdown.DiagramMarker,
			},
		},
		{
			ID:          IDMathSyntax,
			Name:        "Math",
			Description: "TeX math between $ and $$ delimiters",
			Payload:     plugin.Syntax{Languages: []string{"math"}, Marker: "math"},
		},
	}
	plugins = append(plugins, toolbarPlugins()...)
	plugins = append(plugins, shortcutPlugins()...)
	plugins = append(plugins,
		trimTrailingSpace(),
		slashCommands(),
		emojiShortcodes(),
		mermaidPreview(),
		htmlExporter(reg),
		markdownExporter(),
	)

	for _, p := range plugins {
		if p.Version == "" {
			p.Version = builtinVersion
		}
		if err := reg.Register(p); err != nil {
			return fmt.Errorf("register %s: %w", p.ID, err)
		}
	}
	return nil
}

// NewRenderer builds a renderer honouring the enabled syntax and transform
// plugins of reg. opts are applied first.
func NewRenderer(reg *plugin.Registry, opts ...markdown.Option) *markdown.Renderer {
	return markdown.NewRenderer(append(opts, RendererOptions(reg)...)...)
}

// RendererOptions maps the enabled plugins of reg to renderer options.
// Diagram bodies go through the enabled preview plugin at render time.
func RendererOptions(reg *plugin.Registry) []markdown.Option {
	var opts []markdown.Option
	if enabled(reg, IDMermaidSyntax) {
		opts = append(opts, markdown.WithDiagramRenderer(func(marker, src string) (string, error) {
			return Preview(reg, marker, src)
		}))
	} else {
		opts = append(opts, markdown.WithoutDiagrams())
	}
	if !enabled(reg, IDMathSyntax) {
		opts = append(opts, markdown.WithoutMath())
	}
	if ts := Transforms(reg); len(ts) > 0 {
		opts = append(opts, markdown.WithTransforms(ts...))
	}
	return opts
}

// Transforms returns the enabled transform plugins, in registration order,
// bound to their current configuration.
func Transforms(reg *plugin.Registry) []markdown.SourceTransform {
	var out []markdown.SourceTransform
	for _, rec := range reg.Enabled(plugin.KindTransform) {
		t, ok := rec.Plugin.Payload.(plugin.Transform)
		if !ok || t.Apply == nil {
			continue
		}
		apply, cfg, id := t.Apply, rec.Config, rec.ID()
		out = append(out, func(src []byte) ([]byte, error) {
			res, err := apply(src, cfg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", id, err)
			}
			return res, nil
		})
	}
	return out
}

// Exporter returns the first enabled exporter for format and its config.
func Exporter(reg *plugin.Registry, format string) (plugin.Export, plugin.Config, error) {
	for _, rec := range reg.Enabled(plugin.KindExport) {
		if e, ok := rec.Plugin.Payload.(plugin.Export); ok && e.Format == format {
			return e, rec.Config, nil
		}
	}
	return plugin.Export{}, nil, fmt.Errorf("%w %q", ErrNoExporter, format)
}

func enabled(reg *plugin.Registry, id string) bool {
	rec, ok := reg.Get(id)
	return ok && rec.Enabled
}
