package markdown

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	mathjax "github.com/litao91/goldmark-mathjax"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// DefaultHighlightStyle is the chroma style used when none is configured.
const DefaultHighlightStyle = "github"

// SourceTransform rewrites Markdown source before it is parsed.
type SourceTransform func(source []byte) ([]byte, error)

type options struct {
	style      string
	math       bool
	diagrams   bool
	diagram    DiagramFunc
	sanitize   bool
	transforms []SourceTransform
}

// Option configures a Renderer.
type Option func(*options)

// WithHighlightStyle selects the chroma style for code highlighting.
func WithHighlightStyle(name string) Option {
	return func(o *options) {
		if name != "" {
			o.style = name
		}
	}
}

// WithoutMath disables $...$ and $$...$$ math parsing.
func WithoutMath() Option {
	return func(o *options) { o.math = false }
}

// WithoutDiagrams leaves diagram code blocks as ordinary code.
func WithoutDiagrams() Option {
	return func(o *options) { o.diagrams = false }
}

// WithDiagramRenderer renders diagram bodies with fn instead of the plain
// mermaid container.
func WithDiagramRenderer(fn DiagramFunc) Option {
	return func(o *options) { o.diagram = fn }
}

// WithSanitize runs the rendered HTML through a bluemonday UGC policy.
func WithSanitize() Option {
	return func(o *options) { o.sanitize = true }
}

// WithTransforms appends source transforms, applied in order before parsing.
func WithTransforms(transforms ...SourceTransform) Option {
	return func(o *options) {
		o.transforms = append(o.transforms, transforms...)
	}
}

// Renderer handles Markdown rendering.
type Renderer struct {
	md         goldmark.Markdown
	policy     *bluemonday.Policy
	transforms []SourceTransform
	style      string
}

// NewRenderer creates a new Markdown renderer with extensions.
func NewRenderer(opts ...Option) *Renderer {
	o := options{style: DefaultHighlightStyle, math: true, diagrams: true}
	for _, opt := range opts {
		opt(&o)
	}

	exts := []goldmark.Extender{
		extension.GFM, // tables, strikethrough, task lists, autolinks
		extension.Footnote,
		emoji.Emoji,
		highlighting.NewHighlighting(
			highlighting.WithStyle(o.style),
			highlighting.WithFormatOptions(
				chromahtml.WithClasses(true),
			),
		),
	}
	if o.math {
		exts = append(exts, mathjax.MathJax)
	}
	if o.diagrams {
		exts = append(exts, NewDiagrams(o.diagram))
	}

	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			html.WithUnsafe(), // user embedded HTML (custom images, details blocks)
		),
	)

	r := &Renderer{
		md:         md,
		transforms: o.transforms,
		style:      o.style,
	}
	if o.sanitize {
		r.policy = previewPolicy()
	}
	return r
}

// previewPolicy is the UGC policy extended with the class attributes the
// diagram, math and highlighting output depends on.
func previewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("div", "span", "code", "pre")
	return p
}

// HighlightStyle returns the chroma style name used for code blocks.
func (r *Renderer) HighlightStyle() string {
	return r.style
}

// Render converts Markdown to HTML.
func (r *Renderer) Render(source []byte) ([]byte, error) {
	src, err := r.applyTransforms(source)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, err
	}
	if r.policy != nil {
		return r.policy.SanitizeBytes(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

// Parse returns the transformed document tree for source. Source transforms
// are not applied; the caller owns source.
func (r *Renderer) Parse(source []byte) ast.Node {
	return r.md.Parser().Parse(text.NewReader(source))
}

func (r *Renderer) applyTransforms(source []byte) ([]byte, error) {
	for i, t := range r.transforms {
		out, err := t(source)
		if err != nil {
			return nil, fmt.Errorf("transform %d: %w", i, err)
		}
		source = out
	}
	return source, nil
}
