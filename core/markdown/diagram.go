package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// DiagramMarker is the marker carried by every diagram node. The preview
// renders it as the class of the wrapping div, which is what mermaid.js
// looks for on the client.
const DiagramMarker = "mermaid"

var diagramLanguages = []string{"mermaid", "mmd", "mermaidjs"}

// IsDiagramLanguage reports whether a fenced code block language tag denotes
// a diagram description. Matching is case-insensitive and exact.
func IsDiagramLanguage(tag string) bool {
	if tag == "" {
		return false
	}
	lower := strings.ToLower(tag)
	for _, l := range diagramLanguages {
		if lower == l {
			return true
		}
	}
	return false
}

// DiagramLanguages returns the language tags accepted by IsDiagramLanguage.
func DiagramLanguages() []string {
	out := make([]string, len(diagramLanguages))
	copy(out, diagramLanguages)
	return out
}

// KindDiagram is the node kind of a DiagramBlock.
var KindDiagram = ast.NewNodeKind("Diagram")

// DiagramBlock replaces a fenced code block whose language is a diagram
// language. Source holds the block text with surrounding whitespace removed.
type DiagramBlock struct {
	ast.BaseBlock
	Marker string
	Source string
}

var _ ast.Node = (*DiagramBlock)(nil)

// Kind implements ast.Node.
func (n *DiagramBlock) Kind() ast.NodeKind {
	return KindDiagram
}

// Dump implements ast.Node.
func (n *DiagramBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Marker": n.Marker,
		"Source": n.Source,
	}, nil)
}

func newDiagramBlock(src string) *DiagramBlock {
	return &DiagramBlock{Marker: DiagramMarker, Source: src}
}

// Rewrite replaces every qualifying fenced code block under root with a
// DiagramBlock at the same position and returns the number of replacements.
//
// Qualifying blocks are collected during the walk and replaced afterwards,
// so the walk never sees a half-mutated sibling list.
func Rewrite(root ast.Node, source []byte) int {
	if root == nil {
		return 0
	}

	type replacement struct {
		node ast.Node
		src  string
	}
	var found []replacement

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lang := block.Language(source)
		if lang == nil || !IsDiagramLanguage(string(lang)) {
			return ast.WalkSkipChildren, nil
		}
		src := strings.TrimSpace(blockText(block, source))
		if src == "" {
			return ast.WalkSkipChildren, nil
		}
		found = append(found, replacement{node: block, src: src})
		return ast.WalkSkipChildren, nil
	})

	count := 0
	for _, r := range found {
		parent := r.node.Parent()
		if parent == nil {
			continue
		}
		parent.ReplaceChild(parent, r.node, newDiagramBlock(r.src))
		count++
	}
	return count
}

func blockText(n ast.Node, source []byte) string {
	lines := n.Lines()
	if lines == nil {
		return ""
	}
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if seg.Stop > len(source) || seg.Start > seg.Stop {
			continue
		}
		b.Write(seg.Value(source))
	}
	return b.String()
}

type diagramTransformer struct{}

var _ parser.ASTTransformer = diagramTransformer{}

func (diagramTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	Rewrite(doc, reader.Source())
}

// DiagramFunc renders the body of a diagram node to HTML.
type DiagramFunc func(marker, source string) (string, error)

type diagramHTMLRenderer struct {
	render DiagramFunc
}

var _ renderer.NodeRenderer = diagramHTMLRenderer{}

func (r diagramHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDiagram, r.renderDiagram)
}

func (r diagramHTMLRenderer) renderDiagram(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*DiagramBlock)
	if r.render == nil {
		_, _ = w.WriteString(DiagramHTML(n.Marker, n.Source))
		return ast.WalkSkipChildren, nil
	}
	out, err := r.render(n.Marker, n.Source)
	if err != nil {
		return ast.WalkStop, fmt.Errorf("diagram %s: %w", n.Marker, err)
	}
	_, _ = w.WriteString(out)
	return ast.WalkSkipChildren, nil
}

// DiagramHTML is the container a diagram node renders to. The client-side
// diagram library picks it up by its class.
func DiagramHTML(marker, source string) string {
	var b strings.Builder
	b.WriteString(`<div class="`)
	b.Write(util.EscapeHTML([]byte(marker)))
	b.WriteString(`">`)
	b.Write(util.EscapeHTML([]byte(source)))
	b.WriteString("</div>\n")
	return b.String()
}

type diagramExtension struct {
	render DiagramFunc
}

// Diagrams turns diagram fenced code blocks into DiagramBlock nodes and
// renders them as mermaid containers.
var Diagrams goldmark.Extender = diagramExtension{}

// NewDiagrams is Diagrams with the node bodies rendered by fn. A nil fn
// writes DiagramHTML.
func NewDiagrams(fn DiagramFunc) goldmark.Extender {
	return diagramExtension{render: fn}
}

func (e diagramExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(diagramTransformer{}, 100),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(diagramHTMLRenderer{render: e.render}, 100),
		),
	)
}
