package editor

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// Action names a toolbar formatting action.
type Action string

// Formatting actions.
const (
	ActionBold          Action = "bold"
	ActionItalic        Action = "italic"
	ActionQuote         Action = "quote"
	ActionCode          Action = "code"
	ActionLink          Action = "link"
	ActionImage         Action = "image"
	ActionTable         Action = "table"
	ActionBulletList    Action = "bullet-list"
	ActionNumberList    Action = "number-list"
	ActionCustomImage   Action = "custom-image"
	ActionStrikethrough Action = "strikethrough"
	ActionHeading       Action = "heading"
	ActionTaskList      Action = "task-list"
	ActionCodeBlock     Action = "code-block"
	ActionMermaid       Action = "mermaid"
	ActionMath          Action = "math"
)

// Options carries the optional arguments of an action.
type Options struct {
	URL      string `json:"url,omitempty" mapstructure:"url"`
	Alt      string `json:"alt,omitempty" mapstructure:"alt"`
	Width    string `json:"width,omitempty" mapstructure:"width"`
	Rows     int    `json:"rows,omitempty" mapstructure:"rows"`
	Cols     int    `json:"cols,omitempty" mapstructure:"cols"`
	Level    int    `json:"level,omitempty" mapstructure:"level"`
	Language string `json:"language,omitempty" mapstructure:"language"`
}

type formatter func(State, Options) (State, bool)

func wrap(before, after, placeholder string) formatter {
	return func(s State, _ Options) (State, bool) {
		return WrapSelection(s, before, after, placeholder)
	}
}

func linePrefix(prefix string) formatter {
	return func(s State, _ Options) (State, bool) {
		return InsertAtLineStart(s, prefix), true
	}
}

var formatters = map[Action]formatter{
	ActionBold:          wrap("**", "**", "bold text"),
	ActionItalic:        wrap("*", "*", "italic text"),
	ActionStrikethrough: wrap("~~", "~~", "strikethrough text"),
	ActionCode:          wrap("`", "`", "code"),
	ActionQuote:         linePrefix("> "),
	ActionBulletList:    linePrefix("- "),
	ActionNumberList:    linePrefix("1. "),
	ActionTaskList:      linePrefix("- [ ] "),
	ActionMermaid:       wrap("```mermaid\n", "\n```\n", "graph TD;\n    A-->B;"),
	ActionMath:          wrap("$$\n", "\n$$\n", "E = mc^2"),
	ActionLink: func(s State, o Options) (State, bool) {
		return WrapSelection(s, "[", "]("+urlOr(o.URL)+")", "link text")
	},
	ActionImage: func(s State, o Options) (State, bool) {
		alt := o.Alt
		if alt == "" {
			alt = "alt text"
		}
		return WrapSelection(s, "![", "]("+urlOr(o.URL)+")", alt)
	},
	ActionHeading: func(s State, o Options) (State, bool) {
		level := o.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return InsertAtLineStart(s, strings.Repeat("#", level)+" "), true
	},
	ActionCodeBlock: func(s State, o Options) (State, bool) {
		return WrapSelection(s, "```"+o.Language+"\n", "\n```\n", "code")
	},
	ActionTable: func(s State, o Options) (State, bool) {
		return InsertText(s, Table(o.Rows, o.Cols)), true
	},
	ActionCustomImage: func(s State, o Options) (State, bool) {
		if o.URL == "" {
			return s, false
		}
		tag := fmt.Sprintf(`<img src="%s" alt="%s"`, html.EscapeString(o.URL), html.EscapeString(o.Alt))
		if o.Width != "" {
			tag += fmt.Sprintf(` width="%s"`, html.EscapeString(o.Width))
		}
		return InsertText(s, tag+" />"), true
	},
}

func urlOr(u string) string {
	if u == "" {
		return "url"
	}
	return u
}

// FormatText applies action to s. Unknown actions, and actions that have
// nothing to do, return s unchanged and false.
func FormatText(s State, action Action, opts Options) (State, bool) {
	f, ok := formatters[action]
	if !ok {
		return s, false
	}
	return f(s, opts)
}

// IsAction reports whether name is a known formatting action.
func IsAction(name string) bool {
	_, ok := formatters[Action(name)]
	return ok
}

// Actions returns every known action, sorted by name.
func Actions() []Action {
	out := make([]Action, 0, len(formatters))
	for a := range formatters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Table returns an empty GFM table with the given size. Sizes below one
// fall back to two rows and two columns.
func Table(rows, cols int) string {
	if rows < 1 {
		rows = 2
	}
	if cols < 1 {
		cols = 2
	}
	var b strings.Builder
	row := func(cell string) {
		b.WriteString("|")
		for i := 0; i < cols; i++ {
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
	row("Header")
	row("------")
	for i := 0; i < rows; i++ {
		row("Cell  ")
	}
	return b.String()
}
