package editor

import (
	"strings"
	"testing"
)

func TestFormatText(t *testing.T) {
	empty := State{Text: "", Selection: Cursor(0)}
	word := State{Text: "word", Selection: Selection{Anchor: 0, Head: 4}}
	line := State{Text: "first\nsecond", Selection: Cursor(8)}

	tests := []struct {
		name     string
		state    State
		action   Action
		opts     Options
		wantText string
		wantSel  Selection
		wantOK   bool
	}{
		{"bold placeholder", empty, ActionBold, Options{}, "**bold text**", Selection{Anchor: 2, Head: 11}, true},
		{"bold selection", word, ActionBold, Options{}, "**word**", Cursor(8), true},
		{"italic", word, ActionItalic, Options{}, "*word*", Cursor(6), true},
		{"strikethrough", word, ActionStrikethrough, Options{}, "~~word~~", Cursor(8), true},
		{"code", word, ActionCode, Options{}, "`word`", Cursor(6), true},
		{"quote", line, ActionQuote, Options{}, "first\n> second", Cursor(8), true},
		{"bullet list", line, ActionBulletList, Options{}, "first\n- second", Cursor(8), true},
		{"number list", line, ActionNumberList, Options{}, "first\n1. second", Cursor(9), true},
		{"task list", line, ActionTaskList, Options{}, "first\n- [ ] second", Cursor(12), true},
		{"heading default level", line, ActionHeading, Options{}, "first\n# second", Cursor(8), true},
		{"heading level 3", line, ActionHeading, Options{Level: 3}, "first\n### second", Cursor(10), true},
		{"link default url", word, ActionLink, Options{}, "[word](url)", Cursor(11), true},
		{"link with url", empty, ActionLink, Options{URL: "https://x.io"}, "[link text](https://x.io)", Selection{Anchor: 1, Head: 10}, true},
		{"image", empty, ActionImage, Options{URL: "a.png"}, "![alt text](a.png)", Selection{Anchor: 2, Head: 10}, true},
		{"code block", empty, ActionCodeBlock, Options{Language: "go"}, "```go\ncode\n```\n", Selection{Anchor: 6, Head: 10}, true},
		{"mermaid", empty, ActionMermaid, Options{}, "```mermaid\ngraph TD;\n    A-->B;\n```\n", Selection{Anchor: 11, Head: 31}, true},
		{"math", word, ActionMath, Options{}, "$$\nword\n$$\n", Cursor(11), true},
		{"custom image", empty, ActionCustomImage, Options{URL: "a.png", Alt: "A", Width: "50%"}, `<img src="a.png" alt="A" width="50%" />`, Cursor(39), true},
		{"custom image needs url", empty, ActionCustomImage, Options{}, "", Cursor(0), false},
		{"unknown action", word, Action("blink"), Options{}, "word", Selection{Anchor: 0, Head: 4}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatText(tt.state, tt.action, tt.opts)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Selection != tt.wantSel {
				t.Errorf("Selection = %+v, want %+v", got.Selection, tt.wantSel)
			}
		})
	}
}

func TestFormatText_Table(t *testing.T) {
	got, ok := FormatText(State{Text: "x", Selection: Cursor(1)}, ActionTable, Options{})
	if !ok {
		t.Fatal("expected ok")
	}
	want := "x| Header | Header |\n| ------ | ------ |\n| Cell   | Cell   |\n| Cell   | Cell   |\n"
	if got.Text != want {
		t.Errorf("Text = %q, want %q", got.Text, want)
	}
	if got.Selection != Cursor(len(want)) {
		t.Errorf("Selection = %+v, want cursor at end", got.Selection)
	}
}

func TestTable_Size(t *testing.T) {
	table := Table(3, 4)
	lines := strings.Split(strings.TrimSuffix(table, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5: %q", len(lines), table)
	}
	if n := strings.Count(lines[0], "Header"); n != 4 {
		t.Errorf("header has %d columns, want 4", n)
	}
}

func TestActions(t *testing.T) {
	actions := Actions()
	if len(actions) != 16 {
		t.Errorf("len(Actions()) = %d, want 16", len(actions))
	}
	for _, a := range actions {
		if !IsAction(string(a)) {
			t.Errorf("IsAction(%q) = false", a)
		}
	}
	if IsAction("nope") {
		t.Error("IsAction(nope) = true")
	}
}
