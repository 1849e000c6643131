package editor

import "strings"

// WrapSelection surrounds the selected text with before and after and
// collapses the selection right after the inserted after.
//
// With an empty selection it inserts before+placeholder+after at the cursor
// and selects the placeholder, so typing replaces it. With an empty selection
// and no placeholder there is nothing to do and ok is false.
func WrapSelection(s State, before, after, placeholder string) (State, bool) {
	sel := s.Selection.clamp(len(s.Text))
	from, to := sel.Anchor, sel.Head

	if from != to {
		text := s.Text[:from] + before + s.Text[from:to] + after + s.Text[to:]
		return State{Text: text, Selection: Cursor(to + len(before) + len(after))}, true
	}

	if placeholder == "" {
		return s, false
	}
	text := s.Text[:from] + before + placeholder + after + s.Text[from:]
	start := from + len(before)
	return State{Text: text, Selection: Selection{Anchor: start, Head: start + len(placeholder)}}, true
}

// InsertAtLineStart inserts prefix at the start of the line containing the
// selection start and places the cursor right after the prefix.
func InsertAtLineStart(s State, prefix string) State {
	sel := s.Selection.clamp(len(s.Text))
	lineStart := LineStart(s.Text, sel.Anchor)
	text := s.Text[:lineStart] + prefix + s.Text[lineStart:]
	return State{Text: text, Selection: Cursor(lineStart + len(prefix))}
}

// InsertText replaces the current selection with text.
func InsertText(s State, text string) State {
	sel := s.Selection.clamp(len(s.Text))
	return ReplaceRange(s, text, sel.Anchor, sel.Head)
}

// ReplaceRange replaces [from, to) with text and collapses the selection at
// from+len(text). Offsets are clamped to the document and swapped if reversed.
func ReplaceRange(s State, text string, from, to int) State {
	r := Selection{Anchor: from, Head: to}.clamp(len(s.Text))
	out := s.Text[:r.Anchor] + text + s.Text[r.Head:]
	return State{Text: out, Selection: Cursor(r.Anchor + len(text))}
}

// LineStart returns the offset of the first byte of the line containing off.
func LineStart(text string, off int) int {
	off = clampOffset(off, len(text))
	return strings.LastIndexByte(text[:off], '\n') + 1
}
