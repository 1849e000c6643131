// Package editor implements the formatting operations of the Markdown editor
// toolbar as pure functions over an editing State.
//
// Offsets are byte offsets into the UTF-8 document text. Callers holding
// UTF-16 offsets (browser editors) convert with FromUTF16 and ToUTF16.
package editor

// Selection is the pair of offsets bounding the current selection.
// Anchor is where the selection started; Head is where the cursor is.
// When Anchor == Head the selection is a plain cursor.
type Selection struct {
	Anchor int `json:"anchor"`
	Head   int `json:"head"`
}

// Cursor returns a collapsed selection at offset.
func Cursor(offset int) Selection {
	return Selection{Anchor: offset, Head: offset}
}

// IsEmpty reports whether the selection has no extent.
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Head
}

// Start returns the lower bound of the selection.
func (s Selection) Start() int {
	if s.Anchor <= s.Head {
		return s.Anchor
	}
	return s.Head
}

// End returns the upper bound of the selection.
func (s Selection) End() int {
	if s.Anchor >= s.Head {
		return s.Anchor
	}
	return s.Head
}

// Normalize returns the selection with Anchor <= Head.
func (s Selection) Normalize() Selection {
	return Selection{Anchor: s.Start(), Head: s.End()}
}

// clamp limits both offsets to [0, n] and normalizes.
func (s Selection) clamp(n int) Selection {
	return Selection{Anchor: clampOffset(s.Anchor, n), Head: clampOffset(s.Head, n)}.Normalize()
}

func clampOffset(off, n int) int {
	if off < 0 {
		return 0
	}
	if off > n {
		return n
	}
	return off
}

// State is the editing state consulted by every operation: the document
// text and the current selection.
type State struct {
	Text      string    `json:"text"`
	Selection Selection `json:"selection"`
}

// Selected returns the selected text.
func (s State) Selected() string {
	sel := s.Selection.clamp(len(s.Text))
	return s.Text[sel.Anchor:sel.Head]
}
