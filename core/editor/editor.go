package editor

// DefaultHistoryLimit bounds the undo history of an Editor.
const DefaultHistoryLimit = 100

// Observer is notified with the full document text after every change.
type Observer func(text string)

// change is one applied edit, kept for undo and redo.
type change struct {
	before State
	after  State
}

// Editor owns an editing State and applies the formatting operations to it.
// Every successful operation notifies the observer exactly once; operations
// that have nothing to do leave the state alone and notify nobody.
//
// An Editor is not safe for concurrent use.
type Editor struct {
	state    State
	observer Observer

	undo  []change
	redo  []change
	limit int
}

// NewEditor creates an editor over text with the cursor at the end.
func NewEditor(text string, observer Observer) *Editor {
	return &Editor{
		state:    State{Text: text, Selection: Cursor(len(text))},
		observer: observer,
		limit:    DefaultHistoryLimit,
	}
}

// State returns the current editing state.
func (e *Editor) State() State { return e.state }

// Text returns the current document text.
func (e *Editor) Text() string { return e.state.Text }

// Selection returns the current selection.
func (e *Editor) Selection() Selection { return e.state.Selection }

// SetSelection moves the selection. Offsets are clamped to the document.
// Selection changes are not content changes and do not notify.
func (e *Editor) SetSelection(sel Selection) {
	e.state.Selection = Selection{
		Anchor: clampOffset(sel.Anchor, len(e.state.Text)),
		Head:   clampOffset(sel.Head, len(e.state.Text)),
	}
}

// WrapSelection applies WrapSelection to the editor state.
func (e *Editor) WrapSelection(before, after, placeholder string) bool {
	next, ok := WrapSelection(e.state, before, after, placeholder)
	if !ok {
		return false
	}
	e.apply(next)
	return true
}

// InsertAtLineStart applies InsertAtLineStart to the editor state.
func (e *Editor) InsertAtLineStart(prefix string) bool {
	e.apply(InsertAtLineStart(e.state, prefix))
	return true
}

// InsertText replaces the selection with text.
func (e *Editor) InsertText(text string) bool {
	e.apply(InsertText(e.state, text))
	return true
}

// ReplaceRange replaces [from, to) with text.
func (e *Editor) ReplaceRange(text string, from, to int) bool {
	e.apply(ReplaceRange(e.state, text, from, to))
	return true
}

// FormatText applies a toolbar action.
func (e *Editor) FormatText(action Action, opts Options) bool {
	next, ok := FormatText(e.state, action, opts)
	if !ok {
		return false
	}
	e.apply(next)
	return true
}

// CanUndo reports whether there is a change to undo.
func (e *Editor) CanUndo() bool { return len(e.undo) > 0 }

// CanRedo reports whether there is an undone change to redo.
func (e *Editor) CanRedo() bool { return len(e.redo) > 0 }

// Undo reverts the last change.
func (e *Editor) Undo() bool {
	if len(e.undo) == 0 {
		return false
	}
	c := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, c)
	e.state = c.before
	e.notify()
	return true
}

// Redo re-applies the last undone change.
func (e *Editor) Redo() bool {
	if len(e.redo) == 0 {
		return false
	}
	c := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	e.undo = append(e.undo, c)
	e.state = c.after
	e.notify()
	return true
}

func (e *Editor) apply(next State) {
	e.undo = append(e.undo, change{before: e.state, after: next})
	if len(e.undo) > e.limit {
		e.undo = e.undo[len(e.undo)-e.limit:]
	}
	e.redo = nil
	e.state = next
	e.notify()
}

func (e *Editor) notify() {
	if e.observer != nil {
		e.observer(e.state.Text)
	}
}
