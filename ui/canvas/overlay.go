package canvas

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// entryWidth is the width of the inline text field in pixels.
const entryWidth = 260

// inlineEntry is the multi-line field used to type text onto the page.
// Enter or losing focus commits, Shift+Enter starts a new line and Escape
// cancels.
type inlineEntry struct {
	widget.Entry
	onCancel    func()
	onFocusLost func()

	shift bool
}

func newInlineEntry() *inlineEntry {
	e := &inlineEntry{}
	e.MultiLine = true
	e.Wrapping = fyne.TextWrapOff
	e.SetPlaceHolder("Type text, Enter to place")
	e.ExtendBaseWidget(e)
	return e
}

func (e *inlineEntry) KeyDown(key *fyne.KeyEvent) {
	if isShift(key.Name) {
		e.shift = true
	}
	e.Entry.KeyDown(key)
}

func (e *inlineEntry) KeyUp(key *fyne.KeyEvent) {
	if isShift(key.Name) {
		e.shift = false
	}
	e.Entry.KeyUp(key)
}

func (e *inlineEntry) TypedKey(key *fyne.KeyEvent) {
	switch key.Name {
	case fyne.KeyEscape:
		if e.onCancel != nil {
			e.onCancel()
		}
		return
	case fyne.KeyReturn, fyne.KeyEnter:
		if !e.shift {
			if e.OnSubmitted != nil {
				e.OnSubmitted(e.Text)
			}
			return
		}
		// The base entry submits on Shift+Enter when OnSubmitted is set.
		submit := e.OnSubmitted
		e.OnSubmitted = nil
		e.Entry.TypedKey(key)
		e.OnSubmitted = submit
		return
	}
	e.Entry.TypedKey(key)
}

func (e *inlineEntry) FocusLost() {
	e.shift = false
	e.Entry.FocusLost()
	if e.Visible() && e.onFocusLost != nil {
		e.onFocusLost()
	}
}

func isShift(name fyne.KeyName) bool {
	return name == desktop.KeyShiftLeft || name == desktop.KeyShiftRight
}
