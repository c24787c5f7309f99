package editor

import "strings"

// Key names understood by Key. They match fyne's key names.
const (
	KeyZ         = "Z"
	KeyY         = "Y"
	KeyDelete    = "Delete"
	KeyBackspace = "BackSpace"
	KeyEscape    = "Escape"
)

// KeyEvent is a key press. Shortcut is Ctrl, or Cmd on macOS.
type KeyEvent struct {
	Name     string
	Shortcut bool
	Shift    bool
}

// Key handles the global shortcuts and reports whether the key was used.
// Delete and Backspace are left to an open text entry.
func (e *Editor) Key(ev KeyEvent) bool {
	name := ev.Name
	if len(name) == 1 {
		name = strings.ToUpper(name)
	}
	switch {
	case ev.Shortcut && name == KeyZ && ev.Shift:
		return e.Redo()
	case ev.Shortcut && name == KeyZ:
		return e.Undo()
	case ev.Shortcut && name == KeyY:
		return e.Redo()
	case name == KeyDelete || name == KeyBackspace:
		if e.entry != nil {
			return false
		}
		return e.DeleteSelection()
	case name == KeyEscape:
		if e.entry != nil {
			e.closeEntry()
		}
		e.SetTool(ToolSelect)
		return true
	}
	return false
}
