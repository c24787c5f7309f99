package editor

import (
	"strings"

	"pdf-touchup/internal/element"
	"pdf-touchup/internal/history"
	"pdf-touchup/internal/hittest"
	"pdf-touchup/internal/textrun"
	"pdf-touchup/pkg/colorutil"
	"pdf-touchup/pkg/geometry"
)

// downText opens an entry at p. Clicking an existing text element edits it
// and clicking a detected page run replaces it.
func (e *Editor) downText(p geometry.Point) {
	els := e.pageElements()
	var texts []element.Element
	for _, el := range els {
		if el.Kind == element.KindText {
			texts = append(texts, el)
		}
	}
	if id, ok := hittest.Hit(p, texts, e.measurer); ok {
		for _, el := range texts {
			if el.ID == id {
				e.openEntry(&TextEntry{At: el.Box.TopLeft(), Content: el.Text.Content, Target: id})
				return
			}
		}
	}
	if run, ok := textrun.At(e.Runs(), p); ok {
		e.openEntry(&TextEntry{At: run.Box.TopLeft(), Content: run.Text, Replace: &run})
		return
	}
	e.openEntry(&TextEntry{At: p})
}

func (e *Editor) openEntry(entry *TextEntry) {
	if e.entry != nil {
		e.CommitText(e.entry.Content)
	}
	e.entry = entry
	e.notifyEntry()
	e.changed()
}

// SetEntryContent records what the user has typed so far.
func (e *Editor) SetEntryContent(s string) {
	if e.entry != nil {
		e.entry.Content = s
	}
}

// CommitText closes the entry and creates, updates or replaces text with s.
// Empty or unchanged content is a no-op.
func (e *Editor) CommitText(s string) bool {
	entry := e.entry
	if entry == nil {
		return false
	}
	e.entry = nil
	e.notifyEntry()
	defer e.changed()

	if strings.TrimSpace(s) == "" {
		return false
	}
	v, st := e.viewport, e.settings

	switch {
	case entry.Target != "":
		before, ok := e.store.Get(entry.Target)
		if !ok || before.Text.Content == s {
			return false
		}
		after := before.Clone()
		after.Text.Content = s
		return e.do(history.Update("edit text", before, after))

	case entry.Replace != nil:
		run := entry.Replace.Rescaled(v.Scale)
		if s == run.Text {
			return false
		}
		white := element.NewWhiteout(v.Page, v.Scale, run.Box)
		txt := element.NewText(v.Page, v.Scale, run.Box.TopLeft(), element.Text{
			Content:  s,
			FontSize: run.FontSize,
			Family:   st.Family,
			Color:    colorutil.Black,
		})
		ok := e.do(history.Compound("replace text",
			history.Create("", white, -1),
			history.Create("", txt, -1)))
		if ok {
			e.selectID(txt.ID)
		}
		return ok

	default:
		txt := element.NewText(v.Page, v.Scale, entry.At, element.Text{
			Content:   s,
			FontSize:  st.FontSize,
			Family:    st.Family,
			Color:     st.Color,
			Bold:      st.Bold,
			Italic:    st.Italic,
			Underline: st.Underline,
			Align:     st.Align,
		})
		return e.do(history.Create("add text", txt, -1))
	}
}

// CancelText closes the entry without changing anything.
func (e *Editor) CancelText() {
	if e.entry == nil {
		return
	}
	e.closeEntry()
	e.changed()
}

func (e *Editor) closeEntry() {
	if e.entry == nil {
		return
	}
	e.entry = nil
	e.notifyEntry()
}

func (e *Editor) notifyEntry() {
	if e.OnTextEntry != nil {
		e.OnTextEntry(e.entry)
	}
}
