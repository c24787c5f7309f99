// Package editor interprets pointer and keyboard input according to the
// active tool and turns committed gestures into history commands.
package editor

import (
	"image"
	"image/color"
	"log"

	"pdf-touchup/internal/compositor"
	"pdf-touchup/internal/element"
	"pdf-touchup/internal/fonts"
	"pdf-touchup/internal/history"
	"pdf-touchup/internal/textrun"
	"pdf-touchup/pkg/colorutil"
	"pdf-touchup/pkg/geometry"
)

// Tool is the active interaction mode.
type Tool int

const (
	ToolSelect Tool = iota
	ToolText
	ToolDraw
	ToolShape
	ToolHighlight
	ToolErase
	ToolImage
)

func (t Tool) String() string {
	switch t {
	case ToolSelect:
		return "select"
	case ToolText:
		return "text"
	case ToolDraw:
		return "draw"
	case ToolShape:
		return "shape"
	case ToolHighlight:
		return "highlight"
	case ToolErase:
		return "erase"
	case ToolImage:
		return "image"
	default:
		return "unknown"
	}
}

// Tools returns every tool in toolbar order.
func Tools() []Tool {
	return []Tool{ToolSelect, ToolText, ToolDraw, ToolShape, ToolHighlight, ToolErase, ToolImage}
}

const (
	// MoveThreshold is the displacement a drag must exceed to commit.
	MoveThreshold = 3.0
	// MinSize is the minimum side of a committed box, or length of a line.
	MinSize = 4.0
	// ImageBox is the side of the square new images are fitted into.
	ImageBox = 200.0
)

// Viewport is the page currently shown and the scale it is rendered at.
// Size is the raster size of the page at Scale.
type Viewport struct {
	Page  int
	Scale float64
	Size  geometry.Size
}

// Settings are the properties given to newly created elements.
type Settings struct {
	Color          color.RGBA
	HighlightColor color.RGBA
	StrokeWidth    float64
	Fill           *color.RGBA
	FontSize       float64
	Family         fonts.Family
	Bold           bool
	Italic         bool
	Underline      bool
	Align          fonts.Align
	Shape          element.ShapeKind
	Annotation     element.AnnotationKind
}

// DefaultSettings returns the settings used before any preference is set.
func DefaultSettings() Settings {
	return Settings{
		Color:          colorutil.Red,
		HighlightColor: colorutil.Yellow,
		StrokeWidth:    3,
		FontSize:       18,
		Family:         fonts.Sans,
	}
}

// TextEntry is an open inline text field. Replace is set when the entry
// replaces a detected page text run; Target is set when it edits an
// existing text element.
type TextEntry struct {
	At      geometry.Point
	Content string
	Replace *textrun.Run
	Target  string
}

type gestureKind int

const (
	gestureMove gestureKind = iota + 1
	gestureResize
	gestureDraw
	gestureBox
)

// gesture is an in-flight pointer drag.
type gesture struct {
	kind   gestureKind
	start  geometry.Point
	last   geometry.Point
	stored element.Element // as held in the store
	origin element.Element // stored, rescaled to the viewport
	corner int
	points []geometry.Point
}

// Editor is the interaction state machine. It is not safe for concurrent
// use; all calls come from the interaction goroutine.
type Editor struct {
	store    *element.Store
	history  *history.History
	measurer fonts.Measurer

	tool     Tool
	viewport Viewport
	settings Settings
	selected string
	gesture  *gesture
	preview  *element.Element
	override *element.Element
	entry    *TextEntry
	runs     []textrun.Run

	// OnChange fires after anything visible changed.
	OnChange func()
	// OnImageRequest fires when the image tool is chosen.
	OnImageRequest func()
	// OnToolChange fires when the active tool changes.
	OnToolChange func(Tool)
	// OnSelectionChange fires with the new selection ("" for none).
	OnSelectionChange func(string)
	// OnTextEntry fires when an inline entry opens (non-nil) or closes (nil).
	OnTextEntry func(*TextEntry)
}

// New creates an editor over store and h.
func New(store *element.Store, h *history.History, m fonts.Measurer) *Editor {
	if m == nil {
		m = fonts.Default
	}
	return &Editor{
		store:    store,
		history:  h,
		measurer: m,
		settings: DefaultSettings(),
		viewport: Viewport{Page: 1, Scale: 1},
	}
}

// Tool returns the active tool.
func (e *Editor) Tool() Tool { return e.tool }

// Selected returns the selected element id, "" for none.
func (e *Editor) Selected() string { return e.selected }

// Entry returns the open text entry, nil if none.
func (e *Editor) Entry() *TextEntry { return e.entry }

// Viewport returns the current viewport.
func (e *Editor) Viewport() Viewport { return e.viewport }

// Settings returns the current creation settings.
func (e *Editor) Settings() Settings { return e.settings }

// SetSettings replaces the creation settings.
func (e *Editor) SetSettings(s Settings) { e.settings = s }

// Store returns the element store the editor mutates.
func (e *Editor) Store() *element.Store { return e.store }

// History returns the command history.
func (e *Editor) History() *history.History { return e.history }

// SetTool switches mode. It commits an open text entry, aborts any gesture
// and clears the selection.
func (e *Editor) SetTool(t Tool) {
	if e.entry != nil {
		e.CommitText(e.entry.Content)
	}
	e.abortGesture()
	e.selectID("")
	if e.tool != t {
		e.tool = t
		if e.OnToolChange != nil {
			e.OnToolChange(t)
		}
	}
	e.changed()
	if t == ToolImage && e.OnImageRequest != nil {
		e.OnImageRequest()
	}
}

// SetViewport changes the visible page or scale. An open entry is committed
// and in-flight gestures are dropped; changing page clears the selection.
func (e *Editor) SetViewport(v Viewport) {
	if v.Scale <= 0 {
		v.Scale = 1
	}
	if e.entry != nil {
		e.CommitText(e.entry.Content)
	}
	e.abortGesture()
	if v.Page != e.viewport.Page {
		e.selectID("")
		e.runs = nil
	}
	e.viewport = v
	e.changed()
}

// SetRuns records the text runs detected on the current page.
func (e *Editor) SetRuns(runs []textrun.Run) {
	e.runs = append([]textrun.Run(nil), runs...)
}

// Runs returns the detected runs expressed at the current scale.
func (e *Editor) Runs() []textrun.Run {
	out := make([]textrun.Run, len(e.runs))
	for i, r := range e.runs {
		out[i] = r.Rescaled(e.viewport.Scale)
	}
	return out
}

// Reset forgets all interaction state, used when a new document is opened.
func (e *Editor) Reset(v Viewport) {
	e.gesture = nil
	e.preview = nil
	e.override = nil
	e.runs = nil
	if e.entry != nil {
		e.entry = nil
		e.notifyEntry()
	}
	e.selectID("")
	e.viewport = v
	e.tool = ToolSelect
	e.changed()
}

// Select makes id the selection if it is on the current page.
func (e *Editor) Select(id string) bool {
	el, ok := e.store.Get(id)
	if !ok || el.Page != e.viewport.Page {
		return false
	}
	e.selectID(id)
	e.changed()
	return true
}

// Restyle applies fn to a copy of the selected element and records the
// result as one update.
func (e *Editor) Restyle(label string, fn func(*element.Element)) bool {
	before, ok := e.store.Get(e.selected)
	if !ok {
		return false
	}
	after := before.Clone()
	fn(&after)
	after.ID = before.ID
	after.Page = before.Page
	return e.do(history.Update(label, before, after))
}

// DeleteSelection removes the selected element.
func (e *Editor) DeleteSelection() bool {
	if e.selected == "" {
		return false
	}
	if !e.do(history.Delete("delete", e.store, e.selected)) {
		return false
	}
	e.selectID("")
	e.changed()
	return true
}

// Undo reverts the newest command.
func (e *Editor) Undo() bool {
	e.abortGesture()
	if _, ok := e.history.Undo(e.store); !ok {
		return false
	}
	e.dropStaleSelection()
	e.changed()
	return true
}

// Redo reapplies the next command.
func (e *Editor) Redo() bool {
	e.abortGesture()
	if _, ok := e.history.Redo(e.store); !ok {
		return false
	}
	e.dropStaleSelection()
	e.changed()
	return true
}

// Compose draws the current page with the editor's live state on top.
func (e *Editor) Compose(page *image.RGBA) compositor.Frame {
	return compositor.Compose(compositor.Input{
		Page:     page,
		Scale:    e.viewport.Scale,
		Elements: e.store.Page(e.viewport.Page),
		Preview:  e.preview,
		Override: e.override,
		Selected: e.selected,
		Measurer: e.measurer,
	})
}

// pageElements returns the current page's elements at the viewport scale.
func (e *Editor) pageElements() []element.Element {
	els := e.store.Page(e.viewport.Page)
	for i := range els {
		els[i] = els[i].Rescaled(e.viewport.Scale)
	}
	return els
}

func (e *Editor) do(cmd history.Command) bool {
	if err := e.history.Do(e.store, cmd); err != nil {
		log.Printf("Editor: %s failed: %v", cmd.Label, err)
		return false
	}
	e.changed()
	return true
}

func (e *Editor) selectID(id string) {
	if e.selected == id {
		return
	}
	e.selected = id
	if e.OnSelectionChange != nil {
		e.OnSelectionChange(id)
	}
}

func (e *Editor) dropStaleSelection() {
	if e.selected == "" {
		return
	}
	if el, ok := e.store.Get(e.selected); !ok || el.Page != e.viewport.Page {
		e.selectID("")
	}
}

func (e *Editor) abortGesture() {
	if e.gesture == nil && e.preview == nil && e.override == nil {
		return
	}
	e.gesture = nil
	e.preview = nil
	e.override = nil
	e.changed()
}

func (e *Editor) changed() {
	if e.OnChange != nil {
		e.OnChange()
	}
}
