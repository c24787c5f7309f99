// Package canvas provides the page canvas: the composed page raster, the
// text and image overlays on top of it, and pointer input for the editor.
package canvas

import (
	"image"

	"pdf-touchup/internal/app"
	"pdf-touchup/internal/compositor"
	"pdf-touchup/internal/editor"
	"pdf-touchup/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// emptySize is the canvas size shown before a page is rendered.
var emptySize = fyne.NewSize(400, 300)

// PageCanvas displays the current page of a session. Fyne units map one to
// one onto raster pixels at the session zoom.
type PageCanvas struct {
	widget.BaseWidget

	session *app.Session

	page     *fynecanvas.Image
	overlays []fyne.CanvasObject
	entry    *inlineEntry
	shown    *editor.TextEntry

	scroll  *zoomScroll
	content *pageContent
	size    fyne.Size

	// Callbacks
	onZoomIn  func()
	onZoomOut func()
}

// NewPageCanvas creates a canvas wired to s.
func NewPageCanvas(s *app.Session) *PageCanvas {
	c := &PageCanvas{session: s, size: emptySize}

	c.page = fynecanvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	c.page.FillMode = fynecanvas.ImageFillStretch
	c.page.ScaleMode = fynecanvas.ImageScalePixels

	c.entry = newInlineEntry()
	c.entry.Hide()
	c.entry.OnChanged = func(text string) { s.Editor().SetEntryContent(text) }
	c.entry.OnSubmitted = func(text string) { s.Editor().CommitText(text) }
	c.entry.onCancel = func() { s.Editor().CancelText() }
	c.entry.onFocusLost = func() {
		// Only the entry this field was shown for is committed.
		if ed := s.Editor(); c.shown != nil && ed.Entry() == c.shown {
			ed.CommitText(c.entry.Text)
		}
	}

	c.content = newPageContent(c)
	c.scroll = newZoomScroll(c.content, c)

	s.On(app.EventTextEntry, func(data interface{}) {
		e, _ := data.(*editor.TextEntry)
		c.showEntry(e)
	})

	c.ExtendBaseWidget(c)
	return c
}

// Container returns the canvas container for embedding in layouts.
func (c *PageCanvas) Container() fyne.CanvasObject {
	return c.scroll
}

// OnZoom sets the callbacks for mouse wheel zoom.
func (c *PageCanvas) OnZoom(in, out func()) {
	c.onZoomIn = in
	c.onZoomOut = out
}

// Redraw composes the current page and rebuilds the overlay objects.
func (c *PageCanvas) Redraw() {
	frame, ok := c.session.Compose()
	if !ok {
		c.overlays = nil
		c.setSize(emptySize)
		c.content.Refresh()
		return
	}

	c.page.Image = frame.Image
	b := frame.Image.Bounds()
	c.setSize(fyne.NewSize(float32(b.Dx()), float32(b.Dy())))
	c.page.Refresh()

	c.overlays = c.overlays[:0]
	for _, ov := range frame.Overlays {
		if obj := c.overlayObject(ov); obj != nil {
			c.overlays = append(c.overlays, obj)
		}
	}
	c.content.Refresh()
}

// overlayObject rasterizes one overlay at its raster position.
func (c *PageCanvas) overlayObject(ov compositor.Overlay) fyne.CanvasObject {
	img, err := c.session.Overlays().Render(ov)
	if err != nil {
		fyne.LogError("Canvas: overlay "+ov.ID, err)
		return nil
	}
	obj := fynecanvas.NewImageFromImage(img)
	obj.FillMode = fynecanvas.ImageFillStretch
	obj.ScaleMode = fynecanvas.ImageScalePixels
	b := img.Bounds()
	obj.Move(fyne.NewPos(float32(ov.Bounds.X), float32(ov.Bounds.Y)))
	obj.Resize(fyne.NewSize(float32(b.Dx()), float32(b.Dy())))
	return obj
}

func (c *PageCanvas) setSize(size fyne.Size) {
	c.size = size
	c.page.Resize(size)
	c.content.Resize(size)
	c.scroll.Refresh()
}

// showEntry places the inline text field for e, or hides it for nil.
func (c *PageCanvas) showEntry(e *editor.TextEntry) {
	c.shown = e
	if e == nil {
		c.entry.Hide()
		c.content.Refresh()
		return
	}
	c.entry.SetText(e.Content)
	c.entry.Move(fyne.NewPos(float32(e.At.X), float32(e.At.Y)))
	c.entry.Resize(fyne.NewSize(entryWidth, c.entry.MinSize().Height))
	c.entry.Show()
	c.content.Refresh()
	if cv := fyne.CurrentApp().Driver().CanvasForObject(c.content); cv != nil {
		cv.Focus(c.entry)
	}
}

// CreateRenderer implements fyne.Widget.
func (c *PageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.scroll)
}

// zoomScroll wraps a scroll container; the mouse wheel zooms instead of
// scrolling.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *PageCanvas
}

func newZoomScroll(content fyne.CanvasObject, c *PageCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: c}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	zs.canvas.wheel(ev)
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

func (c *PageCanvas) wheel(ev *fyne.ScrollEvent) {
	switch {
	case ev.Scrolled.DY > 0 && c.onZoomIn != nil:
		c.onZoomIn()
	case ev.Scrolled.DY < 0 && c.onZoomOut != nil:
		c.onZoomOut()
	}
}

// pageContent holds the page image, overlays and inline entry, and turns
// pointer events into editor calls.
type pageContent struct {
	widget.BaseWidget
	canvas  *PageCanvas
	pressed bool
	last    geometry.Point
}

var (
	_ desktop.Mouseable = (*pageContent)(nil)
	_ desktop.Hoverable = (*pageContent)(nil)
	_ fyne.Draggable    = (*pageContent)(nil)
	_ fyne.Scrollable   = (*pageContent)(nil)
)

func newPageContent(c *PageCanvas) *pageContent {
	pc := &pageContent{canvas: c}
	pc.ExtendBaseWidget(pc)
	return pc
}

func (pc *pageContent) editor() *editor.Editor { return pc.canvas.session.Editor() }

func point(p fyne.Position) geometry.Point {
	return geometry.Pt(float64(p.X), float64(p.Y))
}

func (pc *pageContent) MinSize() fyne.Size { return pc.canvas.size }

func (pc *pageContent) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary || !pc.canvas.session.HasDocument() {
		return
	}
	pc.pressed = true
	pc.last = point(ev.Position)
	pc.editor().PointerDown(pc.last)
}

func (pc *pageContent) MouseUp(ev *desktop.MouseEvent) {
	if !pc.pressed {
		return
	}
	pc.pressed = false
	pc.last = point(ev.Position)
	pc.editor().PointerUp(pc.last)
}

func (pc *pageContent) MouseIn(*desktop.MouseEvent) {}

func (pc *pageContent) MouseMoved(ev *desktop.MouseEvent) {
	if !pc.pressed {
		return
	}
	pc.last = point(ev.Position)
	pc.editor().PointerMove(pc.last)
}

func (pc *pageContent) MouseOut() {
	if !pc.pressed {
		return
	}
	pc.pressed = false
	pc.editor().PointerLeave()
}

// Dragged keeps drags on the page from panning the scroll container.
func (pc *pageContent) Dragged(ev *fyne.DragEvent) {
	if !pc.pressed {
		return
	}
	pc.last = point(ev.Position)
	pc.editor().PointerMove(pc.last)
}

func (pc *pageContent) DragEnd() {
	if !pc.pressed {
		return
	}
	pc.pressed = false
	pc.editor().PointerUp(pc.last)
}

func (pc *pageContent) Scrolled(ev *fyne.ScrollEvent) {
	pc.canvas.wheel(ev)
}

func (pc *pageContent) CreateRenderer() fyne.WidgetRenderer {
	return &pageContentRenderer{content: pc}
}

type pageContentRenderer struct {
	content *pageContent
}

func (r *pageContentRenderer) Layout(size fyne.Size) {
	r.content.canvas.page.Resize(size)
}

func (r *pageContentRenderer) MinSize() fyne.Size {
	return r.content.canvas.size
}

func (r *pageContentRenderer) Refresh() {
	for _, obj := range r.Objects() {
		obj.Refresh()
	}
}

func (r *pageContentRenderer) Objects() []fyne.CanvasObject {
	c := r.content.canvas
	objs := make([]fyne.CanvasObject, 0, len(c.overlays)+2)
	objs = append(objs, c.page)
	objs = append(objs, c.overlays...)
	return append(objs, c.entry)
}

func (r *pageContentRenderer) Destroy() {}
