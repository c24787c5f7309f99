package editor

import (
	"math"

	"pdf-touchup/internal/element"
	"pdf-touchup/internal/history"
	"pdf-touchup/internal/hittest"
	"pdf-touchup/internal/textrun"
	"pdf-touchup/pkg/geometry"
)

// PointerDown starts a gesture at p, a raster point on the current page.
func (e *Editor) PointerDown(p geometry.Point) {
	if e.entry != nil {
		e.CommitText(e.entry.Content)
	}
	if e.gesture != nil {
		e.finish(e.gesture.last)
	}
	switch e.tool {
	case ToolSelect:
		e.downSelect(p)
	case ToolText:
		e.downText(p)
	case ToolDraw:
		e.gesture = &gesture{kind: gestureDraw, start: p, last: p, points: []geometry.Point{p}}
		e.updatePreview()
	case ToolShape, ToolHighlight, ToolErase:
		e.gesture = &gesture{kind: gestureBox, start: p, last: p}
		e.updatePreview()
	}
}

// PointerMove extends the current gesture.
func (e *Editor) PointerMove(p geometry.Point) {
	g := e.gesture
	if g == nil {
		return
	}
	g.last = p
	switch g.kind {
	case gestureMove:
		moved := g.origin.Translated(p.X-g.start.X, p.Y-g.start.Y)
		e.override = &moved
	case gestureResize:
		frame := g.origin.Frame(e.measurer)
		resized := g.origin.ResizedTo(hittest.Resize(frame, hittest.Corner(g.corner), p), e.measurer)
		e.override = &resized
	case gestureDraw:
		if geometry.Distance(g.points[len(g.points)-1], p) >= 1 {
			g.points = append(g.points, p)
		}
		e.updatePreview()
	case gestureBox:
		e.updatePreview()
	}
	e.changed()
}

// PointerUp commits the current gesture at p.
func (e *Editor) PointerUp(p geometry.Point) {
	if e.gesture == nil {
		return
	}
	if e.gesture.kind == gestureDraw && geometry.Distance(e.gesture.points[len(e.gesture.points)-1], p) >= 1 {
		e.gesture.points = append(e.gesture.points, p)
	}
	e.finish(p)
}

// PointerLeave finalizes the current gesture at its last known point rather
// than discarding it.
func (e *Editor) PointerLeave() {
	if e.gesture == nil {
		return
	}
	e.finish(e.gesture.last)
}

func (e *Editor) downSelect(p geometry.Point) {
	els := e.pageElements()
	if e.selected != "" {
		for _, el := range els {
			if el.ID != e.selected {
				continue
			}
			if c, ok := hittest.Handle(p, el.Frame(e.measurer)); ok {
				stored, _ := e.store.Get(el.ID)
				e.gesture = &gesture{kind: gestureResize, start: p, last: p,
					stored: stored, origin: el, corner: int(c)}
				return
			}
		}
	}
	if id, ok := hittest.Hit(p, els, e.measurer); ok {
		e.selectID(id)
		for _, el := range els {
			if el.ID == id {
				stored, _ := e.store.Get(id)
				e.gesture = &gesture{kind: gestureMove, start: p, last: p, stored: stored, origin: el}
			}
		}
		e.changed()
		return
	}
	e.selectID("")
	if run, ok := textrun.At(e.Runs(), p); ok {
		e.openEntry(&TextEntry{At: run.Box.TopLeft(), Content: run.Text, Replace: &run})
	}
	e.changed()
}

// finish ends the gesture at p and commits it if it is large enough.
func (e *Editor) finish(p geometry.Point) {
	g := e.gesture
	e.gesture = nil
	e.preview = nil
	e.override = nil
	defer e.changed()

	v := e.viewport
	switch g.kind {
	case gestureMove:
		dx, dy := p.X-g.start.X, p.Y-g.start.Y
		if math.Hypot(dx, dy) <= MoveThreshold {
			return
		}
		e.do(history.Update("move", g.stored, g.origin.Translated(dx, dy)))
	case gestureResize:
		if geometry.Distance(p, g.start) <= MoveThreshold {
			return
		}
		box := hittest.Resize(g.origin.Frame(e.measurer), hittest.Corner(g.corner), p)
		if box.Width < MinSize || box.Height < MinSize {
			return
		}
		e.do(history.Update("resize", g.stored, g.origin.ResizedTo(box, e.measurer)))
	case gestureDraw:
		if len(g.points) < 2 {
			return
		}
		s := e.settings
		el := element.NewPath(v.Page, v.Scale, element.Path{Points: g.points, Stroke: s.Color, Width: s.StrokeWidth})
		e.do(history.Create("draw", el, -1))
	case gestureBox:
		el, ok := e.boxElement(g.start, p)
		if !ok || !largeEnough(el) {
			return
		}
		e.do(history.Create("add "+el.Kind.String(), el, -1))
	}
}

// boxElement builds the element a box gesture from a to b would create.
func (e *Editor) boxElement(a, b geometry.Point) (element.Element, bool) {
	v, s := e.viewport, e.settings
	box := geometry.NormalizeRect(a, b)
	switch e.tool {
	case ToolShape:
		if s.Shape == element.ShapeLine {
			box = geometry.NewRect(a.X, a.Y, b.X-a.X, b.Y-a.Y)
		}
		return element.NewShape(v.Page, v.Scale, box, element.Shape{
			Kind: s.Shape, Stroke: s.Color, StrokeWidth: s.StrokeWidth, Fill: s.Fill,
		}), true
	case ToolHighlight:
		c := s.HighlightColor
		if s.Annotation != element.AnnotationHighlight {
			c = s.Color
		}
		return element.NewAnnotation(v.Page, v.Scale, box, element.Annotation{Kind: s.Annotation, Color: c}), true
	case ToolErase:
		return element.NewWhiteout(v.Page, v.Scale, box), true
	}
	return element.Element{}, false
}

func largeEnough(el element.Element) bool {
	if el.Kind == element.KindShape && el.Shape.Kind == element.ShapeLine {
		return math.Hypot(el.Box.Width, el.Box.Height) >= MinSize
	}
	return el.Box.Width >= MinSize && el.Box.Height >= MinSize
}

// updatePreview rebuilds the uncommitted element for the current gesture.
func (e *Editor) updatePreview() {
	g := e.gesture
	if g == nil {
		e.preview = nil
		return
	}
	switch g.kind {
	case gestureDraw:
		s := e.settings
		el := element.NewPath(e.viewport.Page, e.viewport.Scale,
			element.Path{Points: g.points, Stroke: s.Color, Width: s.StrokeWidth})
		e.preview = &el
	case gestureBox:
		if el, ok := e.boxElement(g.start, g.last); ok {
			e.preview = &el
		}
	}
}

// Preview returns the uncommitted element of the current gesture.
func (e *Editor) Preview() *element.Element { return e.preview }
