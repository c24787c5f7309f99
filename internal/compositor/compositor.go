// Package compositor builds the live preview of a page: the rendered page
// raster with vector elements painted on top in a fixed order, plus the text
// and image elements as separately positioned overlays.
package compositor

import (
	"image"
	"image/color"

	"pdf-touchup/internal/element"
	"pdf-touchup/internal/fonts"
	"pdf-touchup/internal/hittest"
	"pdf-touchup/pkg/colorutil"
	"pdf-touchup/pkg/geometry"
)

// SelectionWidth is the stroke width of the selection box in pixels.
const SelectionWidth = 1.5

// Input is everything a frame depends on. Elements, Preview and Override may
// be at any scale; they are rescaled to Scale before drawing.
type Input struct {
	Page     *image.RGBA
	Scale    float64
	Elements []element.Element

	// Preview is the uncommitted element of an in-progress gesture.
	Preview *element.Element
	// Override replaces the stored element with the same id, used while a
	// move or resize is being dragged.
	Override *element.Element

	Selected string
	Measurer fonts.Measurer
}

// Overlay is a text or image element positioned in current raster space.
type Overlay struct {
	ID      string
	Kind    element.Kind
	Bounds  geometry.Rect
	Element element.Element
}

// Frame is the result of one composition.
type Frame struct {
	Image    *image.RGBA
	Overlays []Overlay

	// Selection is the selected element's frame when something is selected.
	Selection *geometry.Rect
	Handles   [4]geometry.Rect
}

// passes is the paint order of the vector layers above the page raster.
var passes = []element.Kind{
	element.KindWhiteout,
	element.KindShape,
	element.KindAnnotation,
	element.KindPath,
}

// Compose draws a new frame. It never modifies the input raster or elements.
func Compose(in Input) Frame {
	m := in.Measurer
	if m == nil {
		m = fonts.Default
	}

	var img *image.RGBA
	if in.Page != nil {
		img = cloneRGBA(in.Page)
	} else {
		img = image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	p := newPainter(img)

	els := make([]element.Element, 0, len(in.Elements))
	for _, el := range in.Elements {
		if in.Override != nil && el.ID == in.Override.ID {
			el = *in.Override
		}
		els = append(els, el.Rescaled(in.Scale))
	}

	for _, kind := range passes {
		for _, el := range els {
			if el.Kind == kind {
				paint(p, el)
			}
		}
	}

	frame := Frame{Image: img}
	for _, el := range els {
		if el.Kind == element.KindText || el.Kind == element.KindImage {
			frame.Overlays = append(frame.Overlays, Overlay{
				ID:      el.ID,
				Kind:    el.Kind,
				Bounds:  el.Bounds(m),
				Element: el,
			})
		}
	}

	if in.Preview != nil {
		paintPreview(p, in.Preview.Rescaled(in.Scale))
	}

	if in.Selected != "" {
		for _, el := range els {
			if el.ID != in.Selected {
				continue
			}
			box := el.Frame(m)
			frame.Selection = &box
			frame.Handles = hittest.Handles(box)
			paintSelection(p, box, frame.Handles)
			break
		}
	}
	return frame
}

// paint draws one vector element.
func paint(p *painter, el element.Element) {
	switch el.Kind {
	case element.KindWhiteout:
		p.fillRect(el.Box, colorutil.White)
	case element.KindShape:
		s := el.Shape
		switch s.Kind {
		case element.ShapeRectangle:
			if s.Fill != nil {
				p.fillRect(el.Box, *s.Fill)
			}
			p.strokeRect(el.Box, s.StrokeWidth, s.Stroke)
		case element.ShapeCircle:
			if s.Fill != nil {
				p.fillEllipse(el.Box, *s.Fill)
			}
			p.strokeEllipse(el.Box, s.StrokeWidth, s.Stroke)
		case element.ShapeLine:
			p.line(el.Box.TopLeft(), el.Box.BottomRight(), s.StrokeWidth, s.Stroke)
		}
	case element.KindAnnotation:
		a := el.Annotation
		switch a.Kind {
		case element.AnnotationHighlight:
			p.fillRect(el.Box, colorutil.WithAlpha(a.Color, element.HighlightAlpha))
		case element.AnnotationStrikethrough:
			y := el.Box.Y + el.Box.Height/2
			p.line(geometry.Pt(el.Box.X, y), geometry.Pt(el.Box.X+el.Box.Width, y), element.RuleWidth(el.Box), a.Color)
		case element.AnnotationUnderline:
			y := el.Box.Y + el.Box.Height
			p.line(geometry.Pt(el.Box.X, y), geometry.Pt(el.Box.X+el.Box.Width, y), element.RuleWidth(el.Box), a.Color)
		}
	case element.KindPath:
		p.polyline(el.Path.Points, el.Path.Width, el.Path.Stroke)
	}
}

var (
	previewOutline = color.NRGBA{R: 120, G: 120, B: 120, A: 200}
	handleFill     = colorutil.White
)

// paintPreview draws an in-progress gesture. Whiteouts get an outline so the
// white box is visible over a white page.
func paintPreview(p *painter, el element.Element) {
	paint(p, el)
	if el.Kind == element.KindWhiteout {
		p.strokeRect(el.Box, 1, previewOutline)
	}
}

func paintSelection(p *painter, box geometry.Rect, handles [4]geometry.Rect) {
	p.strokeRect(box, SelectionWidth, colorutil.Selection)
	for _, h := range handles {
		p.fillRect(h, handleFill)
		p.strokeRect(h, 1, colorutil.Selection)
	}
}
