// Package flatten writes the element layer permanently into a copy of the
// source document.
package flatten

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"

	"pdf-touchup/internal/element"
	"pdf-touchup/internal/fonts"
	"pdf-touchup/pkg/colorutil"
	"pdf-touchup/pkg/geometry"
)

var (
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	ErrMalformedImage         = errors.New("malformed image payload")
	ErrInvalidScale           = errors.New("element has no render scale")
	ErrPageRange              = errors.New("element page does not exist")
)

// ElementError reports the element that stopped a save.
type ElementError struct {
	ID   string
	Kind element.Kind
	Err  error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %s (%s): %v", e.ID, e.Kind, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

// Loader parses source bytes into a fresh, writable document.
type Loader interface {
	Load(src []byte) (Document, error)
}

// TextOp is one line of text. X/Y is the left end of the baseline.
type TextOp struct {
	X, Y  float64
	Text  string
	Face  fonts.Face
	Size  float64
	Color color.NRGBA
}

// ImageOp places an encoded image into Box, rotated clockwise by Rotation
// degrees about the box center.
type ImageOp struct {
	ID       string
	Box      geometry.Rect
	Rotation float64
	Opacity  float64
	Payload  []byte
	Format   element.ImageFormat
}

// Document is a writable page model. Pages are 1-based and all coordinates
// are in document space: points with a bottom-left origin, rectangles
// anchored at their bottom-left corner.
type Document interface {
	PageCount() int
	PageSize(page int) (geometry.Size, error)

	FillRect(page int, r geometry.Rect, c color.NRGBA)
	StrokeRect(page int, r geometry.Rect, width float64, c color.NRGBA)
	Ellipse(page int, r geometry.Rect, width float64, stroke color.NRGBA, fill *color.NRGBA)
	Line(page int, a, b geometry.Point, width float64, c color.NRGBA)
	Polyline(page int, pts []geometry.Point, width float64, c color.NRGBA)
	Text(page int, op TextOp)
	Image(page int, op ImageOp)

	Serialize(w io.Writer) error
}

// Pipeline flattens element snapshots onto source documents.
type Pipeline struct {
	loader   Loader
	measurer fonts.Measurer
}

// NewPipeline creates a pipeline. Text is laid out with m, which must be the
// measurer the preview used.
func NewPipeline(l Loader, m fonts.Measurer) *Pipeline {
	if m == nil {
		m = fonts.Default
	}
	return &Pipeline{loader: l, measurer: m}
}

// Save draws els onto a fresh copy of src and returns the encoded result.
// Whiteouts are painted before anything else; the remaining elements follow
// in the given order. els is not modified.
func (p *Pipeline) Save(ctx context.Context, src []byte, els []element.Element) ([]byte, error) {
	for _, el := range els {
		if err := preflight(el); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := p.loader.Load(src)
	if err != nil {
		return nil, fmt.Errorf("failed to load source: %w", err)
	}
	sizes := make(map[int]geometry.Size)
	for _, el := range els {
		if _, ok := sizes[el.Page]; ok {
			continue
		}
		if el.Page < 1 || el.Page > doc.PageCount() {
			return nil, &ElementError{ID: el.ID, Kind: el.Kind, Err: ErrPageRange}
		}
		size, err := doc.PageSize(el.Page)
		if err != nil {
			return nil, &ElementError{ID: el.ID, Kind: el.Kind, Err: err}
		}
		sizes[el.Page] = size
	}

	for _, el := range els {
		if el.Kind == element.KindWhiteout {
			r := geometry.RectToDocument(el.Box, sizes[el.Page].Height, el.Scale)
			doc.FillRect(el.Page, r, nrgba(colorutil.White))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, el := range els {
		if el.Kind == element.KindWhiteout {
			continue
		}
		p.draw(doc, el, sizes[el.Page].Height)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := doc.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	log.Printf("Save: flattened %d elements onto %d pages (%d bytes)", len(els), doc.PageCount(), buf.Len())
	return buf.Bytes(), nil
}

func preflight(el element.Element) error {
	fail := func(err error) error {
		return &ElementError{ID: el.ID, Kind: el.Kind, Err: err}
	}
	if el.Scale <= 0 {
		return fail(ErrInvalidScale)
	}
	if el.Kind != element.KindImage {
		return nil
	}
	format := element.DetectFormat(el.Image.Payload)
	if format == element.FormatUnknown {
		return fail(ErrUnsupportedImageFormat)
	}
	if _, _, err := image.Decode(bytes.NewReader(el.Image.Payload)); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrMalformedImage, err))
	}
	return nil
}

// draw converts one non-whiteout element to document space and issues its
// drawing operations.
func (p *Pipeline) draw(doc Document, el element.Element, h float64) {
	s := el.Scale
	pt := func(x, y float64) geometry.Point {
		return geometry.ToDocument(geometry.Pt(x, y), h, s)
	}
	box := geometry.RectToDocument(el.Box, h, s)

	switch el.Kind {
	case element.KindText:
		t := el.Text
		c := nrgba(t.Color)
		layout := el.Layout(p.measurer)
		off, thick := element.UnderlineRule(t.FontSize)
		for i, line := range layout.Lines {
			x := el.Box.X + line.Offset
			y := el.Box.Y + layout.Baseline(i)
			at := pt(x, y)
			if line.Text != "" {
				doc.Text(el.Page, TextOp{X: at.X, Y: at.Y, Text: line.Text, Face: t.Face(),
					Size: geometry.LengthToDocument(t.FontSize, s), Color: c})
			}
			if t.Underline && line.Width > 0 {
				doc.Line(el.Page, pt(x, y+off), pt(x+line.Width, y+off),
					geometry.LengthToDocument(thick, s), c)
			}
		}

	case element.KindImage:
		img := el.Image
		doc.Image(el.Page, ImageOp{
			ID:       el.ID,
			Box:      box,
			Rotation: img.Rotation,
			Opacity:  img.Opacity,
			Payload:  img.Payload,
			Format:   element.DetectFormat(img.Payload),
		})

	case element.KindShape:
		sh := el.Shape
		w := geometry.LengthToDocument(sh.StrokeWidth, s)
		stroke := nrgba(sh.Stroke)
		var fill *color.NRGBA
		if sh.Fill != nil {
			f := nrgba(*sh.Fill)
			fill = &f
		}
		switch sh.Kind {
		case element.ShapeRectangle:
			if fill != nil {
				doc.FillRect(el.Page, box, *fill)
			}
			doc.StrokeRect(el.Page, box, w, stroke)
		case element.ShapeCircle:
			doc.Ellipse(el.Page, box, w, stroke, fill)
		case element.ShapeLine:
			a, b := el.Box.TopLeft(), el.Box.BottomRight()
			doc.Line(el.Page, pt(a.X, a.Y), pt(b.X, b.Y), w, stroke)
		}

	case element.KindAnnotation:
		a := el.Annotation
		n := geometry.NormalizeRect(el.Box.TopLeft(), el.Box.BottomRight())
		rule := geometry.LengthToDocument(element.RuleWidth(n), s)
		switch a.Kind {
		case element.AnnotationHighlight:
			doc.FillRect(el.Page, box, colorutil.WithAlpha(a.Color, element.HighlightAlpha))
		case element.AnnotationStrikethrough:
			y := n.Y + n.Height/2
			doc.Line(el.Page, pt(n.X, y), pt(n.X+n.Width, y), rule, nrgba(a.Color))
		case element.AnnotationUnderline:
			y := n.Y + n.Height
			doc.Line(el.Page, pt(n.X, y), pt(n.X+n.Width, y), rule, nrgba(a.Color))
		}

	case element.KindPath:
		pts := make([]geometry.Point, len(el.Path.Points))
		for i, q := range el.Path.Points {
			pts[i] = pt(q.X, q.Y)
		}
		doc.Polyline(el.Page, pts, geometry.LengthToDocument(el.Path.Width, s), nrgba(el.Path.Stroke))
	}
}

func nrgba(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
