// Package element defines the editable overlay elements placed on document
// pages and the per-page store that holds them.
package element

import (
	"image/color"
	"math"

	"pdf-touchup/internal/fonts"
	"pdf-touchup/pkg/geometry"

	"github.com/google/uuid"
)

// Kind discriminates the element variants.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindShape
	KindAnnotation
	KindPath
	KindWhiteout
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindShape:
		return "shape"
	case KindAnnotation:
		return "annotation"
	case KindPath:
		return "path"
	case KindWhiteout:
		return "whiteout"
	default:
		return "unknown"
	}
}

// ShapeKind selects the outline drawn by a shape element.
type ShapeKind int

const (
	ShapeRectangle ShapeKind = iota
	ShapeCircle
	ShapeLine
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapeLine:
		return "line"
	default:
		return "rectangle"
	}
}

// AnnotationKind selects how an annotation marks its box.
type AnnotationKind int

const (
	AnnotationHighlight AnnotationKind = iota
	AnnotationStrikethrough
	AnnotationUnderline
)

func (k AnnotationKind) String() string {
	switch k {
	case AnnotationStrikethrough:
		return "strikethrough"
	case AnnotationUnderline:
		return "underline"
	default:
		return "highlight"
	}
}

// HighlightAlpha is the fixed opacity of highlight annotations.
const HighlightAlpha = 0.35

// RuleWidth is the stroke width of strikethrough and underline rules drawn
// for an annotation box.
func RuleWidth(box geometry.Rect) float64 {
	return math.Max(1.5, box.Height/10)
}

// UnderlineRule returns the offset below the baseline and the thickness of
// the underline drawn under text at size.
func UnderlineRule(size float64) (offset, thickness float64) {
	thickness = math.Max(1, size/15)
	return 1.5 * thickness, thickness
}

// ImageFormat is the encoding of an image payload.
type ImageFormat int

const (
	FormatUnknown ImageFormat = iota
	FormatPNG
	FormatJPEG
)

func (f ImageFormat) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// Text holds the attributes of a text element. FontSize is in raster pixels.
type Text struct {
	Content   string       `json:"content"`
	FontSize  float64      `json:"font_size"`
	Family    fonts.Family `json:"family"`
	Color     color.RGBA   `json:"color"`
	Bold      bool         `json:"bold,omitempty"`
	Italic    bool         `json:"italic,omitempty"`
	Underline bool         `json:"underline,omitempty"`
	Align     fonts.Align  `json:"align,omitempty"`
}

// Face returns the font face the text is set in.
func (t Text) Face() fonts.Face {
	return fonts.Face{Family: t.Family, Bold: t.Bold, Italic: t.Italic}
}

// Image holds an embedded raster payload.
type Image struct {
	Payload  []byte      `json:"payload"`
	Format   ImageFormat `json:"format"`
	Rotation float64     `json:"rotation,omitempty"`
	Opacity  float64     `json:"opacity"`
}

// Shape holds the attributes of a rectangle, circle or line.
type Shape struct {
	Kind        ShapeKind   `json:"kind"`
	Stroke      color.RGBA  `json:"stroke"`
	StrokeWidth float64     `json:"stroke_width"`
	Fill        *color.RGBA `json:"fill,omitempty"`
}

// Annotation holds the attributes of a highlight, strikethrough or underline.
type Annotation struct {
	Kind  AnnotationKind `json:"kind"`
	Color color.RGBA     `json:"color"`
}

// Path is one continuous freehand stroke.
type Path struct {
	Points []geometry.Point `json:"points"`
	Stroke color.RGBA       `json:"stroke"`
	Width  float64          `json:"width"`
}

// Element is one editable overlay. Only the attribute struct matching Kind is
// meaningful. All geometry is in raster space at Scale, the render scale
// active when the element was created or last moved.
type Element struct {
	ID    string        `json:"id"`
	Page  int           `json:"page"`
	Kind  Kind          `json:"kind"`
	Scale float64       `json:"scale"`
	Box   geometry.Rect `json:"box"`

	Text       Text       `json:"text,omitempty"`
	Image      Image      `json:"image,omitempty"`
	Shape      Shape      `json:"shape,omitempty"`
	Annotation Annotation `json:"annotation,omitempty"`
	Path       Path       `json:"path,omitempty"`
}

// NewID returns a fresh element id.
func NewID() string {
	return uuid.NewString()
}

// NewText creates a text element whose top-left is at.
func NewText(page int, scale float64, at geometry.Point, t Text) Element {
	return Element{ID: NewID(), Page: page, Kind: KindText, Scale: scale,
		Box: geometry.Rect{X: at.X, Y: at.Y}, Text: t}
}

// NewImage creates an image element filling box.
func NewImage(page int, scale float64, box geometry.Rect, img Image) Element {
	return Element{ID: NewID(), Page: page, Kind: KindImage, Scale: scale, Box: box, Image: img}
}

// NewShape creates a shape element. For lines, box carries signed deltas.
func NewShape(page int, scale float64, box geometry.Rect, s Shape) Element {
	return Element{ID: NewID(), Page: page, Kind: KindShape, Scale: scale, Box: box, Shape: s}
}

// NewAnnotation creates an annotation element over box.
func NewAnnotation(page int, scale float64, box geometry.Rect, a Annotation) Element {
	return Element{ID: NewID(), Page: page, Kind: KindAnnotation, Scale: scale, Box: box, Annotation: a}
}

// NewPath creates a freehand path element. The box is the point bounds.
func NewPath(page int, scale float64, p Path) Element {
	p.Points = append([]geometry.Point(nil), p.Points...)
	return Element{ID: NewID(), Page: page, Kind: KindPath, Scale: scale,
		Box: geometry.BoundingBox(p.Points), Path: p}
}

// NewWhiteout creates an opaque redaction over box.
func NewWhiteout(page int, scale float64, box geometry.Rect) Element {
	return Element{ID: NewID(), Page: page, Kind: KindWhiteout, Scale: scale, Box: box}
}

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	if e.Path.Points != nil {
		e.Path.Points = append([]geometry.Point(nil), e.Path.Points...)
	}
	if e.Shape.Fill != nil {
		fill := *e.Shape.Fill
		e.Shape.Fill = &fill
	}
	// Image payloads are shared; they are never mutated.
	return e
}

// Translated returns a copy moved by (dx, dy) raster pixels.
func (e Element) Translated(dx, dy float64) Element {
	out := e.Clone()
	out.Box = out.Box.Translate(dx, dy)
	for i := range out.Path.Points {
		out.Path.Points[i].X += dx
		out.Path.Points[i].Y += dy
	}
	return out
}

// Rescaled returns a copy whose geometry is expressed at scale instead of
// e.Scale. Font sizes and stroke widths scale like positions.
func (e Element) Rescaled(scale float64) Element {
	out := e.Clone()
	if e.Scale <= 0 || scale <= 0 || scale == e.Scale {
		return out
	}
	f := scale / e.Scale
	out.Scale = scale
	out.Box = out.Box.Scaled(f)
	out.Text.FontSize *= f
	out.Shape.StrokeWidth *= f
	out.Path.Width *= f
	for i := range out.Path.Points {
		out.Path.Points[i].X *= f
		out.Path.Points[i].Y *= f
	}
	return out
}

// Layout lays out a text element's content. Non-text elements get an empty
// layout.
func (e Element) Layout(m fonts.Measurer) fonts.Layout {
	if e.Kind != KindText {
		return fonts.Layout{}
	}
	return fonts.Lay(m, e.Text.Face(), e.Text.FontSize, e.Text.Content, e.Text.Align)
}

// Frame returns the element's normalized geometry box without stroke
// padding. Text boxes are measured with m. Resizing works on frames.
func (e Element) Frame(m fonts.Measurer) geometry.Rect {
	switch e.Kind {
	case KindText:
		l := e.Layout(m)
		return geometry.Rect{X: e.Box.X, Y: e.Box.Y, Width: l.Width, Height: l.Height}
	case KindPath:
		return geometry.BoundingBox(e.Path.Points)
	default:
		return geometry.NormalizeRect(e.Box.TopLeft(), e.Box.BottomRight())
	}
}

// Bounds returns the axis-aligned raster box the element covers, including
// stroke width and image rotation.
func (e Element) Bounds(m fonts.Measurer) geometry.Rect {
	switch e.Kind {
	case KindImage:
		if e.Image.Rotation == 0 {
			return e.Box
		}
		return geometry.BoundingBox(geometry.RotatedCorners(e.Box, e.Image.Rotation))
	case KindShape:
		return e.Frame(m).Inset(e.Shape.StrokeWidth / 2)
	case KindPath:
		return e.Frame(m).Inset(e.Path.Width / 2)
	default:
		return e.Frame(m)
	}
}

// ResizedTo returns a copy whose frame is box. Text scales its font with the
// box height, paths scale their points into the new frame and lines keep
// their direction.
func (e Element) ResizedTo(box geometry.Rect, m fonts.Measurer) Element {
	out := e.Clone()
	switch e.Kind {
	case KindText:
		old := e.Frame(m)
		if old.Height > 0 {
			out.Text.FontSize = math.Max(1, e.Text.FontSize*box.Height/old.Height)
		}
		out.Box = geometry.Rect{X: box.X, Y: box.Y}
	case KindPath:
		old := e.Frame(m)
		sx, sy := 1.0, 1.0
		if old.Width > 0 {
			sx = box.Width / old.Width
		}
		if old.Height > 0 {
			sy = box.Height / old.Height
		}
		for i, p := range e.Path.Points {
			out.Path.Points[i] = geometry.Pt(box.X+(p.X-old.X)*sx, box.Y+(p.Y-old.Y)*sy)
		}
		out.Box = geometry.BoundingBox(out.Path.Points)
	case KindShape:
		out.Box = box
		if e.Shape.Kind == ShapeLine {
			if e.Box.Width < 0 {
				out.Box.X, out.Box.Width = box.X+box.Width, -box.Width
			}
			if e.Box.Height < 0 {
				out.Box.Y, out.Box.Height = box.Y+box.Height, -box.Height
			}
		}
	default:
		out.Box = box
	}
	return out
}
