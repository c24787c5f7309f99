package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"pdf-touchup/pkg/geometry"

	"golang.org/x/image/vector"
)

// ellipseSegments is the number of line segments approximating an ellipse.
const ellipseSegments = 64

// painter fills polygons onto one destination with a reusable rasterizer.
type painter struct {
	dst *image.RGBA
	z   *vector.Rasterizer
}

func newPainter(dst *image.RGBA) *painter {
	b := dst.Bounds()
	return &painter{dst: dst, z: vector.NewRasterizer(b.Dx(), b.Dy())}
}

// begin resets the rasterizer for a new fill.
func (p *painter) begin() {
	b := p.dst.Bounds()
	p.z.Reset(b.Dx(), b.Dy())
	p.z.DrawOp = draw.Over
}

// polygon adds a closed subpath. Overlapping subpaths added between begin and
// flush saturate instead of cancelling.
func (p *painter) polygon(pts []geometry.Point) {
	if len(pts) < 3 {
		return
	}
	p.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, pt := range pts[1:] {
		p.z.LineTo(float32(pt.X), float32(pt.Y))
	}
	p.z.ClosePath()
}

// flush paints the accumulated coverage with c.
func (p *painter) flush(c color.Color) {
	p.z.Draw(p.dst, p.dst.Bounds(), image.NewUniform(c), image.Point{})
}

func (p *painter) fillRect(r geometry.Rect, c color.Color) {
	p.begin()
	cs := r.Corners()
	p.polygon(cs[:])
	p.flush(c)
}

// strokeRect outlines r with a stroke centered on its edges.
func (p *painter) strokeRect(r geometry.Rect, width float64, c color.Color) {
	if width <= 0 {
		return
	}
	h := width / 2
	p.begin()
	for _, edge := range []geometry.Rect{
		{X: r.X - h, Y: r.Y - h, Width: r.Width + width, Height: width},
		{X: r.X - h, Y: r.Y + r.Height - h, Width: r.Width + width, Height: width},
		{X: r.X - h, Y: r.Y + h, Width: width, Height: r.Height - width},
		{X: r.X + r.Width - h, Y: r.Y + h, Width: width, Height: r.Height - width},
	} {
		cs := edge.Corners()
		p.polygon(cs[:])
	}
	p.flush(c)
}

func ellipsePoints(r geometry.Rect, grow float64) []geometry.Point {
	c := r.Center()
	rx, ry := math.Abs(r.Width)/2+grow, math.Abs(r.Height)/2+grow
	pts := make([]geometry.Point, ellipseSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / ellipseSegments
		pts[i] = geometry.Pt(c.X+rx*math.Cos(a), c.Y+ry*math.Sin(a))
	}
	return pts
}

func (p *painter) fillEllipse(r geometry.Rect, c color.Color) {
	p.begin()
	p.polygon(ellipsePoints(r, 0))
	p.flush(c)
}

// strokeEllipse draws the ring between the ellipse grown and shrunk by half
// the stroke width, one quad per segment.
func (p *painter) strokeEllipse(r geometry.Rect, width float64, c color.Color) {
	if width <= 0 {
		return
	}
	outer := ellipsePoints(r, width/2)
	inner := ellipsePoints(r, -width/2)
	p.begin()
	for i := range outer {
		j := (i + 1) % len(outer)
		p.polygon([]geometry.Point{outer[i], outer[j], inner[j], inner[i]})
	}
	p.flush(c)
}

// addSegment adds a quad of the given width around a-b.
func (p *painter) addSegment(a, b geometry.Point, width float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	p.polygon([]geometry.Point{
		geometry.Pt(a.X+nx, a.Y+ny),
		geometry.Pt(b.X+nx, b.Y+ny),
		geometry.Pt(b.X-nx, b.Y-ny),
		geometry.Pt(a.X-nx, a.Y-ny),
	})
}

// addDot adds a small polygonal disc used for round joins and caps. It winds
// the same way as addSegment so overlaps saturate.
func (p *painter) addDot(c geometry.Point, width float64) {
	r := width / 2
	if r < 0.75 {
		return
	}
	pts := make([]geometry.Point, 16)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / 16
		pts[i] = geometry.Pt(c.X+r*math.Cos(a), c.Y-r*math.Sin(a))
	}
	p.polygon(pts)
}

func (p *painter) line(a, b geometry.Point, width float64, c color.Color) {
	p.polyline([]geometry.Point{a, b}, width, c)
}

// polyline strokes connected segments with round joins.
func (p *painter) polyline(pts []geometry.Point, width float64, c color.Color) {
	if len(pts) == 0 || width <= 0 {
		return
	}
	p.begin()
	for i := 1; i < len(pts); i++ {
		p.addSegment(pts[i-1], pts[i], width)
	}
	for _, pt := range pts {
		p.addDot(pt, width)
	}
	p.flush(c)
}

// cloneRGBA copies src so the caller's raster is never drawn on.
func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
