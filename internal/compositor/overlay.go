package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sync"

	"pdf-touchup/internal/element"
	"pdf-touchup/internal/fonts"
	"pdf-touchup/pkg/geometry"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// OverlayRenderer rasterizes text and image overlays. Decoded image payloads
// are cached per element id.
type OverlayRenderer struct {
	fonts *fonts.Cache

	mu     sync.Mutex
	images map[string]image.Image
}

// NewOverlayRenderer creates a renderer drawing text with faces from fc.
func NewOverlayRenderer(fc *fonts.Cache) *OverlayRenderer {
	if fc == nil {
		fc = fonts.Default
	}
	return &OverlayRenderer{fonts: fc, images: make(map[string]image.Image)}
}

// Forget drops every cached decoded image.
func (r *OverlayRenderer) Forget() {
	r.mu.Lock()
	r.images = make(map[string]image.Image)
	r.mu.Unlock()
}

// Decode returns the decoded payload of an image element.
func (r *OverlayRenderer) Decode(el element.Element) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.images[el.ID]; ok {
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(el.Image.Payload))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", el.ID, err)
	}
	r.images[el.ID] = img
	return img, nil
}

// Render rasterizes one overlay into an image the size of its bounds. The
// returned image's origin corresponds to ov.Bounds' top-left.
func (r *OverlayRenderer) Render(ov Overlay) (*image.RGBA, error) {
	w := int(math.Ceil(ov.Bounds.Width))
	h := int(math.Ceil(ov.Bounds.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	origin := ov.Bounds.TopLeft()
	switch ov.Kind {
	case element.KindText:
		return dst, r.drawText(dst, ov.Element, origin)
	case element.KindImage:
		return dst, r.drawImage(dst, ov.Element, origin)
	}
	return dst, nil
}

// RenderOverlays draws overlays onto dst in order. Overlays that fail to
// render are skipped and the first error is returned.
func (r *OverlayRenderer) RenderOverlays(dst *image.RGBA, overlays []Overlay) error {
	var first error
	for _, ov := range overlays {
		var err error
		switch ov.Kind {
		case element.KindText:
			err = r.drawText(dst, ov.Element, geometry.Point{})
		case element.KindImage:
			err = r.drawImage(dst, ov.Element, geometry.Point{})
		}
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// drawText draws a text element with its box offset by -origin.
func (r *OverlayRenderer) drawText(dst *image.RGBA, el element.Element, origin geometry.Point) error {
	t := el.Text
	face, err := r.fonts.Face(t.Face(), t.FontSize)
	if err != nil {
		return err
	}
	layout := el.Layout(r.fonts)
	src := image.NewUniform(t.Color)
	x0 := el.Box.X - origin.X
	y0 := el.Box.Y - origin.Y

	d := &font.Drawer{Dst: dst, Src: src, Face: face}
	for i, line := range layout.Lines {
		baseline := y0 + layout.Baseline(i)
		d.Dot = fixed.Point26_6{
			X: fixed.Int26_6(math.Round((x0 + line.Offset) * 64)),
			Y: fixed.Int26_6(math.Round(baseline * 64)),
		}
		d.DrawString(line.Text)
		if t.Underline && line.Width > 0 {
			off, thick := element.UnderlineRule(t.FontSize)
			top := baseline + off - thick/2
			rule := image.Rect(
				int(math.Round(x0+line.Offset)), int(math.Round(top)),
				int(math.Round(x0+line.Offset+line.Width)), int(math.Round(top+thick)),
			)
			draw.Draw(dst, rule, src, image.Point{}, draw.Over)
		}
	}
	return nil
}

// drawImage scales and rotates the payload into the element box, offset by
// -origin, at the element's opacity.
func (r *OverlayRenderer) drawImage(dst *image.RGBA, el element.Element, origin geometry.Point) error {
	src, err := r.Decode(el)
	if err != nil {
		return err
	}
	sb := src.Bounds()
	if sb.Empty() || el.Box.Width <= 0 || el.Box.Height <= 0 {
		return nil
	}
	box := el.Box.Translate(-origin.X, -origin.Y)
	c := box.Center()
	sx := box.Width / float64(sb.Dx())
	sy := box.Height / float64(sb.Dy())
	rad := el.Image.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	hw, hh := float64(sb.Dx())/2, float64(sb.Dy())/2
	ox, oy := float64(sb.Min.X)+hw, float64(sb.Min.Y)+hh

	s2d := f64.Aff3{
		cos * sx, -sin * sy, c.X - cos*sx*ox + sin*sy*oy,
		sin * sx, cos * sy, c.Y - sin*sx*ox - cos*sy*oy,
	}
	opts := &xdraw.Options{}
	if el.Image.Opacity < 1 {
		opts.SrcMask = image.NewUniform(color.Alpha{A: uint8(math.Max(0, el.Image.Opacity)*255 + 0.5)})
	}
	xdraw.CatmullRom.Transform(dst, s2d, src, sb, xdraw.Over, opts)
	return nil
}
