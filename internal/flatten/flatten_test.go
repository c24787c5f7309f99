package flatten

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"pdf-touchup/internal/document"
	"pdf-touchup/internal/element"
	"pdf-touchup/internal/fonts"
	"pdf-touchup/pkg/colorutil"
	"pdf-touchup/pkg/geometry"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// op is one recorded drawing call.
type op struct {
	Name  string
	Page  int
	Rect  geometry.Rect
	A, B  geometry.Point
	Width float64
	Color color.NRGBA
	Text  string
	Size  float64
	ID    string
	N     int
}

type recordingDoc struct {
	sizes []geometry.Size
	ops   []op
}

func (d *recordingDoc) PageCount() int { return len(d.sizes) }

func (d *recordingDoc) PageSize(page int) (geometry.Size, error) {
	if page < 1 || page > len(d.sizes) {
		return geometry.Size{}, document.ErrPageRange
	}
	return d.sizes[page-1], nil
}

func (d *recordingDoc) FillRect(page int, r geometry.Rect, c color.NRGBA) {
	d.ops = append(d.ops, op{Name: "fill", Page: page, Rect: r, Color: c})
}

func (d *recordingDoc) StrokeRect(page int, r geometry.Rect, width float64, c color.NRGBA) {
	d.ops = append(d.ops, op{Name: "stroke", Page: page, Rect: r, Width: width, Color: c})
}

func (d *recordingDoc) Ellipse(page int, r geometry.Rect, width float64, stroke color.NRGBA, fill *color.NRGBA) {
	d.ops = append(d.ops, op{Name: "ellipse", Page: page, Rect: r, Width: width, Color: stroke})
}

func (d *recordingDoc) Line(page int, a, b geometry.Point, width float64, c color.NRGBA) {
	d.ops = append(d.ops, op{Name: "line", Page: page, A: a, B: b, Width: width, Color: c})
}

func (d *recordingDoc) Polyline(page int, pts []geometry.Point, width float64, c color.NRGBA) {
	d.ops = append(d.ops, op{Name: "polyline", Page: page, A: pts[0], B: pts[len(pts)-1], N: len(pts), Width: width, Color: c})
}

func (d *recordingDoc) Text(page int, t TextOp) {
	d.ops = append(d.ops, op{Name: "text", Page: page, A: geometry.Pt(t.X, t.Y), Text: t.Text, Size: t.Size, Color: t.Color})
}

func (d *recordingDoc) Image(page int, i ImageOp) {
	d.ops = append(d.ops, op{Name: "image", Page: page, Rect: i.Box, ID: i.ID})
}

func (d *recordingDoc) Serialize(w io.Writer) error {
	for _, o := range d.ops {
		fmt.Fprintf(w, "%+v\n", o)
	}
	return nil
}

type fakeLoader struct {
	pages int
	err   error
	loads int
	last  *recordingDoc
}

func (l *fakeLoader) Load(src []byte) (Document, error) {
	l.loads++
	if l.err != nil {
		return nil, l.err
	}
	d := &recordingDoc{}
	for i := 0; i < l.pages; i++ {
		d.sizes = append(d.sizes, geometry.NewSize(612, 792))
	}
	l.last = d
	return d, nil
}

// fixedMeasurer gives every rune a width of half the size and an ascent of
// 0.8 times the size.
type fixedMeasurer struct{}

func (fixedMeasurer) Measure(_ fonts.Face, size float64, s string) float64 {
	return float64(len([]rune(s))) * size / 2
}

func (fixedMeasurer) Ascent(_ fonts.Face, size float64) float64 { return 0.8 * size }

var approx = cmpopts.EquateApprox(0, 1e-6)

func pngPayload(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func rectangle(page int, scale float64, box geometry.Rect) element.Element {
	return element.NewShape(page, scale, box, element.Shape{
		Kind: element.ShapeRectangle, Stroke: colorutil.Red, StrokeWidth: 3,
	})
}

func TestSaveRectangleCoordinates(t *testing.T) {
	l := &fakeLoader{pages: 3}
	p := NewPipeline(l, fixedMeasurer{})
	el := rectangle(1, 1.5, geometry.NewRect(100, 100, 100, 50))

	if _, err := p.Save(context.Background(), []byte("%PDF-1.7"), []element.Element{el}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := []op{{
		Name:  "stroke",
		Page:  1,
		Rect:  geometry.Rect{X: 100 / 1.5, Y: 792 - 150/1.5, Width: 100 / 1.5, Height: 50 / 1.5},
		Width: 2,
		Color: nrgba(colorutil.Red),
	}}
	if diff := cmp.Diff(want, l.last.ops, approx); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
	if got := l.last.ops[0].Rect; got.X < 66.6 || got.X > 66.7 || got.X+got.Width < 133.3 || got.X+got.Width > 133.4 {
		t.Errorf("rect x range = %.2f..%.2f, want 66.67..133.33", got.X, got.X+got.Width)
	}
}

func TestSaveWhiteoutsFirst(t *testing.T) {
	l := &fakeLoader{pages: 2}
	p := NewPipeline(l, fixedMeasurer{})
	els := []element.Element{
		element.NewText(1, 1, geometry.Pt(10, 10), element.Text{Content: "hi", FontSize: 10, Color: colorutil.Black}),
		element.NewWhiteout(1, 1, geometry.NewRect(0, 0, 50, 20)),
		rectangle(2, 1, geometry.NewRect(5, 5, 10, 10)),
		element.NewWhiteout(2, 1, geometry.NewRect(0, 0, 30, 30)),
	}
	if _, err := p.Save(context.Background(), []byte("%PDF-"), els); err != nil {
		t.Fatalf("Save: %v", err)
	}
	var names []string
	for _, o := range l.last.ops {
		names = append(names, fmt.Sprintf("%s@%d", o.Name, o.Page))
	}
	want := []string{"fill@1", "fill@2", "text@1", "stroke@2"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("op order mismatch (-want +got):\n%s", diff)
	}
	if c := l.last.ops[0].Color; c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("whiteout color = %v, want opaque white", c)
	}
}

func TestSaveTextLines(t *testing.T) {
	l := &fakeLoader{pages: 1}
	p := NewPipeline(l, fixedMeasurer{})
	el := element.NewText(1, 2, geometry.Pt(30, 60), element.Text{
		Content:   "abcd\nab",
		FontSize:  20,
		Color:     colorutil.Blue,
		Underline: true,
		Align:     fonts.AlignCenter,
	})
	if _, err := p.Save(context.Background(), []byte("%PDF-"), []element.Element{el}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Raster: line width 10/rune, ascent 16, advance 24, underline offset 2
	// and thickness 4/3. The second line is centered, so shifted by 10.
	c := nrgba(colorutil.Blue)
	want := []op{
		{Name: "text", Page: 1, A: geometry.Pt(15, 792-38), Text: "abcd", Size: 10, Color: c},
		{Name: "line", Page: 1, A: geometry.Pt(15, 792-39), B: geometry.Pt(35, 792-39), Width: 2.0 / 3, Color: c},
		{Name: "text", Page: 1, A: geometry.Pt(20, 792-50), Text: "ab", Size: 10, Color: c},
		{Name: "line", Page: 1, A: geometry.Pt(20, 792-51), B: geometry.Pt(30, 792-51), Width: 2.0 / 3, Color: c},
	}
	if diff := cmp.Diff(want, l.last.ops, approx); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveMixedScales(t *testing.T) {
	l := &fakeLoader{pages: 1}
	p := NewPipeline(l, fixedMeasurer{})
	a := element.NewWhiteout(1, 1, geometry.NewRect(10, 10, 10, 10))
	b := element.NewWhiteout(1, 2, geometry.NewRect(20, 20, 20, 20))
	if _, err := p.Save(context.Background(), []byte("%PDF-"), []element.Element{a, b}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if diff := cmp.Diff(l.last.ops[0].Rect, l.last.ops[1].Rect, approx); diff != "" {
		t.Errorf("same document box expected at both scales:\n%s", diff)
	}
}

func TestSaveAnnotationsAndPaths(t *testing.T) {
	l := &fakeLoader{pages: 1}
	p := NewPipeline(l, fixedMeasurer{})
	box := geometry.NewRect(0, 0, 100, 20)
	els := []element.Element{
		element.NewAnnotation(1, 1, box, element.Annotation{Kind: element.AnnotationHighlight, Color: colorutil.Yellow}),
		element.NewAnnotation(1, 1, box, element.Annotation{Kind: element.AnnotationStrikethrough, Color: colorutil.Red}),
		element.NewPath(1, 1, element.Path{
			Points: []geometry.Point{geometry.Pt(0, 0), geometry.Pt(5, 5), geometry.Pt(10, 0)},
			Stroke: colorutil.Green, Width: 4,
		}),
	}
	if _, err := p.Save(context.Background(), []byte("%PDF-"), els); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ops := l.last.ops
	if len(ops) != 3 {
		t.Fatalf("got %d ops, want 3", len(ops))
	}
	if ops[0].Name != "fill" || ops[0].Color.A != 89 {
		t.Errorf("highlight = %+v, want translucent fill", ops[0])
	}
	if ops[1].Name != "line" || ops[1].A.Y != 782 || ops[1].Width != 2 {
		t.Errorf("strikethrough = %+v, want line at y 782 width 2", ops[1])
	}
	if ops[2].Name != "polyline" || ops[2].N != 3 || ops[2].B != geometry.Pt(10, 792) {
		t.Errorf("path = %+v, want 3 point polyline", ops[2])
	}
}

func TestSaveUnsupportedImage(t *testing.T) {
	store := element.NewStore()
	img := element.NewImage(1, 1, geometry.NewRect(0, 0, 10, 10), element.Image{
		Payload: []byte("GIF89a not supported"), Opacity: 1,
	})
	store.Append(rectangle(1, 1, geometry.NewRect(0, 0, 5, 5)))
	store.Append(img)
	before := store.Snapshot()

	l := &fakeLoader{pages: 1}
	_, err := NewPipeline(l, fixedMeasurer{}).Save(context.Background(), []byte("%PDF-"), store.All())
	if !errors.Is(err, ErrUnsupportedImageFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedImageFormat", err)
	}
	var ee *ElementError
	if !errors.As(err, &ee) || ee.ID != img.ID || ee.Kind != element.KindImage {
		t.Errorf("err = %#v, want ElementError for %s", err, img.ID)
	}
	if l.loads != 0 {
		t.Errorf("loader called %d times before preflight passed", l.loads)
	}
	if diff := cmp.Diff(before, store.Snapshot()); diff != "" {
		t.Errorf("store changed (-before +after):\n%s", diff)
	}
}

func TestSaveMalformedImage(t *testing.T) {
	payload := append([]byte("\x89PNG\r\n\x1a\n"), "truncated"...)
	img := element.NewImage(1, 1, geometry.NewRect(0, 0, 10, 10), element.Image{Payload: payload, Opacity: 1})
	_, err := NewPipeline(&fakeLoader{pages: 1}, fixedMeasurer{}).Save(context.Background(), []byte("%PDF-"), []element.Element{img})
	if !errors.Is(err, ErrMalformedImage) {
		t.Fatalf("err = %v, want ErrMalformedImage", err)
	}
}

func TestSaveImage(t *testing.T) {
	l := &fakeLoader{pages: 1}
	img := element.NewImage(1, 2, geometry.NewRect(20, 40, 40, 20), element.Image{Payload: pngPayload(t), Opacity: 0.5})
	if _, err := NewPipeline(l, fixedMeasurer{}).Save(context.Background(), []byte("%PDF-"), []element.Element{img}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := []op{{Name: "image", Page: 1, Rect: geometry.Rect{X: 10, Y: 762, Width: 20, Height: 10}, ID: img.ID}}
	if diff := cmp.Diff(want, l.last.ops, approx); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRejectsBadElements(t *testing.T) {
	tests := []struct {
		name string
		el   element.Element
		want error
	}{
		{"missing page", rectangle(4, 1, geometry.NewRect(0, 0, 5, 5)), ErrPageRange},
		{"zero page", rectangle(0, 1, geometry.NewRect(0, 0, 5, 5)), ErrPageRange},
		{"no scale", rectangle(1, 0, geometry.NewRect(0, 0, 5, 5)), ErrInvalidScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(&fakeLoader{pages: 3}, nil).Save(context.Background(), []byte("%PDF-"), []element.Element{tt.el})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveLoadError(t *testing.T) {
	l := &fakeLoader{err: &document.OpenError{Reason: document.ErrPasswordProtected}}
	_, err := NewPipeline(l, nil).Save(context.Background(), []byte("%PDF-"), nil)
	if !errors.Is(err, document.ErrPasswordProtected) {
		t.Errorf("err = %v, want ErrPasswordProtected", err)
	}
}

func TestSaveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPipeline(&fakeLoader{pages: 1}, nil).Save(ctx, []byte("%PDF-"), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSaveIsRepeatable(t *testing.T) {
	box := geometry.NewRect(40, 40, 120, 30)
	els := []element.Element{
		element.NewWhiteout(1, 1.5, box),
		element.NewText(1, 1.5, box.TopLeft(), element.Text{Content: "replacement", FontSize: 18, Color: colorutil.Black}),
	}
	l := &fakeLoader{pages: 1}
	p := NewPipeline(l, fixedMeasurer{})

	first, err := p.Save(context.Background(), []byte("%PDF-"), els)
	if err != nil {
		t.Fatalf("first Save: %v", err)
	}
	firstOps := l.last.ops
	second, err := p.Save(context.Background(), []byte("%PDF-"), els)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if diff := cmp.Diff(firstOps, l.last.ops); diff != "" {
		t.Errorf("ops differ between saves:\n%s", diff)
	}
	if !bytes.Equal(first, second) {
		t.Error("outputs differ between saves")
	}
}
