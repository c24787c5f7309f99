package flatten

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"pdf-touchup/internal/document"
	"pdf-touchup/internal/element"
	"pdf-touchup/pkg/colorutil"
	"pdf-touchup/pkg/geometry"

	"github.com/jung-kurt/gofpdf"
)

// sourcePDF builds a small letter-size document with the given page count.
func sourcePDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: 612, Ht: 792}})
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, "source page")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build source: %v", err)
	}
	return buf.Bytes()
}

func TestPDFLoaderPages(t *testing.T) {
	doc, err := PDFLoader{}.Load(sourcePDF(t, 3))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n := doc.PageCount(); n != 3 {
		t.Fatalf("PageCount = %d, want 3", n)
	}
	size, err := doc.PageSize(2)
	if err != nil {
		t.Fatalf("PageSize: %v", err)
	}
	if size.Width != 612 || size.Height != 792 {
		t.Errorf("PageSize = %+v, want 612x792", size)
	}
	if _, err := doc.PageSize(4); !errors.Is(err, document.ErrPageRange) {
		t.Errorf("PageSize(4) err = %v, want ErrPageRange", err)
	}
}

func TestPDFLoaderRejectsNonPDF(t *testing.T) {
	_, err := PDFLoader{}.Load([]byte("GIF89a"))
	if !errors.Is(err, document.ErrInvalidSignature) {
		t.Errorf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestSaveWithPDFLoader(t *testing.T) {
	src := sourcePDF(t, 2)
	fill := colorutil.Blue
	els := []element.Element{
		element.NewWhiteout(1, 1.5, geometry.NewRect(100, 100, 200, 40)),
		element.NewText(1, 1.5, geometry.Pt(100, 100), element.Text{Content: "Hello\nworld", FontSize: 18, Color: colorutil.Black, Underline: true}),
		element.NewShape(1, 1.5, geometry.NewRect(100, 300, 100, 50), element.Shape{Kind: element.ShapeRectangle, Stroke: colorutil.Red, StrokeWidth: 3}),
		element.NewShape(2, 1, geometry.NewRect(50, 50, 80, 80), element.Shape{Kind: element.ShapeCircle, Stroke: colorutil.Red, StrokeWidth: 2, Fill: &fill}),
		element.NewAnnotation(2, 1, geometry.NewRect(10, 10, 100, 20), element.Annotation{Kind: element.AnnotationHighlight, Color: colorutil.Yellow}),
		element.NewPath(2, 1, element.Path{Points: []geometry.Point{geometry.Pt(0, 0), geometry.Pt(40, 30), geometry.Pt(80, 0)}, Stroke: colorutil.Green, Width: 3}),
		element.NewImage(2, 1, geometry.NewRect(200, 200, 40, 20), element.Image{Payload: pngPayload(t), Rotation: 30, Opacity: 0.5}),
	}

	out, err := NewPipeline(PDFLoader{}, nil).Save(context.Background(), src, els)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !bytes.HasPrefix(out, document.Signature) {
		t.Fatalf("output does not start with %q", document.Signature)
	}

	doc, err := PDFLoader{}.Load(out)
	if err != nil {
		t.Fatalf("reload output: %v", err)
	}
	if n := doc.PageCount(); n != 2 {
		t.Errorf("output PageCount = %d, want 2", n)
	}
}

func TestPDFLoaderRejectsCorruptBody(t *testing.T) {
	src := append([]byte("%PDF-1.4\n"), []byte("1 0 obj << /Type /Catalog /Pages 9 0 R >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF")...)
	_, err := PDFLoader{}.Load(src)
	if !errors.Is(err, document.ErrCorrupted) {
		t.Errorf("err = %v, want ErrCorrupted", err)
	}
}

func TestSaveRectangleOnThreePageSource(t *testing.T) {
	src := sourcePDF(t, 3)
	els := []element.Element{
		element.NewShape(1, 1.5, geometry.NewRect(100, 100, 100, 50), element.Shape{Kind: element.ShapeRectangle, Stroke: colorutil.Red, StrokeWidth: 2}),
	}
	out, err := NewPipeline(PDFLoader{}, nil).Save(context.Background(), src, els)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	doc, err := PDFLoader{}.Load(out)
	if err != nil {
		t.Fatalf("reload output: %v", err)
	}
	if n := doc.PageCount(); n != 3 {
		t.Fatalf("output PageCount = %d, want 3", n)
	}
	for page := 1; page <= 3; page++ {
		size, err := doc.PageSize(page)
		if err != nil {
			t.Fatalf("PageSize(%d): %v", page, err)
		}
		if size.Width != 612 || size.Height != 792 {
			t.Errorf("page %d size = %+v, want 612x792", page, size)
		}
	}
}

func TestRepeatedSavesAreEquivalent(t *testing.T) {
	src := sourcePDF(t, 1)
	els := []element.Element{
		element.NewWhiteout(1, 1.5, geometry.NewRect(100, 100, 200, 40)),
		element.NewText(1, 1.5, geometry.Pt(100, 100), element.Text{Content: "replacement", FontSize: 18, Color: colorutil.Black}),
		element.NewImage(1, 1, geometry.NewRect(200, 200, 40, 20), element.Image{Payload: pngPayload(t), Opacity: 1}),
	}
	p := NewPipeline(PDFLoader{}, nil)
	first, err := p.Save(context.Background(), src, els)
	if err != nil {
		t.Fatalf("first Save: %v", err)
	}
	second, err := p.Save(context.Background(), src, els)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}

	objects := []byte(" 0 obj")
	if a, b := bytes.Count(first, objects), bytes.Count(second, objects); a != b {
		t.Errorf("object count = %d and %d", a, b)
	}
	for i, out := range [][]byte{first, second} {
		doc, err := PDFLoader{}.Load(out)
		if err != nil {
			t.Fatalf("reload save %d: %v", i+1, err)
		}
		size, err := doc.PageSize(1)
		if err != nil || doc.PageCount() != 1 || size.Width != 612 || size.Height != 792 {
			t.Errorf("save %d: pages = %d, size = %+v, err = %v", i+1, doc.PageCount(), size, err)
		}
	}
}
