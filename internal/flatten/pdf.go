package flatten

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"time"

	"pdf-touchup/internal/document"
	"pdf-touchup/internal/element"
	"pdf-touchup/pkg/geometry"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
)

// Epoch is the creation date written into every saved document. Repeated
// saves of the same input are structurally equivalent: same pages, same
// objects. The importer writes objects in map order, so the bytes may differ.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// PDFLoader reads page geometry with pdfcpu and rebuilds the document with
// gofpdf, importing each source page as a template to draw over.
type PDFLoader struct{}

// Load checks the source and returns a document with one page per source
// page. Encrypted sources are rejected with document.ErrPasswordProtected.
func (PDFLoader) Load(src []byte) (Document, error) {
	sizes, err := document.PageDims(src)
	if err != nil {
		return nil, err
	}
	return &pdfDocument{src: src, sizes: sizes, ops: make(map[int][]drawOp)}, nil
}

// drawOp replays one operation onto the output. Coordinates are converted
// to gofpdf's top-left origin with the page height h.
type drawOp func(w *pdfWriter, h float64)

// pdfDocument records drawing per page and produces the output in Serialize.
type pdfDocument struct {
	src   []byte
	sizes []geometry.Size
	ops   map[int][]drawOp
}

func (d *pdfDocument) PageCount() int { return len(d.sizes) }

func (d *pdfDocument) PageSize(page int) (geometry.Size, error) {
	if page < 1 || page > len(d.sizes) {
		return geometry.Size{}, fmt.Errorf("%w: %d", document.ErrPageRange, page)
	}
	return d.sizes[page-1], nil
}

func (d *pdfDocument) add(page int, op drawOp) {
	d.ops[page] = append(d.ops[page], op)
}

func (d *pdfDocument) FillRect(page int, r geometry.Rect, c color.NRGBA) {
	d.add(page, func(w *pdfWriter, h float64) {
		w.fill(c)
		w.alpha(c.A, func() {
			w.pdf.Rect(r.X, h-r.Y-r.Height, r.Width, r.Height, "F")
		})
	})
}

func (d *pdfDocument) StrokeRect(page int, r geometry.Rect, width float64, c color.NRGBA) {
	d.add(page, func(w *pdfWriter, h float64) {
		w.stroke(c, width)
		w.alpha(c.A, func() {
			w.pdf.Rect(r.X, h-r.Y-r.Height, r.Width, r.Height, "D")
		})
	})
}

func (d *pdfDocument) Ellipse(page int, r geometry.Rect, width float64, stroke color.NRGBA, fill *color.NRGBA) {
	d.add(page, func(w *pdfWriter, h float64) {
		cx, cy := r.X+r.Width/2, h-r.Y-r.Height/2
		if fill != nil {
			w.fill(*fill)
			w.alpha(fill.A, func() {
				w.pdf.Ellipse(cx, cy, r.Width/2, r.Height/2, 0, "F")
			})
		}
		w.stroke(stroke, width)
		w.alpha(stroke.A, func() {
			w.pdf.Ellipse(cx, cy, r.Width/2, r.Height/2, 0, "D")
		})
	})
}

func (d *pdfDocument) Line(page int, a, b geometry.Point, width float64, c color.NRGBA) {
	d.add(page, func(w *pdfWriter, h float64) {
		w.stroke(c, width)
		w.alpha(c.A, func() {
			w.pdf.Line(a.X, h-a.Y, b.X, h-b.Y)
		})
	})
}

func (d *pdfDocument) Polyline(page int, pts []geometry.Point, width float64, c color.NRGBA) {
	if len(pts) == 0 {
		return
	}
	pts = append([]geometry.Point(nil), pts...)
	d.add(page, func(w *pdfWriter, h float64) {
		w.stroke(c, width)
		w.alpha(c.A, func() {
			w.pdf.MoveTo(pts[0].X, h-pts[0].Y)
			for _, p := range pts[1:] {
				w.pdf.LineTo(p.X, h-p.Y)
			}
			w.pdf.DrawPath("D")
		})
	})
}

func (d *pdfDocument) Text(page int, op TextOp) {
	d.add(page, func(w *pdfWriter, h float64) {
		family, style := w.font(op)
		w.pdf.SetFont(family, style, op.Size)
		w.pdf.SetTextColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
		w.alpha(op.Color.A, func() {
			w.pdf.Text(op.X, h-op.Y, op.Text)
		})
	})
}

func (d *pdfDocument) Image(page int, op ImageOp) {
	d.add(page, func(w *pdfWriter, h float64) {
		name, opts, err := w.image(op)
		if err != nil {
			w.pdf.SetError(err)
			return
		}
		r := op.Box
		top := h - r.Y - r.Height
		w.pdf.TransformBegin()
		if op.Rotation != 0 {
			w.pdf.TransformRotate(-op.Rotation, r.X+r.Width/2, top+r.Height/2)
		}
		opacity := op.Opacity
		if opacity <= 0 || opacity > 1 {
			opacity = 1
		}
		w.pdf.SetAlpha(opacity, "Normal")
		w.pdf.ImageOptions(name, r.X, top, r.Width, r.Height, false, opts, 0, "")
		w.pdf.SetAlpha(1, "Normal")
		w.pdf.TransformEnd()
	})
}

// Serialize imports every source page, replays its operations and writes
// the result.
func (d *pdfDocument) Serialize(out io.Writer) error {
	first := d.sizes[0]
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetCreationDate(Epoch)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")

	w := &pdfWriter{pdf: pdf, fonts: make(map[string]bool), images: make(map[string]string)}
	imp := gofpdi.NewImporter()
	var rs io.ReadSeeker = bytes.NewReader(d.src)

	for i, size := range d.sizes {
		page := i + 1
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: size.Width, Ht: size.Height})
		if err := importPage(imp, pdf, &rs, page, size); err != nil {
			return err
		}
		for _, op := range d.ops[page] {
			op(w, size.Height)
		}
		if pdf.Err() {
			return fmt.Errorf("failed to draw page %d: %w", page, pdf.Error())
		}
	}
	return pdf.Output(out)
}

// importPage places source page pageno as the page background. The
// importer panics on sources it cannot parse.
func importPage(imp *gofpdi.Importer, pdf *gofpdf.Fpdf, rs *io.ReadSeeker, pageno int, size geometry.Size) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to import page %d: %v", pageno, r)
		}
	}()
	tpl := imp.ImportPageFromStream(pdf, rs, pageno, "/MediaBox")
	imp.UseImportedTemplate(pdf, tpl, 0, 0, size.Width, size.Height)
	return nil
}

// pdfWriter holds the per-output state shared by replayed operations.
type pdfWriter struct {
	pdf    *gofpdf.Fpdf
	fonts  map[string]bool
	images map[string]string
}

func (w *pdfWriter) fill(c color.NRGBA) {
	w.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func (w *pdfWriter) stroke(c color.NRGBA, width float64) {
	w.pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
	w.pdf.SetLineWidth(width)
}

// alpha runs fn with the fill and stroke opacity set to a.
func (w *pdfWriter) alpha(a uint8, fn func()) {
	if a == 255 {
		fn()
		return
	}
	w.pdf.SetAlpha(float64(a)/255, "Normal")
	fn()
	w.pdf.SetAlpha(1, "Normal")
}

// font registers the op's face on first use and returns its gofpdf name.
func (w *pdfWriter) font(op TextOp) (family, style string) {
	family, style = op.Face.PDFName()
	key := family + "/" + style
	if !w.fonts[key] {
		w.pdf.AddUTF8FontFromBytes(family, style, op.Face.TTF())
		w.fonts[key] = true
	}
	return family, style
}

// image registers the op's payload on first use. PNG payloads are
// re-encoded as 8-bit NRGBA since gofpdf rejects 16-bit and interlaced
// files.
func (w *pdfWriter) image(op ImageOp) (string, gofpdf.ImageOptions, error) {
	name := "img-" + op.ID
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	if op.Format == element.FormatJPEG {
		opts.ImageType = "JPG"
	}
	if _, ok := w.images[name]; ok {
		return name, opts, nil
	}

	payload := op.Payload
	if op.Format == element.FormatPNG {
		src, err := png.Decode(bytes.NewReader(op.Payload))
		if err != nil {
			return "", opts, fmt.Errorf("%w: %v", ErrMalformedImage, err)
		}
		dst := image.NewNRGBA(src.Bounds())
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		var buf bytes.Buffer
		if err := png.Encode(&buf, dst); err != nil {
			return "", opts, fmt.Errorf("failed to encode image %s: %w", op.ID, err)
		}
		payload = buf.Bytes()
	}
	w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(payload))
	w.images[name] = opts.ImageType
	return name, opts, nil
}
