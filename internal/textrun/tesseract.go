package textrun

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// TesseractDetector recognizes text lines with Tesseract after OpenCV
// binarization.
type TesseractDetector struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractDetector creates a detector for the given Tesseract language.
func NewTesseractDetector(lang string) (*TesseractDetector, error) {
	client := gosseract.NewClient()
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	return &TesseractDetector{client: client}, nil
}

// Close releases the Tesseract client.
func (d *TesseractDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

// Detect returns the text lines found on img.
func (d *TesseractDetector) Detect(img *image.RGBA, scale float64) ([]Run, error) {
	png, err := binarize(img)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil, fmt.Errorf("detector is closed")
	}
	if err := d.client.SetImageFromBytes(png); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := d.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	raw := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		raw = append(raw, Box{Bounds: b.Box, Text: b.Word, Confidence: b.Confidence})
	}
	return FromBoxes(raw, scale), nil
}

// binarize converts the page to a dark-on-light Otsu threshold image and
// encodes it as PNG for Tesseract.
func binarize(img *image.RGBA) ([]byte, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	packed := img
	if img.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		packed = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(packed, packed.Bounds(), img, b.Min, draw.Src)
	}

	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, packed.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap raster: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBAToGray)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	// Tesseract expects dark text on a light background.
	if float64(gocv.CountNonZero(binary)) < 0.5*float64(binary.Rows()*binary.Cols()) {
		gocv.BitwiseNot(binary, &binary)
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
