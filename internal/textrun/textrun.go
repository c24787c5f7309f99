// Package textrun finds runs of text already printed on a rendered page so
// they can be replaced in place.
package textrun

import (
	"image"
	"strings"

	"pdf-touchup/pkg/geometry"
)

// FontSizeRatio relates a detected line box height to its font size.
const FontSizeRatio = 0.8

// MinConfidence drops detections Tesseract is unsure about.
const MinConfidence = 40

// Run is one detected line of page text in raster pixels at Scale.
type Run struct {
	Box        geometry.Rect `json:"box"`
	Text       string        `json:"text"`
	FontSize   float64       `json:"font_size"`
	Confidence float64       `json:"confidence"`
	Scale      float64       `json:"scale"`
}

// Detector finds text runs on a page raster rendered at scale.
type Detector interface {
	Detect(img *image.RGBA, scale float64) ([]Run, error)
}

// Box is a raw recognizer result.
type Box struct {
	Bounds     image.Rectangle
	Text       string
	Confidence float64
}

// FromBoxes converts recognizer boxes into runs, normalizing whitespace and
// dropping empty or low-confidence results.
func FromBoxes(boxes []Box, scale float64) []Run {
	var runs []Run
	for _, b := range boxes {
		text := strings.Join(strings.Fields(b.Text), " ")
		if text == "" || b.Confidence < MinConfidence || b.Bounds.Empty() {
			continue
		}
		h := float64(b.Bounds.Dy())
		runs = append(runs, Run{
			Box: geometry.NewRect(float64(b.Bounds.Min.X), float64(b.Bounds.Min.Y),
				float64(b.Bounds.Dx()), h),
			Text:       text,
			FontSize:   h * FontSizeRatio,
			Confidence: b.Confidence,
			Scale:      scale,
		})
	}
	return runs
}

// At returns the run under p, preferring the smallest box when runs overlap.
func At(runs []Run, p geometry.Point) (Run, bool) {
	best := -1
	for i, r := range runs {
		if !r.Box.Contains(p) {
			continue
		}
		if best < 0 || r.Box.Width*r.Box.Height < runs[best].Box.Width*runs[best].Box.Height {
			best = i
		}
	}
	if best < 0 {
		return Run{}, false
	}
	return runs[best], true
}

// Rescaled returns the run expressed at another render scale.
func (r Run) Rescaled(scale float64) Run {
	if r.Scale <= 0 || scale <= 0 || r.Scale == scale {
		return r
	}
	f := scale / r.Scale
	r.Box = r.Box.Scaled(f)
	r.FontSize *= f
	r.Scale = scale
	return r
}
