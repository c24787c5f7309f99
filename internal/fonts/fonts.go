// Package fonts provides the fixed set of font faces shared by the on-screen
// preview, hit-testing and the flattened output, so measured text matches what
// gets written to the page.
package fonts

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/gofont/gosmallcapsitalic"
	"golang.org/x/image/font/opentype"
)

// Family identifies one of the supported typefaces.
type Family int

const (
	Sans Family = iota
	Mono
	SmallCaps
)

func (f Family) String() string {
	switch f {
	case Sans:
		return "sans"
	case Mono:
		return "mono"
	case SmallCaps:
		return "smallcaps"
	default:
		return "unknown"
	}
}

// ParseFamily maps a preference value back to a Family.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sans", "":
		return Sans, nil
	case "mono":
		return Mono, nil
	case "smallcaps":
		return SmallCaps, nil
	}
	return Sans, fmt.Errorf("unknown font family %q", s)
}

// Families returns all supported families in menu order.
func Families() []Family {
	return []Family{Sans, Mono, SmallCaps}
}

// Face selects a family plus style.
type Face struct {
	Family Family
	Bold   bool
	Italic bool
}

// TTF returns the embedded TrueType data for the face. Small caps has no bold
// cut, so bold falls back to the regular weight.
func (f Face) TTF() []byte {
	switch f.Family {
	case Mono:
		switch {
		case f.Bold && f.Italic:
			return gomonobolditalic.TTF
		case f.Bold:
			return gomonobold.TTF
		case f.Italic:
			return gomonoitalic.TTF
		}
		return gomono.TTF
	case SmallCaps:
		if f.Italic {
			return gosmallcapsitalic.TTF
		}
		return gosmallcaps.TTF
	default:
		switch {
		case f.Bold && f.Italic:
			return gobolditalic.TTF
		case f.Bold:
			return gobold.TTF
		case f.Italic:
			return goitalic.TTF
		}
		return goregular.TTF
	}
}

// PDFName returns the family name and style string under which the face is
// registered in an output document.
func (f Face) PDFName() (family, style string) {
	family = "Go" + strings.ToUpper(f.Family.String()[:1]) + f.Family.String()[1:]
	if f.Bold && f.Family != SmallCaps {
		style += "B"
	}
	if f.Italic {
		style += "I"
	}
	return family, style
}

// LineHeight is the line advance as a multiple of the font size.
const LineHeight = 1.2

// measureSize is the pixel size faces are measured at; results scale linearly.
const measureSize = 64

// Measurer reports text metrics in the units of the size passed in.
type Measurer interface {
	Measure(face Face, size float64, s string) float64
	Ascent(face Face, size float64) float64
}

// Cache parses each face once and keeps rendering faces per size. Faces used
// for measuring are kept apart from the ones handed out for drawing.
type Cache struct {
	mu     sync.Mutex
	parsed map[Face]*opentype.Font
	faces  map[faceKey]font.Face
	metric map[Face]font.Face
}

type faceKey struct {
	face Face
	size float64
}

// NewCache creates an empty face cache.
func NewCache() *Cache {
	return &Cache{
		parsed: make(map[Face]*opentype.Font),
		faces:  make(map[faceKey]font.Face),
		metric: make(map[Face]font.Face),
	}
}

// Default is the process-wide cache.
var Default = NewCache()

// Face returns a rendering face for f at the given pixel size. Sizes are
// rounded to a quarter pixel to bound the cache.
func (c *Cache) Face(f Face, size float64) (font.Face, error) {
	size = math.Max(1, math.Round(size*4)/4)
	key := faceKey{face: f, size: size}

	c.mu.Lock()
	defer c.mu.Unlock()
	if face, ok := c.faces[key]; ok {
		return face, nil
	}
	face, err := c.newFace(f, size)
	if err != nil {
		return nil, err
	}
	c.faces[key] = face
	return face, nil
}

// newFace must be called with mu held.
func (c *Cache) newFace(f Face, size float64) (font.Face, error) {
	parsed, ok := c.parsed[f]
	if !ok {
		var err error
		parsed, err = opentype.Parse(f.TTF())
		if err != nil {
			return nil, fmt.Errorf("failed to parse font %s: %w", f.Family, err)
		}
		c.parsed[f] = parsed
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face %s@%.2f: %w", f.Family, size, err)
	}
	return face, nil
}

// metricFace must be called with mu held.
func (c *Cache) metricFace(f Face) (font.Face, error) {
	if face, ok := c.metric[f]; ok {
		return face, nil
	}
	face, err := c.newFace(f, measureSize)
	if err != nil {
		return nil, err
	}
	c.metric[f] = face
	return face, nil
}

// Measure returns the advance width of s at size.
func (c *Cache) Measure(f Face, size float64, s string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	face, err := c.metricFace(f)
	if err != nil {
		return 0
	}
	return float64(font.MeasureString(face, s)) / 64 * size / measureSize
}

// Ascent returns the distance from the top of a line box to the baseline.
func (c *Cache) Ascent(f Face, size float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	face, err := c.metricFace(f)
	if err != nil {
		return size * 0.8
	}
	return float64(face.Metrics().Ascent) / 64 * size / measureSize
}
