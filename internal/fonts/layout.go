package fonts

import (
	"math"
	"strings"
)

// Align is the horizontal alignment of lines inside a text box.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// Line is one laid-out line. Offset is measured from the left edge of the box.
type Line struct {
	Text   string
	Offset float64
	Width  float64
}

// Layout is multi-line text measured at one size. Line i has its top at
// i*Advance and its baseline at i*Advance+Ascent.
type Layout struct {
	Lines   []Line
	Width   float64
	Height  float64
	Ascent  float64
	Advance float64
}

// Baseline returns the y offset of line i's baseline from the top of the box.
func (l Layout) Baseline(i int) float64 {
	return float64(i)*l.Advance + l.Ascent
}

// Lay splits content on newlines, measures each line and aligns it within
// the widest line.
func Lay(m Measurer, face Face, size float64, content string, align Align) Layout {
	parts := strings.Split(content, "\n")
	out := Layout{
		Lines:   make([]Line, len(parts)),
		Ascent:  m.Ascent(face, size),
		Advance: size * LineHeight,
	}
	for i, p := range parts {
		w := m.Measure(face, size, p)
		out.Lines[i] = Line{Text: p, Width: w}
		out.Width = math.Max(out.Width, w)
	}
	for i := range out.Lines {
		switch align {
		case AlignCenter:
			out.Lines[i].Offset = (out.Width - out.Lines[i].Width) / 2
		case AlignRight:
			out.Lines[i].Offset = out.Width - out.Lines[i].Width
		}
	}
	out.Height = float64(len(parts)) * out.Advance
	return out
}
