// Package hittest resolves which element on a page lies under a raster point.
package hittest

import (
	"pdf-touchup/internal/element"
	"pdf-touchup/internal/fonts"
	"pdf-touchup/pkg/geometry"
)

// Tolerance is the extra margin in raster pixels around strokes.
const Tolerance = 4

// HandleSize is the side length of a resize handle square.
const HandleSize = 8

// classOrder is the order element kinds are tested in.
var classOrder = []element.Kind{
	element.KindText,
	element.KindShape,
	element.KindImage,
	element.KindAnnotation,
	element.KindPath,
	element.KindWhiteout,
}

// Hit returns the id of the topmost element under p. els are one page's
// elements in creation order, expressed at the current raster scale. Kinds
// are tested in a fixed priority; within a kind the newest element wins.
func Hit(p geometry.Point, els []element.Element, m fonts.Measurer) (string, bool) {
	for _, kind := range classOrder {
		for i := len(els) - 1; i >= 0; i-- {
			if els[i].Kind == kind && Contains(els[i], p, m) {
				return els[i].ID, true
			}
		}
	}
	return "", false
}

// Contains reports whether p falls on el.
func Contains(el element.Element, p geometry.Point, m fonts.Measurer) bool {
	switch el.Kind {
	case element.KindText:
		return el.Frame(m).Contains(p)
	case element.KindShape:
		if el.Shape.Kind == element.ShapeLine {
			a := el.Box.TopLeft()
			b := el.Box.BottomRight()
			return geometry.SegmentDistance(p, a, b) <= el.Shape.StrokeWidth/2+Tolerance
		}
		return el.Bounds(m).Contains(p)
	case element.KindImage:
		if el.Image.Rotation != 0 {
			return geometry.PointInPolygon(p, geometry.RotatedCorners(el.Box, el.Image.Rotation))
		}
		return el.Box.Contains(p)
	case element.KindPath:
		return el.Bounds(m).Inset(Tolerance).Contains(p)
	case element.KindAnnotation, element.KindWhiteout:
		return el.Box.Contains(p)
	}
	return false
}

// Corner names a resize handle.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomRight
	BottomLeft
)

// Opposite returns the corner diagonally across, which stays fixed while
// resizing from c.
func (c Corner) Opposite() Corner {
	return (c + 2) % 4
}

// Handles returns the resize handle squares of frame, indexed by Corner.
func Handles(frame geometry.Rect) [4]geometry.Rect {
	var out [4]geometry.Rect
	for i, c := range frame.Corners() {
		out[i] = geometry.NewRect(c.X-HandleSize/2, c.Y-HandleSize/2, HandleSize, HandleSize)
	}
	return out
}

// Handle reports which resize handle of frame, if any, is under p.
func Handle(p geometry.Point, frame geometry.Rect) (Corner, bool) {
	for i, h := range Handles(frame) {
		if h.Contains(p) {
			return Corner(i), true
		}
	}
	return 0, false
}

// Resize returns frame with corner c dragged to p, normalized so the size
// stays non-negative.
func Resize(frame geometry.Rect, c Corner, p geometry.Point) geometry.Rect {
	anchor := frame.Corners()[c.Opposite()]
	return geometry.NormalizeRect(anchor, p)
}
