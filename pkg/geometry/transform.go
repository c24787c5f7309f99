package geometry

// ToDocument converts a raster point rendered at scale into document space
// for a page that is pageHeight document units tall.
func ToDocument(p Point, pageHeight, scale float64) Point {
	return Point{X: p.X / scale, Y: pageHeight - p.Y/scale}
}

// ToRaster is the exact inverse of ToDocument.
func ToRaster(p Point, pageHeight, scale float64) Point {
	return Point{X: p.X * scale, Y: (pageHeight - p.Y) * scale}
}

// RectToDocument converts a raster rectangle (top-left origin) into a
// document rectangle whose X/Y is the bottom-left corner.
func RectToDocument(r Rect, pageHeight, scale float64) Rect {
	n := NormalizeRect(r.TopLeft(), r.BottomRight())
	return Rect{
		X:      n.X / scale,
		Y:      pageHeight - (n.Y+n.Height)/scale,
		Width:  n.Width / scale,
		Height: n.Height / scale,
	}
}

// RectToRaster is the inverse of RectToDocument.
func RectToRaster(r Rect, pageHeight, scale float64) Rect {
	return Rect{
		X:      r.X * scale,
		Y:      (pageHeight - r.Y - r.Height) * scale,
		Width:  r.Width * scale,
		Height: r.Height * scale,
	}
}

// LengthToDocument converts a raster length such as a font size or stroke
// width into document units.
func LengthToDocument(l, scale float64) float64 {
	return l / scale
}
