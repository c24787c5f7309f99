package geometry

// PointInPolygon reports whether p lies inside the closed polygon poly,
// counting crossings of a horizontal ray cast to the right of p. Polygons with
// fewer than three vertices contain nothing.
func PointInPolygon(p Point, poly []Point) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	prev := poly[len(poly)-1]
	for _, cur := range poly {
		if (cur.Y > p.Y) != (prev.Y > p.Y) {
			xCross := prev.X + (p.Y-prev.Y)*(cur.X-prev.X)/(cur.Y-prev.Y)
			if p.X < xCross {
				inside = !inside
			}
		}
		prev = cur
	}
	return inside
}
