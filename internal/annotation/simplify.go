package annotation

// Simplify reduces a polyline. Unless highQuality is set a radial-distance
// pass drops points closer than tolerance to their predecessor; a
// Douglas-Peucker pass then removes points within tolerance of the
// simplified line. The first and last points are always kept.
func Simplify(points []Point, tolerance float64, highQuality bool) []Point {
	if len(points) <= 2 {
		return append([]Point(nil), points...)
	}
	sqTolerance := tolerance * tolerance
	if tolerance <= 0 {
		sqTolerance = 1
	}
	pts := points
	if !highQuality {
		pts = radialDistance(pts, sqTolerance)
	}
	return douglasPeucker(pts, sqTolerance)
}

func sqDist(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// sqSegDist is the squared distance from p to the segment a-b.
func sqSegDist(p, a, b Point) float64 {
	x, y := a.X, a.Y
	dx, dy := b.X-x, b.Y-y
	if dx != 0 || dy != 0 {
		t := ((p.X-x)*dx + (p.Y-y)*dy) / (dx*dx + dy*dy)
		if t > 1 {
			x, y = b.X, b.Y
		} else if t > 0 {
			x += dx * t
			y += dy * t
		}
	}
	dx, dy = p.X-x, p.Y-y
	return dx*dx + dy*dy
}

func radialDistance(points []Point, sqTolerance float64) []Point {
	prev := points[0]
	out := []Point{prev}
	var last Point
	for _, p := range points[1:] {
		last = p
		if sqDist(p, prev) > sqTolerance {
			out = append(out, p)
			prev = p
		}
	}
	if prev != last {
		out = append(out, last)
	}
	return out
}

func douglasPeucker(points []Point, sqTolerance float64) []Point {
	last := len(points) - 1
	out := []Point{points[0]}
	out = dpStep(points, 0, last, sqTolerance, out)
	return append(out, points[last])
}

func dpStep(points []Point, first, last int, sqTolerance float64, out []Point) []Point {
	maxSq := sqTolerance
	index := -1
	for i := first + 1; i < last; i++ {
		if d := sqSegDist(points[i], points[first], points[last]); d > maxSq {
			index, maxSq = i, d
		}
	}
	if index < 0 {
		return out
	}
	if index-first > 1 {
		out = dpStep(points, first, index, sqTolerance, out)
	}
	out = append(out, points[index])
	if last-index > 1 {
		out = dpStep(points, index, last, sqTolerance, out)
	}
	return out
}
