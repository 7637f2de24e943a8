package annotation

import (
	"fmt"
	"maps"
	"math"
	"strings"
)

// Kind is the drawing tool used for a shape.
type Kind string

const (
	KindBox  Kind = "box"
	KindFree Kind = "free"
)

// MinBoxSize is the smallest width or height a resize can produce.
const MinBoxSize = 5

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is one committed annotation. ID is stable for the shape's lifetime.
type Shape struct {
	ID       string            `json:"id"`
	Kind     Kind              `json:"type"`
	Category Category          `json:"category"`
	X        float64           `json:"x,omitempty"`
	Y        float64           `json:"y,omitempty"`
	Width    float64           `json:"width,omitempty"`
	Height   float64           `json:"height,omitempty"`
	Points   []Point           `json:"points,omitempty"`
	Fields   map[string]string `json:"fields"`
}

func (s *Shape) clone() *Shape {
	c := *s
	c.Points = append([]Point(nil), s.Points...)
	c.Fields = maps.Clone(s.Fields)
	return &c
}

// Origin returns the top-left corner used to anchor the shape's label.
func (s *Shape) Origin() Point {
	if s.Kind != KindFree || len(s.Points) == 0 {
		return Point{X: s.X, Y: s.Y}
	}
	topLeft := Point{X: math.Inf(1), Y: math.Inf(1)}
	for _, p := range s.Points {
		topLeft.X = math.Min(topLeft.X, p.X)
		topLeft.Y = math.Min(topLeft.Y, p.Y)
	}
	return topLeft
}

// Label renders the category on the first line followed by one
// "key: value" line per field in schema order.
func (s *Shape) Label() string {
	lines := []string{string(s.Category)}
	for _, f := range schemas[s.Category] {
		if v, ok := s.Fields[f.Key]; ok {
			lines = append(lines, fmt.Sprintf("%s: %s", f.Key, v))
		}
	}
	return strings.Join(lines, "\n")
}

// Simplified returns the free-hand polyline reduced with tolerance. A box
// yields its four corners clockwise from the top-left; tolerance is ignored.
func (s *Shape) Simplified(tolerance float64) []Point {
	if s.Kind != KindFree {
		b := *s
		b.normalize()
		return []Point{
			{X: b.X, Y: b.Y},
			{X: b.X + b.Width, Y: b.Y},
			{X: b.X + b.Width, Y: b.Y + b.Height},
			{X: b.X, Y: b.Y + b.Height},
		}
	}
	return Simplify(s.Points, tolerance, false)
}

// normalize flips negative extents produced by dragging up or left.
func (s *Shape) normalize() {
	if s.Width < 0 {
		s.X += s.Width
		s.Width = -s.Width
	}
	if s.Height < 0 {
		s.Y += s.Height
		s.Height = -s.Height
	}
}
