package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimplify(t *testing.T) {
	t.Run("short input returned as is", func(t *testing.T) {
		pts := []Point{{0, 0}, {1, 1}}
		assert.Equal(t, pts, Simplify(pts, 1, false))
	})

	t.Run("keeps corners drops noise", func(t *testing.T) {
		pts := []Point{
			{0, 0}, {1, 0.1}, {2, -0.1}, {3, 0}, {4, 0.05}, {5, 0},
			{5, 1}, {5.1, 2}, {4.9, 3}, {5, 4}, {5, 5},
		}
		got := Simplify(pts, 0.5, false)
		assert.Equal(t, []Point{{0, 0}, {5, 0}, {5, 5}}, got)
	})

	t.Run("high quality skips radial pass", func(t *testing.T) {
		pts := []Point{{0, 0}, {0.1, 0}, {0.2, 5}, {10, 0}}
		hq := Simplify(pts, 1, true)
		assert.Contains(t, hq, Point{0.2, 5})
		assert.Equal(t, Point{0, 0}, hq[0])
		assert.Equal(t, Point{10, 0}, hq[len(hq)-1])
	})

	t.Run("input is not modified", func(t *testing.T) {
		pts := []Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
		cp := append([]Point(nil), pts...)
		Simplify(pts, 1, false)
		assert.Equal(t, cp, pts)
	})
}

func TestShape_SimplifiedBox(t *testing.T) {
	s := &Shape{Kind: KindBox, X: 30, Y: 40, Width: -20, Height: 10}
	assert.Equal(t, []Point{{10, 40}, {30, 40}, {30, 50}, {10, 50}}, s.Simplified(5))
	assert.Equal(t, 30.0, s.X, "receiver is not modified")
}
