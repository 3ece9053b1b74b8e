package main

import "math"

// Vec2 is an immutable 2D vector
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Add returns v + o
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Scale returns v scaled by s
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Length returns the magnitude of v
func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Normalize returns v scaled to unit length. The zero vector
// normalizes to (0,0), never NaN.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// DistanceTo returns the distance between v and o
func (v Vec2) DistanceTo(o Vec2) float64 {
	return v.Sub(o).Length()
}

// Box is an axis-aligned bounding box anchored at its top-left corner
type Box struct {
	X, Y float64
	W, H float64
}

// NewBox builds a box from origin and size
func NewBox(x, y, w, h float64) Box {
	return Box{X: x, Y: y, W: w, H: h}
}

func (b Box) Left() float64   { return b.X }
func (b Box) Right() float64  { return b.X + b.W }
func (b Box) Top() float64    { return b.Y }
func (b Box) Bottom() float64 { return b.Y + b.H }

// Overlaps reports whether b and o intersect. Inequalities are strict:
// boxes that only share an edge do not overlap.
func (b Box) Overlaps(o Box) bool {
	return b.Left() < o.Right() &&
		b.Right() > o.Left() &&
		b.Top() < o.Bottom() &&
		b.Bottom() > o.Top()
}
