package mathx

import "math"

// Vec3i is a block position.
type Vec3i struct{ X, Y, Z int }

func (v Vec3i) Add(dx, dy, dz int) Vec3i { return Vec3i{v.X + dx, v.Y + dy, v.Z + dz} }

// Center returns the centre of the block as an entity position.
func (v Vec3i) Center() Vec3 {
	return Vec3{float64(v.X) + 0.5, float64(v.Y) + 0.5, float64(v.Z) + 0.5}
}

// Vec3 is an entity position or velocity.
type Vec3 struct{ X, Y, Z float64 }

func (v Vec3) Add(o Vec3) Vec3       { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3       { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(f float64) Vec3  { return Vec3{v.X * f, v.Y * f, v.Z * f} }
func (v Vec3) Len() float64          { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }
func (v Vec3) DistSq(o Vec3) float64 { d := v.Sub(o); return d.X*d.X + d.Y*d.Y + d.Z*d.Z }
func (v Vec3) Block() Vec3i {
	return Vec3i{int(math.Floor(v.X)), int(math.Floor(v.Y)), int(math.Floor(v.Z))}
}

// Normalize returns the unit vector, or the zero vector for a zero input.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l < 1e-4 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// WithinBox reports whether p lies in the axis-aligned box of half-size r
// around c.
func WithinBox(c, p Vec3, r float64) bool {
	return math.Abs(p.X-c.X) <= r && math.Abs(p.Y-c.Y) <= r && math.Abs(p.Z-c.Z) <= r
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
