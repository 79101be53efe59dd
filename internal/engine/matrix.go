package engine

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Matrix2D represents a 2D affine transformation matrix.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

// Scale returns a scale matrix.
func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// RotateDegrees returns a rotation matrix (angle in degrees).
func RotateDegrees(degrees float64) Matrix2D {
	rad := degrees * math.Pi / 180.0
	cos := math.Cos(rad)
	sin := math.Sin(rad)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// Multiply returns m * other, which applies other first and then m.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// Apply maps a point through the matrix.
func (m Matrix2D) Apply(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Determinant returns the determinant of the linear part.
func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Inverse returns the inverse matrix. ok is false for a singular matrix.
func (m Matrix2D) Inverse() (inv Matrix2D, ok bool) {
	det := m.Determinant()
	if math.Abs(det) < 1e-12 {
		return Identity(), false
	}

	invDet := 1.0 / det
	return Matrix2D{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}, true
}

// FromTransform composes Translate(x, y) * Rotate(r) * Scale(sx, sy), the
// display transform of a layer whose origin is its top-left corner.
func FromTransform(x, y, sx, sy, rDegrees float64) Matrix2D {
	rad := rDegrees * math.Pi / 180.0
	cos := math.Cos(rad)
	sin := math.Sin(rad)

	return Matrix2D{
		cos * sx,
		sin * sx,
		-sin * sy,
		cos * sy,
		x,
		y,
	}
}

// Aff3 converts the matrix to the row-major layout used by x/image/draw.
func (m Matrix2D) Aff3() f64.Aff3 {
	return f64.Aff3{
		m[0], m[2], m[4],
		m[1], m[3], m[5],
	}
}

// ToSlice returns the matrix as a float64 slice for JSON serialization.
func (m Matrix2D) ToSlice() []float64 {
	return []float64{m[0], m[1], m[2], m[3], m[4], m[5]}
}

// TransformRect transforms a rectangle and returns its axis-aligned bounding box.
func (m Matrix2D) TransformRect(r Rect) Rect {
	return BoundsOf(
		m.Apply(Point{r.X, r.Y}),
		m.Apply(Point{r.X + r.Width, r.Y}),
		m.Apply(Point{r.X + r.Width, r.Y + r.Height}),
		m.Apply(Point{r.X, r.Y + r.Height}),
	)
}
