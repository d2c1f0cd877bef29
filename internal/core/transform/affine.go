package transform

import "math"

type Vec2 struct{ Xv, Yv float64 }

func (v Vec2) X() float64 { return v.Xv }
func (v Vec2) Y() float64 { return v.Yv }

// Affine is a 2D affine transform in row-major form:
//
//	| A C Tx |
//	| B D Ty |
//	| 0 0 1  |
type Affine struct {
	A, B, C, D float64
	Tx, Ty     float64
}

// Identity2D is the neutral Affine.
var Identity2D = Affine{A: 1, D: 1}

func Translate(x, y float64) Affine {
	return Affine{A: 1, D: 1, Tx: x, Ty: y}
}

func Scale(sx, sy float64) Affine {
	return Affine{A: sx, D: sy}
}

// Rotate builds a counter-clockwise rotation by theta radians.
func Rotate(theta float64) Affine {
	sin, cos := math.Sincos(theta)
	return Affine{A: cos, B: sin, C: -sin, D: cos}
}

// Mul returns t*o, i.e. o is applied first.
func (t Affine) Mul(o Affine) Affine {
	return Affine{
		A:  t.A*o.A + t.C*o.B,
		B:  t.B*o.A + t.D*o.B,
		C:  t.A*o.C + t.C*o.D,
		D:  t.B*o.C + t.D*o.D,
		Tx: t.A*o.Tx + t.C*o.Ty + t.Tx,
		Ty: t.B*o.Tx + t.D*o.Ty + t.Ty,
	}
}

// Apply maps a point through the transform.
func (t Affine) Apply(p Vector2) Vec2 {
	return Vec2{
		Xv: t.A*p.X() + t.C*p.Y() + t.Tx,
		Yv: t.B*p.X() + t.D*p.Y() + t.Ty,
	}
}

func (t Affine) Position2() (x, y float64) { return t.Tx, t.Ty }

// ApproxEqual compares component-wise within eps.
func (t Affine) ApproxEqual(o Affine, eps float64) bool {
	return math.Abs(t.A-o.A) <= eps &&
		math.Abs(t.B-o.B) <= eps &&
		math.Abs(t.C-o.C) <= eps &&
		math.Abs(t.D-o.D) <= eps &&
		math.Abs(t.Tx-o.Tx) <= eps &&
		math.Abs(t.Ty-o.Ty) <= eps
}

// AffineComposer composes Affine transforms as parentWorld * local.
type AffineComposer struct{}

var _ Composer[Affine] = AffineComposer{}

func (AffineComposer) Identity() Affine { return Identity2D }

func (AffineComposer) Compose(parentWorld, local Affine) Affine {
	return parentWorld.Mul(local)
}

// Distance2 computes the Euclidean distance between the translations of a and b.
func Distance2(a, b Positioned) float64 {
	x1, y1 := a.Position2()
	x2, y2 := b.Position2()
	return math.Hypot(x2-x1, y2-y1)
}
