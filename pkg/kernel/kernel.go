// Package kernel defines the abstract transform kernel interface.
// Implementations (sdfx) provide 4x4 affine transforms behind this
// interface so that the scene walk and the volume slicer never depend on a
// particular matrix library.
package kernel

// Transform is an opaque handle to an affine 4x4 transform.
// Implementations wrap their internal representation.
type Transform interface {
	// Apply transforms a position (w = 1).
	Apply(p [3]float64) [3]float64
}

// Kernel is the abstract transform kernel interface.
type Kernel interface {
	// Constructors
	Identity() Transform
	LookAt(eye, target [3]float64) Transform // camera world transform, looking down -Z

	// Composition
	Translate(t Transform, x, y, z float64) Transform
	Rotate(t Transform, x, y, z float64) Transform // Euler angles in degrees
	Compose(a, b Transform) Transform              // a * b, b applied first
	Inverse(t Transform) Transform
}

// Row returns row i (0..2) of the linear part of t. It is recovered by
// transforming the unit axes, so it works for any Transform implementation.
func Row(t Transform, i int) [3]float64 {
	o := t.Apply([3]float64{0, 0, 0})
	x := t.Apply([3]float64{1, 0, 0})
	y := t.Apply([3]float64{0, 1, 0})
	z := t.Apply([3]float64{0, 0, 1})
	return [3]float64{x[i] - o[i], y[i] - o[i], z[i] - o[i]}
}
