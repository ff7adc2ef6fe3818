// Package sdfx implements the kernel.Kernel interface using the
// 4x4 matrices of the github.com/deadsy/sdfx CAD library.
package sdfx

import (
	"math"

	"github.com/chazu/ember/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// sdfxTransform wraps an sdf.M44 to implement kernel.Transform.
type sdfxTransform struct {
	m sdf.M44
}

// Apply transforms a position.
func (t *sdfxTransform) Apply(p [3]float64) [3]float64 {
	q := t.m.MulPosition(v3.Vec{X: p[0], Y: p[1], Z: p[2]})
	return [3]float64{q.X, q.Y, q.Z}
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.M44 from a kernel.Transform.
func unwrap(t kernel.Transform) sdf.M44 {
	return t.(*sdfxTransform).m
}

// wrap creates a kernel.Transform from an sdf.M44.
func wrap(m sdf.M44) kernel.Transform {
	return &sdfxTransform{m: m}
}

// Identity returns the identity transform.
func (k *SdfxKernel) Identity() kernel.Transform {
	return wrap(sdf.Identity3d())
}

// LookAt returns the world transform of a camera placed at eye and looking
// at target. The camera looks down its local -Z axis with +Y up, so the
// orientation is a yaw about Y followed by a pitch about X. If eye and target
// coincide the camera keeps the default orientation.
func (k *SdfxKernel) LookAt(eye, target [3]float64) kernel.Transform {
	e := v3.Vec{X: eye[0], Y: eye[1], Z: eye[2]}
	d := v3.Vec{X: target[0], Y: target[1], Z: target[2]}.Sub(e)

	m := sdf.Translate3d(e)
	if l := d.Length(); l > 0 {
		d = d.MulScalar(1 / l)
		pitch := math.Asin(math.Max(-1, math.Min(1, d.Y)))
		yaw := math.Atan2(-d.X, -d.Z)
		m = m.Mul(sdf.RotateY(yaw)).Mul(sdf.RotateX(pitch))
	}
	return wrap(m)
}

// Translate moves a transform by (x, y, z) in its parent space.
func (k *SdfxKernel) Translate(t kernel.Transform, x, y, z float64) kernel.Transform {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(m.Mul(unwrap(t)))
}

// Rotate rotates a transform by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(t kernel.Transform, x, y, z float64) kernel.Transform {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(m.Mul(unwrap(t)))
}

// Compose returns a * b.
func (k *SdfxKernel) Compose(a, b kernel.Transform) kernel.Transform {
	return wrap(unwrap(a).Mul(unwrap(b)))
}

// Inverse returns the inverse transform.
func (k *SdfxKernel) Inverse(t kernel.Transform) kernel.Transform {
	return wrap(unwrap(t).Inverse())
}
