package volume

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/ember/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ViewVector returns the direction from the viewer into the scene expressed
// in the object space of modelView. It is the negated third row of the
// model-view transform, normalised.
func ViewVector(modelView kernel.Transform) (v3.Vec, error) {
	r := kernel.Row(modelView, 2)
	v := v3.Vec{X: -r[0], Y: -r[1], Z: -r[2]}

	l := v.Length()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return v3.Vec{}, errors.New("model-view transform has no usable view direction").
			WithType(ErrTypeDegenerateView).
			WithTag("row", r)
	}
	return v.Normalize(), nil
}
