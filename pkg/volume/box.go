// Package volume slices a box-shaped volume into view-aligned polygons.
//
// Each time the view direction changes, planes perpendicular to it are swept
// from the farthest box corner to the nearest at a fixed spacing. The sweep
// maintains a cycle of active edges (box edges crossed by the current plane)
// that splits and merges as the plane passes corners, and emits every slice
// as a triangle fan with matching 3-D texture coordinates. Drawn back to
// front with additive blending the slices approximate a volumetric density.
package volume

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Corners are numbered by bit pattern: bit0 = x-high, bit1 = y-high,
// bit2 = z-high.
const numCorners = 8

// cornerNeighbors lists the three corners sharing a box edge with each
// corner. The order fixes the winding of the seed triangle.
var cornerNeighbors = [numCorners][3]int{
	{1, 2, 4},
	{0, 5, 3},
	{0, 3, 6},
	{1, 7, 2},
	{0, 6, 5},
	{1, 4, 7},
	{2, 7, 4},
	{3, 5, 6},
}

// incomingEdges[a][b] is the corner to continue towards after arriving at a
// from b (or, during a split, after turning away from b). -1 marks pairs that
// share no box edge.
var incomingEdges = [numCorners][numCorners]int{
	{-1, 2, 4, -1, 1, -1, -1, -1},
	{5, -1, -1, 0, -1, 3, -1, -1},
	{3, -1, -1, 6, -1, -1, 0, -1},
	{-1, 7, 1, -1, -1, -1, -1, 2},
	{6, -1, -1, -1, -1, 0, 5, -1},
	{-1, 4, -1, -1, 7, -1, -1, 1},
	{-1, -1, 7, -1, 2, -1, -1, 4},
	{-1, -1, -1, 5, -1, 6, 3, -1},
}

// MaxSliceLimit is the largest slice bound NewBox accepts. Finer spacings
// relative to the box diagonal are rejected.
const MaxSliceLimit = 1 << 16

// Box is a rectangular volume centred at the origin together with the slice
// spacing used to cut it. Its corner data is read-only after construction
// and may be shared between goroutines; slicing allocates all per-sweep
// state locally.
type Box struct {
	bounds  sdf.Box3
	spacing float64

	pos [numCorners]v3.Vec // object-space corners
	tex [numCorners]v3.Vec // unit-cube texture corners

	neighbors *[numCorners][3]int
	incoming  *[numCorners][numCorners]int
}

// NewBox returns a box of the given size, centred at the origin, sliced every
// spacing units along the view direction. Dimensions may be zero (a flat or
// collapsed box) but not negative; spacing must be positive.
func NewBox(width, height, depth, spacing float64) (*Box, error) {
	if !(spacing > 0) || math.IsInf(spacing, 0) {
		return nil, errors.New("slice spacing must be a positive finite number").
			WithType(ErrTypeInvalidSpacing).
			WithTag("spacing", spacing)
	}
	for _, d := range []float64{width, height, depth} {
		if !(d >= 0) || math.IsInf(d, 0) {
			return nil, errors.New("box dimensions must be finite and non-negative").
				WithType(ErrTypeInvalidDimensions).
				WithTag("width", width).
				WithTag("height", height).
				WithTag("depth", depth)
		}
	}

	diagonal := math.Sqrt(width*width + height*height + depth*depth)
	if diagonal/spacing > MaxSliceLimit {
		return nil, errors.New("slice spacing is too fine for the box size").
			WithType(ErrTypeInvalidSpacing).
			WithTag("spacing", spacing).
			WithTag("diagonal", diagonal).
			WithTag("max_slices", MaxSliceLimit)
	}

	half := v3.Vec{X: width / 2, Y: height / 2, Z: depth / 2}
	b := &Box{
		bounds:    sdf.Box3{Min: half.MulScalar(-1), Max: half},
		spacing:   spacing,
		neighbors: &cornerNeighbors,
		incoming:  &incomingEdges,
	}

	for i := 0; i < numCorners; i++ {
		p := b.bounds.Min
		var t v3.Vec
		if i&1 != 0 {
			p.X = b.bounds.Max.X
			t.X = 1
		}
		if i&2 != 0 {
			p.Y = b.bounds.Max.Y
			t.Y = 1
		}
		if i&4 != 0 {
			p.Z = b.bounds.Max.Z
			t.Z = 1
		}
		b.pos[i] = p
		b.tex[i] = t
	}
	return b, nil
}

// Bounds returns the box extent in object space.
func (b *Box) Bounds() sdf.Box3 {
	return b.bounds
}

// Spacing returns the distance between consecutive slices.
func (b *Box) Spacing() float64 {
	return b.spacing
}

// Corner returns the object-space position and texture coordinate of corner
// i (0..7).
func (b *Box) Corner(i int) (pos, tex v3.Vec) {
	return b.pos[i], b.tex[i]
}

// MaxSlices bounds the number of slices any view direction can produce. The
// extent of the box along a unit vector never exceeds its diagonal.
func (b *Box) MaxSlices() int {
	diagonal := b.bounds.Max.Sub(b.bounds.Min).Length()
	return int(math.Floor(diagonal/b.spacing)) + 2
}

// Capacity returns upper bounds on the vertex and index counts of a slicing.
// A plane cuts a box in at most a hexagon, which fans into 4 triangles.
func (b *Box) Capacity() (vertices, indices int) {
	n := b.MaxSlices()
	return n * maxPolygon, n * (maxPolygon - 2) * 3
}
