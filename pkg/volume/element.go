package volume

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/ember/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Dirty reports which geometry buffers changed since the renderer last
// uploaded them.
type Dirty struct {
	Positions bool `json:"positions"`
	TexCoords bool `json:"texCoords"`
	Indices   bool `json:"indices"`
}

// Any reports whether at least one buffer changed.
func (d Dirty) Any() bool {
	return d.Positions || d.TexCoords || d.Indices
}

// Element is a sliced volume placed in a scene. It keeps the geometry of the
// last successful slicing and re-slices only when the view direction changes.
// An Element is not safe for concurrent use.
type Element struct {
	name string
	box  *Box

	view   v3.Vec
	mesh   *kernel.Mesh
	dirty  Dirty
	time   float64
	slices int
}

// NewElement returns an element for box. It has no geometry until the first
// Update.
func NewElement(name string, box *Box) *Element {
	return &Element{
		name: name,
		box:  box,
		mesh: &kernel.Mesh{PartName: name},
	}
}

// Update advances the element clock by deltaTime seconds and re-slices the
// box if the view direction derived from modelView differs from the last one.
// On failure the previous geometry is kept and the error is returned.
func (e *Element) Update(deltaTime float64, modelView kernel.Transform) error {
	e.time += deltaTime

	view, err := ViewVector(modelView)
	if err != nil {
		e.fail(err)
		return err
	}
	if view == e.view {
		return nil
	}

	// Stored before slicing so a failing direction is not retried every
	// frame.
	e.view = view

	start := time.Now()
	mesh, err := e.box.Slice(view)
	if err != nil {
		e.fail(err)
		return err
	}
	mesh.PartName = e.name

	e.mesh = mesh
	e.dirty = Dirty{Positions: true, TexCoords: true, Indices: true}
	e.slices++

	instrumentSlice(e.name, start, mesh)
	logs.WithTag("volume", e.name).
		WithTag("slices", mesh.Slices).
		WithTag("vertices", mesh.VertexCount()).
		Debug("volume re-sliced")
	return nil
}

func (e *Element) fail(err error) {
	instrumentSliceError(e.name, err)
	logs.Warn(errors.New("updating volume failed").
		WithTag("volume", e.name).
		WithTag("time", e.time).
		Wrap(err))
}

// Name returns the element name.
func (e *Element) Name() string {
	return e.name
}

// Box returns the sliced box.
func (e *Element) Box() *Box {
	return e.box
}

// Mesh returns the current geometry. The mesh is replaced, never mutated, by
// later updates.
func (e *Element) Mesh() *kernel.Mesh {
	return e.mesh
}

// Dirty returns the buffers changed since the last ClearDirty.
func (e *Element) Dirty() Dirty {
	return e.dirty
}

// ClearDirty marks all buffers as uploaded.
func (e *Element) ClearDirty() {
	e.dirty = Dirty{}
}

// Time returns the accumulated clock in seconds.
func (e *Element) Time() float64 {
	return e.time
}

// View returns the view direction of the last update, including one whose
// slicing failed.
func (e *Element) View() v3.Vec {
	return e.view
}

// SliceCount returns how many times the element was successfully re-sliced.
func (e *Element) SliceCount() int {
	return e.slices
}
