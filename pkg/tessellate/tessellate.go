// Package tessellate walks a scene and drives one sliced volume element per
// placed volume. Each frame re-slices the elements whose view direction
// changed and hands their meshes to the renderer.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/ember/pkg/kernel"
	"github.com/chazu/ember/pkg/scene"
	"github.com/chazu/ember/pkg/volume"
)

// transformStack accumulates object-world transforms during scene traversal.
type transformStack struct {
	k      kernel.Kernel
	frames []kernel.Transform
}

func newTransformStack(k kernel.Kernel) *transformStack {
	return &transformStack{k: k}
}

// top returns the accumulated transform, or the identity for an empty stack.
func (ts *transformStack) top() kernel.Transform {
	if len(ts.frames) == 0 {
		return ts.k.Identity()
	}
	return ts.frames[len(ts.frames)-1]
}

// push composes a placement (rotation first, then translation) onto the
// accumulated transform.
func (ts *transformStack) push(td scene.TransformData) {
	local := ts.k.Identity()
	if r := td.Rotation; r != nil && (r.X != 0 || r.Y != 0 || r.Z != 0) {
		local = ts.k.Rotate(local, r.X, r.Y, r.Z)
	}
	if t := td.Translation; t != nil && (t.X != 0 || t.Y != 0 || t.Z != 0) {
		local = ts.k.Translate(local, t.X, t.Y, t.Z)
	}
	ts.frames = append(ts.frames, ts.k.Compose(ts.top(), local))
}

func (ts *transformStack) pop() {
	if len(ts.frames) > 0 {
		ts.frames = ts.frames[:len(ts.frames)-1]
	}
}

// Part is the state of one volume instance after a frame.
type Part struct {
	Name  string
	Mesh  *kernel.Mesh
	Dirty volume.Dirty
	Time  float64
}

type instance struct {
	element *volume.Element
	world   kernel.Transform
}

// Renderer owns the volume elements of a scene. It is not safe for
// concurrent use.
type Renderer struct {
	kernel    kernel.Kernel
	camera    scene.Camera
	instances []*instance
}

// New walks the scene from its roots and creates one element per volume
// instance. A volume placed twice gets two elements; the second is named
// "name#2". The renderer never mutates the scene.
func New(s *scene.Scene, k kernel.Kernel) (*Renderer, error) {
	r := &Renderer{kernel: k}
	if s == nil {
		return r, nil
	}
	r.camera = s.Camera

	w := &walker{
		scene: s,
		ts:    newTransformStack(k),
		seen:  make(map[string]int),
	}
	for _, rootID := range s.Roots {
		root := s.Get(rootID)
		if root == nil {
			continue
		}
		if err := w.walkNode(root); err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
	}
	r.instances = w.instances
	return r, nil
}

// Len returns the number of volume instances.
func (r *Renderer) Len() int {
	return len(r.instances)
}

// Camera returns the current camera.
func (r *Renderer) Camera() scene.Camera {
	return r.camera
}

// CameraTransform returns the world transform of the current camera.
func (r *Renderer) CameraTransform() kernel.Transform {
	return r.kernel.LookAt(r.camera.Eye.Array(), r.camera.Target.Array())
}

// Elevation limit of an orbiting camera, short of the poles where LookAt
// loses its heading.
const maxElevation = 89 * math.Pi / 180

// Orbit moves the camera eye around its target, keeping the distance: yaw
// degrees about +Y, then pitch degrees of elevation.
func (r *Renderer) Orbit(yaw, pitch float64) {
	offset := r.camera.Eye.Sub(r.camera.Target)
	radius := math.Sqrt(offset.X*offset.X + offset.Y*offset.Y + offset.Z*offset.Z)
	if radius == 0 {
		return
	}

	azimuth := math.Atan2(offset.X, offset.Z) + yaw*math.Pi/180
	elevation := math.Asin(offset.Y/radius) + pitch*math.Pi/180
	elevation = math.Max(-maxElevation, math.Min(maxElevation, elevation))

	r.camera.Eye = r.camera.Target.Add(scene.Vec3{
		X: radius * math.Cos(elevation) * math.Sin(azimuth),
		Y: radius * math.Sin(elevation),
		Z: radius * math.Cos(elevation) * math.Cos(azimuth),
	})
}

// Frame advances every element by deltaTime seconds as seen from camera, a
// camera world transform, and returns one part per volume instance in scene
// order. Dirty flags are cleared once handed out. An element that fails to
// update keeps its previous mesh; the first such error is returned after all
// elements have been updated.
func (r *Renderer) Frame(deltaTime float64, camera kernel.Transform) ([]Part, error) {
	view := r.kernel.Inverse(camera)

	var firstErr error
	parts := make([]Part, 0, len(r.instances))
	for _, in := range r.instances {
		e := in.element
		if err := e.Update(deltaTime, r.kernel.Compose(view, in.world)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("tessellate: volume %s: %w", e.Name(), err)
		}

		parts = append(parts, Part{
			Name:  e.Name(),
			Mesh:  e.Mesh(),
			Dirty: e.Dirty(),
			Time:  e.Time(),
		})
		e.ClearDirty()
	}
	return parts, firstErr
}

// walker collects volume instances during a scene traversal.
type walker struct {
	scene     *scene.Scene
	ts        *transformStack
	seen      map[string]int
	instances []*instance
}

func (w *walker) walkNode(n *scene.Node) error {
	switch n.Kind {
	case scene.NodeVolume:
		return w.handleVolume(n)

	case scene.NodeTransform:
		td, ok := n.Data.(scene.TransformData)
		if !ok {
			return fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
		}
		w.ts.push(td)
		defer w.ts.pop()
		return w.walkChildren(n)

	case scene.NodeGroup:
		return w.walkChildren(n)

	default:
		return fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func (w *walker) walkChildren(n *scene.Node) error {
	for _, child := range w.scene.Children(n) {
		if err := w.walkNode(child); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) handleVolume(n *scene.Node) error {
	vd, ok := n.Data.(scene.VolumeData)
	if !ok {
		return fmt.Errorf("volume node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}

	box, err := volume.NewBox(vd.Dimensions.X, vd.Dimensions.Y, vd.Dimensions.Z, w.scene.SpacingOf(vd))
	if err != nil {
		return fmt.Errorf("volume node %s: %w", n.ID.Short(), err)
	}

	name := n.Name
	if name == "" {
		name = n.ID.Short()
	}
	w.seen[name]++
	if c := w.seen[name]; c > 1 {
		name = fmt.Sprintf("%s#%d", name, c)
	}

	w.instances = append(w.instances, &instance{
		element: volume.NewElement(name, box),
		world:   w.ts.top(),
	})
	return nil
}
