package tessellate_test

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/ember/pkg/engine"
	"github.com/chazu/ember/pkg/kernel"
	"github.com/chazu/ember/pkg/kernel/sdfx"
	"github.com/chazu/ember/pkg/scene"
	"github.com/chazu/ember/pkg/tessellate"
)

// newKernel returns a fresh sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New()
}

// makeVolume creates a volume node with the given name and dimensions.
func makeVolume(name string, x, y, z float64) *scene.Node {
	return &scene.Node{
		ID:   scene.NewNodeID("fire/" + name),
		Kind: scene.NodeVolume,
		Name: name,
		Data: scene.VolumeData{Dimensions: scene.Vec3{X: x, Y: y, Z: z}},
	}
}

// makePlace creates a transform node with a translation and rotation.
func makePlace(path string, at, rotate scene.Vec3, children ...scene.NodeID) *scene.Node {
	return &scene.Node{
		ID:       scene.NewNodeID(path),
		Kind:     scene.NodeTransform,
		Children: children,
		Data: scene.TransformData{
			Translation: &at,
			Rotation:    &rotate,
		},
	}
}

func newRenderer(t *testing.T, s *scene.Scene) *tessellate.Renderer {
	t.Helper()
	r, err := tessellate.New(s, newKernel())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func frame(t *testing.T, r *tessellate.Renderer, dt float64) []tessellate.Part {
	t.Helper()
	parts, err := r.Frame(dt, r.CameraTransform())
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	return parts
}

func TestCampfire(t *testing.T) {
	s, evalErrs, err := engine.NewEngine().Evaluate(`
(group "hearth"
  (place (fire "core") :at (vec3 0 0.5 -3)))
`)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("Evaluate failed: %v %v", err, evalErrs)
	}

	r := newRenderer(t, s)
	if r.Len() != 1 {
		t.Fatalf("expected 1 volume, got %d", r.Len())
	}

	parts := frame(t, r, 0.016)
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	p := parts[0]
	if p.Name != "core" || p.Mesh.PartName != "core" {
		t.Errorf("part name = %q / %q, want core", p.Name, p.Mesh.PartName)
	}

	// Seen head-on the 2x4x2 box is cut along its depth.
	if p.Mesh.Slices != 4 {
		t.Errorf("slices = %d, want 4", p.Mesh.Slices)
	}
	if p.Mesh.VertexCount() != 16 || p.Mesh.TriangleCount() != 8 {
		t.Errorf("got %d vertices, %d triangles; want 16, 8", p.Mesh.VertexCount(), p.Mesh.TriangleCount())
	}
	if !p.Dirty.Positions || !p.Dirty.TexCoords || !p.Dirty.Indices {
		t.Errorf("first frame should mark all buffers dirty, got %+v", p.Dirty)
	}
}

func TestUnchangedCameraKeepsMesh(t *testing.T) {
	s := scene.New()
	core := makeVolume("core", 2, 4, 2)
	s.AddNode(core)
	s.AddRoot(core.ID)

	r := newRenderer(t, s)
	first := frame(t, r, 0.5)[0]

	second := frame(t, r, 0.25)[0]
	if second.Mesh != first.Mesh {
		t.Error("mesh should be reused when the view is unchanged")
	}
	if second.Dirty.Any() {
		t.Errorf("dirty flags should be cleared after the first frame, got %+v", second.Dirty)
	}
	if math.Abs(second.Time-0.75) > 1e-12 {
		t.Errorf("time = %f, want 0.75", second.Time)
	}
}

func TestRotationChangesSlicing(t *testing.T) {
	s := scene.New()
	core := makeVolume("core", 2, 4, 2)
	place := makePlace("place/core/1", scene.Vec3{Z: -3}, scene.Vec3{X: 90}, core.ID)
	s.AddNode(core)
	s.AddNode(place)
	s.AddRoot(place.ID)

	// Tipped over, the box is cut along its height.
	p := frame(t, newRenderer(t, s), 0)[0]
	if p.Mesh.Slices != 8 {
		t.Errorf("slices = %d, want 8", p.Mesh.Slices)
	}
}

func TestCameraAbove(t *testing.T) {
	s := scene.New()
	s.Camera = scene.Camera{Eye: scene.Vec3{Y: 6}}
	s.Defaults.Spacing = 0.3
	core := makeVolume("core", 2, 4, 2)
	s.AddNode(core)
	s.AddRoot(core.ID)

	// Looking down, planes at 1.8, 1.5, ..., -1.8 cut the height.
	p := frame(t, newRenderer(t, s), 0)[0]
	if p.Mesh.Slices != 13 {
		t.Errorf("slices = %d, want 13", p.Mesh.Slices)
	}
}

func TestCameraTransform(t *testing.T) {
	s := scene.New()
	s.Camera = scene.Camera{Eye: scene.Vec3{X: 1, Y: 2, Z: 3}, Target: scene.Vec3{X: 1, Y: 2, Z: -5}}

	r := newRenderer(t, s)
	eye := r.CameraTransform().Apply([3]float64{0, 0, 0})
	want := [3]float64{1, 2, 3}
	for i := range eye {
		if math.Abs(eye[i]-want[i]) > 1e-9 {
			t.Fatalf("camera origin = %v, want %v", eye, want)
		}
	}

	// One unit ahead of the camera lies towards the target.
	ahead := r.CameraTransform().Apply([3]float64{0, 0, -1})
	if math.Abs(ahead[2]-2) > 1e-9 {
		t.Errorf("camera forward = %v, want z = 2", ahead)
	}
}

func TestOrbit(t *testing.T) {
	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

	r := newRenderer(t, scene.New())
	r.Orbit(90, 0)
	if eye := r.Camera().Eye; !near(eye.X, 6) || !near(eye.Y, 0) || !near(eye.Z, 0) {
		t.Errorf("eye after 90 degree yaw = %s, want (6, 0, 0)", eye)
	}
	if r.Camera().Target != scene.DefaultTarget {
		t.Error("orbit should not move the target")
	}

	// Pitch is clamped below the pole and the distance is kept.
	r.Orbit(0, 180)
	eye := r.Camera().Eye
	if eye.Y >= 6 || eye.Y < 5.99 {
		t.Errorf("eye height = %f, want just below 6", eye.Y)
	}
	if d := math.Sqrt(eye.X*eye.X + eye.Y*eye.Y + eye.Z*eye.Z); !near(d, 6) {
		t.Errorf("orbit distance = %f, want 6", d)
	}

	// Orbiting a volume that is longer than it is deep changes its slicing.
	s := scene.New()
	core := makeVolume("core", 2, 2, 4)
	s.AddNode(core)
	s.AddRoot(core.ID)
	r = newRenderer(t, s)
	before := frame(t, r, 0)[0]
	r.Orbit(90, 0)
	after := frame(t, r, 0)[0]
	if !after.Dirty.Any() || after.Mesh == before.Mesh {
		t.Error("orbiting should re-slice the volume")
	}
}

func TestVolumePlacedTwice(t *testing.T) {
	s := scene.New()
	core := makeVolume("core", 1, 1, 1)
	left := makePlace("place/core/1", scene.Vec3{X: -2}, scene.Vec3{}, core.ID)
	right := makePlace("place/core/2", scene.Vec3{X: 2}, scene.Vec3{}, core.ID)
	pair := &scene.Node{
		ID:       scene.NewNodeID("group/pair"),
		Kind:     scene.NodeGroup,
		Name:     "pair",
		Children: []scene.NodeID{left.ID, right.ID},
		Data:     scene.GroupData{},
	}
	for _, n := range []*scene.Node{core, left, right, pair} {
		s.AddNode(n)
	}
	s.AddRoot(pair.ID)

	parts := frame(t, newRenderer(t, s), 0)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].Name != "core" || parts[1].Name != "core#2" {
		t.Errorf("part names = %q, %q; want core, core#2", parts[0].Name, parts[1].Name)
	}
	if parts[0].Mesh == parts[1].Mesh {
		t.Error("each instance should own its mesh")
	}
}

func TestCollapsedVolume(t *testing.T) {
	s := scene.New()
	spark := makeVolume("spark", 0, 0, 0)
	s.AddNode(spark)
	s.AddRoot(spark.ID)

	p := frame(t, newRenderer(t, s), 0)[0]
	if p.Mesh.Slices != 1 {
		t.Errorf("slices = %d, want 1", p.Mesh.Slices)
	}
}

func TestEmptyScene(t *testing.T) {
	for name, s := range map[string]*scene.Scene{"nil": nil, "empty": scene.New()} {
		t.Run(name, func(t *testing.T) {
			r := newRenderer(t, s)
			if r.Len() != 0 {
				t.Errorf("expected no volumes, got %d", r.Len())
			}
			if parts := frame(t, r, 1); len(parts) != 0 {
				t.Errorf("expected no parts, got %d", len(parts))
			}
		})
	}
}

func TestInvalidVolume(t *testing.T) {
	s := scene.New()
	bad := makeVolume("bad", -1, 4, 2)
	s.AddNode(bad)
	s.AddRoot(bad.ID)

	_, err := tessellate.New(s, newKernel())
	if err == nil {
		t.Fatal("expected error for negative dimensions")
	}
	if !strings.Contains(err.Error(), "tessellate:") {
		t.Errorf("error should be wrapped by tessellate, got %v", err)
	}
}

func TestUnexpectedNodeData(t *testing.T) {
	s := scene.New()
	n := &scene.Node{
		ID:   scene.NewNodeID("fire/odd"),
		Kind: scene.NodeVolume,
		Name: "odd",
		Data: scene.GroupData{},
	}
	s.AddNode(n)
	s.AddRoot(n.ID)

	if _, err := tessellate.New(s, newKernel()); err == nil {
		t.Fatal("expected error for volume with group data")
	}
}
