package scene

import (
	"fmt"
	"sort"
)

// DefaultSpacing is the default distance between slices, in scene units.
const DefaultSpacing = 0.5

// Default camera placement: six units in front of the origin, looking at it.
var (
	DefaultEye    = Vec3{0, 0, 6}
	DefaultTarget = Vec3{0, 0, 0}
)

// Defaults contains scene-wide default settings.
type Defaults struct {
	Spacing float64 `json:"spacing"` // slice spacing for volumes that set none
}

// Camera is a viewer at Eye looking at Target with +Y up.
type Camera struct {
	Eye    Vec3 `json:"eye"`
	Target Vec3 `json:"target"`
}

// Scene is the top-level immutable data structure produced by Lisp
// evaluation. It is never mutated in place; each evaluation produces a new
// scene.
type Scene struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	Defaults  Defaults          `json:"defaults"`
	Camera    Camera            `json:"camera"`
	Version   uint64            `json:"version"`
}

// New creates an empty Scene with default settings.
func New() *Scene {
	return &Scene{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Defaults: Defaults{
			Spacing: DefaultSpacing,
		},
		Camera: Camera{
			Eye:    DefaultEye,
			Target: DefaultTarget,
		},
	}
}

// AddNode adds a node to the scene. It does not check for duplicates.
func (s *Scene) AddNode(n *Node) {
	s.Nodes[n.ID] = n
	if n.Name != "" {
		s.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the scene.
func (s *Scene) AddRoot(id NodeID) {
	s.Roots = append(s.Roots, id)
}

// IsRoot reports whether id is registered as a root.
func (s *Scene) IsRoot(id NodeID) bool {
	for _, r := range s.Roots {
		if r == id {
			return true
		}
	}
	return false
}

// Lookup returns the node with the given user-assigned name, or nil.
func (s *Scene) Lookup(name string) *Node {
	id, ok := s.NameIndex[name]
	if !ok {
		return nil
	}
	return s.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (s *Scene) MustLookup(name string) *Node {
	n := s.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("scene: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (s *Scene) Get(id NodeID) *Node {
	return s.Nodes[id]
}

// Volumes returns all volume nodes ordered by name.
func (s *Scene) Volumes() []*Node {
	var volumes []*Node
	for _, n := range s.Nodes {
		if n.Kind == NodeVolume {
			volumes = append(volumes, n)
		}
	}
	sort.Slice(volumes, func(i, j int) bool {
		return volumes[i].Name < volumes[j].Name
	})
	return volumes
}

// Children returns the child nodes of the given node.
func (s *Scene) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := s.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (s *Scene) NodeCount() int {
	return len(s.Nodes)
}

// SpacingOf returns the slice spacing that applies to a volume.
func (s *Scene) SpacingOf(d VolumeData) float64 {
	if d.Spacing != 0 {
		return d.Spacing
	}
	return s.Defaults.Spacing
}
