package engine

import (
	"fmt"

	"github.com/chazu/ember/pkg/scene"
)

// builder accumulates the scene produced by one evaluation.
type builder struct {
	scene *scene.Scene

	// Creation order, for deterministic root registration.
	order []scene.NodeID

	// Nodes that are a child of some other node.
	referenced map[scene.NodeID]bool
	anon       int
}

func newBuilder() *builder {
	return &builder{
		scene:      scene.New(),
		referenced: make(map[scene.NodeID]bool),
	}
}

func (b *builder) add(n *scene.Node) {
	b.scene.AddNode(n)
	b.order = append(b.order, n.ID)
}

// nextPath returns a node path unique within this evaluation.
func (b *builder) nextPath(prefix string) string {
	b.anon++
	return fmt.Sprintf("%s/%d", prefix, b.anon)
}

func (b *builder) addVolume(name string, d scene.VolumeData) (scene.NodeID, error) {
	if name == "" {
		return scene.NodeID{}, fmt.Errorf("name must not be empty")
	}
	if b.scene.Lookup(name) != nil {
		return scene.NodeID{}, fmt.Errorf("%q is already defined", name)
	}

	id := scene.NewNodeID("fire/" + name)
	b.add(&scene.Node{
		ID:   id,
		Kind: scene.NodeVolume,
		Name: name,
		Data: d,
	})
	return id, nil
}

func (b *builder) addTransform(child *sexpNodeRef, d scene.TransformData) scene.NodeID {
	prefix := "place"
	if child.name != "" {
		prefix = "place/" + child.name
	}

	id := scene.NewNodeID(b.nextPath(prefix))
	b.add(&scene.Node{
		ID:       id,
		Kind:     scene.NodeTransform,
		Children: []scene.NodeID{child.id},
		Data:     d,
	})
	b.referenced[child.id] = true
	return id
}

func (b *builder) addGroup(name string, children []*sexpNodeRef) (scene.NodeID, error) {
	if name == "" {
		return scene.NodeID{}, fmt.Errorf("name must not be empty")
	}
	if b.scene.Lookup(name) != nil {
		return scene.NodeID{}, fmt.Errorf("%q is already defined", name)
	}

	ids := make([]scene.NodeID, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.id)
		b.referenced[c.id] = true
	}

	id := scene.NewNodeID("group/" + name)
	b.add(&scene.Node{
		ID:       id,
		Kind:     scene.NodeGroup,
		Name:     name,
		Children: ids,
		Data:     scene.GroupData{},
	})
	return id, nil
}

// finish registers every node that is no other node's child as a root, so a
// bare (fire ...) at top level is rendered and nested groups are not.
func (b *builder) finish() *scene.Scene {
	for _, id := range b.order {
		if !b.referenced[id] {
			b.scene.AddRoot(id)
		}
	}
	return b.scene
}
