package scene

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// namespace scopes node IDs so that equal paths in other UUIDv5 users never
// collide with ours.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/chazu/ember/scene"))

// NodeID identifies a node. IDs are name-based (UUIDv5) so that evaluating
// the same script twice yields the same IDs.
type NodeID uuid.UUID

// NewNodeID derives the ID of the node created at path, e.g. "fire/core".
func NewNodeID(path string) NodeID {
	return NodeID(uuid.NewSHA1(namespace, []byte(path)))
}

// IsZero reports whether id is the zero ID.
func (id NodeID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// Short returns the first 6 bytes of the ID in hex, for messages.
func (id NodeID) Short() string {
	return hex.EncodeToString(id[:6])
}

func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText implements encoding.TextMarshaler.
func (id NodeID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *NodeID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}
