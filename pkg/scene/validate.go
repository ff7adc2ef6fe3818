package scene

import (
	"fmt"
	"math"

	"github.com/chazu/ember/pkg/volume"
)

// MaxSlicesWarning is the slice count above which a volume is reported as
// expensive to re-slice every frame.
const MaxSlicesWarning = 256

// ValidationSeverity indicates whether a validation finding blocks evaluation
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks evaluation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if scene-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	NodeID  NodeID
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Validate runs the structural checks on the scene and returns its findings.
// An empty slice means the scene is valid. It never mutates the scene.
func Validate(s *Scene) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(s)...)
	errs = append(errs, validateReferences(s)...)
	errs = append(errs, validateNames(s)...)
	errs = append(errs, validateRoots(s)...)
	return errs
}

// ValidateAll runs the structural and geometric checks and returns a
// ValidationResult with separated errors and warnings.
func ValidateAll(s *Scene) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(s) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{
				NodeID:  e.NodeID,
				Message: e.Message,
			})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}

	errs, warnings := validateGeometry(s)
	result.Errors = append(result.Errors, errs...)
	result.Warnings = append(result.Warnings, warnings...)
	return result
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateDAG(s *Scene) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray

		node, ok := s.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}

		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}

		color[id] = black
		return false
	}

	for id := range s.Nodes {
		if color[id] == white {
			if visit(id) {
				// One cycle error is sufficient.
				break
			}
		}
	}

	return errs
}

// validateReferences checks that every child reference points to an
// existing node.
func validateReferences(s *Scene) []ValidationError {
	var errs []ValidationError

	for _, node := range s.Nodes {
		for _, childID := range node.Children {
			if _, ok := s.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
		if node.Kind == NodeVolume && len(node.Children) > 0 {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  "volume nodes cannot have children",
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateNames checks that the NameIndex is injective and that every entry
// points to an existing node.
func validateNames(s *Scene) []ValidationError {
	var errs []ValidationError

	for name, id := range s.NameIndex {
		if _, ok := s.Nodes[id]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
		}
	}

	nameToNodes := make(map[string][]NodeID)
	for id, node := range s.Nodes {
		if node.Name != "" {
			nameToNodes[node.Name] = append(nameToNodes[node.Name], id)
		}
	}
	for name, ids := range nameToNodes {
		if len(ids) > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, len(ids)),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateRoots checks that every root ID references an existing node and
// warns about orphan nodes (nodes unreachable from any root).
func validateRoots(s *Scene) []ValidationError {
	var errs []ValidationError

	for _, rid := range s.Roots {
		if _, ok := s.Nodes[rid]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
		}
	}

	if len(s.Nodes) == 0 {
		return errs
	}

	reachable := make(map[NodeID]bool)
	queue := make([]NodeID, 0, len(s.Roots))
	for _, rid := range s.Roots {
		if _, ok := s.Nodes[rid]; ok && !reachable[rid] {
			reachable[rid] = true
			queue = append(queue, rid)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := s.Nodes[current]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	for id, node := range s.Nodes {
		if !reachable[id] {
			name := node.Name
			if name == "" {
				name = id.Short()
			}
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node %q is not reachable from any root (orphan)", name),
				Severity: SeverityWarning,
			})
		}
	}

	return errs
}

// ---------------------------------------------------------------------------
// Geometric validation (errors + warnings)
// ---------------------------------------------------------------------------

func validateGeometry(s *Scene) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	if !(s.Defaults.Spacing > 0) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("default slice spacing is %.4f, must be positive", s.Defaults.Spacing),
			Severity: SeverityError,
		})
	}
	if s.Camera.Eye == s.Camera.Target {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("camera eye and target coincide at %s", s.Camera.Eye),
			Severity: SeverityError,
		})
	}

	for _, node := range s.Volumes() {
		e, w := validateVolume(s, node)
		errs = append(errs, e...)
		warnings = append(warnings, w...)
	}

	return errs, warnings
}

// validateVolume checks that a volume has positive dimensions and a usable
// spacing, and warns when it would be cut into very many slices.
func validateVolume(s *Scene, node *Node) ([]ValidationError, []ValidationWarning) {
	d, ok := node.Data.(VolumeData)
	if !ok {
		return []ValidationError{{
			NodeID:   node.ID,
			Message:  fmt.Sprintf("volume node carries %T, not volume data", node.Data),
			Severity: SeverityError,
		}}, nil
	}

	var errs []ValidationError
	for _, c := range []struct {
		axis string
		v    float64
	}{{"width", d.Dimensions.X}, {"height", d.Dimensions.Y}, {"depth", d.Dimensions.Z}} {
		if !(c.v > 0) || math.IsInf(c.v, 0) {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("volume %s is %.4f, must be positive", c.axis, c.v),
				Severity: SeverityError,
			})
		}
	}
	if d.Spacing < 0 {
		errs = append(errs, ValidationError{
			NodeID:   node.ID,
			Message:  fmt.Sprintf("volume spacing is %.4f, must be positive", d.Spacing),
			Severity: SeverityError,
		})
	}
	if len(errs) > 0 {
		return errs, nil
	}

	spacing := s.SpacingOf(d)
	if !(spacing > 0) {
		// Reported by the default spacing check.
		return nil, nil
	}
	box, err := volume.NewBox(d.Dimensions.X, d.Dimensions.Y, d.Dimensions.Z, spacing)
	if err != nil {
		return []ValidationError{{
			NodeID:   node.ID,
			Message:  fmt.Sprintf("volume %q cannot be sliced: %v", node.Name, err),
			Severity: SeverityError,
		}}, nil
	}
	if n := box.MaxSlices(); n > MaxSlicesWarning {
		return nil, []ValidationWarning{{
			NodeID:  node.ID,
			Message: fmt.Sprintf("volume %q may produce up to %d slices per frame", node.Name, n),
		}}
	}
	return nil, nil
}
