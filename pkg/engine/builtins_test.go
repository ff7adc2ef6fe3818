package engine

import (
	"strings"
	"testing"

	"github.com/chazu/ember/pkg/scene"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(fire "core" :width 2)`,
			expect: `(fire "core" "__kw_width" 2)`,
		},
		{
			name:   "multiple keywords",
			input:  `(fire "core" :width 2 :height 4)`,
			expect: `(fire "core" "__kw_width" 2 "__kw_height" 4)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def fire-height 4)`,
			expect: `(def fire_height 4)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 0 0.5 -3)`,
			expect: `(vec3 0 0.5 -3)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:look-at`,
			expect: `"__kw_look-at"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// evaluate runs source and fails the test on any error.
func evaluate(t *testing.T, source string) *scene.Scene {
	t.Helper()
	s, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if s == nil {
		t.Fatal("expected non-nil scene")
	}
	return s
}

// evaluateError runs source and returns its eval errors, failing the test if
// there are none.
func evaluateError(t *testing.T, source string) []EvalError {
	t.Helper()
	s, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if s != nil {
		t.Error("expected nil scene on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	return evalErrs
}

func containsMessage(errs []EvalError, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// fire / volume
// ---------------------------------------------------------------------------

func TestFireDefaults(t *testing.T) {
	s := evaluate(t, `(fire "core")`)

	if s.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", s.NodeCount())
	}
	core := s.Lookup("core")
	if core == nil {
		t.Fatal("expected node named 'core'")
	}
	if core.Kind != scene.NodeVolume {
		t.Errorf("expected NodeVolume, got %s", core.Kind)
	}

	vd, ok := core.Data.(scene.VolumeData)
	if !ok {
		t.Fatalf("expected VolumeData, got %T", core.Data)
	}
	if vd.Dimensions != (scene.Vec3{X: 2, Y: 4, Z: 2}) {
		t.Errorf("dimensions = %s, want (2, 4, 2)", vd.Dimensions)
	}
	if vd.Spacing != 0 {
		t.Errorf("spacing = %f, want 0 (scene default)", vd.Spacing)
	}

	// A bare fire is a root.
	if !s.IsRoot(core.ID) {
		t.Error("unreferenced fire should be a root")
	}
}

func TestFireKeywords(t *testing.T) {
	s := evaluate(t, `(fire "torch" :width 0.5 :height 3 :depth 0.5 :spacing 0.1)`)

	vd := s.MustLookup("torch").Data.(scene.VolumeData)
	if vd.Dimensions != (scene.Vec3{X: 0.5, Y: 3, Z: 0.5}) {
		t.Errorf("dimensions = %s", vd.Dimensions)
	}
	if vd.Spacing != 0.1 {
		t.Errorf("spacing = %f, want 0.1", vd.Spacing)
	}
}

func TestFireVariableReference(t *testing.T) {
	s := evaluate(t, `
(def tall 6)
(fire "core" :height tall :width (* 2 1.5))
`)

	vd := s.MustLookup("core").Data.(scene.VolumeData)
	if vd.Dimensions.Y != 6 {
		t.Errorf("height = %f, want 6 (from variable)", vd.Dimensions.Y)
	}
	if vd.Dimensions.X != 3 {
		t.Errorf("width = %f, want 3 (from arithmetic)", vd.Dimensions.X)
	}
}

func TestFireErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"missing name", `(fire)`, "requires a name"},
		{"name not a string", `(fire 42)`, "name"},
		{"bad width", `(fire "core" :width "wide")`, "width"},
		{"duplicate", `(fire "core") (fire "core")`, "already defined"},
		{"empty name", `(fire "")`, "must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := evaluateError(t, tt.source)
			if !containsMessage(errs, tt.want) {
				t.Errorf("expected an error containing %q, got %v", tt.want, errs)
			}
		})
	}
}

func TestVolumeLookup(t *testing.T) {
	s := evaluate(t, `
(fire "core")
(place (volume "core") :at (vec3 0 0.5 -3))
`)
	if s.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", s.NodeCount())
	}
	// The placement is the only root; the fire is its child.
	if len(s.Roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(s.Roots))
	}
	root := s.Get(s.Roots[0])
	if root.Kind != scene.NodeTransform {
		t.Errorf("root kind = %s, want transform", root.Kind)
	}
	if root.Children[0] != s.MustLookup("core").ID {
		t.Error("placement should reference the fire")
	}
}

func TestVolumeLookupError(t *testing.T) {
	errs := evaluateError(t, `(volume "nonexistent")`)
	if !containsMessage(errs, "nonexistent") {
		t.Errorf("expected the missing name in the error, got %v", errs)
	}
}

// ---------------------------------------------------------------------------
// vec3 / place / group
// ---------------------------------------------------------------------------

func TestVec3(t *testing.T) {
	errs := evaluateError(t, `(vec3 1 2)`)
	if !containsMessage(errs, "exactly 3") {
		t.Errorf("expected arity error, got %v", errs)
	}

	errs = evaluateError(t, `(vec3 1 "two" 3)`)
	if !containsMessage(errs, "y") {
		t.Errorf("expected a y component error, got %v", errs)
	}
}

func TestPlaceTranslationAndRotation(t *testing.T) {
	s := evaluate(t, `(place (fire "core") :at (vec3 0 0.5 -3) :rotate (vec3 0 45 0))`)

	var td scene.TransformData
	for _, n := range s.Nodes {
		if n.Kind == scene.NodeTransform {
			td = n.Data.(scene.TransformData)
		}
	}
	if td.Translation == nil || *td.Translation != (scene.Vec3{X: 0, Y: 0.5, Z: -3}) {
		t.Errorf("translation = %v, want (0, 0.5, -3)", td.Translation)
	}
	if td.Rotation == nil || *td.Rotation != (scene.Vec3{X: 0, Y: 45, Z: 0}) {
		t.Errorf("rotation = %v, want (0, 45, 0)", td.Rotation)
	}
}

func TestPlaceErrors(t *testing.T) {
	errs := evaluateError(t, `(place)`)
	if !containsMessage(errs, "requires a node reference") {
		t.Errorf("got %v", errs)
	}

	errs = evaluateError(t, `(place (fire "core") :at 5)`)
	if !containsMessage(errs, "at") {
		t.Errorf("got %v", errs)
	}
}

func TestPlaceSameVolumeTwice(t *testing.T) {
	s := evaluate(t, `
(fire "core")
(group "pair"
  (place (volume "core") :at (vec3 -2 0 0))
  (place (volume "core") :at (vec3 2 0 0)))
`)
	// 1 volume + 2 distinct transforms + 1 group.
	if s.NodeCount() != 4 {
		t.Fatalf("expected 4 nodes, got %d", s.NodeCount())
	}
	pair := s.MustLookup("pair")
	if len(pair.Children) != 2 || pair.Children[0] == pair.Children[1] {
		t.Errorf("placements should get distinct IDs: %v", pair.Children)
	}
}

func TestGroupRoots(t *testing.T) {
	s := evaluate(t, `
(group "hearth"
  (place (fire "core") :at (vec3 0 0.5 -3))
  (group "sparks" (fire "ember" :width 0.2 :height 0.2 :depth 0.2)))
`)

	// core, ember, place, sparks, hearth.
	if s.NodeCount() != 5 {
		t.Fatalf("expected 5 nodes, got %d", s.NodeCount())
	}

	// Only the outer group is a root.
	if len(s.Roots) != 1 || s.Roots[0] != s.MustLookup("hearth").ID {
		t.Errorf("roots = %v, want only hearth", s.Roots)
	}
	if errs := scene.Validate(s); len(errs) != 0 {
		t.Errorf("scene should validate cleanly: %v", errs)
	}
}

func TestGroupErrors(t *testing.T) {
	errs := evaluateError(t, `(group)`)
	if !containsMessage(errs, "requires a name") {
		t.Errorf("got %v", errs)
	}

	errs = evaluateError(t, `(group "g" 42)`)
	if !containsMessage(errs, "child 1") {
		t.Errorf("got %v", errs)
	}

	errs = evaluateError(t, `(fire "core") (group "core")`)
	if !containsMessage(errs, "already defined") {
		t.Errorf("got %v", errs)
	}
}

// ---------------------------------------------------------------------------
// camera / spacing
// ---------------------------------------------------------------------------

func TestCamera(t *testing.T) {
	s := evaluate(t, `(camera :at (vec3 3 2 6) :look-at (vec3 0 1 0))`)

	if s.Camera.Eye != (scene.Vec3{X: 3, Y: 2, Z: 6}) {
		t.Errorf("eye = %s", s.Camera.Eye)
	}
	if s.Camera.Target != (scene.Vec3{X: 0, Y: 1, Z: 0}) {
		t.Errorf("target = %s", s.Camera.Target)
	}

	// Leaving a keyword out keeps the default.
	s = evaluate(t, `(camera :at (vec3 0 3 6))`)
	if s.Camera.Target != scene.DefaultTarget {
		t.Errorf("target = %s, want default", s.Camera.Target)
	}
}

func TestSpacing(t *testing.T) {
	s := evaluate(t, `(spacing 0.25)`)
	if s.Defaults.Spacing != 0.25 {
		t.Errorf("default spacing = %f, want 0.25", s.Defaults.Spacing)
	}

	s = evaluate(t, `(fire "core")`)
	if s.Defaults.Spacing != scene.DefaultSpacing {
		t.Errorf("default spacing = %f, want %f", s.Defaults.Spacing, scene.DefaultSpacing)
	}

	errs := evaluateError(t, `(spacing 0)`)
	if !containsMessage(errs, "must be positive") {
		t.Errorf("got %v", errs)
	}
}

// ---------------------------------------------------------------------------
// Full campfire example
// ---------------------------------------------------------------------------

func TestCampfireExample(t *testing.T) {
	s := evaluate(t, `
;; A campfire in front of the camera.
(spacing 0.5)
(camera :at (vec3 0 0 6) :look-at (vec3 0 0 0))

(def fire-height 4)

(group "hearth"
  (place (fire "core" :width 2 :height fire-height :depth 2)
         :at (vec3 0 0.5 -3)))
`)

	result := scene.ValidateAll(s)
	if len(result.Errors) != 0 {
		t.Fatalf("validation errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("validation warnings: %v", result.Warnings)
	}
	if len(s.Volumes()) != 1 {
		t.Errorf("expected 1 volume, got %d", len(s.Volumes()))
	}
}

func TestEvaluateDeterministicIDs(t *testing.T) {
	source := `(group "hearth" (place (fire "core") :at (vec3 0 0.5 -3)))`
	a := evaluate(t, source)
	b := evaluate(t, source)

	if len(a.Nodes) != len(b.Nodes) {
		t.Fatalf("node counts differ: %d vs %d", len(a.Nodes), len(b.Nodes))
	}
	for id := range a.Nodes {
		if b.Get(id) == nil {
			t.Errorf("node %s missing from the second evaluation", id.Short())
		}
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	s := evaluate(t, `(def x (+ 1 2)) (fire "core" :width x)`)
	if w := s.MustLookup("core").Data.(scene.VolumeData).Dimensions.X; w != 3 {
		t.Errorf("width = %f, want 3", w)
	}
}
