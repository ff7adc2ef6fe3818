package main

import (
	"context"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/ember/pkg/engine"
	"github.com/chazu/ember/pkg/kernel"
	"github.com/chazu/ember/pkg/kernel/sdfx"
	"github.com/chazu/ember/pkg/scene"
	"github.com/chazu/ember/pkg/tessellate"
	"github.com/chazu/ember/pkg/volume"
	"github.com/google/uuid"
)

// App is the Wails backend. It exposes methods to the frontend via bindings.
// Wails calls bindings concurrently, so the renderer is guarded by mu.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	kernel kernel.Kernel

	mu       sync.Mutex
	renderer *tessellate.Renderer
	sceneID  uuid.UUID
}

// MeshData is the JSON-serializable mesh format sent to the frontend. Buffers
// that did not change since the previous frame are omitted; the frontend keeps
// its uploaded copy.
type MeshData struct {
	Vertices  []float32    `json:"vertices,omitempty"`
	TexCoords []float32    `json:"texCoords,omitempty"`
	Indices   []uint32     `json:"indices,omitempty"`
	PartName  string       `json:"partName"`
	Slices    int          `json:"slices"`
	Time      float64      `json:"time"`
	Dirty     volume.Dirty `json:"dirty"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	SceneID  string          `json:"sceneId"`
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// FrameResult is the state of the loaded scene after one frame.
type FrameResult struct {
	SceneID string     `json:"sceneId"`
	Meshes  []MeshData `json:"meshes"`
	Error   string     `json:"error,omitempty"`
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp() *App {
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.New(),
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// Evaluate takes Lisp source, loads the resulting scene and returns its first
// frame. The previous scene stays loaded when the source has errors.
// This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a scene.
	s, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		logs.Warn(errors.New("evaluating scene failed").Wrap(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors to the frontend format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 3: Validate the scene.
	validation := scene.ValidateAll(s)
	for _, w := range validation.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}
	if len(validation.Errors) > 0 {
		for _, e := range validation.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Message: e.Error()})
		}
		return result
	}

	// Step 4: Build the volume elements.
	r, err := tessellate.New(s, a.kernel)
	if err != nil {
		logs.Warn(errors.New("building scene failed").Wrap(err))
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.renderer = r
	a.sceneID = uuid.New()
	result.SceneID = a.sceneID.String()

	logs.WithTag("scene", result.SceneID).
		WithTag("volumes", r.Len()).
		WithTag("warnings", len(result.Warnings)).
		Info("scene loaded")

	// Step 5: Slice every volume for the current camera.
	frame := a.frame(0)
	result.Meshes = frame.Meshes
	if frame.Error != "" {
		result.Errors = append(result.Errors, EvalErrorData{Message: frame.Error})
	}
	return result
}

// Frame advances the loaded scene by deltaTime seconds and returns the
// updated meshes. It returns no meshes before a scene has been loaded.
func (a *App) Frame(deltaTime float64) FrameResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frame(deltaTime)
}

// Orbit rotates the camera around its target by yaw and pitch degrees. The
// next frame re-slices the volumes for the new view.
func (a *App) Orbit(yaw, pitch float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.renderer != nil {
		a.renderer.Orbit(yaw, pitch)
	}
}

func (a *App) frame(deltaTime float64) FrameResult {
	result := FrameResult{Meshes: []MeshData{}}
	if a.renderer == nil {
		return result
	}
	result.SceneID = a.sceneID.String()

	parts, err := a.renderer.Frame(deltaTime, a.renderer.CameraTransform())
	if err != nil {
		// The failing volume already logged its error and kept its mesh.
		result.Error = err.Error()
	}

	for _, p := range parts {
		m := MeshData{
			PartName: p.Name,
			Slices:   p.Mesh.Slices,
			Time:     p.Time,
			Dirty:    p.Dirty,
		}
		if p.Dirty.Positions {
			m.Vertices = p.Mesh.Vertices
		}
		if p.Dirty.TexCoords {
			m.TexCoords = p.Mesh.TexCoords
		}
		if p.Dirty.Indices {
			m.Indices = p.Mesh.Indices
		}
		result.Meshes = append(result.Meshes, m)
	}
	return result
}
