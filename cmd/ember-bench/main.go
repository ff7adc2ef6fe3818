package main

import (
	"context"
	"net/http"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/chazu/ember/pkg/engine"
	"github.com/chazu/ember/pkg/kernel/sdfx"
	"github.com/chazu/ember/pkg/scene"
	"github.com/chazu/ember/pkg/tessellate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

// Keeps the config field names readable by the cli package when the binary
// is obfuscated.
var _ = reflect.TypeOf(config{})

type config struct {
	Scene         string        `cli:""        env:"EMBER_SCENE"          help:"Scene file to render."`
	Frames        int           `cli:""        env:"EMBER_FRAMES"         help:"Number of frames to render."`
	FrameDuration time.Duration `cli:""        env:"EMBER_FRAME_DURATION" help:"Simulated duration of a frame."`
	Orbit         float64       `cli:""        env:"EMBER_ORBIT"          help:"Camera yaw per frame, in degrees."`
	Output        string        `cli:""        env:"EMBER_OUTPUT"         help:"File the final meshes are written to as JSON (- for stdout)."`
	MetricsAddr   string        `cli:""        env:"EMBER_METRICS_ADDR"   help:"Listening address for Prometheus metrics. Empty disables it."`
	LogLevel      string        `cli:""        env:"EMBER_LOG_LEVEL"      help:"Log level (debug|info|warning|error)."`
	LogIndent     bool          `cli:",hidden" env:"EMBER_LOG_INDENT"     help:"Indent logs."`
	Help          bool          `cli:""        env:"-"                    help:"Show help."`
}

func main() {
	conf := config{
		Scene:         "examples/campfire.ember",
		Frames:        360,
		FrameDuration: time.Second / 60,
		Orbit:         1,
		LogLevel:      logs.InfoLevel.String(),
	}

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Renders an ember scene headlessly while orbiting the camera.").
		Options(&conf)
	cli.Load()

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	if conf.MetricsAddr != "" {
		var mux http.ServeMux
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: conf.MetricsAddr, Handler: &mux}

		go func() {
			logs.WithTag("addr", server.Addr).Info("starting metrics server")
			switch err := server.ListenAndServe(); err {
			case nil, http.ErrServerClosed:
				logs.WithTag("addr", server.Addr).Info("stopping metrics server")
			default:
				logs.Warn(errors.New("metrics server stopped").
					WithTag("addr", server.Addr).
					Wrap(err))
			}
		}()
		defer server.Shutdown(context.Background())
	}

	source, err := os.ReadFile(conf.Scene)
	if err != nil {
		logs.Fatal(errors.New("reading scene failed").
			WithTag("scene", conf.Scene).
			Wrap(err))
	}

	res, err := run(ctx, conf, string(source))
	if err != nil {
		logs.Fatal(errors.New("rendering scene failed").
			WithTag("scene", conf.Scene).
			Wrap(err))
	}

	logs.WithTag("run_id", res.RunID).
		WithTag("scene", conf.Scene).
		WithTag("frames", res.Frames).
		WithTag("reslices", res.Reslices).
		WithTag("frame_errors", res.FrameErrors).
		WithTag("elapsed", res.Elapsed).
		Info("run finished")

	if conf.Output == "" {
		return
	}
	if err := writeResult(conf.Output, res); err != nil {
		logs.Fatal(errors.New("writing output failed").
			WithTag("output", conf.Output).
			Wrap(err))
	}
}

func validateConfig(conf config) error {
	if conf.Scene == "" {
		return errors.New("a scene file is required")
	}
	if conf.Frames <= 0 {
		return errors.New("frame count must be positive").
			WithTag("frames", conf.Frames)
	}
	if conf.FrameDuration < 0 {
		return errors.New("frame duration must not be negative").
			WithTag("frame_duration", conf.FrameDuration)
	}
	return nil
}

// result is the outcome of a run, written as JSON.
type result struct {
	RunID       string        `json:"runId"`
	Frames      int           `json:"frames"`
	Reslices    int           `json:"reslices"`
	FrameErrors int           `json:"frameErrors"`
	Elapsed     time.Duration `json:"elapsed"`
	Camera      scene.Camera  `json:"camera"`
	Parts       []partResult  `json:"parts"`
}

type partResult struct {
	Name      string    `json:"name"`
	Slices    int       `json:"slices"`
	Time      float64   `json:"time"`
	Vertices  []float32 `json:"vertices"`
	TexCoords []float32 `json:"texCoords"`
	Indices   []uint32  `json:"indices"`
}

// run evaluates source and renders conf.Frames frames, orbiting the camera
// by conf.Orbit degrees before each one. It stops early when ctx is done.
func run(ctx context.Context, conf config, source string) (result, error) {
	res := result{
		RunID: uuid.NewString(),
		Parts: []partResult{},
	}
	start := time.Now()

	s, evalErrs, err := engine.NewEngine().Evaluate(source)
	if err != nil {
		return res, err
	}
	if len(evalErrs) > 0 {
		return res, errors.New("scene has errors").
			WithTag("error", evalErrs[0].Error()).
			WithTag("count", len(evalErrs))
	}

	validation := scene.ValidateAll(s)
	for _, w := range validation.Warnings {
		logs.WithTag("run_id", res.RunID).Info(w.Message)
	}
	if len(validation.Errors) > 0 {
		return res, errors.New("scene is invalid").
			WithTag("error", validation.Errors[0].Error()).
			WithTag("count", len(validation.Errors))
	}

	r, err := tessellate.New(s, sdfx.New())
	if err != nil {
		return res, err
	}

	var parts []tessellate.Part
	for i := 0; i < conf.Frames; i++ {
		if ctx.Err() != nil {
			logs.WithTag("run_id", res.RunID).
				WithTag("frame", i).
				Info("run interrupted")
			break
		}

		if i > 0 {
			r.Orbit(conf.Orbit, 0)
		}

		if parts, err = r.Frame(conf.FrameDuration.Seconds(), r.CameraTransform()); err != nil {
			res.FrameErrors++
		}
		for _, p := range parts {
			if p.Dirty.Any() {
				res.Reslices++
			}
		}
		res.Frames++
	}

	res.Elapsed = time.Since(start)
	res.Camera = r.Camera()
	for _, p := range parts {
		res.Parts = append(res.Parts, partResult{
			Name:      p.Name,
			Slices:    p.Mesh.Slices,
			Time:      p.Time,
			Vertices:  p.Mesh.Vertices,
			TexCoords: p.Mesh.TexCoords,
			Indices:   p.Mesh.Indices,
		})
	}
	return res, nil
}

func writeResult(path string, res result) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
