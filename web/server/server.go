package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-ppm-raytracer/pkg/core"
	"github.com/df07/go-ppm-raytracer/pkg/ppm"
	"github.com/df07/go-ppm-raytracer/pkg/renderer"
	"github.com/df07/go-ppm-raytracer/pkg/scene"
)

const (
	MaxWidth           = 2000
	MaxSamplesPerPixel = 1000
	MinAspectRatio     = 0.1
	MaxAspectRatio     = 10.0
)

// Server handles web requests for the raytracer
type Server struct {
	addr   string
	logger *slog.Logger
}

// NewServer creates a new web server; a nil logger uses slog.Default()
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, logger: logger}
}

// RenderRequest represents a render request from the client.
// Zero values fall back to the scene's own camera settings.
type RenderRequest struct {
	Scene           string  `json:"scene"`
	Width           int     `json:"width"`
	AspectRatio     float64 `json:"aspectRatio"`
	SamplesPerPixel int     `json:"samplesPerPixel"`
	Seed            int64   `json:"seed"` // 0 picks a seed from the clock
}

// Stats represents render statistics
type Stats struct {
	Width           int   `json:"width"`
	Height          int   `json:"height"`
	TotalPixels     int   `json:"totalPixels"`
	TotalSamples    int   `json:"totalSamples"`
	SamplesPerPixel int   `json:"samplesPerPixel"`
	ElapsedMs       int64 `json:"elapsedMs"`
}

func newStats(stats renderer.RenderStats) Stats {
	return Stats{
		Width:           stats.Width,
		Height:          stats.Height,
		TotalPixels:     stats.TotalPixels,
		TotalSamples:    stats.TotalSamples,
		SamplesPerPixel: stats.SamplesPerPixel,
		ElapsedMs:       stats.Elapsed.Milliseconds(),
	}
}

// Handler returns the routes served by the web server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.HandleFunc("/ws/render", s.handleRenderWS)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	s.logger.Info("starting web server", "addr", s.addr)
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the scene catalog
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scene.ListScenes())
}

// handleRender renders the whole image into memory and returns it as P3 text,
// so a failed render never produces a partial body.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := s.parseRenderRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	job, err := newRenderJob(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	var buf bytes.Buffer
	logger := NewWebLogger(newRenderID(), nil, s.logger)
	if _, err := job.render(&buf, nil, logger); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Rendering failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/x-portable-pixmap")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("failed to send render", "scene", req.Scene, "error", err)
	}
}

// parseRenderRequest parses and validates query parameters
func (s *Server) parseRenderRequest(values url.Values) (*RenderRequest, error) {
	req := &RenderRequest{Scene: strings.TrimSpace(values.Get("scene"))}

	var err error
	if req.Width, err = parseIntParam(values, "width", 0, 1, MaxWidth); err != nil {
		return nil, err
	}
	if req.SamplesPerPixel, err = parseIntParam(values, "samples", 0, 1, MaxSamplesPerPixel); err != nil {
		return nil, err
	}
	if req.AspectRatio, err = parseFloatParam(values, "aspect", 0, MinAspectRatio, MaxAspectRatio); err != nil {
		return nil, err
	}
	if raw := values.Get("seed"); raw != "" {
		if req.Seed, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid seed: %s", raw)
		}
	}

	if err := validateRenderRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// validateRenderRequest fills defaults and checks ranges for requests from any transport
func validateRenderRequest(req *RenderRequest) error {
	req.Scene = strings.ToLower(strings.TrimSpace(req.Scene))
	if req.Scene == "" {
		req.Scene = "default"
	}
	if req.Width != 0 && (req.Width < 1 || req.Width > MaxWidth) {
		return fmt.Errorf("width must be between 1 and %d, got: %d", MaxWidth, req.Width)
	}
	if req.SamplesPerPixel != 0 && (req.SamplesPerPixel < 1 || req.SamplesPerPixel > MaxSamplesPerPixel) {
		return fmt.Errorf("samplesPerPixel must be between 1 and %d, got: %d", MaxSamplesPerPixel, req.SamplesPerPixel)
	}
	if req.AspectRatio != 0 && !(req.AspectRatio >= MinAspectRatio && req.AspectRatio <= MaxAspectRatio) {
		return fmt.Errorf("aspectRatio must be between %g and %g, got: %g", MinAspectRatio, MaxAspectRatio, req.AspectRatio)
	}
	if !scene.Exists(req.Scene) {
		return fmt.Errorf("%w: %q", scene.ErrUnknownScene, req.Scene)
	}
	return nil
}

// cameraConfig starts from base and applies the request's overrides
func cameraConfig(base renderer.CameraConfig, req *RenderRequest) renderer.CameraConfig {
	if req.Width != 0 {
		base.Width = req.Width
	}
	if req.AspectRatio != 0 {
		base.AspectRatio = req.AspectRatio
	}
	if req.SamplesPerPixel != 0 {
		base.SamplesPerPixel = req.SamplesPerPixel
	}
	return base
}

// renderJob is a validated request resolved to a world and camera settings
type renderJob struct {
	scene  *scene.Scene // nil for the gradient fixture
	config renderer.CameraConfig
	seed   int64
}

// newRenderJob builds the scene named by req and applies its overrides
func newRenderJob(req *RenderRequest) (*renderJob, error) {
	if req.Scene == scene.GradientSceneName {
		job := &renderJob{config: cameraConfig(renderer.DefaultCameraConfig(), req)}
		if err := job.config.Validate(); err != nil {
			return nil, err
		}
		return job, nil
	}

	sceneObj, err := scene.Create(req.Scene)
	if err != nil {
		return nil, err
	}
	job := &renderJob{scene: sceneObj, config: cameraConfig(sceneObj.CameraConfig, req), seed: req.Seed}
	if err := job.config.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// width returns the image width in pixels
func (j *renderJob) width() int {
	return j.config.Width
}

// render writes the image to w
func (j *renderJob) render(w io.Writer, progress renderer.ProgressFunc, logger core.Logger) (renderer.RenderStats, error) {
	if j.scene == nil {
		return renderGradient(w, j.config, progress, logger)
	}

	camera, err := renderer.NewCamera(j.config)
	if err != nil {
		return renderer.RenderStats{}, err
	}

	logger.Printf("Rendering scene %s (%d objects)\n", j.scene.Name, j.scene.World.Len())
	return camera.Render(w, j.scene.World, renderer.RenderOptions{
		Sampler:  core.NewSeededSampler(j.seed),
		Progress: progress,
		Logger:   logger,
	})
}

func renderGradient(w io.Writer, config renderer.CameraConfig, progress renderer.ProgressFunc, logger core.Logger) (renderer.RenderStats, error) {
	width := config.Width
	height := renderer.ImageHeight(width, config.AspectRatio)
	total := width * height
	startTime := time.Now()

	logger.Printf("Writing %dx%d gradient...\n", width, height)

	gradient := scene.Gradient(width, height)
	completed := 0
	err := ppm.New(width, height, ppm.DefaultMaxColor).WriteFunc(w, func(x, y int) core.Vec3 {
		completed++
		if progress != nil {
			progress(completed, total)
		}
		return gradient(x, y)
	})

	stats := renderer.RenderStats{
		Width:       width,
		Height:      height,
		TotalPixels: completed,
		Elapsed:     time.Since(startTime),
	}
	if err != nil {
		return stats, fmt.Errorf("gradient: %w", err)
	}
	return stats, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if !(parsed >= min && parsed <= max) {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
