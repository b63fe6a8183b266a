package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-ppm-raytracer/pkg/config"
	"github.com/df07/go-ppm-raytracer/pkg/output"
	"github.com/df07/go-ppm-raytracer/pkg/ppm"
	"github.com/df07/go-ppm-raytracer/pkg/scene"
)

func TestCreateScene(t *testing.T) {
	tests := []struct {
		name        string
		sceneType   string
		expectError bool
	}{
		{"default scene", "default", false},
		{"spheregrid scene", "spheregrid", false},
		{"nested scene", "nested", false},
		{"mixed case", "  Default ", false},

		// The gradient is written directly, not ray traced
		{"gradient fixture", "gradient", true},
		{"unknown scene", "cornell", true},
		{"empty scene name", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := createScene(tt.sceneType)

			if tt.expectError {
				if !errors.Is(err, scene.ErrUnknownScene) {
					t.Errorf("Expected ErrUnknownScene for scene type '%s', got %v", tt.sceneType, err)
				}
				if s != nil {
					t.Errorf("Expected nil scene for invalid scene type '%s'", tt.sceneType)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error for scene type '%s': %v", tt.sceneType, err)
			}
			if s.CameraConfig.Width <= 0 {
				t.Errorf("Scene camera width should be positive, got %d", s.CameraConfig.Width)
			}
			if s.World.Len() == 0 {
				t.Errorf("Scene world should not be empty")
			}
		})
	}
}

// renderFiles runs the CLI into a temp dir and returns the files it produced
func renderFiles(t *testing.T, args ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	args = append([]string{"-output", dir, "-quiet"}, args...)
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("run(%v) failed: %v\nstderr: %s", args, err, stderr.String())
	}

	files, err := filepath.Glob(filepath.Join(dir, "*", "render_*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected exactly one render, found %v", files)
	}
	if !strings.Contains(stdout.String(), files[0]) {
		t.Errorf("Expected stdout to name %s, got %q", files[0], stdout.String())
	}
	return dir, files
}

func decodeRender(t *testing.T, path string) *ppm.Decoded {
	t.Helper()
	r, err := output.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	img, err := ppm.Decode(r)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return img
}

func TestRun_DefaultScene(t *testing.T) {
	dir, files := renderFiles(t, "-scene", "default", "-width", "40", "-samples", "2", "-seed", "7")

	if filepath.Dir(files[0]) != filepath.Join(dir, "default") {
		t.Errorf("Expected render under %s, got %s", filepath.Join(dir, "default"), files[0])
	}
	if !strings.HasSuffix(files[0], ".ppm") {
		t.Errorf("Expected .ppm suffix, got %s", files[0])
	}

	img := decodeRender(t, files[0])
	if img.Width != 40 || img.Height != 22 {
		t.Errorf("Expected 40x22 image, got %dx%d", img.Width, img.Height)
	}
}

func TestRun_SceneCameraUnlessOverridden(t *testing.T) {
	// The nested scene is square by default
	_, files := renderFiles(t, "-scene", "nested", "-width", "20", "-samples", "1", "-seed", "1")
	img := decodeRender(t, files[0])
	if img.Width != 20 || img.Height != 20 {
		t.Errorf("Expected scene aspect ratio to give 20x20, got %dx%d", img.Width, img.Height)
	}

	_, files = renderFiles(t, "-scene", "nested", "-width", "20", "-aspect", "2/1", "-samples", "1", "-seed", "1")
	img = decodeRender(t, files[0])
	if img.Width != 20 || img.Height != 10 {
		t.Errorf("Expected -aspect to give 20x10, got %dx%d", img.Width, img.Height)
	}
}

func TestRun_Deterministic(t *testing.T) {
	args := []string{"-scene", "spheregrid", "-width", "24", "-samples", "3", "-seed", "99"}

	_, first := renderFiles(t, args...)
	_, second := renderFiles(t, args...)

	a, err := os.ReadFile(first[0])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	b, err := os.ReadFile(second[0])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("Renders with the same seed should be byte-identical")
	}
}

func TestRun_Gradient(t *testing.T) {
	_, files := renderFiles(t, "-scene", "gradient", "-width", "6", "-aspect", "2")

	img := decodeRender(t, files[0])
	if img.Width != 6 || img.Height != 3 {
		t.Fatalf("Expected 6x3 gradient, got %dx%d", img.Width, img.Height)
	}

	expected := map[[2]int]ppm.Pixel{
		{0, 0}: {R: 0, G: 0, B: 0},
		{5, 0}: {R: 0, G: 255, B: 0},
		{0, 2}: {R: 0, G: 0, B: 255},
		{5, 2}: {R: 0, G: 255, B: 255},
		{2, 1}: {R: 0, G: 102, B: 127},
	}
	for xy, want := range expected {
		if got := img.At(xy[0], xy[1]); got != want {
			t.Errorf("Pixel %v: expected %+v, got %+v", xy, want, got)
		}
	}
}

func TestRun_Compressed(t *testing.T) {
	for _, tt := range []struct {
		compress string
		suffix   string
	}{
		{"zstd", ".ppm.zst"},
		{"snappy", ".ppm.sz"},
	} {
		t.Run(tt.compress, func(t *testing.T) {
			_, files := renderFiles(t, "-scene", "default", "-width", "16", "-samples", "1", "-seed", "3", "-compress", tt.compress)
			if !strings.HasSuffix(files[0], tt.suffix) {
				t.Errorf("Expected %s suffix, got %s", tt.suffix, files[0])
			}
			img := decodeRender(t, files[0])
			if img.Width != 16 {
				t.Errorf("Expected width 16, got %d", img.Width)
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"unknown scene", []string{"-scene", "cornell"}, scene.ErrUnknownScene},
		{"zero width", []string{"-width", "0"}, config.ErrInvalidConfig},
		{"bad aspect", []string{"-aspect", "wide"}, config.ErrInvalidConfig},
		{"bad compression", []string{"-compress", "gzip"}, config.ErrInvalidConfig},
		{"bad log level", []string{"-log-level", "loud"}, config.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			var stdout, stderr bytes.Buffer
			err := run(append([]string{"-output", dir, "-quiet"}, tt.args...), &stdout, &stderr)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}

			entries, readErr := os.ReadDir(dir)
			if readErr != nil {
				t.Fatalf("ReadDir failed: %v", readErr)
			}
			if len(entries) != 0 {
				t.Errorf("Expected nothing written on error, found %d entries", len(entries))
			}
		})
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"-bogus"}, &stdout, &stderr); err == nil {
		t.Error("Expected error for unknown flag")
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"-help"}, &stdout, &stderr); err != nil {
		t.Fatalf("Help returned error: %v", err)
	}

	out := stdout.String()
	for _, info := range scene.ListScenes() {
		if !strings.Contains(out, info.ID) {
			t.Errorf("Expected help to list scene %q", info.ID)
		}
	}
	if !strings.Contains(out, "-samples") {
		t.Errorf("Expected help to list flags, got %q", out)
	}
}

func TestRun_LogsProgress(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	args := []string{"-output", dir, "-scene", "default", "-width", "20", "-samples", "1", "-seed", "1"}
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	logs := stderr.String()
	if !strings.Contains(logs, "Rendering 20x11 image") {
		t.Errorf("Expected start message in logs, got %q", logs)
	}
	if !strings.Contains(logs, "Progress: 100%") {
		t.Errorf("Expected final progress message in logs, got %q", logs)
	}
}

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Printf(format string, args ...interface{}) {
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

func TestProgressLogger(t *testing.T) {
	logger := &recordingLogger{}
	progress := progressLogger(logger)

	const total = 37
	for completed := 1; completed <= total; completed++ {
		progress(completed, total)
	}

	if len(logger.messages) != 10 {
		t.Fatalf("Expected 10 progress messages, got %d: %v", len(logger.messages), logger.messages)
	}
	if !strings.HasPrefix(logger.messages[0], "Progress: 10%") {
		t.Errorf("Expected first message at 10%%, got %q", logger.messages[0])
	}
	if !strings.HasPrefix(logger.messages[9], "Progress: 100%") {
		t.Errorf("Expected last message at 100%%, got %q", logger.messages[9])
	}
}

func TestParseFlags_HelpSkipsValidation(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseFlags([]string{"-help", "-width", "0"}, &stderr)
	if err != nil {
		t.Fatalf("Expected help to skip validation, got %v", err)
	}
	if !opts.help {
		t.Error("Expected help to be set")
	}

	if _, err := parseFlags([]string{"-h"}, &stderr); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("Expected flag.ErrHelp for -h, got %v", err)
	}
}
