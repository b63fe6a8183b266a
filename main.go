package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-ppm-raytracer/pkg/config"
	"github.com/df07/go-ppm-raytracer/pkg/core"
	"github.com/df07/go-ppm-raytracer/pkg/output"
	"github.com/df07/go-ppm-raytracer/pkg/ppm"
	"github.com/df07/go-ppm-raytracer/pkg/renderer"
	"github.com/df07/go-ppm-raytracer/pkg/scene"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliOptions holds the parsed command line on top of the environment configuration
type cliOptions struct {
	cfg      *config.Config
	quiet    bool
	help     bool
	explicit map[string]bool // flags given on the command line
	flags    *flag.FlagSet
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("raytracer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	sceneName := fs.String("scene", cfg.Scene, "Scene to render (see -help for the list)")
	width := fs.Int("width", cfg.Width, "Image width in pixels")
	aspect := fs.String("aspect", strconv.FormatFloat(cfg.AspectRatio, 'g', -1, 64), "Aspect ratio as a decimal or W/H")
	samples := fs.Int("samples", cfg.SamplesPerPixel, "Samples per pixel for anti-aliasing")
	seed := fs.Int64("seed", cfg.Seed, "Random seed for sample jitter (0 uses the clock)")
	outputDir := fs.String("output", cfg.OutputDir, "Directory renders are written under")
	compress := fs.String("compress", string(cfg.Compression), "Output compression: none, zstd or snappy")
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	quiet := fs.Bool("quiet", false, "Suppress progress logging")
	help := fs.Bool("help", false, "Show help information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &cliOptions{cfg: cfg, quiet: *quiet, help: *help, explicit: map[string]bool{}, flags: fs}
	fs.Visit(func(f *flag.Flag) { opts.explicit[f.Name] = true })
	if opts.help {
		return opts, nil
	}

	cfg.Scene = strings.ToLower(strings.TrimSpace(*sceneName))
	cfg.Width = *width
	cfg.SamplesPerPixel = *samples
	cfg.Seed = *seed
	cfg.OutputDir = *outputDir
	cfg.LogLevel = *logLevel

	cfg.AspectRatio, err = config.ParseAspectRatio(*aspect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	cfg.Compression, err = output.ParseCompression(*compress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func printHelp(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "PPM Raytracer")
	fmt.Fprintln(w, "Usage: raytracer [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Available scenes:")
	for _, info := range scene.ListScenes() {
		fmt.Fprintf(w, "  %-12s %s\n", info.ID, info.Description)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output will be saved to <output>/<scene>/render_<timestamp>.ppm")
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.help {
		printHelp(stdout, opts.flags)
		return nil
	}
	cfg := opts.cfg

	logWriter := stderr
	if opts.quiet {
		logWriter = io.Discard
	}
	slogger, err := cfg.NewLogger(logWriter)
	if err != nil {
		return err
	}
	logger := renderer.NewSlogLogger(slogger)

	var write func(io.Writer) error
	if cfg.Scene == scene.GradientSceneName {
		write = func(w io.Writer) error { return writeGradient(w, cfg, logger) }
	} else {
		selected, err := createScene(cfg.Scene)
		if err != nil {
			return err
		}
		cameraConfig := cameraConfigFor(selected, opts)
		camera, err := renderer.NewCamera(cameraConfig)
		if err != nil {
			return err
		}
		write = func(w io.Writer) error {
			_, err := camera.Render(w, selected.World, renderer.RenderOptions{
				Sampler:  core.NewSeededSampler(cfg.Seed),
				Progress: progressLogger(logger),
				Logger:   logger,
			})
			return err
		}
	}

	path := output.Path(cfg.OutputDir, cfg.Scene, time.Now(), cfg.Compression)
	file, err := output.Create(path, cfg.Compression)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		if abortErr := file.Abort(); abortErr != nil {
			logger.Printf("Failed to clean up %s: %v\n", path, abortErr)
		}
		return err
	}
	if err := file.Commit(); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Render saved as %s\n", path)
	return nil
}

// createScene builds a ray traced scene from the catalog
func createScene(name string) (*scene.Scene, error) {
	return scene.Create(name)
}

// cameraConfigFor starts from the scene's camera and applies settings that were
// passed as flags or changed from their defaults through the environment.
func cameraConfigFor(s *scene.Scene, opts *cliOptions) renderer.CameraConfig {
	cc := s.CameraConfig
	cfg := opts.cfg
	if opts.explicit["width"] || cfg.Width != config.DefaultWidth {
		cc.Width = cfg.Width
	}
	if opts.explicit["aspect"] || cfg.AspectRatio != config.DefaultAspectRatio {
		cc.AspectRatio = cfg.AspectRatio
	}
	if opts.explicit["samples"] || cfg.SamplesPerPixel != config.DefaultSamplesPerPixel {
		cc.SamplesPerPixel = cfg.SamplesPerPixel
	}
	return cc
}

func writeGradient(w io.Writer, cfg *config.Config, logger core.Logger) error {
	height := renderer.ImageHeight(cfg.Width, cfg.AspectRatio)
	logger.Printf("Writing %dx%d gradient...\n", cfg.Width, height)

	img := ppm.New(cfg.Width, height, ppm.DefaultMaxColor)
	if err := img.WriteFunc(w, scene.Gradient(cfg.Width, height)); err != nil {
		return fmt.Errorf("gradient: %w", err)
	}
	return nil
}

// progressLogger logs once each time another tenth of the image completes
func progressLogger(logger core.Logger) renderer.ProgressFunc {
	lastDecile := 0
	return func(completed, total int) {
		if total <= 0 {
			return
		}
		decile := completed * 10 / total
		if decile > lastDecile {
			lastDecile = decile
			logger.Printf("Progress: %d%% (%d/%d pixels)\n", decile*10, completed, total)
		}
	}
}
