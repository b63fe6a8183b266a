package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-ppm-raytracer/pkg/output"
	"github.com/df07/go-ppm-raytracer/pkg/renderer"
)

const (
	// DefaultScene is rendered when no scene is selected.
	DefaultScene = "default"
	// DefaultWidth is the image width in pixels.
	DefaultWidth = 400
	// DefaultAspectRatio is the nominal width / height ratio.
	DefaultAspectRatio = 16.0 / 9.0
	// DefaultSamplesPerPixel controls anti-aliasing quality.
	DefaultSamplesPerPixel = 10
	// DefaultOutputDir is where renders are written.
	DefaultOutputDir = "output"
	// DefaultLogLevel controls log verbosity.
	DefaultLogLevel = "info"
	// DefaultAddr is the web server listen address.
	DefaultAddr = ":8080"

	// MaxWidth bounds the image width accepted from configuration.
	MaxWidth = 8192
	// MaxSamplesPerPixel bounds the per-pixel sample count accepted from configuration.
	MaxSamplesPerPixel = 10000
)

// ErrInvalidConfig is returned when configuration values are out of range
var ErrInvalidConfig = errors.New("invalid configuration")

// Config captures all runtime tunables for the raytracer binaries.
type Config struct {
	Scene           string
	Width           int
	AspectRatio     float64
	SamplesPerPixel int
	Seed            int64 // 0 picks a seed from the clock
	OutputDir       string
	Compression     output.Compression
	LogLevel        string
	Addr            string
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Scene:           DefaultScene,
		Width:           DefaultWidth,
		AspectRatio:     DefaultAspectRatio,
		SamplesPerPixel: DefaultSamplesPerPixel,
		OutputDir:       DefaultOutputDir,
		Compression:     output.CompressionNone,
		LogLevel:        DefaultLogLevel,
		Addr:            DefaultAddr,
	}
}

// Load reads the configuration from environment variables, applying defaults
// and returning every invalid override in a single error.
func Load() (*Config, error) {
	cfg := Default()
	cfg.Scene = getString("RAYTRACER_SCENE", cfg.Scene)
	cfg.OutputDir = getString("RAYTRACER_OUTPUT_DIR", cfg.OutputDir)
	cfg.LogLevel = getString("RAYTRACER_LOG_LEVEL", cfg.LogLevel)
	cfg.Addr = getString("RAYTRACER_ADDR", cfg.Addr)

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("RAYTRACER_WIDTH")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("RAYTRACER_WIDTH must be an integer, got %q", raw))
		} else {
			cfg.Width = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("RAYTRACER_ASPECT_RATIO")); raw != "" {
		value, err := ParseAspectRatio(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("RAYTRACER_ASPECT_RATIO: %v", err))
		} else {
			cfg.AspectRatio = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("RAYTRACER_SAMPLES")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("RAYTRACER_SAMPLES must be an integer, got %q", raw))
		} else {
			cfg.SamplesPerPixel = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("RAYTRACER_SEED")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("RAYTRACER_SEED must be an integer, got %q", raw))
		} else {
			cfg.Seed = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("RAYTRACER_COMPRESSION")); raw != "" {
		value, err := output.ParseCompression(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("RAYTRACER_COMPRESSION: %v", err))
		} else {
			cfg.Compression = value
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges after env and flag overrides have been applied.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Scene) == "" {
		problems = append(problems, "scene must not be empty")
	}
	if c.Width < 1 || c.Width > MaxWidth {
		problems = append(problems, fmt.Sprintf("width must be in [1, %d], got %d", MaxWidth, c.Width))
	}
	if !(c.AspectRatio > 0) || math.IsInf(c.AspectRatio, 0) {
		problems = append(problems, fmt.Sprintf("aspect ratio must be positive and finite, got %v", c.AspectRatio))
	} else if c.Width >= 1 && float64(c.Width)/c.AspectRatio >= MaxWidth+1 {
		problems = append(problems, fmt.Sprintf("image height must be at most %d, aspect ratio %v is too narrow", MaxWidth, c.AspectRatio))
	}
	if c.SamplesPerPixel < 1 || c.SamplesPerPixel > MaxSamplesPerPixel {
		problems = append(problems, fmt.Sprintf("samples per pixel must be in [1, %d], got %d", MaxSamplesPerPixel, c.SamplesPerPixel))
	}
	if _, err := output.ParseCompression(string(c.Compression)); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// CameraConfig returns the camera portion of the configuration
func (c *Config) CameraConfig() renderer.CameraConfig {
	return renderer.CameraConfig{
		AspectRatio:     c.AspectRatio,
		Width:           c.Width,
		SamplesPerPixel: c.SamplesPerPixel,
	}
}

// ParseAspectRatio accepts a decimal ("1.5") or a fraction ("16/9").
func ParseAspectRatio(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	var value float64
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, errN := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, errD := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if errN != nil || errD != nil {
			return 0, fmt.Errorf("aspect ratio must be a number or W/H fraction, got %q", raw)
		}
		if d == 0 {
			return 0, fmt.Errorf("aspect ratio denominator must not be zero, got %q", raw)
		}
		value = n / d
	} else {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("aspect ratio must be a number or W/H fraction, got %q", raw)
		}
		value = v
	}
	if !(value > 0) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("aspect ratio must be positive and finite, got %q", raw)
	}
	return value, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
