package renderer

import (
	"fmt"
	"io"
	"time"

	"github.com/df07/go-ppm-raytracer/pkg/core"
	"github.com/df07/go-ppm-raytracer/pkg/geometry"
	"github.com/df07/go-ppm-raytracer/pkg/ppm"
)

// ProgressFunc is called once per completed pixel with the running and total pixel counts
type ProgressFunc func(completed, total int)

// RenderOptions carries the per-render collaborators of a camera
type RenderOptions struct {
	Sampler  core.Sampler // Jitter source; nil uses a clock-seeded random sampler
	Progress ProgressFunc // Optional per-pixel progress hook
	Logger   core.Logger  // Optional render start/finish logging
	MaxColor int          // Channel ceiling; 0 uses ppm.DefaultMaxColor
}

// Render traces every pixel of world and writes the result to w as a P3 image.
// Iteration order and serialization belong to the ppm writer.
func (c *Camera) Render(w io.Writer, world geometry.Hittable, opts RenderOptions) (RenderStats, error) {
	sampler := opts.Sampler
	if sampler == nil {
		sampler = core.NewSeededSampler(0)
	}
	maxColor := opts.MaxColor
	if maxColor == 0 {
		maxColor = ppm.DefaultMaxColor
	}

	total := c.Width() * c.Height()
	completed := 0
	startTime := time.Now()

	if opts.Logger != nil {
		opts.Logger.Printf("Rendering %dx%d image with %d samples per pixel...\n",
			c.Width(), c.Height(), c.SamplesPerPixel())
	}

	img := ppm.New(c.Width(), c.Height(), maxColor)
	err := img.WriteFunc(w, func(x, y int) core.Vec3 {
		color := c.PixelColor(world, x, y, sampler)
		completed++
		if opts.Progress != nil {
			opts.Progress(completed, total)
		}
		return color
	})

	stats := RenderStats{
		Width:           c.Width(),
		Height:          c.Height(),
		TotalPixels:     completed,
		TotalSamples:    completed * c.SamplesPerPixel(),
		SamplesPerPixel: c.SamplesPerPixel(),
		Elapsed:         time.Since(startTime),
	}
	if err != nil {
		return stats, fmt.Errorf("render: %w", err)
	}

	if opts.Logger != nil {
		opts.Logger.Printf("Render completed in %v (%d pixels, %d samples)\n",
			stats.Elapsed, stats.TotalPixels, stats.TotalSamples)
	}
	return stats, nil
}
