package renderer

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-ppm-raytracer/pkg/core"
	"github.com/df07/go-ppm-raytracer/pkg/geometry"
)

// ErrInvalidConfig is returned when a camera cannot be built from its configuration
var ErrInvalidConfig = errors.New("invalid camera configuration")

const (
	focalLength    = 1.0
	viewportHeight = 2.0
)

var (
	skyWhite = core.NewVec3(1.0, 1.0, 1.0)
	skyBlue  = core.NewVec3(0.5, 0.7, 1.0)
)

// CameraConfig contains all camera configuration parameters
type CameraConfig struct {
	AspectRatio     float64 // Nominal width / height
	Width           int     // Image width in pixels
	SamplesPerPixel int     // Number of jittered rays averaged per pixel
}

// DefaultCameraConfig returns the 16:9, 400 pixel wide configuration
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		AspectRatio:     16.0 / 9.0,
		Width:           400,
		SamplesPerPixel: 10,
	}
}

// Validate reports whether the configuration can build a camera
func (c CameraConfig) Validate() error {
	if !(c.AspectRatio > 0) || math.IsInf(c.AspectRatio, 1) {
		return fmt.Errorf("%w: aspect ratio must be positive and finite, got %v", ErrInvalidConfig, c.AspectRatio)
	}
	if c.Width < 1 {
		return fmt.Errorf("%w: width must be at least 1, got %d", ErrInvalidConfig, c.Width)
	}
	if c.SamplesPerPixel < 1 {
		return fmt.Errorf("%w: samples per pixel must be at least 1, got %d", ErrInvalidConfig, c.SamplesPerPixel)
	}
	return nil
}

// ImageHeight derives the pixel height from width and aspect ratio, never less than 1
func ImageHeight(width int, aspectRatio float64) int {
	return max(1, int(float64(width)/aspectRatio))
}

// Camera generates rays through a pixel grid on a viewport one unit in front of the origin
type Camera struct {
	config      CameraConfig
	imageHeight int
	center      core.Vec3
	pixel00     core.Vec3 // Center of the top-left pixel
	pixelDeltaU core.Vec3 // One pixel to the right
	pixelDeltaV core.Vec3 // One pixel down
}

// NewCamera derives the viewport geometry from the configuration
func NewCamera(config CameraConfig) (*Camera, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	imageHeight := ImageHeight(config.Width, config.AspectRatio)

	// Use the realized pixel ratio so pixels stay square after rounding the height
	viewportWidth := viewportHeight * float64(config.Width) / float64(imageHeight)
	center := core.NewVec3(0, 0, 0)

	// u runs left to right, v runs top to bottom
	viewportU := core.NewVec3(viewportWidth, 0, 0)
	viewportV := core.NewVec3(0, -viewportHeight, 0)

	pixelDeltaU := viewportU.Divide(float64(config.Width))
	pixelDeltaV := viewportV.Divide(float64(imageHeight))

	viewportUpperLeft := center.
		Subtract(core.NewVec3(0, 0, focalLength)).
		Subtract(viewportU.Multiply(0.5)).
		Subtract(viewportV.Multiply(0.5))
	pixel00 := viewportUpperLeft.Add(pixelDeltaU.Add(pixelDeltaV).Multiply(0.5))

	return &Camera{
		config:      config,
		imageHeight: imageHeight,
		center:      center,
		pixel00:     pixel00,
		pixelDeltaU: pixelDeltaU,
		pixelDeltaV: pixelDeltaV,
	}, nil
}

// Width returns the image width in pixels
func (c *Camera) Width() int { return c.config.Width }

// Height returns the image height in pixels
func (c *Camera) Height() int { return c.imageHeight }

// SamplesPerPixel returns the number of rays averaged per pixel
func (c *Camera) SamplesPerPixel() int { return c.config.SamplesPerPixel }

// Config returns the configuration the camera was built from
func (c *Camera) Config() CameraConfig { return c.config }

// PixelCenter returns the world position of the center of pixel (i, j)
func (c *Camera) PixelCenter(i, j int) core.Vec3 {
	return c.pixel00.
		Add(c.pixelDeltaU.Multiply(float64(i))).
		Add(c.pixelDeltaV.Multiply(float64(j)))
}

// GetRay returns a ray through a uniformly jittered point inside pixel (i, j).
// The sampler's [0,1) pair maps to an offset in [-0.5, 0.5) pixels on each axis.
func (c *Camera) GetRay(i, j int, sampler core.Sampler) core.Ray {
	offset := sampler.Get2D()
	samplePoint := c.pixel00.
		Add(c.pixelDeltaU.Multiply(float64(i) + offset.X - 0.5)).
		Add(c.pixelDeltaV.Multiply(float64(j) + offset.Y - 0.5))

	return core.NewRay(c.center, samplePoint.Subtract(c.center))
}

// PixelColor averages SamplesPerPixel jittered rays through pixel (i, j)
func (c *Camera) PixelColor(world geometry.Hittable, i, j int, sampler core.Sampler) core.Vec3 {
	var stats PixelStats
	for sample := 0; sample < c.config.SamplesPerPixel; sample++ {
		stats.AddSample(RayColor(c.GetRay(i, j, sampler), world))
	}
	return stats.GetColor()
}

// RayColor shades a ray: hits map the surface normal to a color, misses return the sky gradient
func RayColor(ray core.Ray, world geometry.Hittable) core.Vec3 {
	if hit, isHit := world.Hit(ray, 0, math.Inf(1)); isHit {
		return NormalColor(hit.Normal)
	}
	return BackgroundColor(ray)
}

// NormalColor remaps a unit normal from [-1,1] to [0,1] per channel
func NormalColor(normal core.Vec3) core.Vec3 {
	return normal.Add(core.NewVec3(1, 1, 1)).Multiply(0.5)
}

// BackgroundColor blends white to sky blue by the ray's vertical direction
func BackgroundColor(ray core.Ray) core.Vec3 {
	unitDirection := ray.Direction.Normalize()
	t := 0.5 * (unitDirection.Y + 1.0)
	return core.Lerp(skyWhite, skyBlue, t)
}
