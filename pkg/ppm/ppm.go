// Package ppm writes and reads images in the ASCII portable pixmap (P3) format.
package ppm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/df07/go-ppm-raytracer/pkg/core"
)

// DefaultMaxColor is the channel ceiling for 8-bit output
const DefaultMaxColor = 255

// MaxColorLimit is the largest channel ceiling the P3 format allows
const MaxColorLimit = 65535

// ErrInvalidImage is returned for image dimensions or channel ceilings P3 cannot represent
var ErrInvalidImage = errors.New("invalid ppm image")

// ColorFunc returns the color of pixel (x, y), with (0, 0) at the top-left
type ColorFunc func(x, y int) core.Vec3

// Image describes the dimensions of a P3 image
type Image struct {
	Width    int
	Height   int
	MaxColor int
}

// New creates an image description
func New(width, height, maxColor int) Image {
	return Image{Width: width, Height: height, MaxColor: maxColor}
}

// Validate reports whether the image can be written
func (img Image) Validate() error {
	if img.Width < 1 || img.Height < 1 {
		return fmt.Errorf("%w: dimensions must be at least 1x1, got %dx%d", ErrInvalidImage, img.Width, img.Height)
	}
	if img.MaxColor < 1 || img.MaxColor > MaxColorLimit {
		return fmt.Errorf("%w: max color must be in [1, %d], got %d", ErrInvalidImage, MaxColorLimit, img.MaxColor)
	}
	return nil
}

// Header returns the P3 header including the blank separator line
func (img Image) Header() string {
	return fmt.Sprintf("P3\n%d %d\n%d\n\n", img.Width, img.Height, img.MaxColor)
}

// WriteFunc calls f once per pixel in row-major order, top row first, and
// streams the quantized colors to w. Every "r g b" triple, including the
// last, is terminated by a newline. Any write failure aborts the whole image.
func (img Image) WriteFunc(w io.Writer, f ColorFunc) error {
	if err := img.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(img.Header()); err != nil {
		return fmt.Errorf("write ppm header: %w", err)
	}

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := f(x, y)
			if _, err := fmt.Fprintf(bw, "%d %d %d\n",
				Quantize(c.X, img.MaxColor),
				Quantize(c.Y, img.MaxColor),
				Quantize(c.Z, img.MaxColor)); err != nil {
				return fmt.Errorf("write ppm pixel (%d, %d): %w", x, y, err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush ppm: %w", err)
	}
	return nil
}

// Quantize maps a channel in [0, 1] to an integer in [0, maxColor].
// Out of range values are clamped and NaN maps to 0.
func Quantize(c float64, maxColor int) int {
	if math.IsNaN(c) {
		return 0
	}
	c = max(0, min(1, c))
	return min(maxColor, int(c*(float64(maxColor)+0.999)))
}
