package ppm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Pixel holds the raw channel values of one decoded pixel
type Pixel struct {
	R, G, B int
}

// Decoded is a P3 image read back into memory
type Decoded struct {
	Image
	Pixels []Pixel // Row-major, top row first
}

// At returns the pixel at (x, y)
func (d *Decoded) At(x, y int) Pixel {
	return d.Pixels[y*d.Width+x]
}

// Decode parses a P3 image. Comments are not supported.
func Decode(r io.Reader) (*Decoded, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	next := func(what string) (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("read %s: %w", what, err)
			}
			return "", fmt.Errorf("%w: unexpected end of data reading %s", ErrInvalidImage, what)
		}
		return scanner.Text(), nil
	}
	nextInt := func(what string) (int, error) {
		token, err := next(what)
		if err != nil {
			return 0, err
		}
		value, err := strconv.Atoi(token)
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not an integer: %q", ErrInvalidImage, what, token)
		}
		return value, nil
	}

	magic, err := next("magic number")
	if err != nil {
		return nil, err
	}
	if magic != "P3" {
		return nil, fmt.Errorf("%w: expected magic P3, got %q", ErrInvalidImage, magic)
	}

	var img Image
	if img.Width, err = nextInt("width"); err != nil {
		return nil, err
	}
	if img.Height, err = nextInt("height"); err != nil {
		return nil, err
	}
	if img.MaxColor, err = nextInt("max color"); err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	decoded := &Decoded{Image: img, Pixels: make([]Pixel, img.Width*img.Height)}
	for i := range decoded.Pixels {
		var channels [3]int
		for c := range channels {
			value, err := nextInt(fmt.Sprintf("pixel %d channel %d", i, c))
			if err != nil {
				return nil, err
			}
			if value < 0 || value > img.MaxColor {
				return nil, fmt.Errorf("%w: pixel %d channel %d = %d outside [0, %d]", ErrInvalidImage, i, c, value, img.MaxColor)
			}
			channels[c] = value
		}
		decoded.Pixels[i] = Pixel{R: channels[0], G: channels[1], B: channels[2]}
	}

	if scanner.Scan() {
		return nil, fmt.Errorf("%w: trailing data after %d pixels", ErrInvalidImage, len(decoded.Pixels))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trailing data: %w", err)
	}

	return decoded, nil
}
