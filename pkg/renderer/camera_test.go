package renderer

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-ppm-raytracer/pkg/core"
	"github.com/df07/go-ppm-raytracer/pkg/geometry"
)

const tolerance = 1e-9

func vecNear(a, b core.Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

// twoSphereWorld is the small sphere over a large ground sphere
func twoSphereWorld() *geometry.HittableList {
	return geometry.NewHittableList(
		geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5),
		geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100),
	)
}

func mustCamera(t *testing.T, config CameraConfig) *Camera {
	t.Helper()
	camera, err := NewCamera(config)
	if err != nil {
		t.Fatalf("NewCamera(%+v): %v", config, err)
	}
	return camera
}

func TestImageHeight(t *testing.T) {
	tests := []struct {
		name        string
		width       int
		aspectRatio float64
		expected    int
	}{
		{"16:9 at 400", 400, 16.0 / 9.0, 225},
		{"extreme ratio clamps to 1", 1, 1000.0, 1},
		{"square", 100, 1.0, 100},
		{"portrait", 100, 0.5, 200},
		{"truncates", 10, 3.0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageHeight(tt.width, tt.aspectRatio); got != tt.expected {
				t.Errorf("ImageHeight(%d, %f) = %d, expected %d", tt.width, tt.aspectRatio, got, tt.expected)
			}
		})
	}
}

func TestNewCamera_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config CameraConfig
	}{
		{"zero aspect", CameraConfig{AspectRatio: 0, Width: 400, SamplesPerPixel: 1}},
		{"negative aspect", CameraConfig{AspectRatio: -1, Width: 400, SamplesPerPixel: 1}},
		{"nan aspect", CameraConfig{AspectRatio: math.NaN(), Width: 400, SamplesPerPixel: 1}},
		{"infinite aspect", CameraConfig{AspectRatio: math.Inf(1), Width: 400, SamplesPerPixel: 1}},
		{"zero width", CameraConfig{AspectRatio: 1, Width: 0, SamplesPerPixel: 1}},
		{"zero samples", CameraConfig{AspectRatio: 1, Width: 400, SamplesPerPixel: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			camera, err := NewCamera(tt.config)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if camera != nil {
				t.Error("Expected nil camera for invalid config")
			}
		})
	}
}

func TestCamera_Dimensions(t *testing.T) {
	camera := mustCamera(t, CameraConfig{AspectRatio: 16.0 / 9.0, Width: 400, SamplesPerPixel: 3})

	if camera.Width() != 400 || camera.Height() != 225 {
		t.Errorf("Expected 400x225, got %dx%d", camera.Width(), camera.Height())
	}
	if camera.SamplesPerPixel() != 3 {
		t.Errorf("Expected 3 samples per pixel, got %d", camera.SamplesPerPixel())
	}
}

func TestCamera_ViewportGeometry(t *testing.T) {
	camera := mustCamera(t, CameraConfig{AspectRatio: 16.0 / 9.0, Width: 400, SamplesPerPixel: 1})

	viewportWidth := 2.0 * 400.0 / 225.0
	pixelSize := 2.0 / 225.0

	// Top-left pixel center is half a pixel in from the upper-left viewport corner
	expected00 := core.NewVec3(-viewportWidth/2+pixelSize/2, 1-pixelSize/2, -1)
	if got := camera.PixelCenter(0, 0); !vecNear(got, expected00, tolerance) {
		t.Errorf("Pixel (0,0): expected %v, got %v", expected00, got)
	}

	// Bottom-right pixel center mirrors it
	expectedLast := core.NewVec3(viewportWidth/2-pixelSize/2, -1+pixelSize/2, -1)
	if got := camera.PixelCenter(399, 224); !vecNear(got, expectedLast, tolerance) {
		t.Errorf("Pixel (399,224): expected %v, got %v", expectedLast, got)
	}

	// Rows increase downward, columns to the right
	right := camera.PixelCenter(1, 0).Subtract(camera.PixelCenter(0, 0))
	down := camera.PixelCenter(0, 1).Subtract(camera.PixelCenter(0, 0))
	if !vecNear(right, core.NewVec3(pixelSize, 0, 0), tolerance) {
		t.Errorf("Expected horizontal delta (%f,0,0), got %v", pixelSize, right)
	}
	if !vecNear(down, core.NewVec3(0, -pixelSize, 0), tolerance) {
		t.Errorf("Expected vertical delta (0,%f,0), got %v", -pixelSize, down)
	}
}

func TestCamera_SquarePixelsAfterRounding(t *testing.T) {
	// 10 / 3 truncates to 3 rows; viewport width must follow the realized ratio
	camera := mustCamera(t, CameraConfig{AspectRatio: 3.0, Width: 10, SamplesPerPixel: 1})

	du := camera.PixelCenter(1, 0).Subtract(camera.PixelCenter(0, 0)).Length()
	dv := camera.PixelCenter(0, 1).Subtract(camera.PixelCenter(0, 0)).Length()
	if math.Abs(du-dv) > tolerance {
		t.Errorf("Expected square pixels, got du=%f dv=%f", du, dv)
	}
}

func TestCamera_SinglePixel(t *testing.T) {
	camera := mustCamera(t, CameraConfig{AspectRatio: 1000.0, Width: 1, SamplesPerPixel: 1})

	if camera.Height() != 1 {
		t.Fatalf("Expected height 1, got %d", camera.Height())
	}
	// The only pixel is centered on the principal axis
	if got := camera.PixelCenter(0, 0); !vecNear(got, core.NewVec3(0, 0, -1), tolerance) {
		t.Errorf("Expected (0,0,-1), got %v", got)
	}
}

func TestCamera_GetRay_CenterSampler(t *testing.T) {
	camera := mustCamera(t, CameraConfig{AspectRatio: 16.0 / 9.0, Width: 400, SamplesPerPixel: 1})

	ray := camera.GetRay(17, 42, core.CenterSampler{})
	if !vecNear(ray.Origin, core.NewVec3(0, 0, 0), tolerance) {
		t.Errorf("Expected ray origin at camera center, got %v", ray.Origin)
	}
	if !vecNear(ray.Direction, camera.PixelCenter(17, 42), tolerance) {
		t.Errorf("Expected direction toward pixel center %v, got %v", camera.PixelCenter(17, 42), ray.Direction)
	}
}

func TestCamera_GetRay_JitterCoversPixelFootprint(t *testing.T) {
	camera := mustCamera(t, CameraConfig{AspectRatio: 1.0, Width: 10, SamplesPerPixel: 1})
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	center := camera.PixelCenter(3, 6)
	pixelSize := 2.0 / 10.0
	half := pixelSize / 2

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := 0; i < 2000; i++ {
		ray := camera.GetRay(3, 6, sampler)
		offset := ray.Direction.Subtract(center)

		if math.Abs(offset.Z) > tolerance {
			t.Fatalf("Sample left the viewport plane: %v", ray.Direction)
		}
		if offset.X < -half-tolerance || offset.X > half+tolerance ||
			offset.Y < -half-tolerance || offset.Y > half+tolerance {
			t.Fatalf("Sample outside pixel footprint: offset %v", offset)
		}
		minX, maxX = min(minX, offset.X), max(maxX, offset.X)
		minY, maxY = min(minY, offset.Y), max(maxY, offset.Y)
	}

	// Samples reach close to every edge, not just the center
	reach := half * 0.95
	if minX > -reach || maxX < reach || minY > -reach || maxY < reach {
		t.Errorf("Jitter does not cover the pixel: x [%f, %f], y [%f, %f], half pixel %f",
			minX, maxX, minY, maxY, half)
	}
}

func TestRayColor_HitShowsNormal(t *testing.T) {
	world := geometry.NewHittableList(geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5))
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

	// Normal at the hit point is (0,0,1)
	expected := core.NewVec3(0.5, 0.5, 1.0)
	if got := RayColor(ray, world); !vecNear(got, expected, tolerance) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestRayColor_MissShowsSkyGradient(t *testing.T) {
	world := geometry.NewHittableList()

	tests := []struct {
		name      string
		direction core.Vec3
		expected  core.Vec3
	}{
		{"straight up is sky blue", core.NewVec3(0, 5, 0), core.NewVec3(0.5, 0.7, 1.0)},
		{"straight down is white", core.NewVec3(0, -1, 0), core.NewVec3(1, 1, 1)},
		{"horizon is the midpoint", core.NewVec3(3, 0, -1), core.NewVec3(0.75, 0.85, 1.0)},
		{"independent of horizontal direction", core.NewVec3(-7, 0, 2), core.NewVec3(0.75, 0.85, 1.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRay(core.NewVec3(0, 0, 0), tt.direction)
			if got := RayColor(ray, world); !vecNear(got, tt.expected, tolerance) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRayColor_IgnoresHitsBehindOrigin(t *testing.T) {
	world := geometry.NewHittableList(geometry.NewSphere(core.NewVec3(0, 0, 5), 1))
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

	if got := RayColor(ray, world); !vecNear(got, BackgroundColor(ray), tolerance) {
		t.Errorf("Expected background for sphere behind the camera, got %v", got)
	}
}

func TestCamera_PixelColor_Averages(t *testing.T) {
	camera := mustCamera(t, CameraConfig{AspectRatio: 1.0, Width: 4, SamplesPerPixel: 8})
	world := geometry.NewHittableList()

	// Every sample is the same ray, so the average equals one sample
	got := camera.PixelColor(world, 2, 1, core.CenterSampler{})
	expected := RayColor(camera.GetRay(2, 1, core.CenterSampler{}), world)
	if !vecNear(got, expected, tolerance) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestCamera_TwoSphereScene(t *testing.T) {
	camera := mustCamera(t, CameraConfig{AspectRatio: 16.0 / 9.0, Width: 400, SamplesPerPixel: 1})
	world := twoSphereWorld()
	sampler := core.CenterSampler{}

	t.Run("image center hits the small sphere", func(t *testing.T) {
		ray := camera.GetRay(200, 112, sampler)
		hit, isHit := world.Hit(ray, 0, math.Inf(1))
		if !isHit {
			t.Fatal("Expected center ray to hit")
		}
		if d := hit.Point.Subtract(core.NewVec3(0, 0, -1)).Length(); math.Abs(d-0.5) > 1e-9 {
			t.Errorf("Expected hit on the small sphere, distance from its center %f", d)
		}

		color := camera.PixelColor(world, 200, 112, sampler)
		for name, channel := range map[string]float64{"r": color.X, "g": color.Y, "b": color.Z} {
			if !(channel > 0 && channel < 1) {
				t.Errorf("Channel %s = %f, expected strictly inside (0, 1)", name, channel)
			}
		}
		if vecNear(color, BackgroundColor(ray), 1e-6) {
			t.Error("Center pixel should not be background")
		}
	})

	t.Run("top-left corner sees sky", func(t *testing.T) {
		ray := camera.GetRay(0, 0, sampler)
		if _, isHit := world.Hit(ray, 0, math.Inf(1)); isHit {
			t.Fatal("Expected corner ray to miss both spheres")
		}

		unit := ray.Direction.Normalize()
		a := 0.5 * (unit.Y + 1)
		expected := core.NewVec3(1, 1, 1).Multiply(1 - a).Add(core.NewVec3(0.5, 0.7, 1.0).Multiply(a))
		if got := camera.PixelColor(world, 0, 0, sampler); !vecNear(got, expected, tolerance) {
			t.Errorf("Expected background %v, got %v", expected, got)
		}
	})

	t.Run("bottom rows see the ground", func(t *testing.T) {
		ray := camera.GetRay(10, 224, sampler)
		hit, isHit := world.Hit(ray, 0, math.Inf(1))
		if !isHit {
			t.Fatal("Expected bottom-left ray to hit the ground")
		}
		if d := hit.Point.Subtract(core.NewVec3(0, -100.5, -1)).Length(); math.Abs(d-100) > 1e-6 {
			t.Errorf("Expected hit on the ground sphere, distance from its center %f", d)
		}
	})
}
