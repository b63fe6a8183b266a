package scene

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/df07/go-ppm-raytracer/pkg/core"
	"github.com/df07/go-ppm-raytracer/pkg/geometry"
	"github.com/df07/go-ppm-raytracer/pkg/ppm"
	"github.com/df07/go-ppm-raytracer/pkg/renderer"
)

// ErrUnknownScene is returned when a scene name is not in the catalog
var ErrUnknownScene = errors.New("unknown scene")

// GradientSceneName selects the writer-only gradient fixture instead of a ray traced scene
const GradientSceneName = "gradient"

// Scene contains all the elements needed for rendering
type Scene struct {
	Name         string
	World        *geometry.HittableList
	CameraConfig renderer.CameraConfig
}

// SceneInfo describes a catalog entry
type SceneInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Type        string `json:"type"` // "raytraced" or "fixture"
}

type entry struct {
	info  SceneInfo
	build func() *Scene
}

var catalog = map[string]entry{
	"default": {
		info: SceneInfo{
			ID:          "default",
			DisplayName: "Default Scene",
			Description: "Small sphere resting on a large ground sphere",
			Type:        "raytraced",
		},
		build: NewDefaultScene,
	},
	"spheregrid": {
		info: SceneInfo{
			ID:          "spheregrid",
			DisplayName: "Sphere Grid",
			Description: "Receding grid of small spheres over the ground",
			Type:        "raytraced",
		},
		build: NewSphereGridScene,
	},
	"nested": {
		info: SceneInfo{
			ID:          "nested",
			DisplayName: "Nested Spheres",
			Description: "Camera inside a large sphere looking at a smaller one",
			Type:        "raytraced",
		},
		build: NewNestedScene,
	},
	GradientSceneName: {
		info: SceneInfo{
			ID:          GradientSceneName,
			DisplayName: "Gradient",
			Description: "Flat green/blue gradient written without tracing rays",
			Type:        "fixture",
		},
	},
}

// Create builds the named ray traced scene
func Create(name string) (*Scene, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	e, ok := catalog[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	if e.build == nil {
		return nil, fmt.Errorf("%w: %q is not a ray traced scene", ErrUnknownScene, name)
	}
	return e.build(), nil
}

// Exists reports whether name is in the catalog, including fixtures
func Exists(name string) bool {
	_, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// ListScenes returns all catalog entries sorted by ID
func ListScenes() []SceneInfo {
	scenes := make([]SceneInfo, 0, len(catalog))
	for _, e := range catalog {
		scenes = append(scenes, e.info)
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].ID < scenes[j].ID })
	return scenes
}

// NewDefaultScene creates the small sphere over a ground sphere
func NewDefaultScene() *Scene {
	world := geometry.NewHittableList(
		geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5),
		newGround(),
	)

	return &Scene{
		Name:         "default",
		World:        world,
		CameraConfig: renderer.DefaultCameraConfig(),
	}
}

// NewSphereGridScene creates rows of small spheres receding from the camera
func NewSphereGridScene() *Scene {
	const (
		columns = 7
		rows    = 5
		radius  = 0.15
		spacing = 0.45
	)

	world := geometry.NewHittableList(newGround())
	for row := 0; row < rows; row++ {
		for col := 0; col < columns; col++ {
			x := (float64(col) - float64(columns-1)/2) * spacing
			z := -1.0 - float64(row)*spacing
			world.Add(geometry.NewSphere(core.NewVec3(x, -0.5+radius, z), radius))
		}
	}

	config := renderer.DefaultCameraConfig()
	config.SamplesPerPixel = 20
	return &Scene{
		Name:         "spheregrid",
		World:        world,
		CameraConfig: config,
	}
}

// NewNestedScene puts the camera inside an enclosing sphere, so most rays hit back faces
func NewNestedScene() *Scene {
	world := geometry.NewHittableList(
		geometry.NewSphere(core.NewVec3(0, 0, 0), 4),
		geometry.NewSphere(core.NewVec3(0, 0, -1.5), 0.5),
	)

	config := renderer.DefaultCameraConfig()
	config.AspectRatio = 1.0
	config.Width = 300
	return &Scene{
		Name:         "nested",
		World:        world,
		CameraConfig: config,
	}
}

func newGround() *geometry.Sphere {
	return geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100)
}

// Gradient returns the test fixture coloring: red 0, green across, blue down
func Gradient(width, height int) ppm.ColorFunc {
	normalize := func(v, size int) float64 {
		if size <= 1 {
			return 0
		}
		return float64(v) / float64(size-1)
	}
	return func(x, y int) core.Vec3 {
		return core.NewVec3(0, normalize(x, width), normalize(y, height))
	}
}
