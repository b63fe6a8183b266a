package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/df07/go-ppm-raytracer/pkg/core"
	"github.com/df07/go-ppm-raytracer/pkg/geometry"
	"github.com/df07/go-ppm-raytracer/pkg/renderer"
)

// InspectResponse represents the JSON response for object inspection
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	GeometryType string                 `json:"geometryType,omitempty"`
	Point        [3]float64             `json:"point"`
	Normal       [3]float64             `json:"normal"`
	Distance     float64                `json:"distance"`
	FrontFace    bool                   `json:"frontFace"`
	Color        [3]float64             `json:"color"` // Shaded color of the center ray
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// InspectResult contains the result of casting a ray through a pixel
type InspectResult struct {
	Hit       bool
	HitRecord *geometry.HitRecord
	Shape     geometry.Hittable
	Color     core.Vec3
}

func toArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// inspectPixel casts the ray through the center of pixel (x, y) and reports
// the nearest top-level object it hits.
func inspectPixel(world *geometry.HittableList, camera *renderer.Camera, x, y int) InspectResult {
	ray := camera.GetRay(x, y, core.CenterSampler{})
	color := renderer.RayColor(ray, world)

	hit, isHit := world.Hit(ray, 0, math.Inf(1))
	if !isHit {
		return InspectResult{Hit: false, Color: color}
	}

	// The list doesn't say which object produced the hit, so find the one with the same t
	for _, shape := range world.Objects() {
		if shapeHit, shapeIsHit := shape.Hit(ray, 0, math.Inf(1)); shapeIsHit && shapeHit.T == hit.T {
			return InspectResult{Hit: true, HitRecord: hit, Shape: shape, Color: color}
		}
	}

	return InspectResult{Hit: true, HitRecord: hit, Color: color}
}

// extractGeometryInfo extracts detailed geometry information
func extractGeometryInfo(shape geometry.Hittable) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch geom := shape.(type) {
	case *geometry.Sphere:
		properties["center"] = toArray(geom.Center)
		properties["radius"] = geom.Radius
		return "sphere", properties

	case *geometry.HittableList:
		properties["objectCount"] = geom.Len()
		return "group", properties

	default:
		return "unknown", properties
	}
}

// handleInspect handles ray casting inspection requests
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scene parameters: "+err.Error())
		return
	}

	job, err := newRenderJob(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scene parameters: "+err.Error())
		return
	}
	if job.scene == nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Scene %s is not ray traced", req.Scene))
		return
	}

	camera, err := renderer.NewCamera(job.config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scene parameters: "+err.Error())
		return
	}

	pixelX, err := strconv.Atoi(r.URL.Query().Get("x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid x coordinate")
		return
	}
	pixelY, err := strconv.Atoi(r.URL.Query().Get("y"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid y coordinate")
		return
	}
	if pixelX < 0 || pixelX >= camera.Width() || pixelY < 0 || pixelY >= camera.Height() {
		writeError(w, http.StatusBadRequest, "Pixel coordinates out of bounds")
		return
	}

	result := inspectPixel(job.scene.World, camera, pixelX, pixelY)
	if !result.Hit {
		writeJSON(w, http.StatusOK, InspectResponse{Hit: false, Color: toArray(result.Color)})
		return
	}

	geometryType, geometryProps := extractGeometryInfo(result.Shape)
	writeJSON(w, http.StatusOK, InspectResponse{
		Hit:          true,
		GeometryType: geometryType,
		Point:        toArray(result.HitRecord.Point),
		Normal:       toArray(result.HitRecord.Normal),
		Distance:     result.HitRecord.T,
		FrontFace:    result.HitRecord.FrontFace,
		Color:        toArray(result.Color),
		Properties:   geometryProps,
	})
}
