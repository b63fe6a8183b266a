package geometry

import "github.com/df07/go-ppm-raytracer/pkg/core"

// HitRecord contains information about a ray-object intersection
type HitRecord struct {
	Point     core.Vec3 // Point of intersection
	Normal    core.Vec3 // Unit surface normal, always facing against the ray
	T         float64   // Parameter t along the ray
	FrontFace bool      // Whether the ray hit the outward-facing side
}

// NewHitRecord builds a hit record, orienting the outward normal against the ray.
// outwardNormal must be unit length.
func NewHitRecord(ray core.Ray, point, outwardNormal core.Vec3, t float64) *HitRecord {
	frontFace := ray.Direction.Dot(outwardNormal) < 0
	normal := outwardNormal
	if !frontFace {
		normal = outwardNormal.Negate()
	}
	return &HitRecord{
		Point:     point,
		Normal:    normal,
		T:         t,
		FrontFace: frontFace,
	}
}

// OutwardNormal recovers the geometric normal regardless of which side was hit
func (h *HitRecord) OutwardNormal() core.Vec3 {
	if h.FrontFace {
		return h.Normal
	}
	return h.Normal.Negate()
}

// Hittable is anything a ray can intersect.
// Hit returns the nearest intersection with t in the open interval (tMin, tMax).
type Hittable interface {
	Hit(ray core.Ray, tMin, tMax float64) (*HitRecord, bool)
}
