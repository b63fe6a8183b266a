package geometry

import "github.com/df07/go-ppm-raytracer/pkg/core"

// HittableList is an ordered collection of hittables resolved by nearest hit.
// It must not be modified while a render is reading it.
type HittableList struct {
	objects []Hittable
}

// NewHittableList creates a list holding the given objects
func NewHittableList(objects ...Hittable) *HittableList {
	list := &HittableList{}
	for _, obj := range objects {
		list.Add(obj)
	}
	return list
}

// Add appends an object to the list
func (l *HittableList) Add(obj Hittable) {
	l.objects = append(l.objects, obj)
}

// Clear removes every object
func (l *HittableList) Clear() {
	l.objects = nil
}

// Len returns the number of objects in the list
func (l *HittableList) Len() int {
	return len(l.objects)
}

// Objects returns a copy of the list contents in insertion order
func (l *HittableList) Objects() []Hittable {
	return append([]Hittable(nil), l.objects...)
}

// Hit returns the closest intersection among all objects.
// Each object is searched only up to the best t found so far.
func (l *HittableList) Hit(ray core.Ray, tMin, tMax float64) (*HitRecord, bool) {
	var closestHit *HitRecord
	closestSoFar := tMax

	for _, obj := range l.objects {
		if hit, isHit := obj.Hit(ray, tMin, closestSoFar); isHit {
			closestSoFar = hit.T
			closestHit = hit
		}
	}

	return closestHit, closestHit != nil
}
