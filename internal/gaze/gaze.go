// Package gaze resolves which labeled primitive sits at the center of the
// view. It is the cursor-free hover used in immersive scenes: every frame a
// ray is cast from the camera through the view center and the nearest
// labeled primitive it hits names the tooltip.
package gaze

import (
	"forcegraph/internal/scene"
)

// Resolver updates a tooltip from the center-of-view ray.
type Resolver struct {
	camera    scene.Camera
	container scene.Container
	tooltip   scene.TextWidget
	buf       []scene.Primitive
}

// New creates a resolver.
func New(camera scene.Camera, container scene.Container, tooltip scene.TextWidget) *Resolver {
	return &Resolver{camera: camera, container: container, tooltip: tooltip}
}

// Pick returns the label of the nearest labeled primitive hit by ray.
// Unlabeled primitives never occlude labeled ones. Ties keep the earlier
// child.
func Pick(ray scene.Ray, children []scene.Primitive) (string, bool) {
	var (
		best  string
		bestD float32
		found bool
	)
	for _, p := range children {
		label := p.Label()
		if label == "" {
			continue
		}
		d, ok := p.Intersect(ray)
		if !ok {
			continue
		}
		if !found || d < bestD {
			best, bestD, found = label, d, true
		}
	}
	return best, found
}

// Resolve casts the center ray, sets the tooltip text to the nearest
// labeled hit (or clears it) and returns the text.
func (r *Resolver) Resolve() string {
	label, _ := Pick(r.camera.CenterRay(), r.children())
	r.tooltip.SetText(label)
	return label
}

type walker interface {
	Each(fn func(p scene.Primitive))
}

// children lists the attached primitives, reusing a buffer when the
// container can be walked in place.
func (r *Resolver) children() []scene.Primitive {
	g, ok := r.container.(walker)
	if !ok {
		return r.container.Children()
	}
	r.buf = r.buf[:0]
	g.Each(func(p scene.Primitive) {
		r.buf = append(r.buf, p)
	})
	return r.buf
}
