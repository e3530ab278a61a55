// Package scene is the boundary between the graph engine and the 3D host.
//
// The host owns a Container of Primitives and a Camera with an attached
// TextWidget. Group, PerspectiveCamera and Label are in-memory
// implementations of those interfaces used by the headless server, the CLI
// and tests; a rendering host adapts its own object types to them.
package scene

import (
	"cogentcore.org/core/math32"
)

// Primitive is a renderable object attached to a Container.
type Primitive interface {
	// Label is the gaze label; primitives with an empty label are never
	// reported by the gaze resolver.
	Label() string
	// Intersect returns the distance along ray to the first hit.
	Intersect(ray Ray) (float32, bool)
}

// Container holds the primitives of one graph component.
type Container interface {
	Add(p Primitive)
	Remove(p Primitive)
	// Children returns the attached primitives in attachment order. The
	// returned slice may be retained by the caller.
	Children() []Primitive
}

// TextWidget is a settable text element, such as the tooltip.
type TextWidget interface {
	SetText(text string)
	Text() string
}

// Camera is the active viewpoint.
type Camera interface {
	// CenterRay returns the ray from the viewpoint through the center of
	// the view.
	CenterRay() Ray
	Attach(w TextWidget)
	Detach(w TextWidget)
}

// Host provides the scene services the engine consumes.
type Host interface {
	Container() Container
	// Camera returns the active camera, or nil when the scene has none.
	Camera() Camera
}

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin math32.Vector3
	Dir    math32.Vector3
}

// NewRay returns a ray from origin along dir, normalizing dir.
func NewRay(origin, dir math32.Vector3) Ray {
	return Ray{Origin: origin, Dir: dir.Normal()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math32.Vector3 {
	return r.Origin.Add(r.Dir.MulScalar(t))
}

// Scene is a minimal Host backed by a Group.
type Scene struct {
	root   *Group
	camera Camera
}

// NewScene creates a scene with an empty root group and the given camera,
// which may be nil.
func NewScene(camera Camera) *Scene {
	return &Scene{root: NewGroup(), camera: camera}
}

// Container implements Host.
func (s *Scene) Container() Container {
	return s.root
}

// Root returns the root group.
func (s *Scene) Root() *Group {
	return s.root
}

// Camera implements Host.
func (s *Scene) Camera() Camera {
	return s.camera
}
