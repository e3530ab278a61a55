package scene

import (
	"image/color"

	"cogentcore.org/core/math32"
)

// LineThreshold is the distance within which a ray counts as hitting a line.
const LineThreshold float32 = 1

// Material is the surface appearance of a primitive.
type Material struct {
	Color       color.RGBA
	Opacity     float32
	Transparent bool
}

// Sphere is a node primitive.
type Sphere struct {
	Name           string
	Position       math32.Vector3
	Radius         float32
	WidthSegments  int
	HeightSegments int
	Material       *Material
}

// Label implements Primitive.
func (s *Sphere) Label() string {
	return s.Name
}

// SetPosition moves the sphere.
func (s *Sphere) SetPosition(x, y, z float32) {
	s.Position.Set(x, y, z)
}

// Bounds returns the bounding sphere.
func (s *Sphere) Bounds() math32.Sphere {
	return math32.Sphere{Center: s.Position, Radius: s.Radius}
}

// Intersect implements Primitive. A ray starting inside the sphere hits its
// far side.
func (s *Sphere) Intersect(ray Ray) (float32, bool) {
	oc := s.Position.Sub(ray.Origin)
	tca := oc.Dot(ray.Dir)
	d2 := oc.Dot(oc) - tca*tca
	r2 := s.Radius * s.Radius
	if d2 > r2 {
		return 0, false
	}
	thc := math32.Sqrt(r2 - d2)
	t0, t1 := tca-thc, tca+thc
	if t1 < 0 {
		return 0, false
	}
	if t0 < 0 {
		return t1, true
	}
	return t0, true
}

// Line is a two-vertex link primitive.
type Line struct {
	Vertices [2]math32.Vector3
	Material *Material
	// NeedsUpdate is set whenever the vertices change and cleared by the
	// renderer once it has uploaded them.
	NeedsUpdate bool

	box    math32.Box3
	sphere math32.Sphere
}

// NewLine creates a degenerate line with both vertices at the origin.
func NewLine(mat *Material) *Line {
	ln := &Line{Material: mat}
	ln.computeBounds()
	return ln
}

// Label implements Primitive. Lines carry no label.
func (ln *Line) Label() string {
	return ""
}

// SetEndpoints replaces the vertices, marks the geometry dirty and
// recomputes the bounding volume.
func (ln *Line) SetEndpoints(a, b math32.Vector3) {
	ln.Vertices[0] = a
	ln.Vertices[1] = b
	ln.NeedsUpdate = true
	ln.computeBounds()
}

// Bounds returns the bounding sphere of the segment.
func (ln *Line) Bounds() math32.Sphere {
	return ln.sphere
}

func (ln *Line) computeBounds() {
	ln.box.SetEmpty()
	ln.box.ExpandByPoint(ln.Vertices[0])
	ln.box.ExpandByPoint(ln.Vertices[1])
	ln.sphere = ln.box.GetBoundingSphere()
}

// Intersect implements Primitive: the ray hits when it passes within
// LineThreshold of the segment.
func (ln *Line) Intersect(ray Ray) (float32, bool) {
	a, b := ln.Vertices[0], ln.Vertices[1]
	v := b.Sub(a)
	w := ray.Origin.Sub(a)
	c := v.Dot(v)

	var s float32
	if c > 1e-12 {
		bb := ray.Dir.Dot(v)
		den := c - bb*bb
		if den > 1e-12 {
			s = math32.Clamp((v.Dot(w)-bb*ray.Dir.Dot(w))/den, 0, 1)
		}
	}
	p := a.Add(v.MulScalar(s))
	t := math32.Max(0, ray.Dir.Dot(p.Sub(ray.Origin)))
	q := ray.At(t)
	if c > 1e-12 {
		s = math32.Clamp(v.Dot(q.Sub(a))/c, 0, 1)
		p = a.Add(v.MulScalar(s))
	}
	if p.DistanceTo(q) > LineThreshold {
		return 0, false
	}
	return t, true
}
