package scene

import (
	"image/color"

	"cogentcore.org/core/math32"
)

// PerspectiveCamera is a viewpoint looking from Position toward Target.
type PerspectiveCamera struct {
	Position math32.Vector3
	Target   math32.Vector3
	widgets  []TextWidget
}

// NewPerspectiveCamera creates a camera at position looking at target.
func NewPerspectiveCamera(position, target math32.Vector3) *PerspectiveCamera {
	return &PerspectiveCamera{Position: position, Target: target}
}

// SetPose moves the camera.
func (c *PerspectiveCamera) SetPose(position, target math32.Vector3) {
	c.Position = position
	c.Target = target
}

// CenterRay implements Camera.
func (c *PerspectiveCamera) CenterRay() Ray {
	return NewRay(c.Position, c.Target.Sub(c.Position))
}

// Attach implements Camera.
func (c *PerspectiveCamera) Attach(w TextWidget) {
	c.widgets = append(c.widgets, w)
}

// Detach implements Camera.
func (c *PerspectiveCamera) Detach(w TextWidget) {
	for i, x := range c.widgets {
		if x == w {
			c.widgets = append(c.widgets[:i], c.widgets[i+1:]...)
			return
		}
	}
}

// Widgets returns the attached widgets.
func (c *PerspectiveCamera) Widgets() []TextWidget {
	return c.widgets
}

// Label is a text element positioned relative to its camera.
type Label struct {
	Position math32.Vector3
	Width    float32
	Align    string
	Color    color.RGBA
	text     string
}

// NewTooltip creates the label used for gaze feedback, aligned with the
// bottom of the view.
func NewTooltip() *Label {
	return &Label{
		Position: math32.Vec3(0, -0.7, -1),
		Width:    2,
		Align:    "center",
		Color:    color.RGBA{R: 0xe6, G: 0xe6, B: 0xfa, A: 0xff}, // lavender
	}
}

// SetText implements TextWidget.
func (l *Label) SetText(text string) {
	l.text = text
}

// Text implements TextWidget.
func (l *Label) Text() string {
	return l.text
}
