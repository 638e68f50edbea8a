package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera maps between world space and the viewport. Viewport coordinates
// are pixels with the origin at the top-left corner and y pointing down.
type Camera interface {
	// WorldToViewport projects p. ok is false when p is behind the camera.
	WorldToViewport(p mgl32.Vec3) (mgl32.Vec2, bool)
	// ViewportToRay returns the world ray under a viewport position.
	ViewportToRay(cursor mgl32.Vec2) (Ray, bool)
	// Forward is the viewing direction.
	Forward() mgl32.Vec3
}

// PerspectiveCamera is a pinhole camera looking from Eye at Target.
type PerspectiveCamera struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3
	FovY   float32 // radians
	Near   float32
	Far    float32
	Width  int
	Height int
}

var _ Camera = PerspectiveCamera{}

// DefaultFovY is a 45 degree vertical field of view.
const DefaultFovY = math32.Pi / 4

// NewPerspectiveCamera returns a camera with default lens settings.
func NewPerspectiveCamera(eye, target mgl32.Vec3, width, height int) PerspectiveCamera {
	return PerspectiveCamera{
		Eye:    eye,
		Target: target,
		Up:     Up,
		FovY:   DefaultFovY,
		Near:   0.1,
		Far:    1000,
		Width:  width,
		Height: height,
	}
}

func (c PerspectiveCamera) view() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.Target, c.Up)
}

func (c PerspectiveCamera) projection() mgl32.Mat4 {
	aspect := float32(1)
	if c.Height > 0 {
		aspect = float32(c.Width) / float32(c.Height)
	}
	return mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// Forward returns the normalized view direction.
func (c PerspectiveCamera) Forward() mgl32.Vec3 {
	return NormalizeOrZero(c.Target.Sub(c.Eye))
}

// WorldToViewport projects p to top-left-origin pixel coordinates.
func (c PerspectiveCamera) WorldToViewport(p mgl32.Vec3) (mgl32.Vec2, bool) {
	view, proj := c.view(), c.projection()
	clip := proj.Mul4(view).Mul4x1(p.Vec4(1))
	if clip[3] <= Epsilon {
		return mgl32.Vec2{}, false
	}
	win := mgl32.Project(p, view, proj, 0, 0, c.Width, c.Height)
	return mgl32.Vec2{win[0], float32(c.Height) - win[1]}, true
}

// ViewportToRay unprojects a pixel onto the near and far planes and returns
// the ray between them.
func (c PerspectiveCamera) ViewportToRay(cursor mgl32.Vec2) (Ray, bool) {
	if c.Width <= 0 || c.Height <= 0 {
		return Ray{}, false
	}
	view, proj := c.view(), c.projection()
	wx, wy := cursor[0], float32(c.Height)-cursor[1]
	near, err := mgl32.UnProject(mgl32.Vec3{wx, wy, 0}, view, proj, 0, 0, c.Width, c.Height)
	if err != nil {
		return Ray{}, false
	}
	far, err := mgl32.UnProject(mgl32.Vec3{wx, wy, 1}, view, proj, 0, 0, c.Width, c.Height)
	if err != nil {
		return Ray{}, false
	}
	dir, ok := Normalize(far.Sub(near))
	if !ok {
		return Ray{}, false
	}
	return Ray{Origin: near, Dir: dir}, true
}

// OrbitCamera orbits a focus point. It stands in for the host's camera
// controls when the editor runs headless or inside the desktop shell.
type OrbitCamera struct {
	Focus  mgl32.Vec3
	Yaw    float32 // radians around Up
	Pitch  float32 // radians above the horizon
	Radius float32
	Width  int
	Height int
}

// maxPitch keeps the orbit away from the poles where LookAt degenerates.
const maxPitch = math32.Pi/2 - 0.01

// Orbit rotates the camera around the focus.
func (o *OrbitCamera) Orbit(dyaw, dpitch float32) {
	o.Yaw += dyaw
	o.Pitch = Clamp(o.Pitch+dpitch, -maxPitch, maxPitch)
}

// Zoom scales the orbit radius by factor, keeping it positive.
func (o *OrbitCamera) Zoom(factor float32) {
	if factor <= 0 {
		return
	}
	o.Radius = math32.Max(o.Radius*factor, 0.5)
}

// Eye returns the camera position.
func (o OrbitCamera) Eye() mgl32.Vec3 {
	cp := math32.Cos(o.Pitch)
	offset := mgl32.Vec3{
		cp * math32.Sin(o.Yaw),
		math32.Sin(o.Pitch),
		cp * math32.Cos(o.Yaw),
	}
	return o.Focus.Add(offset.Mul(o.Radius))
}

// Perspective returns the equivalent perspective camera.
func (o OrbitCamera) Perspective() PerspectiveCamera {
	return NewPerspectiveCamera(o.Eye(), o.Focus, o.Width, o.Height)
}
