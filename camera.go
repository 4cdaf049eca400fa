package vks

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera produces view and projection matrices, recomputing each only when
// its inputs changed since the last call.
type Camera struct {
	eye    mgl32.Vec3
	target mgl32.Vec3
	up     mgl32.Vec3

	fovDegrees float32
	aspect     float32
	near, far  float32

	view      mgl32.Mat4
	proj      mgl32.Mat4
	viewDirty bool
	projDirty bool
}

// NewCamera builds a camera with the renderer's default framing: eye on the
// diagonal looking at the origin with Z up.
func NewCamera(aspect float32) *Camera {
	return &Camera{
		eye:        mgl32.Vec3{2, 2, 2},
		target:     mgl32.Vec3{0, 0, 0},
		up:         mgl32.Vec3{0, 0, 1},
		fovDegrees: 45,
		aspect:     aspect,
		near:       0.1,
		far:        10,
		viewDirty:  true,
		projDirty:  true,
	}
}

// SetEye moves the camera position.
func (c *Camera) SetEye(eye mgl32.Vec3) {
	c.eye = eye
	c.viewDirty = true
}

// SetTarget changes the look-at point.
func (c *Camera) SetTarget(target mgl32.Vec3) {
	c.target = target
	c.viewDirty = true
}

// SetAspect updates the aspect ratio, typically after swapchain recreation.
func (c *Camera) SetAspect(aspect float32) {
	if aspect == c.aspect {
		return
	}
	c.aspect = aspect
	c.projDirty = true
}

// View returns the view matrix, recomputing it if stale.
func (c *Camera) View() mgl32.Mat4 {
	if c.viewDirty {
		c.view = mgl32.LookAtV(c.eye, c.target, c.up)
		c.viewDirty = false
	}
	return c.view
}

// Proj returns the projection matrix, recomputing it if stale. The Y axis
// is flipped for Vulkan's clip space.
func (c *Camera) Proj() mgl32.Mat4 {
	if c.projDirty {
		c.proj = mgl32.Perspective(mgl32.DegToRad(c.fovDegrees), c.aspect, c.near, c.far)
		c.proj[5] *= -1
		c.projDirty = false
	}
	return c.proj
}
