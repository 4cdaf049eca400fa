package vks

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCameraProjFlipsYForClipSpace(t *testing.T) {
	c := NewCamera(16.0 / 9.0)

	proj := c.Proj()
	if proj[5] >= 0 {
		t.Errorf("proj[1][1] = %f, want negative", proj[5])
	}
}

func TestCameraRecomputesOnlyWhenDirty(t *testing.T) {
	c := NewCamera(1)
	view1 := c.View()
	proj1 := c.Proj()

	// Unchanged inputs return identical matrices.
	if c.View() != view1 || c.Proj() != proj1 {
		t.Error("matrices changed without input changes")
	}

	c.SetEye(mgl32.Vec3{5, 0, 0})
	if c.View() == view1 {
		t.Error("view did not change after SetEye")
	}
	if c.Proj() != proj1 {
		t.Error("projection must not change when only the eye moves")
	}

	c.SetAspect(2)
	if c.Proj() == proj1 {
		t.Error("projection did not change after SetAspect")
	}
}

func TestCameraSetAspectSameValueIsNoop(t *testing.T) {
	c := NewCamera(1.5)
	_ = c.Proj()

	c.SetAspect(1.5)
	if c.projDirty {
		t.Error("setting the same aspect must not dirty the projection")
	}
}
