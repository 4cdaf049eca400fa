package vks

import (
	"math"
	"testing"

	"github.com/vulkan-go/vulkan"
)

func TestChooseSurfaceFormatPreferred(t *testing.T) {
	formats := []vulkan.SurfaceFormat{
		{Format: vulkan.FormatR8g8b8a8Unorm, ColorSpace: vulkan.ColorSpaceSrgbNonlinear},
		{Format: vulkan.FormatB8g8r8a8Srgb, ColorSpace: vulkan.ColorSpaceSrgbNonlinear},
	}

	got := chooseSurfaceFormat(formats)
	if got.Format != vulkan.FormatB8g8r8a8Srgb {
		t.Errorf("format = %d, want B8G8R8A8 sRGB", got.Format)
	}
}

func TestChooseSurfaceFormatFallback(t *testing.T) {
	formats := []vulkan.SurfaceFormat{
		{Format: vulkan.FormatR8g8b8a8Unorm, ColorSpace: vulkan.ColorSpaceSrgbNonlinear},
		{Format: vulkan.FormatB8g8r8a8Unorm, ColorSpace: vulkan.ColorSpaceSrgbNonlinear},
	}

	got := chooseSurfaceFormat(formats)
	if got != formats[0] {
		t.Errorf("fallback should be the first advertised format, got %v", got)
	}
}

func TestChoosePresentModePrefersMailbox(t *testing.T) {
	modes := []vulkan.PresentMode{
		vulkan.PresentModeFifo,
		vulkan.PresentModeMailbox,
		vulkan.PresentModeImmediate,
	}

	if got := choosePresentMode(modes); got != vulkan.PresentModeMailbox {
		t.Errorf("mode = %d, want mailbox", got)
	}
}

func TestChoosePresentModeFallsBackToFifo(t *testing.T) {
	modes := []vulkan.PresentMode{
		vulkan.PresentModeImmediate,
		vulkan.PresentModeFifoRelaxed,
	}

	if got := choosePresentMode(modes); got != vulkan.PresentModeFifo {
		t.Errorf("mode = %d, want FIFO", got)
	}
}

func TestChooseExtentFixedBySurface(t *testing.T) {
	caps := vulkan.SurfaceCapabilities{
		CurrentExtent:  vulkan.Extent2D{Width: 1280, Height: 720},
		MinImageExtent: vulkan.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vulkan.Extent2D{Width: 4096, Height: 4096},
	}

	got := chooseExtent(caps, 800, 600)
	if got.Width != 1280 || got.Height != 720 {
		t.Errorf("extent = %dx%d, want the surface's 1280x720", got.Width, got.Height)
	}
}

func TestChooseExtentClampsFramebufferSize(t *testing.T) {
	caps := vulkan.SurfaceCapabilities{
		CurrentExtent:  vulkan.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vulkan.Extent2D{Width: 200, Height: 200},
		MaxImageExtent: vulkan.Extent2D{Width: 1000, Height: 1000},
	}

	got := chooseExtent(caps, 5000, 100)
	if got.Width != 1000 {
		t.Errorf("width = %d, want clamped to 1000", got.Width)
	}
	if got.Height != 200 {
		t.Errorf("height = %d, want clamped to 200", got.Height)
	}
}

func TestChooseImageCountAboveMinimum(t *testing.T) {
	caps := vulkan.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}

	if got := chooseImageCount(caps); got != 3 {
		t.Errorf("count = %d, want min+1 = 3", got)
	}
}

func TestChooseImageCountRespectsMaximum(t *testing.T) {
	caps := vulkan.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 3}

	if got := chooseImageCount(caps); got != 3 {
		t.Errorf("count = %d, want capped at 3", got)
	}
}

func TestChooseImageCountUnboundedMaximum(t *testing.T) {
	// MaxImageCount zero means the surface imposes no upper bound.
	caps := vulkan.SurfaceCapabilities{MinImageCount: 4, MaxImageCount: 0}

	if got := chooseImageCount(caps); got != 5 {
		t.Errorf("count = %d, want 5", got)
	}
}
