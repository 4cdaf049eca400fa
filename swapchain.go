package vks

import (
	"log"
	"math"

	"github.com/vulkan-go/vulkan"
)

// swapchainSupport is the surface's capabilities snapshot used both for
// device eligibility and for swapchain negotiation.
type swapchainSupport struct {
	capabilities vulkan.SurfaceCapabilities
	formats      []vulkan.SurfaceFormat
	presentModes []vulkan.PresentMode
}

func querySwapchainSupport(device vulkan.PhysicalDevice, surface vulkan.Surface) swapchainSupport {
	var support swapchainSupport

	vulkan.GetPhysicalDeviceSurfaceCapabilities(device, surface, &support.capabilities)
	support.capabilities.Deref()
	support.capabilities.CurrentExtent.Deref()
	support.capabilities.MinImageExtent.Deref()
	support.capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	vulkan.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, nil)
	if formatCount > 0 {
		support.formats = make([]vulkan.SurfaceFormat, formatCount)
		vulkan.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, support.formats)
		for i := range support.formats {
			support.formats[i].Deref()
		}
	}

	var modeCount uint32
	vulkan.GetPhysicalDeviceSurfacePresentModes(device, surface, &modeCount, nil)
	if modeCount > 0 {
		support.presentModes = make([]vulkan.PresentMode, modeCount)
		vulkan.GetPhysicalDeviceSurfacePresentModes(device, surface, &modeCount, support.presentModes)
	}
	return support
}

// chooseSurfaceFormat prefers 8-bit BGRA sRGB with an sRGB-nonlinear color
// space, falling back to the first advertised format with a warning.
func chooseSurfaceFormat(formats []vulkan.SurfaceFormat) vulkan.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vulkan.FormatB8g8r8a8Srgb && f.ColorSpace == vulkan.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	log.Printf("preferred surface format unavailable, using format=%d colorspace=%d",
		formats[0].Format, formats[0].ColorSpace)
	return formats[0]
}

// choosePresentMode prefers mailbox and falls back to FIFO, which the
// standard guarantees to exist.
func choosePresentMode(modes []vulkan.PresentMode) vulkan.PresentMode {
	for _, m := range modes {
		if m == vulkan.PresentModeMailbox {
			return m
		}
	}
	return vulkan.PresentModeFifo
}

// chooseExtent resolves the swapchain extent. When the surface reports a
// fixed current extent it must be used as-is; the all-ones width sentinel
// means the window system leaves the choice to us, in which case the
// framebuffer size is clamped into the supported range.
func chooseExtent(caps vulkan.SurfaceCapabilities, framebufferWidth, framebufferHeight uint32) vulkan.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vulkan.Extent2D{
		Width:  clampU32(framebufferWidth, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampU32(framebufferHeight, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount requests one image beyond the minimum so acquisition
// rarely blocks on the driver, respecting the maximum when one is set
// (zero means unbounded).
func chooseImageCount(caps vulkan.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Swapchain owns the swapchain handle and one view per presentable image.
// The images themselves belong to the driver.
type Swapchain struct {
	device *Device
	handle vulkan.Swapchain

	images []vulkan.Image
	views  []vulkan.ImageView

	format vulkan.Format
	extent vulkan.Extent2D
}

// NewSwapchain negotiates format, present mode, extent and image count
// against the surface and creates the swapchain plus one view per image.
// framebufferWidth/Height are only consulted when the surface leaves the
// extent choice open.
func NewSwapchain(device *Device, surface vulkan.Surface, framebufferWidth, framebufferHeight uint32) (*Swapchain, error) {
	support := querySwapchainSupport(device.gpu.handle, surface)

	surfaceFormat := chooseSurfaceFormat(support.formats)
	presentMode := choosePresentMode(support.presentModes)
	extent := chooseExtent(support.capabilities, framebufferWidth, framebufferHeight)
	imageCount := chooseImageCount(support.capabilities)

	createInfo := vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		PreTransform:     support.capabilities.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vulkan.True,
		OldSwapchain:     vulkan.Swapchain(vulkan.NullHandle),
	}

	if device.HasSeparatePresentQueue() {
		createInfo.ImageSharingMode = vulkan.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{device.Graphics.family, device.Present.family}
	} else {
		createInfo.ImageSharingMode = vulkan.SharingModeExclusive
	}

	sc := &Swapchain{
		device: device,
		format: surfaceFormat.Format,
		extent: extent,
	}
	if res := vulkan.CreateSwapchain(device.handle, &createInfo, nil, &sc.handle); res != vulkan.Success {
		return nil, vkErr("create swapchain", res)
	}

	var actualCount uint32
	vulkan.GetSwapchainImages(device.handle, sc.handle, &actualCount, nil)
	sc.images = make([]vulkan.Image, actualCount)
	vulkan.GetSwapchainImages(device.handle, sc.handle, &actualCount, sc.images)

	sc.views = make([]vulkan.ImageView, len(sc.images))
	for i, img := range sc.images {
		view, err := newImageView(device, img, sc.format, vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit), 1)
		if err != nil {
			sc.Destroy()
			return nil, err
		}
		sc.views[i] = view
	}
	return sc, nil
}

// Handle returns the raw swapchain handle.
func (sc *Swapchain) Handle() vulkan.Swapchain {
	return sc.handle
}

// ImageCount returns how many presentable images the driver created.
func (sc *Swapchain) ImageCount() int {
	return len(sc.images)
}

// Views returns the per-image views, ordered by image index.
func (sc *Swapchain) Views() []vulkan.ImageView {
	return sc.views
}

// Format returns the negotiated image format.
func (sc *Swapchain) Format() vulkan.Format {
	return sc.format
}

// Extent returns the negotiated image extent.
func (sc *Swapchain) Extent() vulkan.Extent2D {
	return sc.extent
}

// Destroy destroys the image views and then the swapchain.
func (sc *Swapchain) Destroy() {
	for _, view := range sc.views {
		vulkan.DestroyImageView(sc.device.handle, view, nil)
	}
	sc.views = nil
	if sc.handle != vulkan.Swapchain(vulkan.NullHandle) {
		vulkan.DestroySwapchain(sc.device.handle, sc.handle, nil)
		sc.handle = vulkan.Swapchain(vulkan.NullHandle)
	}
}
