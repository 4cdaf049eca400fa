package vks

import (
	"github.com/vulkan-go/vulkan"
)

// Viewport owns the render targets sized to the swapchain: the depth
// buffer, the multisampled color buffer when MSAA is on, and one
// framebuffer per swapchain image. It is destroyed and rebuilt wholesale on
// swapchain recreation.
type Viewport struct {
	device *Device

	depth        *Image
	color        *Image
	framebuffers []vulkan.Framebuffer

	extent  vulkan.Extent2D
	samples vulkan.SampleCountFlagBits
}

// NewViewport creates the attachments and framebuffers for the given
// swapchain and render pass. The pass and the viewport must agree on the
// sample count.
func NewViewport(device *Device, swapchain *Swapchain, renderPass *RenderPass) (*Viewport, error) {
	extent := swapchain.Extent()
	samples := renderPass.Samples()
	msaa := samples > vulkan.SampleCount1Bit

	vp := &Viewport{device: device, extent: extent, samples: samples}

	depthFormat, err := findDepthFormat(device.gpu)
	if err != nil {
		return nil, err
	}
	vp.depth, err = NewImage(device, ImageOptions{
		Width:      extent.Width,
		Height:     extent.Height,
		Samples:    samples,
		Format:     depthFormat,
		Tiling:     vulkan.ImageTilingOptimal,
		Usage:      vulkan.ImageUsageFlags(vulkan.ImageUsageDepthStencilAttachmentBit),
		Properties: vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit),
		Aspect:     vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit),
	})
	if err != nil {
		return nil, err
	}

	if msaa {
		vp.color, err = NewImage(device, ImageOptions{
			Width:      extent.Width,
			Height:     extent.Height,
			Samples:    samples,
			Format:     swapchain.Format(),
			Tiling:     vulkan.ImageTilingOptimal,
			Usage:      vulkan.ImageUsageFlags(vulkan.ImageUsageTransientAttachmentBit | vulkan.ImageUsageColorAttachmentBit),
			Properties: vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit),
			Aspect:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
		})
		if err != nil {
			vp.Destroy()
			return nil, err
		}
	}

	views := swapchain.Views()
	vp.framebuffers = make([]vulkan.Framebuffer, len(views))
	for i, view := range views {
		// Attachment order must match the render pass: color, depth, and
		// the swapchain view as resolve target when multisampling.
		var attachments []vulkan.ImageView
		if msaa {
			attachments = []vulkan.ImageView{vp.color.view, vp.depth.view, view}
		} else {
			attachments = []vulkan.ImageView{view, vp.depth.view}
		}
		createInfo := vulkan.FramebufferCreateInfo{
			SType:           vulkan.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass.handle,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}
		if res := vulkan.CreateFramebuffer(device.handle, &createInfo, nil, &vp.framebuffers[i]); res != vulkan.Success {
			vp.Destroy()
			return nil, vkErr("create framebuffer", res)
		}
	}
	return vp, nil
}

// Framebuffer returns the framebuffer for the given swapchain image index.
func (vp *Viewport) Framebuffer(imageIndex uint32) vulkan.Framebuffer {
	return vp.framebuffers[imageIndex]
}

// Extent returns the attachment extent.
func (vp *Viewport) Extent() vulkan.Extent2D {
	return vp.extent
}

// Destroy destroys the framebuffers and the attachment images.
func (vp *Viewport) Destroy() {
	for _, fb := range vp.framebuffers {
		if fb != vulkan.Framebuffer(vulkan.NullHandle) {
			vulkan.DestroyFramebuffer(vp.device.handle, fb, nil)
		}
	}
	vp.framebuffers = nil
	if vp.color != nil {
		vp.color.Destroy()
		vp.color = nil
	}
	if vp.depth != nil {
		vp.depth.Destroy()
		vp.depth = nil
	}
}
