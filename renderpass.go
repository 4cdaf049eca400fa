package vks

import (
	"github.com/vulkan-go/vulkan"
)

// RenderPass is the single forward pass this renderer draws with. With
// multisampling it carries color, depth and a resolve attachment targeting
// the swapchain image; without it the swapchain image is the color target
// directly.
type RenderPass struct {
	device  *Device
	handle  vulkan.RenderPass
	samples vulkan.SampleCountFlagBits
}

// NewRenderPass builds the pass for the given color/depth formats and
// sample count. The external dependency delays color and depth writes until
// the acquired image is actually ready, which is what lets the submit wait
// on the acquire semaphore at the color-output stage only.
func NewRenderPass(device *Device, colorFormat, depthFormat vulkan.Format, samples vulkan.SampleCountFlagBits) (*RenderPass, error) {
	msaa := samples > vulkan.SampleCount1Bit

	colorAttachment := vulkan.AttachmentDescription{
		Format:         colorFormat,
		Samples:        samples,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpStore,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutPresentSrc,
	}
	if msaa {
		// The multisampled buffer is never presented; it is resolved into
		// the swapchain image instead.
		colorAttachment.StoreOp = vulkan.AttachmentStoreOpDontCare
		colorAttachment.FinalLayout = vulkan.ImageLayoutColorAttachmentOptimal
	}

	depthAttachment := vulkan.AttachmentDescription{
		Format:         depthFormat,
		Samples:        samples,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpDontCare,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}

	colorRef := vulkan.AttachmentReference{
		Attachment: 0,
		Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
	}
	depthRef := vulkan.AttachmentReference{
		Attachment: 1,
		Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vulkan.SubpassDescription{
		PipelineBindPoint:       vulkan.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vulkan.AttachmentReference{colorRef},
		PDepthStencilAttachment: &depthRef,
	}

	attachments := []vulkan.AttachmentDescription{colorAttachment, depthAttachment}
	if msaa {
		resolveAttachment := vulkan.AttachmentDescription{
			Format:         colorFormat,
			Samples:        vulkan.SampleCount1Bit,
			LoadOp:         vulkan.AttachmentLoadOpDontCare,
			StoreOp:        vulkan.AttachmentStoreOpStore,
			StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
			StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
			InitialLayout:  vulkan.ImageLayoutUndefined,
			FinalLayout:    vulkan.ImageLayoutPresentSrc,
		}
		resolveRef := vulkan.AttachmentReference{
			Attachment: 2,
			Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
		}
		subpass.PResolveAttachments = []vulkan.AttachmentReference{resolveRef}
		attachments = append(attachments, resolveAttachment)
	}

	dependency := vulkan.SubpassDependency{
		SrcSubpass:    vulkan.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit),
	}

	createInfo := vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vulkan.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vulkan.SubpassDependency{dependency},
	}

	rp := &RenderPass{device: device, samples: samples}
	if res := vulkan.CreateRenderPass(device.handle, &createInfo, nil, &rp.handle); res != vulkan.Success {
		return nil, vkErr("create render pass", res)
	}
	return rp, nil
}

// Handle returns the raw render-pass handle.
func (rp *RenderPass) Handle() vulkan.RenderPass {
	return rp.handle
}

// Samples returns the sample count the pass was built with.
func (rp *RenderPass) Samples() vulkan.SampleCountFlagBits {
	return rp.samples
}

// Destroy destroys the render pass.
func (rp *RenderPass) Destroy() {
	if rp.handle != vulkan.RenderPass(vulkan.NullHandle) {
		vulkan.DestroyRenderPass(rp.device.handle, rp.handle, nil)
		rp.handle = vulkan.RenderPass(vulkan.NullHandle)
	}
}
