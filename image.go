package vks

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// Image couples an image handle with its memory, view and tracked layout.
type Image struct {
	device *Device
	handle vulkan.Image
	memory *Memory
	view   vulkan.ImageView

	format    vulkan.Format
	extent    vulkan.Extent2D
	mipLevels uint32
	layout    vulkan.ImageLayout
}

// ImageOptions describes an image to create.
type ImageOptions struct {
	Width, Height uint32
	MipLevels     uint32
	Samples       vulkan.SampleCountFlagBits
	Format        vulkan.Format
	Tiling        vulkan.ImageTiling
	Usage         vulkan.ImageUsageFlags
	Properties    vulkan.MemoryPropertyFlags
	Aspect        vulkan.ImageAspectFlags
}

// NewImage creates a 2D image, allocates and binds its memory, and builds a
// view over the requested aspect.
func NewImage(device *Device, opts ImageOptions) (*Image, error) {
	if opts.MipLevels == 0 {
		opts.MipLevels = 1
	}
	if opts.Samples == 0 {
		opts.Samples = vulkan.SampleCount1Bit
	}

	createInfo := vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		ImageType: vulkan.ImageType2d,
		Extent: vulkan.Extent3D{
			Width:  opts.Width,
			Height: opts.Height,
			Depth:  1,
		},
		MipLevels:     opts.MipLevels,
		ArrayLayers:   1,
		Format:        opts.Format,
		Tiling:        opts.Tiling,
		InitialLayout: vulkan.ImageLayoutUndefined,
		Usage:         opts.Usage,
		Samples:       opts.Samples,
		SharingMode:   vulkan.SharingModeExclusive,
	}
	img := &Image{
		device:    device,
		format:    opts.Format,
		extent:    vulkan.Extent2D{Width: opts.Width, Height: opts.Height},
		mipLevels: opts.MipLevels,
		layout:    vulkan.ImageLayoutUndefined,
	}
	if res := vulkan.CreateImage(device.handle, &createInfo, nil, &img.handle); res != vulkan.Success {
		return nil, vkErr("create image", res)
	}

	var requirements vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(device.handle, img.handle, &requirements)
	requirements.Deref()

	memory, err := allocMemory(device, requirements, opts.Properties)
	if err != nil {
		vulkan.DestroyImage(device.handle, img.handle, nil)
		return nil, fmt.Errorf("image memory: %w", err)
	}
	img.memory = memory

	if res := vulkan.BindImageMemory(device.handle, img.handle, memory.handle, 0); res != vulkan.Success {
		memory.Free()
		vulkan.DestroyImage(device.handle, img.handle, nil)
		return nil, vkErr("bind image memory", res)
	}

	view, err := newImageView(device, img.handle, opts.Format, opts.Aspect, opts.MipLevels)
	if err != nil {
		img.Destroy()
		return nil, err
	}
	img.view = view
	return img, nil
}

// newImageView builds a 2D view over the given image. Swapchain images use
// it directly since they have no Image wrapper of their own.
func newImageView(device *Device, image vulkan.Image, format vulkan.Format, aspect vulkan.ImageAspectFlags, mipLevels uint32) (vulkan.ImageView, error) {
	createInfo := vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vulkan.ImageViewType2d,
		Format:   format,
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: mipLevels,
			LayerCount: 1,
		},
	}
	var view vulkan.ImageView
	if res := vulkan.CreateImageView(device.handle, &createInfo, nil, &view); res != vulkan.Success {
		return vulkan.ImageView(vulkan.NullHandle), vkErr("create image view", res)
	}
	return view, nil
}

// TransitionLayout records and submits a pipeline barrier moving the image
// from its tracked layout to newLayout. Only the transitions this renderer
// actually performs are supported; anything else is an error.
func (img *Image) TransitionLayout(pool *CommandPool, newLayout vulkan.ImageLayout) error {
	barrier := vulkan.ImageMemoryBarrier{
		SType:               vulkan.StructureTypeImageMemoryBarrier,
		OldLayout:           img.layout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		Image:               img.handle,
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			LevelCount: img.mipLevels,
			LayerCount: 1,
		},
	}

	var srcStage, dstStage vulkan.PipelineStageFlags
	switch {
	case img.layout == vulkan.ImageLayoutUndefined && newLayout == vulkan.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
		srcStage = vulkan.PipelineStageFlags(vulkan.PipelineStageTopOfPipeBit)
		dstStage = vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit)
	case img.layout == vulkan.ImageLayoutTransferDstOptimal && newLayout == vulkan.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessShaderReadBit)
		srcStage = vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit)
		dstStage = vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit)
	default:
		return fmt.Errorf("unsupported layout transition: %d -> %d", img.layout, newLayout)
	}

	cb, err := pool.BeginSingleTime()
	if err != nil {
		return err
	}
	vulkan.CmdPipelineBarrier(cb.handle, srcStage, dstStage, 0,
		0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})
	if err := pool.EndSingleTime(cb); err != nil {
		return err
	}
	img.layout = newLayout
	return nil
}

// CopyFromBuffer records and submits a one-shot copy from buf into mip
// level zero. The image must be in the transfer-destination layout.
func (img *Image) CopyFromBuffer(pool *CommandPool, buf *Buffer) error {
	cb, err := pool.BeginSingleTime()
	if err != nil {
		return err
	}
	region := vulkan.BufferImageCopy{
		ImageSubresource: vulkan.ImageSubresourceLayers{
			AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vulkan.Extent3D{
			Width:  img.extent.Width,
			Height: img.extent.Height,
			Depth:  1,
		},
	}
	vulkan.CmdCopyBufferToImage(cb.handle, buf.handle, img.handle,
		vulkan.ImageLayoutTransferDstOptimal, 1, []vulkan.BufferImageCopy{region})
	return pool.EndSingleTime(cb)
}

// GenerateMipmaps fills mip levels 1..N-1 by blitting each level from the
// previous one, transitioning levels as it goes. On completion every level
// is shader-read-only. Requires linear-blit support for the image format.
func (img *Image) GenerateMipmaps(pool *CommandPool) error {
	var formatProps vulkan.FormatProperties
	vulkan.GetPhysicalDeviceFormatProperties(img.device.gpu.handle, img.format, &formatProps)
	formatProps.Deref()
	if formatProps.OptimalTilingFeatures&vulkan.FormatFeatureFlags(vulkan.FormatFeatureSampledImageFilterLinearBit) == 0 {
		return fmt.Errorf("format %d does not support linear blitting", img.format)
	}

	cb, err := pool.BeginSingleTime()
	if err != nil {
		return err
	}

	barrier := vulkan.ImageMemoryBarrier{
		SType:               vulkan.StructureTypeImageMemoryBarrier,
		Image:               img.handle,
		SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	mipWidth := int32(img.extent.Width)
	mipHeight := int32(img.extent.Height)
	for level := uint32(1); level < img.mipLevels; level++ {
		barrier.SubresourceRange.BaseMipLevel = level - 1
		barrier.OldLayout = vulkan.ImageLayoutTransferDstOptimal
		barrier.NewLayout = vulkan.ImageLayoutTransferSrcOptimal
		barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessTransferReadBit)
		vulkan.CmdPipelineBarrier(cb.handle,
			vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
			vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
			0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})

		nextWidth := mipWidth
		if nextWidth > 1 {
			nextWidth /= 2
		}
		nextHeight := mipHeight
		if nextHeight > 1 {
			nextHeight /= 2
		}
		blit := vulkan.ImageBlit{
			SrcOffsets: [2]vulkan.Offset3D{{}, {X: mipWidth, Y: mipHeight, Z: 1}},
			SrcSubresource: vulkan.ImageSubresourceLayers{
				AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				MipLevel:   level - 1,
				LayerCount: 1,
			},
			DstOffsets: [2]vulkan.Offset3D{{}, {X: nextWidth, Y: nextHeight, Z: 1}},
			DstSubresource: vulkan.ImageSubresourceLayers{
				AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				MipLevel:   level,
				LayerCount: 1,
			},
		}
		vulkan.CmdBlitImage(cb.handle,
			img.handle, vulkan.ImageLayoutTransferSrcOptimal,
			img.handle, vulkan.ImageLayoutTransferDstOptimal,
			1, []vulkan.ImageBlit{blit}, vulkan.FilterLinear)

		barrier.OldLayout = vulkan.ImageLayoutTransferSrcOptimal
		barrier.NewLayout = vulkan.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferReadBit)
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessShaderReadBit)
		vulkan.CmdPipelineBarrier(cb.handle,
			vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
			vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit),
			0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})

		mipWidth = nextWidth
		mipHeight = nextHeight
	}

	barrier.SubresourceRange.BaseMipLevel = img.mipLevels - 1
	barrier.OldLayout = vulkan.ImageLayoutTransferDstOptimal
	barrier.NewLayout = vulkan.ImageLayoutShaderReadOnlyOptimal
	barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
	barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessShaderReadBit)
	vulkan.CmdPipelineBarrier(cb.handle,
		vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
		vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit),
		0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})

	if err := pool.EndSingleTime(cb); err != nil {
		return err
	}
	img.layout = vulkan.ImageLayoutShaderReadOnlyOptimal
	return nil
}

// Handle returns the raw image handle.
func (img *Image) Handle() vulkan.Image {
	return img.handle
}

// View returns the image's view.
func (img *Image) View() vulkan.ImageView {
	return img.view
}

// Format returns the image's pixel format.
func (img *Image) Format() vulkan.Format {
	return img.format
}

// MipLevels returns the image's mip-level count.
func (img *Image) MipLevels() uint32 {
	return img.mipLevels
}

// Destroy destroys the view, the image and its memory.
func (img *Image) Destroy() {
	if img.view != vulkan.ImageView(vulkan.NullHandle) {
		vulkan.DestroyImageView(img.device.handle, img.view, nil)
		img.view = vulkan.ImageView(vulkan.NullHandle)
	}
	if img.handle != vulkan.Image(vulkan.NullHandle) {
		vulkan.DestroyImage(img.device.handle, img.handle, nil)
		img.handle = vulkan.Image(vulkan.NullHandle)
	}
	if img.memory != nil {
		img.memory.Free()
		img.memory = nil
	}
}

// findSupportedFormat returns the first candidate format that supports the
// requested tiling features.
func findSupportedFormat(gpu *GPUInfo, candidates []vulkan.Format, tiling vulkan.ImageTiling, features vulkan.FormatFeatureFlags) (vulkan.Format, error) {
	for _, format := range candidates {
		var props vulkan.FormatProperties
		vulkan.GetPhysicalDeviceFormatProperties(gpu.handle, format, &props)
		props.Deref()
		switch tiling {
		case vulkan.ImageTilingLinear:
			if props.LinearTilingFeatures&features == features {
				return format, nil
			}
		case vulkan.ImageTilingOptimal:
			if props.OptimalTilingFeatures&features == features {
				return format, nil
			}
		}
	}
	return vulkan.FormatUndefined, fmt.Errorf("no supported format among %v", candidates)
}

// findDepthFormat picks the best available depth attachment format.
func findDepthFormat(gpu *GPUInfo) (vulkan.Format, error) {
	return findSupportedFormat(gpu,
		[]vulkan.Format{vulkan.FormatD32Sfloat, vulkan.FormatD32SfloatS8Uint, vulkan.FormatD24UnormS8Uint},
		vulkan.ImageTilingOptimal,
		vulkan.FormatFeatureFlags(vulkan.FormatFeatureDepthStencilAttachmentBit))
}
