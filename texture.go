package vks

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/vulkan-go/vulkan"
	"golang.org/x/image/draw"
)

// Texture is a sampled 2D image with a full mip chain and a sampler.
type Texture struct {
	device  *Device
	image   *Image
	sampler vulkan.Sampler
}

// LoadTexture decodes an image file, uploads it through a staging buffer,
// generates its mip chain and creates the sampler.
func LoadTexture(device *Device, pool *CommandPool, path string) (*Texture, error) {
	pixels, width, height, err := loadPixels(path)
	if err != nil {
		return nil, err
	}
	mipLevels := uint32(math.Floor(math.Log2(float64(maxU32(width, height))))) + 1

	staging, err := NewBuffer(device, vulkan.DeviceSize(len(pixels)),
		vulkan.BufferUsageFlags(vulkan.BufferUsageTransferSrcBit),
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, fmt.Errorf("texture staging buffer: %w", err)
	}
	defer staging.Destroy()
	if err := staging.Fill(pixels); err != nil {
		return nil, fmt.Errorf("fill texture staging buffer: %w", err)
	}

	img, err := NewImage(device, ImageOptions{
		Width:     width,
		Height:    height,
		MipLevels: mipLevels,
		Format:    vulkan.FormatR8g8b8a8Srgb,
		Tiling:    vulkan.ImageTilingOptimal,
		Usage: vulkan.ImageUsageFlags(vulkan.ImageUsageTransferSrcBit |
			vulkan.ImageUsageTransferDstBit | vulkan.ImageUsageSampledBit),
		Properties: vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit),
		Aspect:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
	})
	if err != nil {
		return nil, err
	}

	tex := &Texture{device: device, image: img}
	if err := img.TransitionLayout(pool, vulkan.ImageLayoutTransferDstOptimal); err != nil {
		tex.Destroy()
		return nil, err
	}
	if err := img.CopyFromBuffer(pool, staging); err != nil {
		tex.Destroy()
		return nil, err
	}
	// GenerateMipmaps leaves every level shader-read-only, so no final
	// transition is needed here.
	if err := img.GenerateMipmaps(pool); err != nil {
		tex.Destroy()
		return nil, err
	}

	if err := tex.createSampler(); err != nil {
		tex.Destroy()
		return nil, err
	}
	return tex, nil
}

// loadPixels decodes a PNG or JPEG file into tightly packed RGBA8.
func loadPixels(path string) ([]byte, uint32, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open texture %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode texture %s: %w", path, err)
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	return rgba.Pix, uint32(bounds.Dx()), uint32(bounds.Dy()), nil
}

func (t *Texture) createSampler() error {
	createInfo := vulkan.SamplerCreateInfo{
		SType:                   vulkan.StructureTypeSamplerCreateInfo,
		MagFilter:               vulkan.FilterLinear,
		MinFilter:               vulkan.FilterLinear,
		AddressModeU:            vulkan.SamplerAddressModeRepeat,
		AddressModeV:            vulkan.SamplerAddressModeRepeat,
		AddressModeW:            vulkan.SamplerAddressModeRepeat,
		BorderColor:             vulkan.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vulkan.False,
		CompareEnable:           vulkan.False,
		CompareOp:               vulkan.CompareOpAlways,
		MipmapMode:              vulkan.SamplerMipmapModeLinear,
		MaxLod:                  float32(t.image.mipLevels),
	}
	if t.device.anisotropy {
		createInfo.AnisotropyEnable = vulkan.True
		createInfo.MaxAnisotropy = t.device.maxAnisotropy
	}
	if res := vulkan.CreateSampler(t.device.handle, &createInfo, nil, &t.sampler); res != vulkan.Success {
		return vkErr("create texture sampler", res)
	}
	return nil
}

// View returns the texture's image view.
func (t *Texture) View() vulkan.ImageView {
	return t.image.view
}

// Sampler returns the texture's sampler.
func (t *Texture) Sampler() vulkan.Sampler {
	return t.sampler
}

// Destroy destroys the sampler and the underlying image.
func (t *Texture) Destroy() {
	if t.sampler != vulkan.Sampler(vulkan.NullHandle) {
		vulkan.DestroySampler(t.device.handle, t.sampler, nil)
		t.sampler = vulkan.Sampler(vulkan.NullHandle)
	}
	if t.image != nil {
		t.image.Destroy()
		t.image = nil
	}
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
