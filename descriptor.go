package vks

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vulkan-go/vulkan"
)

// UniformBufferObject is the per-frame shader uniform block. Layout matches
// the vertex shader's binding 0.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

func uboSize() vulkan.DeviceSize {
	return vulkan.DeviceSize(unsafe.Sizeof(UniformBufferObject{}))
}

func uboToBytes(ubo *UniformBufferObject) []byte {
	size := unsafe.Sizeof(*ubo)
	return (*[1 << 30]byte)(unsafe.Pointer(ubo))[:size:size]
}

// Descriptors owns the descriptor machinery and the per-image uniform
// buffers. Everything here is indexed by swapchain image index, never by
// frame slot: the GPU may still read image i's buffer while a later frame
// slot is being recorded.
type Descriptors struct {
	device *Device

	layout vulkan.DescriptorSetLayout
	pool   vulkan.DescriptorPool
	sets   []vulkan.DescriptorSet

	uniformBuffers []*Buffer
}

// NewDescriptors builds the set layout (uniform block at binding 0 for the
// vertex stage, combined image sampler at binding 1 for the fragment
// stage), one host-visible uniform buffer per swapchain image, the pool and
// the sets, and points every set at its buffer and the shared texture.
func NewDescriptors(device *Device, imageCount int, texture *Texture) (*Descriptors, error) {
	d := &Descriptors{device: device}

	uboBinding := vulkan.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vulkan.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit),
	}
	samplerBinding := vulkan.DescriptorSetLayoutBinding{
		Binding:         1,
		DescriptorType:  vulkan.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vulkan.ShaderStageFlags(vulkan.ShaderStageFragmentBit),
	}
	layoutInfo := vulkan.DescriptorSetLayoutCreateInfo{
		SType:        vulkan.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 2,
		PBindings:    []vulkan.DescriptorSetLayoutBinding{uboBinding, samplerBinding},
	}
	if res := vulkan.CreateDescriptorSetLayout(device.handle, &layoutInfo, nil, &d.layout); res != vulkan.Success {
		return nil, vkErr("create descriptor set layout", res)
	}

	d.uniformBuffers = make([]*Buffer, imageCount)
	for i := 0; i < imageCount; i++ {
		buf, err := NewBuffer(device, uboSize(),
			vulkan.BufferUsageFlags(vulkan.BufferUsageUniformBufferBit),
			vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit))
		if err != nil {
			d.Destroy()
			return nil, err
		}
		d.uniformBuffers[i] = buf
	}

	poolSizes := []vulkan.DescriptorPoolSize{
		{Type: vulkan.DescriptorTypeUniformBuffer, DescriptorCount: uint32(imageCount)},
		{Type: vulkan.DescriptorTypeCombinedImageSampler, DescriptorCount: uint32(imageCount)},
	}
	poolInfo := vulkan.DescriptorPoolCreateInfo{
		SType:         vulkan.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(imageCount),
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if res := vulkan.CreateDescriptorPool(device.handle, &poolInfo, nil, &d.pool); res != vulkan.Success {
		d.Destroy()
		return nil, vkErr("create descriptor pool", res)
	}

	layouts := make([]vulkan.DescriptorSetLayout, imageCount)
	for i := range layouts {
		layouts[i] = d.layout
	}
	allocInfo := vulkan.DescriptorSetAllocateInfo{
		SType:              vulkan.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.pool,
		DescriptorSetCount: uint32(imageCount),
		PSetLayouts:        layouts,
	}
	d.sets = make([]vulkan.DescriptorSet, imageCount)
	if res := vulkan.AllocateDescriptorSets(device.handle, &allocInfo, &d.sets[0]); res != vulkan.Success {
		d.Destroy()
		return nil, vkErr("allocate descriptor sets", res)
	}

	for i := range d.sets {
		bufferInfo := vulkan.DescriptorBufferInfo{
			Buffer: d.uniformBuffers[i].handle,
			Range:  uboSize(),
		}
		imageInfo := vulkan.DescriptorImageInfo{
			Sampler:     texture.sampler,
			ImageView:   texture.image.view,
			ImageLayout: vulkan.ImageLayoutShaderReadOnlyOptimal,
		}
		writes := []vulkan.WriteDescriptorSet{
			{
				SType:           vulkan.StructureTypeWriteDescriptorSet,
				DstSet:          d.sets[i],
				DstBinding:      0,
				DescriptorType:  vulkan.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				PBufferInfo:     []vulkan.DescriptorBufferInfo{bufferInfo},
			},
			{
				SType:           vulkan.StructureTypeWriteDescriptorSet,
				DstSet:          d.sets[i],
				DstBinding:      1,
				DescriptorType:  vulkan.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				PImageInfo:      []vulkan.DescriptorImageInfo{imageInfo},
			},
		}
		vulkan.UpdateDescriptorSets(device.handle, uint32(len(writes)), writes, 0, nil)
	}
	return d, nil
}

// Layout returns the descriptor set layout for pipeline creation.
func (d *Descriptors) Layout() vulkan.DescriptorSetLayout {
	return d.layout
}

// Set returns the descriptor set for the given swapchain image index.
func (d *Descriptors) Set(imageIndex uint32) vulkan.DescriptorSet {
	return d.sets[imageIndex]
}

// UpdateUniform writes the uniform block for the given swapchain image
// index. The caller guarantees the image is not in flight, which the
// per-image fence check on the draw path provides.
func (d *Descriptors) UpdateUniform(imageIndex uint32, ubo *UniformBufferObject) error {
	return d.uniformBuffers[imageIndex].Fill(uboToBytes(ubo))
}

// Destroy destroys the pool (freeing the sets), the layout and the uniform
// buffers.
func (d *Descriptors) Destroy() {
	if d.pool != vulkan.DescriptorPool(vulkan.NullHandle) {
		vulkan.DestroyDescriptorPool(d.device.handle, d.pool, nil)
		d.pool = vulkan.DescriptorPool(vulkan.NullHandle)
	}
	d.sets = nil
	if d.layout != vulkan.DescriptorSetLayout(vulkan.NullHandle) {
		vulkan.DestroyDescriptorSetLayout(d.device.handle, d.layout, nil)
		d.layout = vulkan.DescriptorSetLayout(vulkan.NullHandle)
	}
	for _, buf := range d.uniformBuffers {
		if buf != nil {
			buf.Destroy()
		}
	}
	d.uniformBuffers = nil
}
