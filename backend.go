package vks

import (
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

// Backend is the narrow seam between the frame-lifecycle core and the GPU
// API. Everything on the steady-state draw path and the map/record hot path
// goes through it, so the synchronization protocol can be exercised against
// a test double. Creation-time calls (instance, device, pipeline, ...) talk
// to the API directly; they require a live environment either way.
type Backend interface {
	WaitForFences(fences []vulkan.Fence) vulkan.Result
	ResetFences(fences []vulkan.Fence) vulkan.Result
	AcquireNextImage(swapchain vulkan.Swapchain, semaphore vulkan.Semaphore) (uint32, vulkan.Result)
	QueueSubmit(queue vulkan.Queue, submits []vulkan.SubmitInfo, fence vulkan.Fence) vulkan.Result
	QueuePresent(queue vulkan.Queue, info *vulkan.PresentInfo) vulkan.Result
	QueueWaitIdle(queue vulkan.Queue) vulkan.Result
	DeviceWaitIdle() vulkan.Result

	// MapMemory returns a writable byte view of the mapped range, valid
	// until UnmapMemory.
	MapMemory(memory vulkan.DeviceMemory, offset, size vulkan.DeviceSize) ([]byte, vulkan.Result)
	UnmapMemory(memory vulkan.DeviceMemory)

	BeginCommandBuffer(cb vulkan.CommandBuffer, flags vulkan.CommandBufferUsageFlags) vulkan.Result
	EndCommandBuffer(cb vulkan.CommandBuffer) vulkan.Result
	ResetCommandBuffer(cb vulkan.CommandBuffer) vulkan.Result
}

// vulkanBackend is the production Backend bound to one logical device.
type vulkanBackend struct {
	device vulkan.Device
}

func newVulkanBackend(device vulkan.Device) *vulkanBackend {
	return &vulkanBackend{device: device}
}

func (b *vulkanBackend) WaitForFences(fences []vulkan.Fence) vulkan.Result {
	return vulkan.WaitForFences(b.device, uint32(len(fences)), fences, vulkan.True, vulkan.MaxUint64)
}

func (b *vulkanBackend) ResetFences(fences []vulkan.Fence) vulkan.Result {
	return vulkan.ResetFences(b.device, uint32(len(fences)), fences)
}

func (b *vulkanBackend) AcquireNextImage(swapchain vulkan.Swapchain, semaphore vulkan.Semaphore) (uint32, vulkan.Result) {
	var imageIndex uint32
	res := vulkan.AcquireNextImage(b.device, swapchain, vulkan.MaxUint64, semaphore, vulkan.Fence(vulkan.NullHandle), &imageIndex)
	return imageIndex, res
}

func (b *vulkanBackend) QueueSubmit(queue vulkan.Queue, submits []vulkan.SubmitInfo, fence vulkan.Fence) vulkan.Result {
	return vulkan.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (b *vulkanBackend) QueuePresent(queue vulkan.Queue, info *vulkan.PresentInfo) vulkan.Result {
	return vulkan.QueuePresent(queue, info)
}

func (b *vulkanBackend) QueueWaitIdle(queue vulkan.Queue) vulkan.Result {
	return vulkan.QueueWaitIdle(queue)
}

func (b *vulkanBackend) DeviceWaitIdle() vulkan.Result {
	return vulkan.DeviceWaitIdle(b.device)
}

func (b *vulkanBackend) MapMemory(memory vulkan.DeviceMemory, offset, size vulkan.DeviceSize) ([]byte, vulkan.Result) {
	var data unsafe.Pointer
	res := vulkan.MapMemory(b.device, memory, offset, size, 0, &data)
	if res != vulkan.Success {
		return nil, res
	}
	return (*[1 << 30]byte)(data)[:size:size], res
}

func (b *vulkanBackend) UnmapMemory(memory vulkan.DeviceMemory) {
	vulkan.UnmapMemory(b.device, memory)
}

func (b *vulkanBackend) BeginCommandBuffer(cb vulkan.CommandBuffer, flags vulkan.CommandBufferUsageFlags) vulkan.Result {
	beginInfo := vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	return vulkan.BeginCommandBuffer(cb, &beginInfo)
}

func (b *vulkanBackend) EndCommandBuffer(cb vulkan.CommandBuffer) vulkan.Result {
	return vulkan.EndCommandBuffer(cb)
}

func (b *vulkanBackend) ResetCommandBuffer(cb vulkan.CommandBuffer) vulkan.Result {
	return vulkan.ResetCommandBuffer(cb, 0)
}
