package vks

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// CommandPool allocates command buffers for one queue family. The pool is
// created resettable so per-frame buffers can be individually re-recorded.
type CommandPool struct {
	device *Device
	queue  *Queue
	handle vulkan.CommandPool
}

// NewCommandPool creates a command pool bound to the given queue's family.
func NewCommandPool(device *Device, queue *Queue) (*CommandPool, error) {
	createInfo := vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		Flags:            vulkan.CommandPoolCreateFlags(vulkan.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: queue.family,
	}
	pool := &CommandPool{device: device, queue: queue}
	if res := vulkan.CreateCommandPool(device.handle, &createInfo, nil, &pool.handle); res != vulkan.Success {
		return nil, vkErr("create command pool", res)
	}
	return pool, nil
}

// Allocate allocates count primary command buffers from the pool.
func (p *CommandPool) Allocate(count int) ([]*CommandBuffer, error) {
	allocInfo := vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.handle,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}
	handles := make([]vulkan.CommandBuffer, count)
	if res := vulkan.AllocateCommandBuffers(p.device.handle, &allocInfo, handles); res != vulkan.Success {
		return nil, vkErr("allocate command buffers", res)
	}
	buffers := make([]*CommandBuffer, count)
	for i, h := range handles {
		buffers[i] = &CommandBuffer{pool: p, handle: h}
	}
	return buffers, nil
}

// BeginSingleTime allocates and begins a one-shot command buffer for setup
// work like transfers and layout transitions.
func (p *CommandPool) BeginSingleTime() (*CommandBuffer, error) {
	buffers, err := p.Allocate(1)
	if err != nil {
		return nil, err
	}
	cb := buffers[0]
	if err := cb.Begin(vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit)); err != nil {
		p.free(cb)
		return nil, err
	}
	return cb, nil
}

// EndSingleTime ends the one-shot buffer, submits it and blocks until the
// queue drains, then frees it. Blocking is acceptable here: single-time
// commands only run during setup, never on the draw path.
func (p *CommandPool) EndSingleTime(cb *CommandBuffer) error {
	defer p.free(cb)
	if err := cb.End(); err != nil {
		return err
	}
	submit := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vulkan.CommandBuffer{cb.handle},
	}
	if res := p.device.backend.QueueSubmit(p.queue.handle, []vulkan.SubmitInfo{submit}, vulkan.Fence(vulkan.NullHandle)); res != vulkan.Success {
		return vkErr("submit single-time commands", res)
	}
	if res := p.device.backend.QueueWaitIdle(p.queue.handle); res != vulkan.Success {
		return fmt.Errorf("wait for single-time commands: %w", vulkan.Error(res))
	}
	return nil
}

func (p *CommandPool) free(cb *CommandBuffer) {
	vulkan.FreeCommandBuffers(p.device.handle, p.handle, 1, []vulkan.CommandBuffer{cb.handle})
}

// Free returns command buffers to the pool, used when the per-image buffer
// count changes on swapchain recreation.
func (p *CommandPool) Free(buffers []*CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	handles := make([]vulkan.CommandBuffer, len(buffers))
	for i, cb := range buffers {
		handles[i] = cb.handle
	}
	vulkan.FreeCommandBuffers(p.device.handle, p.handle, uint32(len(handles)), handles)
}

// Destroy destroys the pool and implicitly every buffer allocated from it.
func (p *CommandPool) Destroy() {
	if p.handle != vulkan.CommandPool(vulkan.NullHandle) {
		vulkan.DestroyCommandPool(p.device.handle, p.handle, nil)
		p.handle = vulkan.CommandPool(vulkan.NullHandle)
	}
}
