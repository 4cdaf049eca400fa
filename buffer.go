package vks

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// Buffer couples a buffer handle with its backing memory allocation. The
// two are created and destroyed together.
type Buffer struct {
	device *Device
	handle vulkan.Buffer
	memory *Memory
	size   vulkan.DeviceSize
}

// NewBuffer creates a buffer of the given size and usage, backed by memory
// with the requested property flags. Queue ownership is exclusive.
func NewBuffer(device *Device, size vulkan.DeviceSize, usage vulkan.BufferUsageFlags, properties vulkan.MemoryPropertyFlags) (*Buffer, error) {
	createInfo := vulkan.BufferCreateInfo{
		SType:       vulkan.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vulkan.SharingModeExclusive,
	}
	buf := &Buffer{device: device, size: size}
	if res := vulkan.CreateBuffer(device.handle, &createInfo, nil, &buf.handle); res != vulkan.Success {
		return nil, vkErr("create buffer", res)
	}

	var requirements vulkan.MemoryRequirements
	vulkan.GetBufferMemoryRequirements(device.handle, buf.handle, &requirements)
	requirements.Deref()

	memory, err := allocMemory(device, requirements, properties)
	if err != nil {
		vulkan.DestroyBuffer(device.handle, buf.handle, nil)
		return nil, fmt.Errorf("buffer memory: %w", err)
	}
	buf.memory = memory

	if res := vulkan.BindBufferMemory(device.handle, buf.handle, memory.handle, 0); res != vulkan.Success {
		memory.Free()
		vulkan.DestroyBuffer(device.handle, buf.handle, nil)
		return nil, vkErr("bind buffer memory", res)
	}
	return buf, nil
}

// Fill writes data into a host-visible buffer by mapping, copying and
// unmapping. The buffer's memory must be host-visible.
func (b *Buffer) Fill(data []byte) error {
	dst, err := b.memory.Map()
	if err != nil {
		return err
	}
	copy(dst, data)
	return b.memory.Unmap()
}

// NewDeviceLocalBuffer uploads data into a device-local buffer through a
// throwaway host-visible staging buffer and a one-shot transfer command.
func NewDeviceLocalBuffer(device *Device, pool *CommandPool, data []byte, usage vulkan.BufferUsageFlags) (*Buffer, error) {
	size := vulkan.DeviceSize(len(data))

	staging, err := NewBuffer(device, size,
		vulkan.BufferUsageFlags(vulkan.BufferUsageTransferSrcBit),
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, fmt.Errorf("staging buffer: %w", err)
	}
	defer staging.Destroy()

	if err := staging.Fill(data); err != nil {
		return nil, fmt.Errorf("fill staging buffer: %w", err)
	}

	buf, err := NewBuffer(device, size,
		vulkan.BufferUsageFlags(vulkan.BufferUsageTransferDstBit)|usage,
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	if err := copyBuffer(pool, staging, buf, size); err != nil {
		buf.Destroy()
		return nil, err
	}
	return buf, nil
}

// copyBuffer records and submits a one-shot transfer from src to dst.
func copyBuffer(pool *CommandPool, src, dst *Buffer, size vulkan.DeviceSize) error {
	cb, err := pool.BeginSingleTime()
	if err != nil {
		return err
	}
	region := vulkan.BufferCopy{Size: size}
	vulkan.CmdCopyBuffer(cb.handle, src.handle, dst.handle, 1, []vulkan.BufferCopy{region})
	return pool.EndSingleTime(cb)
}

// Handle returns the raw buffer handle.
func (b *Buffer) Handle() vulkan.Buffer {
	return b.handle
}

// Memory returns the backing allocation.
func (b *Buffer) Memory() *Memory {
	return b.memory
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() vulkan.DeviceSize {
	return b.size
}

// Destroy destroys the buffer, then frees its memory.
func (b *Buffer) Destroy() {
	if b.handle != vulkan.Buffer(vulkan.NullHandle) {
		vulkan.DestroyBuffer(b.device.handle, b.handle, nil)
		b.handle = vulkan.Buffer(vulkan.NullHandle)
	}
	if b.memory != nil {
		b.memory.Free()
		b.memory = nil
	}
}
