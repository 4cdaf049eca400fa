package vks

import (
	"github.com/vulkan-go/vulkan"
)

// Memory is one device-memory allocation with strict map/unmap pairing.
// Mapping twice without an unmap, or unmapping an unmapped allocation, is a
// caller bug and returns a sentinel error rather than reaching the driver.
type Memory struct {
	device *Device
	handle vulkan.DeviceMemory
	size   vulkan.DeviceSize
	mapped bool
}

// allocMemory allocates device memory satisfying the given requirements and
// property flags. The memory-type lookup failing means the hardware cannot
// serve the request at all.
func allocMemory(device *Device, requirements vulkan.MemoryRequirements, properties vulkan.MemoryPropertyFlags) (*Memory, error) {
	typeIndex, err := device.gpu.Memory.FindIndex(requirements.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}

	allocInfo := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: typeIndex,
	}
	mem := &Memory{device: device, size: requirements.Size}
	if res := vulkan.AllocateMemory(device.handle, &allocInfo, nil, &mem.handle); res != vulkan.Success {
		return nil, vkErr("allocate device memory", res)
	}
	return mem, nil
}

// Map maps the whole allocation and returns a writable byte view valid until
// Unmap.
func (m *Memory) Map() ([]byte, error) {
	if m.mapped {
		return nil, ErrAlreadyMapped
	}
	data, res := m.device.backend.MapMemory(m.handle, 0, m.size)
	if res != vulkan.Success {
		return nil, vkErr("map memory", res)
	}
	m.mapped = true
	return data, nil
}

// Unmap releases the mapping established by Map.
func (m *Memory) Unmap() error {
	if !m.mapped {
		return ErrNotMapped
	}
	m.device.backend.UnmapMemory(m.handle)
	m.mapped = false
	return nil
}

// Size returns the allocation size in bytes.
func (m *Memory) Size() vulkan.DeviceSize {
	return m.size
}

// Free releases the allocation. The memory must not be mapped and no GPU
// work may still reference it.
func (m *Memory) Free() {
	if m.handle != vulkan.DeviceMemory(vulkan.NullHandle) {
		vulkan.FreeMemory(m.device.handle, m.handle, nil)
		m.handle = vulkan.DeviceMemory(vulkan.NullHandle)
	}
}
