package vks

import (
	"errors"
	"fmt"

	"github.com/vulkan-go/vulkan"
)

var deviceExtensions = []string{"VK_KHR_swapchain"}

// QueueFamily is an immutable snapshot of one queue family's capabilities.
type QueueFamily struct {
	Index      uint32
	Flags      vulkan.QueueFlags
	CanPresent bool
}

// Graphics reports whether the family advertises the graphics bit.
func (f QueueFamily) Graphics() bool {
	return f.Flags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) != 0
}

// Compute reports whether the family advertises the compute bit.
func (f QueueFamily) Compute() bool {
	return f.Flags&vulkan.QueueFlags(vulkan.QueueComputeBit) != 0
}

// Transfer reports whether the family advertises the transfer bit.
func (f QueueFamily) Transfer() bool {
	return f.Flags&vulkan.QueueFlags(vulkan.QueueTransferBit) != 0
}

// MemoryType is one entry of a physical device's memory-type table.
type MemoryType struct {
	PropertyFlags vulkan.MemoryPropertyFlags
}

// MemoryTypeTable is the physical device's memory-type table, snapshotted
// once so selection stays a pure function.
type MemoryTypeTable []MemoryType

// FindIndex selects the first memory type whose bit is set in typeFilter and
// whose property flags include every requested flag (extra flags tolerated).
// No match is a hardware/request mismatch and returns
// ErrNoSuitableMemoryType; there is nothing to retry.
func (t MemoryTypeTable) FindIndex(typeFilter uint32, required vulkan.MemoryPropertyFlags) (uint32, error) {
	for i, mt := range t {
		if typeFilter&(1<<uint(i)) == 0 {
			continue
		}
		if mt.PropertyFlags&required == required {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: filter=0x%x required=0x%x", ErrNoSuitableMemoryType, typeFilter, required)
}

// GPUInfo is an immutable snapshot of one candidate GPU, queried once and
// used for selection and later memory-type lookups.
type GPUInfo struct {
	Name          string
	DeviceType    vulkan.PhysicalDeviceType
	Discrete      bool
	Extensions    map[string]bool
	QueueFamilies []QueueFamily
	Memory        MemoryTypeTable

	handle     vulkan.PhysicalDevice
	properties vulkan.PhysicalDeviceProperties
	limits     vulkan.PhysicalDeviceLimits
}

// Handle returns the raw physical-device handle.
func (g *GPUInfo) Handle() vulkan.PhysicalDevice {
	return g.handle
}

// QueryGPUInfo snapshots a physical device. It is side-effect-free: it only
// fills caches, it creates nothing.
func QueryGPUInfo(device vulkan.PhysicalDevice, surface vulkan.Surface) *GPUInfo {
	info := &GPUInfo{handle: device}

	vulkan.GetPhysicalDeviceProperties(device, &info.properties)
	info.properties.Deref()
	info.properties.Limits.Deref()
	info.limits = info.properties.Limits
	info.Name = vulkan.ToString(info.properties.DeviceName[:])
	info.DeviceType = info.properties.DeviceType
	info.Discrete = info.DeviceType == vulkan.PhysicalDeviceTypeDiscreteGpu

	var extCount uint32
	vulkan.EnumerateDeviceExtensionProperties(device, "", &extCount, nil)
	extProps := make([]vulkan.ExtensionProperties, extCount)
	vulkan.EnumerateDeviceExtensionProperties(device, "", &extCount, extProps)
	info.Extensions = make(map[string]bool, extCount)
	for i := range extProps {
		extProps[i].Deref()
		info.Extensions[vulkan.ToString(extProps[i].ExtensionName[:])] = true
	}

	var familyCount uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	familyProps := make([]vulkan.QueueFamilyProperties, familyCount)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, familyProps)
	info.QueueFamilies = make([]QueueFamily, familyCount)
	for i := range familyProps {
		familyProps[i].Deref()
		family := QueueFamily{Index: uint32(i), Flags: familyProps[i].QueueFlags}
		if surface != vulkan.Surface(vulkan.NullHandle) {
			var present vulkan.Bool32
			vulkan.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &present)
			family.CanPresent = present == vulkan.True
		}
		info.QueueFamilies[i] = family
	}

	var memProps vulkan.PhysicalDeviceMemoryProperties
	vulkan.GetPhysicalDeviceMemoryProperties(device, &memProps)
	memProps.Deref()
	info.Memory = make(MemoryTypeTable, memProps.MemoryTypeCount)
	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		info.Memory[i] = MemoryType{PropertyFlags: memProps.MemoryTypes[i].PropertyFlags}
	}

	return info
}

// SupportsExtensions reports whether every named extension is available.
func (g *GPUInfo) SupportsExtensions(names []string) bool {
	for _, n := range names {
		if !g.Extensions[n] {
			return false
		}
	}
	return true
}

// MaxSampleCount returns the highest sample count supported by both the
// color and depth framebuffer attachments, capped at the requested limit
// (zero means uncapped).
func (g *GPUInfo) MaxSampleCount(limit vulkan.SampleCountFlagBits) vulkan.SampleCountFlagBits {
	counts := g.limits.FramebufferColorSampleCounts & g.limits.FramebufferDepthSampleCounts
	candidates := []vulkan.SampleCountFlagBits{
		vulkan.SampleCount64Bit,
		vulkan.SampleCount32Bit,
		vulkan.SampleCount16Bit,
		vulkan.SampleCount8Bit,
		vulkan.SampleCount4Bit,
		vulkan.SampleCount2Bit,
	}
	for _, c := range candidates {
		if limit != 0 && c > limit {
			continue
		}
		if counts&vulkan.SampleCountFlags(c) != 0 {
			return c
		}
	}
	return vulkan.SampleCount1Bit
}

// score prefers discrete GPUs over integrated ones, integrated over the rest.
func (g *GPUInfo) score() int32 {
	switch g.DeviceType {
	case vulkan.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vulkan.PhysicalDeviceTypeIntegratedGpu:
		return 500
	default:
		return 100
	}
}

// hasGraphicsAndPresent reports whether the snapshot has at least one
// graphics-capable family and at least one present-capable family.
func (g *GPUInfo) hasGraphicsAndPresent() bool {
	var graphics, present bool
	for _, f := range g.QueueFamilies {
		if f.Graphics() {
			graphics = true
		}
		if f.CanPresent {
			present = true
		}
	}
	return graphics && present
}

// SelectPhysicalDevice enumerates GPUs and picks the best eligible one.
// Eligibility requires graphics+present queue support, the swapchain
// extension, and at least one surface format and present mode. No eligible
// GPU is a fatal configuration error.
func SelectPhysicalDevice(instance *Instance, surface vulkan.Surface) (*GPUInfo, error) {
	var count uint32
	if res := vulkan.EnumeratePhysicalDevices(instance.handle, &count, nil); res != vulkan.Success || count == 0 {
		return nil, errors.New("no GPU devices found")
	}
	devices := make([]vulkan.PhysicalDevice, count)
	if res := vulkan.EnumeratePhysicalDevices(instance.handle, &count, devices); res != vulkan.Success {
		return nil, vkErr("enumerate physical devices", res)
	}

	var selected *GPUInfo
	bestScore := int32(-1)
	for _, dev := range devices {
		info := QueryGPUInfo(dev, surface)
		if !info.hasGraphicsAndPresent() {
			continue
		}
		if !info.SupportsExtensions(deviceExtensions) {
			continue
		}
		support := querySwapchainSupport(dev, surface)
		if len(support.formats) == 0 || len(support.presentModes) == 0 {
			continue
		}
		if s := info.score(); s > bestScore {
			bestScore = s
			selected = info
		}
	}
	if selected == nil {
		return nil, errors.New("no suitable GPU found")
	}
	return selected, nil
}
