package vks

import (
	"errors"
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// Device owns one logical device and the queues created from it. It must
// outlive every resource built from it; children are torn down explicitly
// before Destroy is called (there is no cascading free).
type Device struct {
	gpu     *GPUInfo
	handle  vulkan.Device
	backend Backend

	Graphics *Queue
	Compute  *Queue
	Transfer *Queue
	Present  *Queue

	anisotropy    bool
	maxAnisotropy float32
}

// selectQueueFamilies picks family indices for the graphics, compute and
// transfer capabilities. Graphics takes the first graphics-capable family.
// Compute prefers a family without the graphics bit; transfer prefers a
// family with neither graphics nor compute. When no dedicated family exists
// the capability shares the graphics family (transfer shares compute's
// choice, which may itself be the graphics family). Returns -1 for graphics
// when the device has no graphics family at all.
func selectQueueFamilies(families []QueueFamily) (graphics, compute, transfer int) {
	graphics, compute, transfer = -1, -1, -1
	for i, f := range families {
		if graphics == -1 && f.Graphics() {
			graphics = i
		}
		if compute == -1 && f.Compute() && !f.Graphics() {
			compute = i
		}
		if transfer == -1 && f.Transfer() && !f.Graphics() && !f.Compute() {
			transfer = i
		}
	}
	if graphics == -1 {
		return -1, -1, -1
	}
	if compute == -1 {
		compute = graphics
	}
	if transfer == -1 {
		transfer = compute
	}
	return graphics, compute, transfer
}

// selectPresentFamily walks the given family indices in order and returns
// the first one that is present-capable.
func selectPresentFamily(families []QueueFamily, order ...uint32) (uint32, bool) {
	for _, idx := range order {
		if int(idx) < len(families) && families[idx].CanPresent {
			return idx, true
		}
	}
	return 0, false
}

// NewDevice creates the logical device and its graphics/compute/transfer
// queues. The present queue is selected later via InitPresentQueue, once a
// surface exists.
func NewDevice(gpu *GPUInfo, cfg *Config) (*Device, error) {
	if !gpu.SupportsExtensions(deviceExtensions) {
		return nil, fmt.Errorf("required device extensions not supported: %v", deviceExtensions)
	}

	graphicsIdx, computeIdx, transferIdx := selectQueueFamilies(gpu.QueueFamilies)
	if graphicsIdx == -1 {
		return nil, errors.New("no graphics-capable queue family")
	}

	uniqueFamilies := []int{graphicsIdx}
	for _, idx := range []int{computeIdx, transferIdx} {
		seen := false
		for _, u := range uniqueFamilies {
			if u == idx {
				seen = true
				break
			}
		}
		if !seen {
			uniqueFamilies = append(uniqueFamilies, idx)
		}
	}

	queueInfos := make([]vulkan.DeviceQueueCreateInfo, 0, len(uniqueFamilies))
	for _, family := range uniqueFamilies {
		queueInfos = append(queueInfos, vulkan.DeviceQueueCreateInfo{
			SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(family),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	// Take the queried feature set but explicitly leave the sparse-residency
	// features off; this renderer never uses them.
	var features vulkan.PhysicalDeviceFeatures
	vulkan.GetPhysicalDeviceFeatures(gpu.handle, &features)
	features.Deref()
	anisotropy := features.SamplerAnisotropy == vulkan.True
	features.ShaderResourceResidency = vulkan.False
	features.ShaderResourceMinLod = vulkan.False
	features.SparseBinding = vulkan.False
	features.SparseResidencyBuffer = vulkan.False
	features.SparseResidencyImage2D = vulkan.False
	features.SparseResidencyImage3D = vulkan.False
	features.SparseResidency2Samples = vulkan.False
	features.SparseResidency4Samples = vulkan.False
	features.SparseResidency8Samples = vulkan.False
	features.SparseResidency16Samples = vulkan.False
	features.SparseResidencyAliased = vulkan.False

	createInfo := vulkan.DeviceCreateInfo{
		SType:                   vulkan.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vulkan.PhysicalDeviceFeatures{features},
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: safeStrings(deviceExtensions),
	}
	if cfg.EnableValidation {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = safeStrings(validationLayers)
	}

	dev := &Device{
		gpu:           gpu,
		anisotropy:    anisotropy,
		maxAnisotropy: gpu.limits.MaxSamplerAnisotropy,
	}
	if res := vulkan.CreateDevice(gpu.handle, &createInfo, nil, &dev.handle); res != vulkan.Success {
		return nil, vkErr("create logical device", res)
	}
	dev.backend = newVulkanBackend(dev.handle)

	dev.Graphics = dev.getQueue(uint32(graphicsIdx))
	dev.Compute = dev.getQueue(uint32(computeIdx))
	dev.Transfer = dev.getQueue(uint32(transferIdx))
	return dev, nil
}

func (d *Device) getQueue(family uint32) *Queue {
	var q vulkan.Queue
	vulkan.GetDeviceQueue(d.handle, family, 0, &q)
	return &Queue{handle: q, family: family}
}

// InitPresentQueue selects the present queue, deferred until a surface
// exists. It walks graphics, compute, transfer in that order and picks the
// first queue whose family the platform reports as present-capable for the
// surface. No present-capable queue is fatal.
func (d *Device) InitPresentQueue(surface vulkan.Surface) error {
	families := make([]QueueFamily, len(d.gpu.QueueFamilies))
	copy(families, d.gpu.QueueFamilies)
	for i := range families {
		var present vulkan.Bool32
		vulkan.GetPhysicalDeviceSurfaceSupport(d.gpu.handle, families[i].Index, surface, &present)
		families[i].CanPresent = present == vulkan.True
	}

	family, ok := selectPresentFamily(families, d.Graphics.family, d.Compute.family, d.Transfer.family)
	if !ok {
		return errors.New("no present-capable queue found for surface")
	}
	switch family {
	case d.Graphics.family:
		d.Present = d.Graphics
	case d.Compute.family:
		d.Present = d.Compute
	default:
		d.Present = d.Transfer
	}
	return nil
}

// GPU returns the immutable device snapshot this device was built from.
func (d *Device) GPU() *GPUInfo {
	return d.gpu
}

// Handle returns the raw logical-device handle.
func (d *Device) Handle() vulkan.Device {
	return d.handle
}

// HasSeparatePresentQueue is true when presentation runs on a different
// queue family than graphics.
func (d *Device) HasSeparatePresentQueue() bool {
	return d.Present != nil && d.Present.family != d.Graphics.family
}

// WaitUntilIdle blocks until all queued GPU work on this device completes.
// Used at shutdown and before swapchain recreation only; calling it in the
// steady-state draw loop would stall CPU/GPU overlap.
func (d *Device) WaitUntilIdle() {
	d.backend.DeviceWaitIdle()
}

// Destroy destroys the logical device. Every child resource must already be
// gone; destruction does not cascade.
func (d *Device) Destroy() {
	if d.handle != vulkan.Device(vulkan.NullHandle) {
		vulkan.DestroyDevice(d.handle, nil)
		d.handle = vulkan.Device(vulkan.NullHandle)
	}
}
