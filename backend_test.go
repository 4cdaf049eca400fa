package vks

import (
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

// fakeBackend records every call on the frame hot path and plays back
// scripted results, so the synchronization protocol can be tested without a
// GPU or a window system.
type fakeBackend struct {
	fenceWaits  [][]vulkan.Fence
	fenceResets [][]vulkan.Fence

	acquireResults []vulkan.Result
	acquireIndices []uint32
	acquireCalls   int

	submits  []fakeSubmit
	presents []fakePresent

	presentResults []vulkan.Result
	presentCalls   int

	deviceIdles int
	queueIdles  int

	store  map[vulkan.DeviceMemory][]byte
	mapped map[vulkan.DeviceMemory]bool

	begins int
	ends   int
	resets int
}

type fakeSubmit struct {
	queue   vulkan.Queue
	fence   vulkan.Fence
	waits   []vulkan.Semaphore
	signals []vulkan.Semaphore
	buffers []vulkan.CommandBuffer
}

type fakePresent struct {
	queue      vulkan.Queue
	waits      []vulkan.Semaphore
	imageIndex uint32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		store:  make(map[vulkan.DeviceMemory][]byte),
		mapped: make(map[vulkan.DeviceMemory]bool),
	}
}

func (f *fakeBackend) WaitForFences(fences []vulkan.Fence) vulkan.Result {
	f.fenceWaits = append(f.fenceWaits, append([]vulkan.Fence(nil), fences...))
	return vulkan.Success
}

func (f *fakeBackend) ResetFences(fences []vulkan.Fence) vulkan.Result {
	f.fenceResets = append(f.fenceResets, append([]vulkan.Fence(nil), fences...))
	return vulkan.Success
}

func (f *fakeBackend) AcquireNextImage(swapchain vulkan.Swapchain, semaphore vulkan.Semaphore) (uint32, vulkan.Result) {
	call := f.acquireCalls
	f.acquireCalls++
	res := vulkan.Success
	if call < len(f.acquireResults) {
		res = f.acquireResults[call]
	}
	var index uint32
	if call < len(f.acquireIndices) {
		index = f.acquireIndices[call]
	}
	return index, res
}

func (f *fakeBackend) QueueSubmit(queue vulkan.Queue, submits []vulkan.SubmitInfo, fence vulkan.Fence) vulkan.Result {
	for _, s := range submits {
		f.submits = append(f.submits, fakeSubmit{
			queue:   queue,
			fence:   fence,
			waits:   append([]vulkan.Semaphore(nil), s.PWaitSemaphores...),
			signals: append([]vulkan.Semaphore(nil), s.PSignalSemaphores...),
			buffers: append([]vulkan.CommandBuffer(nil), s.PCommandBuffers...),
		})
	}
	return vulkan.Success
}

func (f *fakeBackend) QueuePresent(queue vulkan.Queue, info *vulkan.PresentInfo) vulkan.Result {
	call := f.presentCalls
	f.presentCalls++
	f.presents = append(f.presents, fakePresent{
		queue:      queue,
		waits:      append([]vulkan.Semaphore(nil), info.PWaitSemaphores...),
		imageIndex: info.PImageIndices[0],
	})
	if call < len(f.presentResults) {
		return f.presentResults[call]
	}
	return vulkan.Success
}

func (f *fakeBackend) QueueWaitIdle(queue vulkan.Queue) vulkan.Result {
	f.queueIdles++
	return vulkan.Success
}

func (f *fakeBackend) DeviceWaitIdle() vulkan.Result {
	f.deviceIdles++
	return vulkan.Success
}

func (f *fakeBackend) MapMemory(memory vulkan.DeviceMemory, offset, size vulkan.DeviceSize) ([]byte, vulkan.Result) {
	buf, ok := f.store[memory]
	if !ok {
		buf = make([]byte, size)
		f.store[memory] = buf
	}
	f.mapped[memory] = true
	return buf[offset : offset+size], vulkan.Success
}

func (f *fakeBackend) UnmapMemory(memory vulkan.DeviceMemory) {
	f.mapped[memory] = false
}

func (f *fakeBackend) BeginCommandBuffer(cb vulkan.CommandBuffer, flags vulkan.CommandBufferUsageFlags) vulkan.Result {
	f.begins++
	return vulkan.Success
}

func (f *fakeBackend) EndCommandBuffer(cb vulkan.CommandBuffer) vulkan.Result {
	f.ends++
	return vulkan.Success
}

func (f *fakeBackend) ResetCommandBuffer(cb vulkan.CommandBuffer) vulkan.Result {
	f.resets++
	return vulkan.Success
}

// Fake handles. The bindings type handles as pointers, so any distinct live
// pointer makes a distinct handle.

func fakeFence() vulkan.Fence {
	return vulkan.Fence(unsafe.Pointer(new(byte)))
}

func fakeSemaphore() vulkan.Semaphore {
	return vulkan.Semaphore(unsafe.Pointer(new(byte)))
}

func fakeSwapchainHandle() vulkan.Swapchain {
	return vulkan.Swapchain(unsafe.Pointer(new(byte)))
}

func fakeDeviceMemory() vulkan.DeviceMemory {
	return vulkan.DeviceMemory(unsafe.Pointer(new(byte)))
}

func fakeCommandBufferHandle() vulkan.CommandBuffer {
	return vulkan.CommandBuffer(unsafe.Pointer(new(byte)))
}

func newFakeDevice(fb *fakeBackend) *Device {
	d := &Device{backend: fb}
	d.Graphics = &Queue{family: 0}
	d.Compute = d.Graphics
	d.Transfer = d.Graphics
	d.Present = d.Graphics
	return d
}
