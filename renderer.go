package vks

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// MaxFramesInFlight is how many frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

// Scene supplies the per-frame work the renderer cannot know about: writing
// the uniforms and recording draw commands for one swapchain image.
type Scene interface {
	Update(imageIndex uint32) error
	Record(cb *CommandBuffer, imageIndex uint32) error
}

// RebuildFunc recreates everything that depends on the swapchain after the
// device has gone idle. It returns the new swapchain and the per-image
// command buffers to record into. width/height are the latest framebuffer
// size reported by the window.
type RebuildFunc func(width, height uint32) (*Swapchain, []*CommandBuffer, error)

// Renderer drives the frame lifecycle: fence throttling, image acquisition,
// per-image hazard tracking, submission and presentation. Two index spaces
// meet here and must not be mixed: frame slots (0..MaxFramesInFlight-1)
// own the semaphores and fences, swapchain image indices own the command
// buffers and everything the GPU reads per image.
type Renderer struct {
	device    *Device
	swapchain *Swapchain
	scene     Scene
	rebuild   RebuildFunc

	commandBuffers []*CommandBuffer

	imageAvailable []vulkan.Semaphore
	renderFinished []vulkan.Semaphore
	inFlightFences []vulkan.Fence
	imagesInFlight []vulkan.Fence

	currentFrame int

	resizePending bool
	resizeWidth   uint32
	resizeHeight  uint32
}

// NewRenderer creates the per-slot sync objects and per-image hazard
// tracking for the given swapchain. commandBuffers must hold one buffer per
// swapchain image.
func NewRenderer(device *Device, swapchain *Swapchain, commandBuffers []*CommandBuffer, scene Scene, rebuild RebuildFunc) (*Renderer, error) {
	if len(commandBuffers) != swapchain.ImageCount() {
		return nil, fmt.Errorf("need %d command buffers, got %d", swapchain.ImageCount(), len(commandBuffers))
	}
	r := &Renderer{
		device:         device,
		swapchain:      swapchain,
		scene:          scene,
		rebuild:        rebuild,
		commandBuffers: commandBuffers,
		imageAvailable: make([]vulkan.Semaphore, MaxFramesInFlight),
		renderFinished: make([]vulkan.Semaphore, MaxFramesInFlight),
		inFlightFences: make([]vulkan.Fence, MaxFramesInFlight),
		imagesInFlight: make([]vulkan.Fence, swapchain.ImageCount()),
	}

	semInfo := vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}
	// Slot fences start signaled so the first frames do not deadlock on a
	// fence no submission will ever signal.
	fenceInfo := vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
		Flags: vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit),
	}
	for i := 0; i < MaxFramesInFlight; i++ {
		if res := vulkan.CreateSemaphore(device.handle, &semInfo, nil, &r.imageAvailable[i]); res != vulkan.Success {
			return nil, vkErr("create image-available semaphore", res)
		}
		if res := vulkan.CreateSemaphore(device.handle, &semInfo, nil, &r.renderFinished[i]); res != vulkan.Success {
			return nil, vkErr("create render-finished semaphore", res)
		}
		if res := vulkan.CreateFence(device.handle, &fenceInfo, nil, &r.inFlightFences[i]); res != vulkan.Success {
			return nil, vkErr("create in-flight fence", res)
		}
	}
	return r, nil
}

// OnFramebufferResize notes a window resize. Called from the window
// callback; the actual recreation happens on the draw path. Repeated calls
// between frames collapse to the latest size.
func (r *Renderer) OnFramebufferResize(width, height uint32) {
	r.resizePending = true
	r.resizeWidth = width
	r.resizeHeight = height
}

// DrawFrame runs one iteration of the frame protocol. A frame abandoned to
// swapchain recreation is not an error; the caller just draws again.
func (r *Renderer) DrawFrame() error {
	backend := r.device.backend
	fence := r.inFlightFences[r.currentFrame]

	if res := backend.WaitForFences([]vulkan.Fence{fence}); res != vulkan.Success {
		return vkErr("wait for frame fence", res)
	}

	if r.resizePending {
		return r.recreateSwapchain()
	}

	imageIndex, res := backend.AcquireNextImage(r.swapchain.handle, r.imageAvailable[r.currentFrame])
	switch {
	case res == vulkan.ErrorOutOfDate:
		return r.recreateSwapchain()
	case res != vulkan.Success && res != vulkan.Suboptimal:
		return vkErr("acquire swapchain image", res)
	}

	// The image may still be owned by a submission from an earlier frame
	// slot; wait it out before touching anything indexed by imageIndex.
	if r.imagesInFlight[imageIndex] != vulkan.Fence(vulkan.NullHandle) {
		if res := backend.WaitForFences([]vulkan.Fence{r.imagesInFlight[imageIndex]}); res != vulkan.Success {
			return vkErr("wait for image fence", res)
		}
	}
	r.imagesInFlight[imageIndex] = fence

	if err := r.scene.Update(imageIndex); err != nil {
		return fmt.Errorf("scene update: %w", err)
	}

	cb := r.commandBuffers[imageIndex]
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(0); err != nil {
		return err
	}
	if err := r.scene.Record(cb, imageIndex); err != nil {
		return fmt.Errorf("scene record: %w", err)
	}
	if err := cb.End(); err != nil {
		return err
	}

	// The fence is reset only after every early return is behind us;
	// resetting sooner could leave the slot permanently unsignaled.
	if res := backend.ResetFences([]vulkan.Fence{fence}); res != vulkan.Success {
		return vkErr("reset frame fence", res)
	}

	submit := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{r.imageAvailable[r.currentFrame]},
		PWaitDstStageMask: []vulkan.PipelineStageFlags{
			vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vulkan.CommandBuffer{cb.handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vulkan.Semaphore{r.renderFinished[r.currentFrame]},
	}
	if res := backend.QueueSubmit(r.device.Graphics.handle, []vulkan.SubmitInfo{submit}, fence); res != vulkan.Success {
		return vkErr("submit draw commands", res)
	}

	presentInfo := vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{r.renderFinished[r.currentFrame]},
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{r.swapchain.handle},
		PImageIndices:      []uint32{imageIndex},
	}
	res = backend.QueuePresent(r.device.Present.handle, &presentInfo)
	switch {
	case res == vulkan.ErrorOutOfDate || res == vulkan.Suboptimal || r.resizePending:
		if err := r.recreateSwapchain(); err != nil {
			return err
		}
	case res != vulkan.Success:
		return vkErr("present swapchain image", res)
	}

	r.currentFrame = (r.currentFrame + 1) % MaxFramesInFlight
	return nil
}

// recreateSwapchain waits for the device to go idle and rebuilds everything
// swapchain-dependent through the injected hook. Slot fences and semaphores
// survive recreation; per-image hazard tracking is resized and cleared
// because image indices have new meanings.
func (r *Renderer) recreateSwapchain() error {
	r.resizePending = false

	if res := r.device.backend.DeviceWaitIdle(); res != vulkan.Success {
		return vkErr("wait device idle for recreation", res)
	}
	swapchain, commandBuffers, err := r.rebuild(r.resizeWidth, r.resizeHeight)
	if err != nil {
		return fmt.Errorf("rebuild swapchain: %w", err)
	}
	if len(commandBuffers) != swapchain.ImageCount() {
		return fmt.Errorf("need %d command buffers, got %d", swapchain.ImageCount(), len(commandBuffers))
	}
	r.swapchain = swapchain
	r.commandBuffers = commandBuffers
	r.imagesInFlight = make([]vulkan.Fence, swapchain.ImageCount())
	return nil
}

// CurrentFrame returns the active frame slot.
func (r *Renderer) CurrentFrame() int {
	return r.currentFrame
}

// Destroy waits for the device to idle, then destroys the sync objects.
func (r *Renderer) Destroy() {
	r.device.backend.DeviceWaitIdle()
	for i := 0; i < MaxFramesInFlight; i++ {
		if r.imageAvailable[i] != vulkan.Semaphore(vulkan.NullHandle) {
			vulkan.DestroySemaphore(r.device.handle, r.imageAvailable[i], nil)
		}
		if r.renderFinished[i] != vulkan.Semaphore(vulkan.NullHandle) {
			vulkan.DestroySemaphore(r.device.handle, r.renderFinished[i], nil)
		}
		if r.inFlightFences[i] != vulkan.Fence(vulkan.NullHandle) {
			vulkan.DestroyFence(r.device.handle, r.inFlightFences[i], nil)
		}
	}
}
