package vks

import (
	"testing"

	"github.com/vulkan-go/vulkan"
)

type fakeScene struct {
	updates []uint32
	records []uint32
}

func (s *fakeScene) Update(imageIndex uint32) error {
	s.updates = append(s.updates, imageIndex)
	return nil
}

func (s *fakeScene) Record(cb *CommandBuffer, imageIndex uint32) error {
	s.records = append(s.records, imageIndex)
	return nil
}

type rebuildSpy struct {
	device *Device
	calls  int
	width  uint32
	height uint32
	images int
}

func (r *rebuildSpy) rebuild(width, height uint32) (*Swapchain, []*CommandBuffer, error) {
	r.calls++
	r.width = width
	r.height = height
	return newTestSwapchain(r.device, r.images), newTestCommandBuffers(r.device, r.images), nil
}

func newTestSwapchain(device *Device, imageCount int) *Swapchain {
	return &Swapchain{
		device: device,
		handle: fakeSwapchainHandle(),
		images: make([]vulkan.Image, imageCount),
	}
}

func newTestCommandBuffers(device *Device, count int) []*CommandBuffer {
	pool := &CommandPool{device: device, queue: device.Graphics}
	cbs := make([]*CommandBuffer, count)
	for i := range cbs {
		cbs[i] = &CommandBuffer{pool: pool, handle: fakeCommandBufferHandle()}
	}
	return cbs
}

func newTestRenderer(t *testing.T, imageCount int) (*Renderer, *fakeBackend, *fakeScene, *rebuildSpy) {
	t.Helper()
	fb := newFakeBackend()
	device := newFakeDevice(fb)
	scene := &fakeScene{}
	spy := &rebuildSpy{device: device, images: imageCount}

	r := &Renderer{
		device:         device,
		swapchain:      newTestSwapchain(device, imageCount),
		scene:          scene,
		rebuild:        spy.rebuild,
		commandBuffers: newTestCommandBuffers(device, imageCount),
		imageAvailable: []vulkan.Semaphore{fakeSemaphore(), fakeSemaphore()},
		renderFinished: []vulkan.Semaphore{fakeSemaphore(), fakeSemaphore()},
		inFlightFences: []vulkan.Fence{fakeFence(), fakeFence()},
		imagesInFlight: make([]vulkan.Fence, imageCount),
	}
	return r, fb, scene, spy
}

func TestDrawFrameAdvancesSlots(t *testing.T) {
	r, fb, _, _ := newTestRenderer(t, 3)
	fb.acquireIndices = []uint32{0, 1, 2, 0}

	wantSlots := []int{0, 1, 0, 1}
	for i, want := range wantSlots {
		if got := r.CurrentFrame(); got != want {
			t.Fatalf("frame %d: slot = %d, want %d", i, got, want)
		}
		if err := r.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	if len(fb.submits) != 4 {
		t.Fatalf("submits = %d, want 4", len(fb.submits))
	}
	for i, sub := range fb.submits {
		slot := i % MaxFramesInFlight
		if sub.waits[0] != r.imageAvailable[slot] {
			t.Errorf("submit %d waits on wrong semaphore", i)
		}
		if sub.signals[0] != r.renderFinished[slot] {
			t.Errorf("submit %d signals wrong semaphore", i)
		}
		if sub.fence != r.inFlightFences[slot] {
			t.Errorf("submit %d signals wrong fence", i)
		}
		if fb.presents[i].waits[0] != r.renderFinished[slot] {
			t.Errorf("present %d waits on wrong semaphore", i)
		}
	}
}

func TestDrawFrameThrottlesOnSlotFence(t *testing.T) {
	r, fb, _, _ := newTestRenderer(t, 3)

	for i := 0; i < 3; i++ {
		if err := r.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	// The first fence wait of every frame must be the slot fence.
	wantFences := []vulkan.Fence{r.inFlightFences[0], r.inFlightFences[1], r.inFlightFences[0]}
	if len(fb.fenceWaits) < len(wantFences) {
		t.Fatalf("fence waits = %d, want at least %d", len(fb.fenceWaits), len(wantFences))
	}
	for i, want := range wantFences {
		if fb.fenceWaits[i][0] != want {
			t.Errorf("frame %d waited on wrong fence", i)
		}
	}
}

func TestDrawFrameSeparatesIndexSpaces(t *testing.T) {
	r, fb, scene, _ := newTestRenderer(t, 3)
	fb.acquireIndices = []uint32{0, 1, 2, 0}

	for i := 0; i < 4; i++ {
		if err := r.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	// Scene work follows image indices (3 of them), not frame slots (2).
	wantImages := []uint32{0, 1, 2, 0}
	for i, want := range wantImages {
		if scene.updates[i] != want {
			t.Errorf("update %d got image %d, want %d", i, scene.updates[i], want)
		}
		if scene.records[i] != want {
			t.Errorf("record %d got image %d, want %d", i, scene.records[i], want)
		}
		if fb.presents[i].imageIndex != want {
			t.Errorf("present %d got image %d, want %d", i, fb.presents[i].imageIndex, want)
		}
	}
}

func TestDrawFrameWaitsForImageStillInFlight(t *testing.T) {
	r, fb, _, _ := newTestRenderer(t, 3)
	// Same image handed out twice in a row from different slots.
	fb.acquireIndices = []uint32{1, 1}

	if err := r.DrawFrame(); err != nil {
		t.Fatal(err)
	}
	if err := r.DrawFrame(); err != nil {
		t.Fatal(err)
	}

	// Second frame: slot fence wait, then the image fence left by frame 0.
	if len(fb.fenceWaits) != 3 {
		t.Fatalf("fence waits = %d, want 3", len(fb.fenceWaits))
	}
	if fb.fenceWaits[2][0] != r.inFlightFences[0] {
		t.Error("second frame did not wait on the fence owning image 1")
	}
	if r.imagesInFlight[1] != r.inFlightFences[1] {
		t.Error("image 1 not re-marked with the current slot fence")
	}
}

func TestAcquireOutOfDateAbandonsFrame(t *testing.T) {
	r, fb, scene, spy := newTestRenderer(t, 3)
	fb.acquireResults = []vulkan.Result{vulkan.ErrorOutOfDate}

	if err := r.DrawFrame(); err != nil {
		t.Fatal(err)
	}

	if spy.calls != 1 {
		t.Fatalf("rebuild calls = %d, want 1", spy.calls)
	}
	if len(fb.submits) != 0 || len(fb.presents) != 0 {
		t.Error("abandoned frame must not submit or present")
	}
	if len(fb.fenceResets) != 0 {
		t.Error("abandoned frame must not reset the slot fence")
	}
	if len(scene.updates) != 0 {
		t.Error("abandoned frame must not run scene work")
	}
	if fb.deviceIdles != 1 {
		t.Errorf("device idles = %d, want 1 before recreation", fb.deviceIdles)
	}
}

func TestAcquireSuboptimalKeepsFrame(t *testing.T) {
	r, fb, _, spy := newTestRenderer(t, 3)
	fb.acquireResults = []vulkan.Result{vulkan.Suboptimal}

	if err := r.DrawFrame(); err != nil {
		t.Fatal(err)
	}

	// A suboptimal acquire still renders; the image was handed out.
	if len(fb.submits) != 1 || len(fb.presents) != 1 {
		t.Fatal("suboptimal acquire should render the frame")
	}
	if spy.calls != 0 {
		t.Error("suboptimal acquire alone should not trigger recreation")
	}
	if r.CurrentFrame() != 1 {
		t.Error("frame slot should advance")
	}
}

func TestPresentSuboptimalRecreates(t *testing.T) {
	r, fb, _, spy := newTestRenderer(t, 3)
	fb.presentResults = []vulkan.Result{vulkan.Suboptimal}

	if err := r.DrawFrame(); err != nil {
		t.Fatal(err)
	}

	if spy.calls != 1 {
		t.Fatalf("rebuild calls = %d, want 1", spy.calls)
	}
	if r.CurrentFrame() != 1 {
		t.Error("frame slot should still advance after present-time recreation")
	}
}

func TestResizeStormCollapsesToLatestSize(t *testing.T) {
	r, fb, _, spy := newTestRenderer(t, 3)

	r.OnFramebufferResize(100, 50)
	r.OnFramebufferResize(300, 200)
	r.OnFramebufferResize(800, 600)

	if err := r.DrawFrame(); err != nil {
		t.Fatal(err)
	}

	if spy.calls != 1 {
		t.Fatalf("rebuild calls = %d, want 1", spy.calls)
	}
	if spy.width != 800 || spy.height != 600 {
		t.Errorf("rebuild got %dx%d, want 800x600", spy.width, spy.height)
	}
	if fb.acquireCalls != 0 {
		t.Error("pending resize must be consumed before acquiring")
	}

	// The next frame draws normally.
	if err := r.DrawFrame(); err != nil {
		t.Fatal(err)
	}
	if spy.calls != 1 {
		t.Error("resize must be consumed by the first recreation")
	}
	if len(fb.submits) != 1 {
		t.Errorf("submits = %d, want 1", len(fb.submits))
	}
}

func TestRecreationClearsImageFences(t *testing.T) {
	r, fb, _, spy := newTestRenderer(t, 3)
	spy.images = 4
	fb.acquireResults = []vulkan.Result{vulkan.Success, vulkan.ErrorOutOfDate}

	if err := r.DrawFrame(); err != nil {
		t.Fatal(err)
	}
	if r.imagesInFlight[0] == vulkan.Fence(vulkan.NullHandle) {
		t.Fatal("image 0 should be marked in flight")
	}

	if err := r.DrawFrame(); err != nil {
		t.Fatal(err)
	}

	if len(r.imagesInFlight) != 4 {
		t.Fatalf("imagesInFlight length = %d, want new image count 4", len(r.imagesInFlight))
	}
	for i, f := range r.imagesInFlight {
		if f != vulkan.Fence(vulkan.NullHandle) {
			t.Errorf("image %d fence not cleared after recreation", i)
		}
	}
	if len(r.commandBuffers) != 4 {
		t.Errorf("command buffers = %d, want 4", len(r.commandBuffers))
	}
}

func TestDrawFrameRecordsThroughStateMachine(t *testing.T) {
	r, fb, _, _ := newTestRenderer(t, 2)

	if err := r.DrawFrame(); err != nil {
		t.Fatal(err)
	}

	if fb.resets != 1 || fb.begins != 1 || fb.ends != 1 {
		t.Errorf("reset/begin/end = %d/%d/%d, want 1/1/1", fb.resets, fb.begins, fb.ends)
	}
	if len(fb.fenceResets) != 1 {
		t.Fatalf("fence resets = %d, want 1", len(fb.fenceResets))
	}
	if fb.fenceResets[0][0] != r.inFlightFences[0] {
		t.Error("wrong fence reset before submit")
	}
}
