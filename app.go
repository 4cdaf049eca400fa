package vks

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	"github.com/vulkan-go/vulkan"
)

// tickRate is the fixed simulation step. The model rotates a quarter turn
// per second regardless of frame rate.
const (
	tickRate        = time.Second / 120
	maxTicksPerDraw = 8
	rotationPerSec  = 90 // degrees
)

// App owns the window, the full Vulkan object graph and the scene state. It
// implements Scene, so the renderer calls back into it for uniforms and
// draw commands.
type App struct {
	cfg    Config
	window *glfw.Window

	instance *Instance
	surface  vulkan.Surface
	device   *Device

	swapchain   *Swapchain
	renderPass  *RenderPass
	viewport    *Viewport
	descriptors *Descriptors
	pipeline    *Pipeline

	pool           *CommandPool
	commandBuffers []*CommandBuffer

	texture *Texture
	mesh    *Mesh

	renderer *Renderer
	camera   *Camera
	timer    *TickTimer
	angle    float32
}

// NewApp brings up the whole renderer against an existing window. The
// window must already have a non-zero framebuffer.
func NewApp(window *glfw.Window, cfg Config) (*App, error) {
	a := &App{cfg: cfg, window: window, timer: NewTickTimer(tickRate, maxTicksPerDraw)}
	if err := a.initVulkan(); err != nil {
		a.Cleanup()
		return nil, err
	}
	return a, nil
}

func (a *App) initVulkan() error {
	if !glfw.VulkanSupported() {
		return errors.New("GLFW Vulkan loader not found")
	}
	vulkan.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vulkan.Init(); err != nil {
		return fmt.Errorf("vulkan init: %w", err)
	}

	var err error
	a.instance, err = NewInstance(&a.cfg, a.window.GetRequiredInstanceExtensions())
	if err != nil {
		return err
	}

	surfacePtr, err := a.window.CreateWindowSurface(a.instance.handle, nil)
	if err != nil {
		return fmt.Errorf("create window surface: %w", err)
	}
	a.surface = vulkan.SurfaceFromPointer(surfacePtr)

	gpu, err := SelectPhysicalDevice(a.instance, a.surface)
	if err != nil {
		return err
	}
	log.Printf("using GPU %q (discrete=%v)", gpu.Name, gpu.Discrete)

	a.device, err = NewDevice(gpu, &a.cfg)
	if err != nil {
		return err
	}
	if err := a.device.InitPresentQueue(a.surface); err != nil {
		return err
	}

	a.pool, err = NewCommandPool(a.device, a.device.Graphics)
	if err != nil {
		return err
	}

	a.texture, err = LoadTexture(a.device, a.pool, a.cfg.TexturePath)
	if err != nil {
		return err
	}
	meshData, err := LoadMeshData(a.cfg.ModelPath, a.cfg.MaterialPath)
	if err != nil {
		return err
	}
	a.mesh, err = NewMesh(a.device, a.pool, meshData)
	if err != nil {
		return err
	}

	if err := a.buildSwapchainObjects(); err != nil {
		return err
	}

	a.renderer, err = NewRenderer(a.device, a.swapchain, a.commandBuffers, a, a.rebuildSwapchainObjects)
	if err != nil {
		return err
	}
	return nil
}

// buildSwapchainObjects creates everything that depends on the swapchain,
// in dependency order. Called at startup and from the recreation hook.
func (a *App) buildSwapchainObjects() error {
	width, height := a.window.GetFramebufferSize()

	var err error
	a.swapchain, err = NewSwapchain(a.device, a.surface, uint32(width), uint32(height))
	if err != nil {
		return err
	}

	samples := a.device.gpu.MaxSampleCount(vulkan.SampleCountFlagBits(a.cfg.MaxSampleCount))
	depthFormat, err := findDepthFormat(a.device.gpu)
	if err != nil {
		return err
	}
	a.renderPass, err = NewRenderPass(a.device, a.swapchain.Format(), depthFormat, samples)
	if err != nil {
		return err
	}
	a.viewport, err = NewViewport(a.device, a.swapchain, a.renderPass)
	if err != nil {
		return err
	}
	a.descriptors, err = NewDescriptors(a.device, a.swapchain.ImageCount(), a.texture)
	if err != nil {
		return err
	}
	a.pipeline, err = NewPipeline(a.device, a.renderPass, PipelineOptions{
		VertexShaderPath:   a.cfg.VertexShaderPath,
		FragmentShaderPath: a.cfg.FragmentShaderPath,
		Extent:             a.swapchain.Extent(),
		Samples:            samples,
		DescriptorLayout:   a.descriptors.Layout(),
	})
	if err != nil {
		return err
	}
	a.commandBuffers, err = a.pool.Allocate(a.swapchain.ImageCount())
	if err != nil {
		return err
	}

	extent := a.swapchain.Extent()
	aspect := float32(extent.Width) / float32(extent.Height)
	if a.camera == nil {
		a.camera = NewCamera(aspect)
	} else {
		a.camera.SetAspect(aspect)
	}
	return nil
}

// rebuildSwapchainObjects is the renderer's recreation hook. The device is
// already idle when it runs. A zero-sized framebuffer (minimized window)
// blocks here until the window has an area again.
func (a *App) rebuildSwapchainObjects(uint32, uint32) (*Swapchain, []*CommandBuffer, error) {
	for {
		w, h := a.window.GetFramebufferSize()
		if w > 0 && h > 0 {
			break
		}
		glfw.WaitEvents()
	}

	a.destroySwapchainObjects()
	if err := a.buildSwapchainObjects(); err != nil {
		return nil, nil, err
	}
	return a.swapchain, a.commandBuffers, nil
}

func (a *App) destroySwapchainObjects() {
	if a.commandBuffers != nil {
		a.pool.Free(a.commandBuffers)
		a.commandBuffers = nil
	}
	if a.pipeline != nil {
		a.pipeline.Destroy()
		a.pipeline = nil
	}
	if a.descriptors != nil {
		a.descriptors.Destroy()
		a.descriptors = nil
	}
	if a.viewport != nil {
		a.viewport.Destroy()
		a.viewport = nil
	}
	if a.renderPass != nil {
		a.renderPass.Destroy()
		a.renderPass = nil
	}
	if a.swapchain != nil {
		a.swapchain.Destroy()
		a.swapchain = nil
	}
}

// Update advances the model rotation by the elapsed fixed ticks and writes
// the uniform block for the given swapchain image.
func (a *App) Update(imageIndex uint32) error {
	ticks := a.timer.Advance(time.Now())
	a.angle += float32(ticks) * float32(a.timer.TickDuration().Seconds()) * mgl32.DegToRad(rotationPerSec)

	ubo := UniformBufferObject{
		Model: mgl32.HomogRotate3D(a.angle, mgl32.Vec3{0, 0, 1}),
		View:  a.camera.View(),
		Proj:  a.camera.Proj(),
	}
	return a.descriptors.UpdateUniform(imageIndex, &ubo)
}

// Record records the draw commands for one swapchain image. The renderer
// has already opened the command buffer.
func (a *App) Record(cb *CommandBuffer, imageIndex uint32) error {
	clearColor := vulkan.NewClearValue([]float32{0.01, 0.01, 0.02, 1})
	clearDepth := vulkan.NewClearDepthStencil(1, 0)
	clearValues := []vulkan.ClearValue{clearColor, clearDepth}

	beginInfo := vulkan.RenderPassBeginInfo{
		SType:       vulkan.StructureTypeRenderPassBeginInfo,
		RenderPass:  a.renderPass.handle,
		Framebuffer: a.viewport.Framebuffer(imageIndex),
		RenderArea: vulkan.Rect2D{
			Extent: a.swapchain.Extent(),
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vulkan.CmdBeginRenderPass(cb.handle, &beginInfo, vulkan.SubpassContentsInline)
	vulkan.CmdBindPipeline(cb.handle, vulkan.PipelineBindPointGraphics, a.pipeline.handle)
	vulkan.CmdBindDescriptorSets(cb.handle, vulkan.PipelineBindPointGraphics,
		a.pipeline.layout, 0, 1, []vulkan.DescriptorSet{a.descriptors.Set(imageIndex)}, 0, nil)
	a.mesh.Draw(cb)
	vulkan.CmdEndRenderPass(cb.handle)
	return nil
}

// OnFramebufferResize forwards a window resize to the renderer.
func (a *App) OnFramebufferResize(width, height int) {
	a.renderer.OnFramebufferResize(uint32(width), uint32(height))
}

// DrawFrame renders one frame.
func (a *App) DrawFrame() error {
	return a.renderer.DrawFrame()
}

// Cleanup tears everything down in reverse creation order, waiting for the
// GPU to finish first.
func (a *App) Cleanup() {
	if a.device != nil {
		a.device.WaitUntilIdle()
	}
	if a.renderer != nil {
		a.renderer.Destroy()
		a.renderer = nil
	}
	a.destroySwapchainObjects()
	if a.mesh != nil {
		a.mesh.Destroy()
		a.mesh = nil
	}
	if a.texture != nil {
		a.texture.Destroy()
		a.texture = nil
	}
	if a.pool != nil {
		a.pool.Destroy()
		a.pool = nil
	}
	if a.device != nil {
		a.device.Destroy()
		a.device = nil
	}
	if a.surface != vulkan.Surface(vulkan.NullHandle) && a.instance != nil {
		vulkan.DestroySurface(a.instance.handle, a.surface, nil)
		a.surface = vulkan.Surface(vulkan.NullHandle)
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}
}
