package vks

import (
	"github.com/vulkan-go/vulkan"
)

// Pipeline bundles the graphics pipeline with its layout. Viewport and
// scissor are baked at creation, so the pipeline is rebuilt whenever the
// swapchain extent changes.
type Pipeline struct {
	device *Device
	handle vulkan.Pipeline
	layout vulkan.PipelineLayout
}

// PipelineOptions describes the graphics pipeline to build.
type PipelineOptions struct {
	VertexShaderPath   string
	FragmentShaderPath string
	Extent             vulkan.Extent2D
	Samples            vulkan.SampleCountFlagBits
	DescriptorLayout   vulkan.DescriptorSetLayout
}

// NewPipeline builds the one graphics pipeline this renderer uses: the
// interleaved vertex layout, triangle lists, back-face culling, depth test
// on, no blending.
func NewPipeline(device *Device, renderPass *RenderPass, opts PipelineOptions) (*Pipeline, error) {
	vertModule, err := loadShaderModule(device, opts.VertexShaderPath)
	if err != nil {
		return nil, err
	}
	defer vulkan.DestroyShaderModule(device.handle, vertModule, nil)
	fragModule, err := loadShaderModule(device, opts.FragmentShaderPath)
	if err != nil {
		return nil, err
	}
	defer vulkan.DestroyShaderModule(device.handle, fragModule, nil)

	mainName := "main\x00"
	shaderStages := []vulkan.PipelineShaderStageCreateInfo{
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageVertexBit,
			Module: vertModule,
			PName:  mainName,
		},
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageFragmentBit,
			Module: fragModule,
			PName:  mainName,
		},
	}

	attributeDescriptions := vertexAttributeDescriptions()
	vertexInput := vulkan.PipelineVertexInputStateCreateInfo{
		SType:                           vulkan.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vulkan.VertexInputBindingDescription{vertexBindingDescription()},
		VertexAttributeDescriptionCount: uint32(len(attributeDescriptions)),
		PVertexAttributeDescriptions:    attributeDescriptions,
	}

	inputAssembly := vulkan.PipelineInputAssemblyStateCreateInfo{
		SType:                  vulkan.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vulkan.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vulkan.False,
	}

	viewport := vulkan.Viewport{
		Width:    float32(opts.Extent.Width),
		Height:   float32(opts.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vulkan.Rect2D{Extent: opts.Extent}
	viewportState := vulkan.PipelineViewportStateCreateInfo{
		SType:         vulkan.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vulkan.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vulkan.Rect2D{scissor},
	}

	rasterizer := vulkan.PipelineRasterizationStateCreateInfo{
		SType:                   vulkan.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vulkan.False,
		RasterizerDiscardEnable: vulkan.False,
		PolygonMode:             vulkan.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vulkan.CullModeFlags(vulkan.CullModeBackBit),
		FrontFace:               vulkan.FrontFaceCounterClockwise,
		DepthBiasEnable:         vulkan.False,
	}

	samples := opts.Samples
	if samples == 0 {
		samples = vulkan.SampleCount1Bit
	}
	multisampling := vulkan.PipelineMultisampleStateCreateInfo{
		SType:                vulkan.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: samples,
	}

	depthStencil := vulkan.PipelineDepthStencilStateCreateInfo{
		SType:                 vulkan.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vulkan.True,
		DepthWriteEnable:      vulkan.True,
		DepthCompareOp:        vulkan.CompareOpLess,
		DepthBoundsTestEnable: vulkan.False,
		StencilTestEnable:     vulkan.False,
	}

	colorBlendAttachment := vulkan.PipelineColorBlendAttachmentState{
		ColorWriteMask: vulkan.ColorComponentFlags(vulkan.ColorComponentRBit | vulkan.ColorComponentGBit | vulkan.ColorComponentBBit | vulkan.ColorComponentABit),
		BlendEnable:    vulkan.False,
	}
	colorBlending := vulkan.PipelineColorBlendStateCreateInfo{
		SType:           vulkan.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vulkan.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	p := &Pipeline{device: device}

	layoutInfo := vulkan.PipelineLayoutCreateInfo{
		SType:          vulkan.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vulkan.DescriptorSetLayout{opts.DescriptorLayout},
	}
	if res := vulkan.CreatePipelineLayout(device.handle, &layoutInfo, nil, &p.layout); res != vulkan.Success {
		return nil, vkErr("create pipeline layout", res)
	}

	pipelineInfo := vulkan.GraphicsPipelineCreateInfo{
		SType:               vulkan.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlending,
		Layout:              p.layout,
		RenderPass:          renderPass.handle,
		Subpass:             0,
	}

	pipelines := make([]vulkan.Pipeline, 1)
	if res := vulkan.CreateGraphicsPipelines(device.handle, vulkan.PipelineCache(vulkan.NullHandle), 1, []vulkan.GraphicsPipelineCreateInfo{pipelineInfo}, nil, pipelines); res != vulkan.Success {
		vulkan.DestroyPipelineLayout(device.handle, p.layout, nil)
		return nil, vkErr("create graphics pipeline", res)
	}
	p.handle = pipelines[0]
	return p, nil
}

// Handle returns the raw pipeline handle.
func (p *Pipeline) Handle() vulkan.Pipeline {
	return p.handle
}

// Layout returns the pipeline layout, needed when binding descriptor sets.
func (p *Pipeline) Layout() vulkan.PipelineLayout {
	return p.layout
}

// Destroy destroys the pipeline and its layout.
func (p *Pipeline) Destroy() {
	if p.handle != vulkan.Pipeline(vulkan.NullHandle) {
		vulkan.DestroyPipeline(p.device.handle, p.handle, nil)
		p.handle = vulkan.Pipeline(vulkan.NullHandle)
	}
	if p.layout != vulkan.PipelineLayout(vulkan.NullHandle) {
		vulkan.DestroyPipelineLayout(p.device.handle, p.layout, nil)
		p.layout = vulkan.PipelineLayout(vulkan.NullHandle)
	}
}
