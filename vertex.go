package vks

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vulkan-go/vulkan"
)

// Vertex is the interleaved vertex layout the pipeline consumes. The field
// order defines the attribute offsets; do not reorder.
type Vertex struct {
	Pos      mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

func vertexBindingDescription() vulkan.VertexInputBindingDescription {
	return vulkan.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vulkan.VertexInputRateVertex,
	}
}

func vertexAttributeDescriptions() []vulkan.VertexInputAttributeDescription {
	return []vulkan.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vulkan.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.Pos))},
		{Location: 1, Binding: 0, Format: vulkan.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.Color))},
		{Location: 2, Binding: 0, Format: vulkan.FormatR32g32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.TexCoord))},
	}
}

func verticesToBytes(verts []Vertex) []byte {
	size := len(verts) * int(unsafe.Sizeof(Vertex{}))
	out := make([]byte, size)
	src := (*[1 << 30]byte)(unsafe.Pointer(&verts[0]))[:size:size]
	copy(out, src)
	return out
}

func indicesToBytes(idxs []uint32) []byte {
	size := len(idxs) * 4
	out := make([]byte, size)
	src := (*[1 << 30]byte)(unsafe.Pointer(&idxs[0]))[:size:size]
	copy(out, src)
	return out
}
