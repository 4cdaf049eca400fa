package vks

import (
	"fmt"
	"io"
	"os"

	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vulkan-go/vulkan"
)

// MeshData is decoded geometry before GPU upload: deduplicated vertices and
// a triangle-list index buffer.
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
}

// LoadMeshData parses a Wavefront OBJ file. materialPath may be empty.
func LoadMeshData(modelPath, materialPath string) (*MeshData, error) {
	meshFile, err := os.Open(modelPath)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", modelPath, err)
	}
	defer meshFile.Close()

	var matFile io.Reader
	if materialPath != "" {
		f, err := os.Open(materialPath)
		if err != nil {
			return nil, fmt.Errorf("open material %s: %w", materialPath, err)
		}
		defer f.Close()
		matFile = f
	}

	decoded, err := obj.DecodeReader(meshFile, matFile)
	if err != nil {
		return nil, fmt.Errorf("decode model %s: %w", modelPath, err)
	}
	return buildMeshData(decoded), nil
}

// buildMeshData flattens the decoded OBJ into a deduplicated vertex slice
// and triangle indices. Faces with more than three corners are fanned out
// from the first corner. Texture V is flipped for Vulkan's top-left origin.
func buildMeshData(decoded *obj.Decoder) *MeshData {
	data := &MeshData{}
	unique := make(map[Vertex]uint32)

	addVertex := func(vertexIdx, uvIdx int) {
		v := Vertex{
			Pos: mgl32.Vec3{
				decoded.Vertices[vertexIdx*3],
				decoded.Vertices[vertexIdx*3+1],
				decoded.Vertices[vertexIdx*3+2],
			},
			Color: mgl32.Vec3{1, 1, 1},
		}
		if uvIdx >= 0 && uvIdx*2+1 < len(decoded.Uvs) {
			v.TexCoord = mgl32.Vec2{
				decoded.Uvs[uvIdx*2],
				1.0 - decoded.Uvs[uvIdx*2+1],
			}
		}
		idx, ok := unique[v]
		if !ok {
			idx = uint32(len(data.Vertices))
			unique[v] = idx
			data.Vertices = append(data.Vertices, v)
		}
		data.Indices = append(data.Indices, idx)
	}

	for oi := range decoded.Objects {
		object := &decoded.Objects[oi]
		for fi := range object.Faces {
			face := &object.Faces[fi]
			for i := 2; i < len(face.Vertices); i++ {
				addVertex(face.Vertices[0], uvOrNeg(face.Uvs, 0))
				addVertex(face.Vertices[i-1], uvOrNeg(face.Uvs, i-1))
				addVertex(face.Vertices[i], uvOrNeg(face.Uvs, i))
			}
		}
	}
	return data
}

func uvOrNeg(uvs []int, i int) int {
	if i < len(uvs) {
		return uvs[i]
	}
	return -1
}

// Mesh is uploaded geometry: device-local vertex and index buffers and the
// index count for the draw call.
type Mesh struct {
	vertexBuffer *Buffer
	indexBuffer  *Buffer
	indexCount   uint32
}

// NewMesh uploads mesh data into device-local buffers via staging.
func NewMesh(device *Device, pool *CommandPool, data *MeshData) (*Mesh, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("empty mesh")
	}

	vbuf, err := NewDeviceLocalBuffer(device, pool, verticesToBytes(data.Vertices),
		vulkan.BufferUsageFlags(vulkan.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, fmt.Errorf("vertex buffer: %w", err)
	}
	ibuf, err := NewDeviceLocalBuffer(device, pool, indicesToBytes(data.Indices),
		vulkan.BufferUsageFlags(vulkan.BufferUsageIndexBufferBit))
	if err != nil {
		vbuf.Destroy()
		return nil, fmt.Errorf("index buffer: %w", err)
	}
	return &Mesh{
		vertexBuffer: vbuf,
		indexBuffer:  ibuf,
		indexCount:   uint32(len(data.Indices)),
	}, nil
}

// Draw binds the mesh's buffers and issues the indexed draw.
func (m *Mesh) Draw(cb *CommandBuffer) {
	vulkan.CmdBindVertexBuffers(cb.handle, 0, 1,
		[]vulkan.Buffer{m.vertexBuffer.handle}, []vulkan.DeviceSize{0})
	vulkan.CmdBindIndexBuffer(cb.handle, m.indexBuffer.handle, 0, vulkan.IndexTypeUint32)
	vulkan.CmdDrawIndexed(cb.handle, m.indexCount, 1, 0, 0, 0)
}

// IndexCount returns the number of indices the mesh draws.
func (m *Mesh) IndexCount() uint32 {
	return m.indexCount
}

// Destroy destroys both buffers.
func (m *Mesh) Destroy() {
	if m.vertexBuffer != nil {
		m.vertexBuffer.Destroy()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Destroy()
		m.indexBuffer = nil
	}
}
