package vks

import (
	"strings"
	"testing"

	"github.com/g3n/engine/loader/obj"
)

const quadObj = `
mtllib quad.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
usemtl white
f 1/1 2/2 3/3 4/4
`

const quadMtl = `
newmtl white
Kd 1 1 1
`

func decodeQuad(t *testing.T) *MeshData {
	t.Helper()
	decoded, err := obj.DecodeReader(strings.NewReader(quadObj), strings.NewReader(quadMtl))
	if err != nil {
		t.Fatal(err)
	}
	return buildMeshData(decoded)
}

func TestBuildMeshDataFansQuad(t *testing.T) {
	data := decodeQuad(t)

	// One quad fans into two triangles sharing two corners.
	if len(data.Indices) != 6 {
		t.Fatalf("indices = %d, want 6", len(data.Indices))
	}
	if len(data.Vertices) != 4 {
		t.Fatalf("vertices = %d, want 4 after dedup", len(data.Vertices))
	}

	want := []uint32{0, 1, 2, 0, 2, 3}
	for i, idx := range want {
		if data.Indices[i] != idx {
			t.Errorf("index %d = %d, want %d", i, data.Indices[i], idx)
		}
	}
}

func TestBuildMeshDataFlipsTexcoordV(t *testing.T) {
	data := decodeQuad(t)

	// Corner 3 has vt (1,1); V flips to 0 for the top-left origin.
	v := data.Vertices[2]
	if v.TexCoord[0] != 1 || v.TexCoord[1] != 0 {
		t.Errorf("texcoord = %v, want (1,0)", v.TexCoord)
	}
}

func TestBuildMeshDataVertexColorIsWhite(t *testing.T) {
	data := decodeQuad(t)

	for i, v := range data.Vertices {
		if v.Color[0] != 1 || v.Color[1] != 1 || v.Color[2] != 1 {
			t.Errorf("vertex %d color = %v, want white", i, v.Color)
		}
	}
}
