// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package gltf

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/ucfb-tools/unmunge/internal/model"
)

func sampleScene() *model.Scene {
	return &model.Scene{
		Name:      "tank",
		Materials: []model.Material{{Name: "hull", Diffuse: [3]float32{0.5, 0.5, 0.5}}},
		Nodes: []model.Node{
			{Name: "root", Transform: model.IdentityMat4x3, Type: model.NodeNull},
			{
				Name:      "body",
				Parent:    "root",
				Transform: model.IdentityMat4x3,
				Type:      model.NodeGeometry,
				Geometry: &model.Geometry{
					Topology: model.TriangleList,
					Indices:  []uint16{0, 1, 2},
					Vertices: model.VertexBlock{
						Positions: []model.Vec3{{}, {X: 1}, {Y: 1}},
						Normals:   []model.Vec3{{Z: 1}, {Z: 1}, {Z: 1}},
						Texcoords: []model.Vec2{{}, {X: 1}, {Y: 1}},
					},
				},
			},
		},
	}
}

func TestWriteSceneProducesValidGLBHeader(t *testing.T) {
	out, err := WriteScene(sampleScene())
	if err != nil {
		t.Fatalf("WriteScene: %v", err)
	}
	if len(out) < 12 {
		t.Fatalf("output too small: %d bytes", len(out))
	}

	magic := binary.LittleEndian.Uint32(out[0:4])
	if magic != glbMagic {
		t.Errorf("magic = %x, want %x", magic, glbMagic)
	}
	version := binary.LittleEndian.Uint32(out[4:8])
	if version != glbVersion {
		t.Errorf("version = %d, want %d", version, glbVersion)
	}
	total := binary.LittleEndian.Uint32(out[8:12])
	if int(total) != len(out) {
		t.Errorf("declared total length %d != actual %d", total, len(out))
	}

	jsonLen := binary.LittleEndian.Uint32(out[12:16])
	jsonType := binary.LittleEndian.Uint32(out[16:20])
	if jsonType != chunkJSON {
		t.Errorf("first chunk type = %x, want JSON chunk", jsonType)
	}
	jsonBytes := out[20 : 20+jsonLen]

	var doc document
	if err := json.Unmarshal(bytes.TrimRight(jsonBytes, " "), &doc); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if len(doc.Meshes) != 1 {
		t.Fatalf("len(Meshes) = %d, want 1", len(doc.Meshes))
	}
	if len(doc.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(doc.Nodes))
	}
	if doc.Nodes[1].Mesh == nil || *doc.Nodes[1].Mesh != 0 {
		t.Errorf("body node mesh reference = %v, want pointer to 0", doc.Nodes[1].Mesh)
	}
}

func TestAlphaModeReflectsTransparentFlag(t *testing.T) {
	opaque := model.Material{}
	transparent := model.Material{Flags: model.MaterialTransparent}
	if got := alphaModeFor(opaque); got != "OPAQUE" {
		t.Errorf("alphaModeFor(opaque) = %q, want OPAQUE", got)
	}
	if got := alphaModeFor(transparent); got != "BLEND" {
		t.Errorf("alphaModeFor(transparent) = %q, want BLEND", got)
	}
}
