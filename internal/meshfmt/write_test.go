// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package meshfmt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ucfb-tools/unmunge/internal/model"
)

func sampleScene() *model.Scene {
	return &model.Scene{
		Name:      "tank",
		Framerate: 30,
		Materials: []model.Material{{Name: "hull", Diffuse: [3]float32{0.5, 0.5, 0.5}}},
		Nodes: []model.Node{
			{Name: "root_bone", Transform: model.IdentityMat4x3, Type: model.NodeNull},
			{
				Name:      "body",
				Parent:    "root_bone",
				Transform: model.IdentityMat4x3,
				Type:      model.NodeGeometry,
				Lod:       model.Lod0,
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

func TestWriteSceneProducesNonEmptyBytes(t *testing.T) {
	scene := sampleScene()
	scene.RecomputeAABBs()

	out, err := WriteScene(scene, Options{})
	if err != nil {
		t.Fatalf("WriteScene: %v", err)
	}
	if len(out) < 8 {
		t.Fatalf("output too small: %d bytes", len(out))
	}
}

func TestWriteSceneFailsWithoutRoot(t *testing.T) {
	scene := &model.Scene{
		Name: "orphan",
		Nodes: []model.Node{
			{Name: "a", Parent: "missing", Type: model.NodeNull},
		},
	}
	if _, err := WriteScene(scene, Options{}); err == nil {
		t.Fatalf("expected an error for a scene with an unresolved parent")
	}
}

func TestPreOrderRemapsBoneMapIndices(t *testing.T) {
	scene := &model.Scene{
		Nodes: []model.Node{
			{Name: "body", Parent: "root", Type: model.NodeGeometry, Geometry: &model.Geometry{
				BoneMap: model.BoneMap{1, 0},
			}},
			{Name: "root", Type: model.NodeNull},
		},
	}
	ordered, oldToNew, err := preOrder(scene)
	if err != nil {
		t.Fatalf("preOrder: %v", err)
	}
	if ordered[0].Name != "root" {
		t.Fatalf("ordered[0] = %q, want root", ordered[0].Name)
	}
	remapped := remapBoneMap(model.BoneMap{1, 0}, oldToNew)
	if remapped[0] != 0 || remapped[1] != 1 {
		t.Errorf("remapped = %v, want [0 1]", remapped)
	}
}

func TestWriteOptionFileAppendsCSVRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tank.option")

	err := WriteOptionFile(path, "tank", Options{SoftSkin: true, Keep: []string{"muzzle_flash"}})
	if err != nil {
		t.Fatalf("WriteOptionFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("option file is empty")
	}
}
