// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "testing"

func sampleBonesModel(name string) Model {
	return Model{
		Name: name,
		Bones: []Bone{
			{Name: "root_bone", Transform: IdentityMat4x3},
			{Name: "child_bone", Parent: "root_bone", Transform: IdentityMat4x3},
		},
	}
}

func samplePartModel(name string) Model {
	return Model{
		Name: name,
		Parts: []Part{
			{
				Name:   "body",
				Parent: "root_bone",
				Material: Material{Name: "hull"},
				Geometry: Geometry{
					Topology: TriangleList,
					Indices:  []uint16{0, 1, 2},
					Vertices: VertexBlock{Positions: []Vec3{{}, {X: 1}, {Y: 1}}},
				},
				Lod: Lod0,
			},
		},
	}
}

// TestIntegrateOrderIndependent verifies that integrating a part
// fragment then a bones fragment produces the same scene as integrating
// them in the reverse order.
func TestIntegrateOrderIndependent(t *testing.T) {
	b1 := NewBuilder()
	b1.Integrate(samplePartModel("tank"))
	b1.Integrate(sampleBonesModel("tank"))

	b2 := NewBuilder()
	b2.Integrate(sampleBonesModel("tank"))
	b2.Integrate(samplePartModel("tank"))

	var scenes [2]*Scene
	for i, b := range []*Builder{b1, b2} {
		failures := b.SaveAll(DiscardFlags{}, func(s *Scene) error {
			scenes[i] = s
			return nil
		})
		if len(failures) != 0 {
			t.Fatalf("unexpected failures: %v", failures)
		}
	}

	a, c := scenes[0], scenes[1]
	if len(a.Nodes) != len(c.Nodes) {
		t.Fatalf("node count differs: %d vs %d", len(a.Nodes), len(c.Nodes))
	}
	for _, want := range []string{"root_bone", "child_bone", "body"} {
		if a.NodeByName(want) < 0 {
			t.Errorf("scene a missing node %q", want)
		}
		if c.NodeByName(want) < 0 {
			t.Errorf("scene c missing node %q", want)
		}
	}
	if body := a.Nodes[a.NodeByName("body")]; body.Parent != "root_bone" {
		t.Errorf("body parent = %q, want root_bone", body.Parent)
	}
}

func TestSaveAllIsolatesFailures(t *testing.T) {
	b := NewBuilder()
	b.Integrate(samplePartModel("good"))
	b.Integrate(samplePartModel("bad"))

	failures := b.SaveAll(DiscardFlags{}, func(s *Scene) error {
		if s.Name == "bad" {
			return errMockEmit
		}
		return nil
	})
	if len(failures) != 1 || failures[0].Model != "bad" {
		t.Fatalf("failures = %v, want exactly one for model \"bad\"", failures)
	}
}

type mockEmitError struct{}

func (mockEmitError) Error() string { return "mock emit failure" }

var errMockEmit = mockEmitError{}

func TestDiscardLODDropsNonLod0Parts(t *testing.T) {
	b := NewBuilder()
	m := samplePartModel("ship")
	m.Parts = append(m.Parts, Part{
		Name: "body_LOD1",
		Lod:  Lod1,
		Geometry: Geometry{
			Topology: TriangleList,
			Indices:  []uint16{0, 1, 2},
			Vertices: VertexBlock{Positions: []Vec3{{}, {X: 1}, {Y: 1}}},
		},
	})
	b.Integrate(m)

	var scene *Scene
	b.SaveAll(DiscardFlags{LOD: true}, func(s *Scene) error {
		scene = s
		return nil
	})
	if scene.NodeByName("body_LOD1") >= 0 {
		t.Errorf("LOD1 part survived discard")
	}
	if scene.NodeByName("body") < 0 {
		t.Errorf("LOD0 part was dropped")
	}
}
