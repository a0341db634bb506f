// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package gltf

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ucfb-tools/unmunge/internal/model"
)

const (
	glbMagic   = 0x46546C67 // "glTF"
	glbVersion = 2
	chunkJSON  = 0x4E4F534A
	chunkBIN   = 0x004E4942
)

// builder accumulates a glTF document alongside the single binary buffer
// its accessors point into.
type builder struct {
	doc document
	bin bytes.Buffer
}

// WriteScene serializes scene as a binary glTF 2.0 (.glb) file: one mesh
// per geometry node, one material per scene material, a node hierarchy
// mirroring the scene graph, and a single embedded buffer.
func WriteScene(scene *model.Scene) ([]byte, error) {
	b := &builder{
		doc: document{
			Asset:  assetInfo{Version: "2.0", Generator: "unmunge"},
			Scene:  0,
			Scenes: []sceneDoc{{}},
			Buffers: []bufferDoc{{}},
		},
	}

	for _, m := range scene.Materials {
		b.doc.Materials = append(b.doc.Materials, materialDoc{
			Name: m.Name,
			PbrMetallicRoughness: &pbrDoc{
				BaseColorFactor: []float32{m.Diffuse[0], m.Diffuse[1], m.Diffuse[2], alphaFor(m)},
				MetallicFactor:  0,
				RoughnessFactor: 1,
			},
			DoubleSided: m.Flags&model.MaterialDoubleSided != 0,
			AlphaMode:   alphaModeFor(m),
		})
	}

	childrenOf := make(map[string][]int)
	var roots []int
	for i, n := range scene.Nodes {
		if n.Parent == "" {
			roots = append(roots, i)
		} else {
			childrenOf[n.Parent] = append(childrenOf[n.Parent], i)
		}
	}
	b.doc.Scenes[0].Nodes = roots

	b.doc.Nodes = make([]nodeDoc, len(scene.Nodes))
	for i, n := range scene.Nodes {
		scale, rot, translation := n.Transform.Decompose()
		nd := nodeDoc{
			Name:        n.Name,
			Children:    childrenOf[n.Name],
			Translation: []float32{translation.X, translation.Y, translation.Z},
			Rotation:    []float32{rot.X, rot.Y, rot.Z, rot.W},
			Scale:       []float32{scale.X, scale.Y, scale.Z},
		}
		if n.Geometry != nil {
			meshIndex, err := b.addMesh(n)
			if err != nil {
				return nil, fmt.Errorf("gltf: node %q: %w", n.Name, err)
			}
			nd.Mesh = &meshIndex
		}
		b.doc.Nodes[i] = nd
	}

	b.doc.Buffers[0].ByteLength = b.bin.Len()
	return b.pack()
}

func alphaFor(m model.Material) float32 {
	if m.Flags&model.MaterialTransparent != 0 {
		return 0.5
	}
	return 1
}

func alphaModeFor(m model.Material) string {
	if m.Flags&model.MaterialTransparent != 0 {
		return "BLEND"
	}
	return "OPAQUE"
}

// addMesh appends a single-primitive mesh for n's geometry and returns
// its index. Any PS2-strip topology is converted to a plain triangle
// list first, since the source engine's strips are not guaranteed to be
// valid glTF strips.
func (b *builder) addMesh(n model.Node) (int, error) {
	geom := n.Geometry
	indices, err := model.ConvertTopology(geom.Indices, geom.Topology, model.TriangleList)
	if err != nil {
		return 0, err
	}

	attrs := make(map[string]int)
	vb := geom.Vertices

	if len(vb.Positions) > 0 {
		attrs["POSITION"] = b.addVec3Accessor(vb.Positions, true)
	}
	if len(vb.Normals) > 0 {
		attrs["NORMAL"] = b.addVec3Accessor(vb.Normals, false)
	}
	if len(vb.Texcoords) > 0 {
		attrs["TEXCOORD_0"] = b.addVec2Accessor(vb.Texcoords)
	}
	if len(vb.Colors) > 0 {
		attrs["COLOR_0"] = b.addColorAccessor(vb.Colors)
	}
	if len(vb.Tangents) > 0 {
		attrs["TANGENT"] = b.addTangentAccessor(vb.Tangents, vb.Bitangents, vb.Normals)
	}

	indicesAccessor := b.addIndexAccessor(indices)

	mesh := meshDoc{
		Name: n.Name,
		Primitives: []primitiveDoc{{
			Attributes: attrs,
			Indices:    indicesAccessor,
			Material:   n.MaterialIndex,
			Mode:       modeTriangles,
		}},
	}
	b.doc.Meshes = append(b.doc.Meshes, mesh)
	return len(b.doc.Meshes) - 1, nil
}

// appendBufferView pads the binary buffer up to a 4-byte boundary, then
// appends data as a new bufferView and returns its index.
func (b *builder) appendBufferView(data []byte, target int) int {
	if pad := (4 - b.bin.Len()%4) % 4; pad > 0 {
		b.bin.Write(make([]byte, pad))
	}
	offset := b.bin.Len()
	b.bin.Write(data)
	b.doc.BufferViews = append(b.doc.BufferViews, bufferViewDoc{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: len(data),
		Target:     target,
	})
	return len(b.doc.BufferViews) - 1
}

func (b *builder) addVec3Accessor(values []model.Vec3, withBounds bool) int {
	var buf bytes.Buffer
	min := model.Vec3{X: math.MaxFloat32, Y: math.MaxFloat32, Z: math.MaxFloat32}
	max := model.Vec3{X: -math.MaxFloat32, Y: -math.MaxFloat32, Z: -math.MaxFloat32}
	for _, v := range values {
		binary.Write(&buf, binary.LittleEndian, v.X)
		binary.Write(&buf, binary.LittleEndian, v.Y)
		binary.Write(&buf, binary.LittleEndian, v.Z)
		min, max = min.Min(v), max.Max(v)
	}
	view := b.appendBufferView(buf.Bytes(), targetArrayBuffer)
	acc := accessorDoc{BufferView: view, ComponentType: componentFloat, Count: len(values), Type: "VEC3"}
	if withBounds {
		acc.Min = []float32{min.X, min.Y, min.Z}
		acc.Max = []float32{max.X, max.Y, max.Z}
	}
	b.doc.Accessors = append(b.doc.Accessors, acc)
	return len(b.doc.Accessors) - 1
}

func (b *builder) addVec2Accessor(values []model.Vec2) int {
	var buf bytes.Buffer
	for _, v := range values {
		binary.Write(&buf, binary.LittleEndian, v.X)
		binary.Write(&buf, binary.LittleEndian, v.Y)
	}
	view := b.appendBufferView(buf.Bytes(), targetArrayBuffer)
	b.doc.Accessors = append(b.doc.Accessors, accessorDoc{
		BufferView: view, ComponentType: componentFloat, Count: len(values), Type: "VEC2",
	})
	return len(b.doc.Accessors) - 1
}

// addColorAccessor emits packed 0xAABBGGRR-style uint32 colors as a
// normalized unsigned-byte VEC4, the same byte order the colors are
// already packed in.
func (b *builder) addColorAccessor(values []uint32) int {
	var buf bytes.Buffer
	for _, c := range values {
		binary.Write(&buf, binary.LittleEndian, c)
	}
	view := b.appendBufferView(buf.Bytes(), targetArrayBuffer)
	b.doc.Accessors = append(b.doc.Accessors, accessorDoc{
		BufferView: view, ComponentType: componentUnsignedByte, Normalized: true,
		Count: len(values), Type: "VEC4",
	})
	return len(b.doc.Accessors) - 1
}

// addTangentAccessor packs each tangent as a vec4, with w carrying the
// bitangent handedness sign (+1 if the stored bitangent agrees with
// normal × tangent, else -1).
func (b *builder) addTangentAccessor(tangents, bitangents, normals []model.Vec3) int {
	var buf bytes.Buffer
	for i, t := range tangents {
		sign := float32(1)
		if i < len(bitangents) && i < len(normals) {
			expected := normals[i].Cross(t)
			if expected.Dot(bitangents[i]) < 0 {
				sign = -1
			}
		}
		binary.Write(&buf, binary.LittleEndian, t.X)
		binary.Write(&buf, binary.LittleEndian, t.Y)
		binary.Write(&buf, binary.LittleEndian, t.Z)
		binary.Write(&buf, binary.LittleEndian, sign)
	}
	view := b.appendBufferView(buf.Bytes(), targetArrayBuffer)
	b.doc.Accessors = append(b.doc.Accessors, accessorDoc{
		BufferView: view, ComponentType: componentFloat, Count: len(tangents), Type: "VEC4",
	})
	return len(b.doc.Accessors) - 1
}

func (b *builder) addIndexAccessor(indices []uint16) int {
	var buf bytes.Buffer
	for _, idx := range indices {
		binary.Write(&buf, binary.LittleEndian, idx)
	}
	view := b.appendBufferView(buf.Bytes(), targetElementArrayBuffer)
	b.doc.Accessors = append(b.doc.Accessors, accessorDoc{
		BufferView: view, ComponentType: componentUnsignedShort, Count: len(indices), Type: "SCALAR",
	})
	return len(b.doc.Accessors) - 1
}

// pack wraps the accumulated JSON document and binary buffer into the
// 3-chunk GLB container: a 12-byte header, a JSON chunk (space-padded to
// 4 bytes), and a BIN chunk (zero-padded to 4 bytes).
func (b *builder) pack() ([]byte, error) {
	jsonBytes, err := json.Marshal(b.doc)
	if err != nil {
		return nil, fmt.Errorf("gltf: marshal document: %w", err)
	}
	if pad := (4 - len(jsonBytes)%4) % 4; pad > 0 {
		jsonBytes = append(jsonBytes, bytes.Repeat([]byte{' '}, pad)...)
	}

	binBytes := b.bin.Bytes()
	if pad := (4 - len(binBytes)%4) % 4; pad > 0 {
		binBytes = append(binBytes, make([]byte, pad)...)
	}

	total := 12 + 8 + len(jsonBytes) + 8 + len(binBytes)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(glbMagic))
	binary.Write(&out, binary.LittleEndian, uint32(glbVersion))
	binary.Write(&out, binary.LittleEndian, uint32(total))

	binary.Write(&out, binary.LittleEndian, uint32(len(jsonBytes)))
	binary.Write(&out, binary.LittleEndian, uint32(chunkJSON))
	out.Write(jsonBytes)

	binary.Write(&out, binary.LittleEndian, uint32(len(binBytes)))
	binary.Write(&out, binary.LittleEndian, uint32(chunkBIN))
	out.Write(binBytes)

	return out.Bytes(), nil
}
