// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/model"
	"github.com/ucfb-tools/unmunge/internal/platform"
)

// ps2SegmentInfo is PS2's two-field segm_ INFO: no topology ordinal,
// since PS2 segments are always a restart-bit-encoded triangle strip.
type ps2SegmentInfo struct {
	VertexCount    uint32
	PrimitiveCount uint32
}

// processSegmentPS2 reads a PS2 segm_ child, whose vertex attributes
// arrive as separate raw arrays (POSI/NORM/TEX0/COL0/BONE) rather than
// PC/Xbox's packed VBUF blob, each using its own fixed-point encoding.
func processSegmentPS2(segment *chunk.Reader, info modelInfo, lod model.Lod, gameVersion platform.GameVersion) (model.Part, error) {
	part := model.Part{Lod: lod, Geometry: model.Geometry{Topology: model.TriangleStripPS2}}

	infoChild, err := segment.ReadChildStrict(tagINFO, false)
	if err != nil {
		return part, err
	}
	segInfo, err := chunk.ReadTrivial[ps2SegmentInfo](infoChild, false)
	if err != nil {
		return part, err
	}
	vertexCount := int(segInfo.VertexCount)

	var vb model.VertexBlock
	for segment.HasMore() {
		child, err := segment.ReadChild(false)
		if err != nil {
			return part, err
		}
		switch child.Tag() {
		case tagMTRL:
			if err := readMaterial(child, &part.Material); err != nil {
				return part, err
			}
		case tagRTYP:
			ordinal, err := chunk.ReadTrivial[uint32](child, false)
			if err != nil {
				return part, err
			}
			// PS2's RTYP is the raw per-version render-type ordinal this
			// port resolves with model.ParseRenderType; an unrecognized
			// ordinal leaves the material's render type unchanged rather
			// than failing the whole segment.
			if rt, err := model.ParseRenderType(gameVersion, uint8(ordinal)); err == nil {
				part.Material.RenderType = rt
			}
		case tagMNAM:
			name, err := child.ReadString(false)
			if err != nil {
				return part, err
			}
			part.Material.Name = string(name)
		case tagTNAM:
			if err := readTextureName(child, &part.Material); err != nil {
				return part, err
			}
		case tagSTRP:
			indices, err := chunk.ReadArray[uint16](child, int(segInfo.PrimitiveCount), false)
			if err != nil {
				return part, err
			}
			part.Geometry.Indices = indices
		case tagPOSI:
			positions, err := readPS2Positions(child, vertexCount, info.VertexBox)
			if err != nil {
				return part, err
			}
			vb.Positions = positions
		case tagNORM:
			normals, err := readPS2Normals(child, vertexCount)
			if err != nil {
				return part, err
			}
			vb.Normals = normals
		case tagTEX0:
			uvs, err := readPS2Texcoords(child, vertexCount)
			if err != nil {
				return part, err
			}
			vb.Texcoords = uvs
		case tagCOL0:
			colors, err := readPS2Colors(child, vertexCount)
			if err != nil {
				return part, err
			}
			vb.Colors = colors
		case tagBMAP:
			boneMap, err := readBoneMap(child)
			if err != nil {
				return part, err
			}
			part.Geometry.BoneMap = boneMap
			vb.Pretransformed = true
		case tagBONE:
			boneIndices, err := readPS2Skin(child, vertexCount)
			if err != nil {
				return part, err
			}
			vb.BoneIndices = boneIndices
		case tagBNAM:
			name, err := child.ReadString(false)
			if err != nil {
				return part, err
			}
			part.Parent = string(name)
		}
	}

	part.Geometry.Vertices = vb
	return part, nil
}

func readPS2Positions(posi *chunk.Reader, count int, box model.AABB) ([]model.Vec3, error) {
	raw, err := chunk.ReadArray[[3]uint16](posi, count, false)
	if err != nil {
		return nil, err
	}
	out := make([]model.Vec3, count)
	lerp := func(v uint16, min, max float32) float32 {
		t := float32(v) / 65535
		return min + t*(max-min)
	}
	for i, p := range raw {
		out[i] = model.Vec3{
			X: lerp(p[0], box.Min.X, box.Max.X),
			Y: lerp(p[1], box.Min.Y, box.Max.Y),
			Z: lerp(p[2], box.Min.Z, box.Max.Z),
		}
	}
	return out, nil
}

func readPS2Normals(norm *chunk.Reader, count int) ([]model.Vec3, error) {
	raw, err := chunk.ReadArray[[3]int8](norm, count, false)
	if err != nil {
		return nil, err
	}
	out := make([]model.Vec3, count)
	for i, n := range raw {
		out[i] = model.Vec3{X: float32(n[0]) / 127, Y: float32(n[1]) / 127, Z: float32(n[2]) / 127}
	}
	return out, nil
}

func readPS2Texcoords(tex0 *chunk.Reader, count int) ([]model.Vec2, error) {
	raw, err := chunk.ReadArray[[2]int16](tex0, count, false)
	if err != nil {
		return nil, err
	}
	out := make([]model.Vec2, count)
	for i, uv := range raw {
		out[i] = model.Vec2{X: float32(uv[0]) / 2048, Y: float32(uv[1]) / 2048}
	}
	return out, nil
}

func readPS2Colors(col0 *chunk.Reader, count int) ([]uint32, error) {
	return chunk.ReadArray[uint32](col0, count, false)
}

// readPS2Skin reads PS2's "hardskin" single-bone-index-per-vertex
// buffer, replicating it across all three slots of BoneIndices the way
// the source's glm::u8vec3{hardskin[i]} splat constructor does, since
// every PS2 vertex is rigidly bound to exactly one bone.
func readPS2Skin(bone *chunk.Reader, count int) ([][3]uint8, error) {
	raw, err := chunk.ReadArray[uint8](bone, count, false)
	if err != nil {
		return nil, err
	}
	out := make([][3]uint8, count)
	for i, b := range raw {
		out[i] = [3]uint8{b, b, b}
	}
	return out, nil
}
