// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"fmt"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/model"
	"github.com/ucfb-tools/unmunge/internal/platform"
	"github.com/ucfb-tools/unmunge/internal/vertex"
)

// modelInfo is the part of modl_'s INFO child this port actually uses: a
// vertex bounding box for decompressing positions. handle_model.cpp's
// Model_info additionally carries a visibility box and face count that
// exist only to presize buffers the Go port doesn't need to presize.
type modelInfo struct {
	VertexBox model.AABB
}

// readModelInfo parses INFO, whose leading padding is three int32s on
// SWBF1 and four on SWBFII, distinguished by the child's declared size
// (68 vs 72 bytes) rather than by the caller's known game version, the
// same size-sniffing handle_model.cpp itself uses.
func readModelInfo(info *chunk.Reader) (modelInfo, error) {
	leadingInts := 3
	if info.Size() == 72 {
		leadingInts = 4
	}
	if err := info.Consume(leadingInts*4, false); err != nil {
		return modelInfo{}, err
	}
	box, err := chunk.ReadArray[model.Vec3](info, 2, false)
	if err != nil {
		return modelInfo{}, err
	}
	// Visibility box, an unknown int, and the face count follow but are
	// not needed: Geometry's index/vertex counts are derived directly
	// from IBUF/VBUF instead of being presized from this field.
	return modelInfo{VertexBox: model.AABB{Min: box[0], Max: box[1]}}, nil
}

// Model handles modl_ chunks across all three platform dialects. The
// source splits this into handle_model/handle_model_xbox/handle_model_ps2;
// since internal/vertex.Decode already branches on platform for its
// compressed attribute layouts, this port keeps one handler and branches
// once, on ctx.Platform: PS2 segments are read as raw attribute chunks,
// PC/Xbox segments as VBUF blobs.
func Model(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	env := FromContext(ctx)

	nameChild, err := r.ReadChildStrict(tagNAME, false)
	if err != nil {
		return err
	}
	rawName, err := nameChild.ReadString(false)
	if err != nil {
		return err
	}
	base, lod := model.ParseModelName(string(rawName))

	if _, _, err := r.ReadChildOpt(tagVRTX, false); err != nil {
		return err
	}
	if _, err := r.ReadChildStrict(tagNODE, false); err != nil {
		return err
	}
	infoChild, err := r.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	info, err := readModelInfo(infoChild)
	if err != nil {
		return err
	}

	var parts []model.Part
	for idx := 0; r.HasMore(); idx++ {
		child, err := r.ReadChild(false)
		if err != nil {
			return err
		}
		if child.Tag() != tagSEGM {
			continue
		}
		var part model.Part
		if ctx.Platform == platform.PS2 {
			part, err = processSegmentPS2(child, info, lod, ctx.GameVersion)
		} else {
			part, err = processSegmentPCXbox(child, info, lod, ctx.Platform)
		}
		if err != nil {
			return fmt.Errorf("model %s segment %d: %w", base, idx, err)
		}
		part.Name = fmt.Sprintf("%s_segm%d", base, idx)
		parts = append(parts, part)
	}

	env.Builder.Integrate(model.Model{Name: base, Parts: parts})
	return nil
}

// processSegmentPCXbox reads one segm_ child laid out as PC/Xbox store
// it: a topology-bearing INFO, loose metadata children, an explicit index
// buffer, and one or more alternative VBUF attribute blobs decoded
// together by internal/vertex once the segment is fully read.
func processSegmentPCXbox(segment *chunk.Reader, info modelInfo, lod model.Lod, plat platform.Platform) (model.Part, error) {
	part := model.Part{Lod: lod}
	var vbufs [][]byte

	for segment.HasMore() {
		child, err := segment.ReadChild(false)
		if err != nil {
			return part, err
		}
		switch child.Tag() {
		case tagINFO:
			topology, err := readSegmentTopology(child, plat)
			if err != nil {
				return part, err
			}
			part.Geometry.Topology = topology
		case tagMTRL:
			if err := readMaterial(child, &part.Material); err != nil {
				return part, err
			}
		case tagRTYP:
			if err := readRenderTypeString(child, &part.Material); err != nil {
				return part, err
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
		case tagIBUF:
			indices, err := readIndexBuffer(child)
			if err != nil {
				return part, err
			}
			part.Geometry.Indices = indices
		case tagVBUF:
			raw, err := child.ReadArrayBorrow(child.Remaining())
			if err != nil {
				return part, err
			}
			vbufs = append(vbufs, raw)
		case tagBNAM:
			name, err := child.ReadString(false)
			if err != nil {
				return part, err
			}
			part.Parent = string(name)
		case tagBMAP:
			boneMap, err := readBoneMap(child)
			if err != nil {
				return part, err
			}
			part.Geometry.BoneMap = boneMap
		}
	}

	vb, err := vertex.Decode(vbufs, info.VertexBox, plat)
	if err != nil {
		return part, err
	}
	part.Geometry.Vertices = vb
	return part, nil
}

// segmentTopologyPC and segmentTopologyXbox mirror model_info.hpp's
// Primitive_topology_d3d/_xbox ordinal tables, letting a wire ordinal be
// translated to model.Topology without casting across unrelated enums.
var segmentTopologyPC = map[uint32]model.Topology{
	1: model.PointList,
	2: model.LineList,
	3: model.LineStrip,
	4: model.TriangleList,
	5: model.TriangleStrip,
	6: model.TriangleFan,
}

var segmentTopologyXbox = map[uint32]model.Topology{
	1: model.PointList,
	2: model.LineList,
	3: model.LineLoop,
	4: model.LineStrip,
	5: model.TriangleList,
	6: model.TriangleStrip,
	7: model.TriangleFan,
}

func readSegmentTopology(info *chunk.Reader, plat platform.Platform) (model.Topology, error) {
	ordinal, err := chunk.ReadTrivial[uint32](info, false)
	if err != nil {
		return model.TopologyInvalid, err
	}
	if _, err := chunk.ReadTrivial[uint32](info, false); err != nil { // vertex_count, unused here
		return model.TopologyInvalid, err
	}
	if _, err := chunk.ReadTrivial[uint32](info, false); err != nil { // primitive_count, unused here
		return model.TopologyInvalid, err
	}
	table := segmentTopologyPC
	if plat == platform.Xbox {
		table = segmentTopologyXbox
	}
	topology, ok := table[ordinal]
	if !ok {
		return model.TopologyInvalid, fmt.Errorf("handlers: segment info has unknown primitive topology ordinal %d", ordinal)
	}
	return topology, nil
}

func readIndexBuffer(ibuf *chunk.Reader) ([]uint16, error) {
	count, err := chunk.ReadTrivial[uint32](ibuf, false)
	if err != nil {
		return nil, err
	}
	return chunk.ReadArray[uint16](ibuf, int(count), false)
}

func readBoneMap(bmap *chunk.Reader) (model.BoneMap, error) {
	count, err := chunk.ReadTrivial[uint32](bmap, false)
	if err != nil {
		return nil, err
	}
	raw, err := chunk.ReadArray[uint8](bmap, int(count), false)
	if err != nil {
		return nil, err
	}
	out := make(model.BoneMap, len(raw))
	for i, b := range raw {
		out[i] = int32(b)
	}
	return out, nil
}

func readTextureName(tnam *chunk.Reader, material *model.Material) error {
	index, err := chunk.ReadTrivial[uint32](tnam, false)
	if err != nil {
		return err
	}
	name, err := tnam.ReadString(false)
	if err != nil {
		return err
	}
	if int(index) < len(material.Textures) {
		material.Textures[index] = string(name)
	}
	return nil
}

// readRenderTypeString handles PC/Xbox's RTYP, a literal string naming a
// shading mode, unlike PS2's numeric ordinal handled inline in
// processSegmentPS2 via model.ParseRenderType.
func readRenderTypeString(rtyp *chunk.Reader, material *model.Material) error {
	s, err := rtyp.ReadString(false)
	if err != nil {
		return err
	}
	switch string(s) {
	case "Bump":
		material.RenderType = model.RenderBump
	case "Refraction", "Water":
		// No corresponding RenderType exists yet; left at whatever MTRL
		// already established rather than guessing a mapping.
	}
	return nil
}

// materialInfo is MTRL's 24-byte fixed header on the size-based "swbfii
// style" path; a trailing NUL-terminated attached-light name follows it
// but isn't modeled since model.Material has nowhere to keep it.
type materialInfo struct {
	Flags            uint32
	DiffuseColour    uint32
	SpecularColour   uint32
	SpecularExponent uint32
	Params           [2]uint32
}

const (
	materialFlagHardEdged   = 1 << 1
	materialFlagTransparent = 1 << 2
	materialFlagGlow        = 1 << 4
	materialFlagBumpmap     = 1 << 5
	materialFlagAdditive    = 1 << 6
	materialFlagSpecular    = 1 << 7
	materialFlagEnvMap      = 1 << 8
	materialFlagDoubleSided = 1 << 16
	materialFlagScrolling   = 1 << 24
)

// readMaterial dispatches to the size-appropriate MTRL layout: a chunk
// shorter than materialInfo's 24 bytes is SWBF1's variable-length,
// flag-driven record; anything else is SWBFII's fixed header plus a
// trailing string.
func readMaterial(mtrl *chunk.Reader, out *model.Material) error {
	if mtrl.Size() < 24 {
		return readMaterialSWBF1(mtrl, out)
	}

	info, err := chunk.ReadTrivial[materialInfo](mtrl, false)
	if err != nil {
		return err
	}
	if _, err := mtrl.ReadString(false); err != nil { // attached-light name, unused
		return err
	}

	out.Diffuse = unpackColorRGB(info.DiffuseColour)
	out.Specular = unpackColorRGB(info.SpecularColour)
	out.SpecularExponent = float32(info.SpecularExponent)
	out.Params = [2]int8{int8(info.Params[0]), int8(info.Params[1])}

	if info.Flags&materialFlagHardEdged != 0 {
		out.Flags |= model.MaterialHardEdged
	}
	if info.Flags&materialFlagTransparent != 0 && info.Flags&materialFlagDoubleSided == 0 {
		out.Flags |= model.MaterialTransparent
	}
	if info.Flags&materialFlagGlow != 0 {
		out.Flags |= model.MaterialGlow
	}
	if info.Flags&materialFlagAdditive != 0 {
		out.Flags |= model.MaterialAdditive
	}
	if info.Flags&materialFlagSpecular != 0 {
		out.Flags |= model.MaterialSpecular
	}
	if info.Flags&materialFlagDoubleSided != 0 {
		out.Flags |= model.MaterialDoubleSided
	}
	switch {
	case info.Flags&materialFlagBumpmap != 0:
		out.RenderType = model.RenderBump
	case info.Flags&materialFlagEnvMap != 0:
		out.RenderType = model.RenderEnvMap
	case info.Flags&materialFlagScrolling != 0:
		out.RenderType = model.RenderScrolling
	}
	return nil
}

// readMaterialSWBF1 reads the shorter, flag-driven SWBF1 MTRL record:
// every optional trailing field is present only if its bit is set in the
// leading flags word, so each read is conditional.
func readMaterialSWBF1(mtrl *chunk.Reader, out *model.Material) error {
	const (
		flagHardEdged   = 1 << 1
		flagTransparent = 1 << 2
		flagSpecular    = 48
		flagAdditive    = 1 << 7
		flagGlow        = 1 << 8
		flagDetail      = 1 << 9
		flagScroll      = 1 << 10
	)
	flags, err := chunk.ReadTrivial[uint32](mtrl, false)
	if err != nil {
		return err
	}
	if flags&flagHardEdged != 0 {
		out.Flags |= model.MaterialHardEdged
	}
	if flags&flagTransparent != 0 {
		out.Flags |= model.MaterialTransparent
	}
	if flags&flagSpecular == flagSpecular {
		out.RenderType = model.RenderSpecular
		out.Flags |= model.MaterialSpecular
		exponent, err := chunk.ReadTrivial[int32](mtrl, false)
		if err != nil {
			return err
		}
		out.SpecularExponent = float32(exponent)
		color, err := chunk.ReadTrivial[uint32](mtrl, false)
		if err != nil {
			return err
		}
		out.Specular = unpackColorRGB(color)
	}
	if flags&flagAdditive != 0 {
		out.Flags |= model.MaterialAdditive
	}
	if flags&flagGlow != 0 {
		out.Flags |= model.MaterialGlow
	}
	if flags&flagDetail != 0 {
		// Two signed-float detail-scale params; not modeled beyond being
		// consumed, since model.Material.Params is already [2]int8 sized
		// for the SWBFII encoding rather than this one.
		if err := mtrl.Consume(8, false); err != nil {
			return err
		}
	}
	if flags&flagScroll != 0 {
		out.RenderType = model.RenderScrolling
		if err := mtrl.Consume(8, false); err != nil {
			return err
		}
	}
	return nil
}

// unpackColorRGB unpacks a little-endian packed 4x8 color into
// normalized RGB, dropping the alpha/unused high byte.
func unpackColorRGB(packed uint32) [3]float32 {
	return [3]float32{
		float32(byte(packed>>16)) / 255,
		float32(byte(packed>>8)) / 255,
		float32(byte(packed)) / 255,
	}
}
