// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vertex decompresses a segment's vertex buffers into a
// model.VertexBlock, choosing among alternative compression levels and
// applying the per-platform bit-packing schemes the source uses.
package vertex

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ucfb-tools/unmunge/internal/model"
	"github.com/ucfb-tools/unmunge/internal/platform"
)

// Box is a segment's declared position range, used to de-normalize
// compressed i16 positions back into model space.
type Box = model.AABB

const headerSize = 8

// parseHeader splits a raw buffer into its flags, vertex count, and
// vertex data body.
func parseHeader(buf []byte) (flags Flags, count int, body []byte, err error) {
	if len(buf) < headerSize {
		return 0, 0, nil, fmt.Errorf("vertex: buffer shorter than header (%d bytes)", len(buf))
	}
	flags = Flags(binary.LittleEndian.Uint32(buf[0:4]))
	count = int(binary.LittleEndian.Uint32(buf[4:8]))
	return flags, count, buf[headerSize:], nil
}

// cursor is a minimal little-endian reader over a vertex buffer's body;
// decode never needs chunk.Reader's chunk-boundary bookkeeping, only
// sequential fixed-size reads.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) take(n int) ([]byte, error) {
	if c.pos+n > len(c.data) {
		return nil, fmt.Errorf("vertex: buffer truncated at offset %d reading %d bytes", c.pos, n)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) u8() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) i16() (int16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) f32() (float32, error) {
	v, err := c.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Decode selects the best of buffers and decompresses it into a
// model.VertexBlock using box for position de-normalization and plat to
// pick the platform-specific normal/weight bit-packing.
func Decode(buffers [][]byte, box Box, plat platform.Platform) (model.VertexBlock, error) {
	var vb model.VertexBlock

	raw, err := SelectBuffer(buffers)
	if err != nil {
		return vb, err
	}
	flags, count, body, err := parseHeader(raw)
	if err != nil {
		return vb, err
	}
	if unknown := uint32(flags) &^ uint32(knownFlags); unknown != 0 {
		return vb, &ErrUnknownVbufFlags{Flags: uint32(flags)}
	}

	if flags&FlagPosition != 0 {
		vb.Positions = make([]model.Vec3, 0, count)
	}
	if flags&FlagBoneIndices != 0 {
		vb.BoneIndices = make([][3]uint8, 0, count)
	}
	if flags&FlagBoneWeights != 0 {
		vb.BoneWeights = make([][3]float32, 0, count)
	}
	if flags&FlagNormal != 0 {
		vb.Normals = make([]model.Vec3, 0, count)
	}
	if flags&FlagTangents != 0 {
		vb.Tangents = make([]model.Vec3, 0, count)
		vb.Bitangents = make([]model.Vec3, 0, count)
	}
	if flags&(FlagColor|FlagStaticLightingColor) != 0 {
		vb.Colors = make([]uint32, 0, count)
	}
	if flags&FlagTexcoord != 0 {
		vb.Texcoords = make([]model.Vec2, 0, count)
	}
	vb.StaticLighting = flags&FlagStaticLightingColor != 0

	cur := &cursor{data: body}

	for i := 0; i < count; i++ {
		if flags&FlagPosition != 0 {
			p, err := decodePosition(cur, box)
			if err != nil {
				return vb, err
			}
			vb.Positions = append(vb.Positions, p)
		}
		if flags&FlagBoneIndices != 0 {
			bi, err := decodeBoneIndices(cur)
			if err != nil {
				return vb, err
			}
			vb.BoneIndices = append(vb.BoneIndices, bi)
		}
		if flags&FlagBoneWeights != 0 {
			w, err := decodeBoneWeights(cur, plat, flags&FlagBoneWeightsCompressed != 0)
			if err != nil {
				return vb, err
			}
			vb.BoneWeights = append(vb.BoneWeights, w)
		}
		var normal model.Vec3
		if flags&FlagNormal != 0 {
			normal, err = decodeNormal(cur, plat, flags&FlagNormalCompressed != 0)
			if err != nil {
				return vb, err
			}
			vb.Normals = append(vb.Normals, normal)
		}
		if flags&FlagTangents != 0 {
			tangent, err := decodeVec3(cur)
			if err != nil {
				return vb, err
			}
			vb.Tangents = append(vb.Tangents, tangent)
			vb.Bitangents = append(vb.Bitangents, normal.Cross(tangent))
		}
		if flags&FlagColor != 0 {
			u, err := cur.u32()
			if err != nil {
				return vb, err
			}
			vb.Colors = append(vb.Colors, u)
		} else if flags&FlagStaticLightingColor != 0 {
			u, err := cur.u32()
			if err != nil {
				return vb, err
			}
			vb.Colors = append(vb.Colors, u)
		}
		if flags&FlagTexcoord != 0 {
			uv, err := decodeTexcoord(cur)
			if err != nil {
				return vb, err
			}
			vb.Texcoords = append(vb.Texcoords, uv)
		}
	}

	return vb, nil
}

// decodePosition reads a compressed i16x3 position and maps it linearly
// from [INT16_MIN, INT16_MAX] into [box.Min, box.Max].
func decodePosition(c *cursor, box Box) (model.Vec3, error) {
	x, err := c.i16()
	if err != nil {
		return model.Vec3{}, err
	}
	y, err := c.i16()
	if err != nil {
		return model.Vec3{}, err
	}
	z, err := c.i16()
	if err != nil {
		return model.Vec3{}, err
	}
	const lo, hi = -32768.0, 32767.0
	lerp := func(v int16, min, max float32) float32 {
		t := (float32(v) - lo) / (hi - lo)
		return min + t*(max-min)
	}
	return model.Vec3{
		X: lerp(x, box.Min.X, box.Max.X),
		Y: lerp(y, box.Min.Y, box.Max.Y),
		Z: lerp(z, box.Min.Z, box.Max.Z),
	}, nil
}

func decodeVec3(c *cursor) (model.Vec3, error) {
	x, err := c.f32()
	if err != nil {
		return model.Vec3{}, err
	}
	y, err := c.f32()
	if err != nil {
		return model.Vec3{}, err
	}
	z, err := c.f32()
	if err != nil {
		return model.Vec3{}, err
	}
	return model.Vec3{X: x, Y: y, Z: z}, nil
}

func decodeBoneIndices(c *cursor) ([3]uint8, error) {
	var out [3]uint8
	for i := range out {
		b, err := c.u8()
		if err != nil {
			return out, err
		}
		out[i] = b
	}
	return out, nil
}

// decodeBoneWeights reads either three raw float32 weights, or a
// compressed encoding (unorm8 channels, reconstructing the third weight
// as 1-x-y so the triple always sums to one).
func decodeBoneWeights(c *cursor, plat platform.Platform, compressed bool) ([3]float32, error) {
	if !compressed {
		x, err := c.f32()
		if err != nil {
			return [3]float32{}, err
		}
		y, err := c.f32()
		if err != nil {
			return [3]float32{}, err
		}
		z, err := c.f32()
		if err != nil {
			return [3]float32{}, err
		}
		return [3]float32{x, y, z}, nil
	}

	unorm8 := func() (float32, error) {
		b, err := c.u8()
		if err != nil {
			return 0, err
		}
		return float32(b) / 255, nil
	}

	var x, y float32
	var err error
	if plat == platform.Xbox {
		x, err = unorm8()
		if err != nil {
			return [3]float32{}, err
		}
		y, err = unorm8()
		if err != nil {
			return [3]float32{}, err
		}
	} else {
		// PC packs the unorm8x4 as (byte0, byte1, byte2, byte3) and keeps
		// only byte2/byte1 as x/y, discarding byte0 and byte3.
		if _, err := c.take(1); err != nil {
			return [3]float32{}, err
		}
		y, err = unorm8()
		if err != nil {
			return [3]float32{}, err
		}
		x, err = unorm8()
		if err != nil {
			return [3]float32{}, err
		}
		if _, err := c.take(1); err != nil {
			return [3]float32{}, err
		}
	}
	return [3]float32{x, y, 1 - x - y}, nil
}

// decodeNormal reads either three raw float32 components, or a
// compressed per-platform packed encoding.
func decodeNormal(c *cursor, plat platform.Platform, compressed bool) (model.Vec3, error) {
	if !compressed {
		return decodeVec3(c)
	}
	if plat == platform.Xbox {
		return decodeNormalXbox(c)
	}
	return decodeNormalPC(c)
}

// decodeNormalPC reads a packed unorm8x4 and maps each channel from
// [0, 255] to [-1, 1], reordering components w,z,y,x -> x,y,z as the
// source's packed layout stores them back to front.
func decodeNormalPC(c *cursor) (model.Vec3, error) {
	raw, err := c.take(4)
	if err != nil {
		return model.Vec3{}, err
	}
	toSigned := func(b byte) float32 { return float32(b)/127.5 - 1 }
	return model.Vec3{X: toSigned(raw[2]), Y: toSigned(raw[1]), Z: toSigned(raw[0])}, nil
}

// decodeNormalXbox unpacks a 10/10/10/2-bit signed-component value: X in
// bits 0-9, Y in bits 10-19, Z in bits 20-29, each sign-extended from its
// field width, then divided by 1023 (X/Y) or 511 (Z, only 10 bits but the
// source's constant differs for the high component).
func decodeNormalXbox(c *cursor) (model.Vec3, error) {
	packed, err := c.u32()
	if err != nil {
		return model.Vec3{}, err
	}
	signExtend := func(v uint32, bits int) int32 {
		shift := 32 - bits
		return int32(v<<shift) >> shift
	}
	x := signExtend(packed&0x3ff, 10)
	y := signExtend((packed>>10)&0x3ff, 10)
	z := signExtend((packed>>20)&0x3ff, 10)
	return model.Vec3{
		X: float32(x) / 1023,
		Y: float32(y) / 1023,
		Z: float32(z) / 511,
	}, nil
}

// decodeTexcoord reads a compressed i16x2, each divided by 2048.
func decodeTexcoord(c *cursor) (model.Vec2, error) {
	u, err := c.i16()
	if err != nil {
		return model.Vec2{}, err
	}
	v, err := c.i16()
	if err != nil {
		return model.Vec2{}, err
	}
	return model.Vec2{X: float32(u) / 2048, Y: float32(v) / 2048}, nil
}
