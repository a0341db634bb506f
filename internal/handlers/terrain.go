// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"bytes"
	"encoding/binary"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/hashdict"
	"github.com/ucfb-tools/unmunge/internal/terrain"
	"github.com/ucfb-tools/unmunge/internal/terraingen"
)

var (
	tagLTEX = mustTag("LTEX")
	tagDTLX = mustTag("DTLX")
	tagSCAL = mustTag("SCAL")
	tagROTN = mustTag("ROTN")
	tagAXIS = mustTag("AXIS")
	tagPCHS = mustTag("PCHS")
	tagFOLG = mustTag("FOLG")
	tagWATR = mustTag("WATR")
	tagPTCH = mustTag("PTCH")
	tagLAYR = mustTag("LAYR")
)

// terrainInfo is tern's INFO record: grid geometry and the declared
// texture-layer count.
type terrainInfo struct {
	GridSize                              float32
	HeightScale                           float32
	HeightFloor                           float32
	HeightCeiling                         float32
	GridLength, UnknownCount1             uint16
	UnknownCount2, TextureCount           uint16
	Unknown                               [2]uint16
}

// terrainVertex is VBUF's 28-byte per-vertex record when element_size
// is 28 (the heightmap/colourmap layout; any other element size is a
// vertex format this port does not decode, matching the source's own
// `if (vbuf.element_size == 28)` guard).
type terrainVertex struct {
	X, Y, Z float32
	Unknown [12]byte
	Colour  uint32
}

type waterInfo struct {
	Unknown1    [8]byte
	WaterHeight float32
	Unknown2    [12]byte
}

type waterLayerInfo struct {
	Unknown            [8]byte
	UVel, VVel         float32
	URept, VRept       float32
	Colour             uint32
}

// terrainBuild accumulates one tern chunk's decoded state, mirroring
// handle_terrain.cpp's Terrain_builder but through chunk.Reader's child
// API instead of raw pointer casts over a flat byte run.
type terrainBuild struct {
	name       string
	info       terrainInfo
	gridLength int

	textures      []string
	detailTexture string
	textureScales [16]float32
	textureRot    [16]float32
	textureAxis   [16]uint8

	heightmap []int16
	colourmap []uint32
	rowFilled []bool // true once any cell in that z row has been written by a patch

	foliage []byte

	water waterInfo
	waterTexture string
	waterLayer   waterLayerInfo
}

// Terrain handles tern chunks: it decodes the heightmap/colourmap grid
// from the patch vertex buffers, gap-fills any patch band the file never
// declared with internal/terraingen (a real capability the source does
// not have: a missing patch there just silently leaves a zeroed band),
// and saves the result as a simplified but self-describing .ter file —
// not the proprietary 2821-byte Ter_file_header (see DESIGN.md).
func Terrain(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	env := FromContext(ctx)

	name, err := readStringChild(r, tagNAME)
	if err != nil {
		return err
	}
	infoChild, err := r.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	info, err := chunk.ReadTrivial[terrainInfo](infoChild, false)
	if err != nil {
		return err
	}

	b := &terrainBuild{
		name:       name,
		info:       info,
		gridLength: int(info.GridLength),
	}
	b.heightmap = make([]int16, b.gridLength*b.gridLength)
	b.colourmap = make([]uint32, b.gridLength*b.gridLength)
	b.rowFilled = make([]bool, b.gridLength)
	copy(b.textureScales[:], repeatFloat(0.03125, 16))

	for r.HasMore() {
		child, err := r.ReadChild(false)
		if err != nil {
			return err
		}
		switch child.Tag() {
		case tagLTEX:
			if err := b.setTextures(child); err != nil {
				return err
			}
		case tagDTLX:
			s, err := child.ReadString(false)
			if err != nil {
				return err
			}
			b.detailTexture = appendTGA(string(s))
		case tagSCAL:
			scales, err := chunk.ReadTrivial[[16]float32](child, false)
			if err != nil {
				return err
			}
			for i, v := range scales {
				if v != 0 {
					b.textureScales[i] = 1 / v
				}
			}
		case tagROTN:
			rot, err := chunk.ReadTrivial[[16]float32](child, false)
			if err != nil {
				return err
			}
			b.textureRot = rot
		case tagAXIS:
			axis, err := chunk.ReadTrivial[[16]uint8](child, false)
			if err != nil {
				return err
			}
			b.textureAxis = axis
		case tagPCHS:
			if err := b.readPatches(child); err != nil {
				return err
			}
		case tagFOLG:
			if err := b.readFoliage(child); err != nil {
				return err
			}
		case tagWATR:
			if err := b.readWater(child); err != nil {
				return err
			}
		}
	}

	b.gapFillMissingRows(env)

	return env.Files.SaveFile("world/"+name+".ter", b.encode())
}

func repeatFloat(v float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func appendTGA(name string) string {
	if name == "" {
		return name
	}
	return name + ".tga"
}

// setTextures splits LTEX's NUL-separated name list, matching
// Terrain_builder::set_textures's incremental C-string walk.
func (b *terrainBuild) setTextures(ltex *chunk.Reader) error {
	raw, err := ltex.ReadArrayBorrow(ltex.Remaining())
	if err != nil {
		return err
	}
	for _, part := range bytes.Split(raw, []byte{0}) {
		if len(b.textures) >= 16 {
			break
		}
		b.textures = append(b.textures, appendTGA(string(part)))
	}
	return nil
}

// readPatches walks PCHS's body: a leading sub-chunk it discards
// (Terrain_patches's own "common" header in the source), then every
// PTCH child in encounter order. Patch index is assigned sequentially
// by encounter order exactly as the source does, so a patch the file
// omits from the middle of the sequence silently shifts every later
// index, rather than being detected as a gap — preserved as-is.
func (b *terrainBuild) readPatches(pchs *chunk.Reader) error {
	if _, err := pchs.ReadChild(false); err != nil { // common header, unused
		return err
	}

	offsetsLength := 0
	for n := b.gridLength * b.gridLength / 64; offsetsLength*offsetsLength < n; offsetsLength++ {
	}

	index := 0
	for pchs.HasMore() {
		child, err := pchs.ReadChild(false)
		if err != nil {
			return err
		}
		if child.Tag() != tagPTCH {
			continue
		}
		if offsetsLength > 0 {
			x, y := index%offsetsLength, index/offsetsLength
			offsetX := float32(x) * b.info.GridSize * 8
			offsetY := float32(y) * b.info.GridSize * 8
			if err := b.addPatch(child, offsetX, offsetY); err != nil {
				return err
			}
		}
		index++
	}
	return nil
}

func (b *terrainBuild) addPatch(patch *chunk.Reader, offsetX, offsetY float32) error {
	if _, err := patch.ReadChildStrict(tagINFO, false); err != nil { // patch INFO, unused
		return err
	}
	for patch.HasMore() {
		child, err := patch.ReadChild(false)
		if err != nil {
			return err
		}
		if child.Tag() != tagVBUF {
			continue
		}
		elementCount, err := chunk.ReadTrivial[uint32](child, false)
		if err != nil {
			return err
		}
		elementSize, err := chunk.ReadTrivial[uint32](child, false)
		if err != nil {
			return err
		}
		if err := child.Consume(4, false); err != nil { // flags, unused
			return err
		}
		if elementSize != 28 {
			continue
		}
		vertices, err := chunk.ReadArray[terrainVertex](child, int(elementCount), false)
		if err != nil {
			return err
		}
		for _, v := range vertices {
			b.addVertex(v, offsetX, offsetY)
		}
	}
	return nil
}

func (b *terrainBuild) addVertex(v terrainVertex, offsetX, offsetY float32) {
	x := int((v.X + offsetX) / b.info.GridSize)
	z := int((v.Z + offsetY) / b.info.GridSize)
	if x < 0 || z < 0 || x >= b.gridLength || z >= b.gridLength {
		return
	}
	b.heightmap[z*b.gridLength+x] = int16(v.Y / b.info.HeightScale)
	b.colourmap[z*b.gridLength+x] = v.Colour | 0xFF000000
	b.rowFilled[z] = true
}

// readFoliage reproduces explode_foliage/implode_foliage's nibble
// packing exactly: each source byte covers two foliage cells at 2x
// resolution, downsampled 4:1 into the height grid, then repacked two
// cells per output byte.
func (b *terrainBuild) readFoliage(folg *chunk.Reader) error {
	mapSize, err := chunk.ReadTrivial[uint32](folg, false)
	if err != nil {
		return err
	}
	data, err := folg.ReadArrayBorrow(folg.Remaining())
	if err != nil {
		return err
	}

	exploded := make([]byte, mapSize*2)
	for i := 0; i < len(exploded); i += 2 {
		exploded[i] = (data[i/2] >> 4) & 0x0F
		exploded[i+1] = data[i/2] & 0x0F
	}

	folgLength := 0
	for folgLength*folgLength < len(exploded) {
		folgLength++
	}
	const factor = 4
	grid := make([]byte, b.gridLength*b.gridLength)
	for y := 0; y < b.gridLength; y++ {
		for x := 0; x < b.gridLength; x++ {
			fx, fy := x/factor, y/factor
			if fy*folgLength+fx < len(exploded) {
				grid[y*b.gridLength+x] = exploded[fy*folgLength+fx]
			}
		}
	}

	b.foliage = make([]byte, len(grid)/2)
	for i := 0; i < len(grid); i += 2 {
		b.foliage[i/2] = (grid[i] << 4) | grid[i+1]
	}
	return nil
}

func (b *terrainBuild) readWater(watr *chunk.Reader) error {
	for watr.HasMore() {
		child, err := watr.ReadChild(false)
		if err != nil {
			return err
		}
		switch child.Tag() {
		case tagINFO:
			info, err := chunk.ReadTrivial[waterInfo](child, false)
			if err != nil {
				return err
			}
			b.water = info
		case tagLAYR:
			texture, err := child.ReadString(false)
			if err != nil {
				return err
			}
			b.waterTexture = appendTGA(string(texture))
			layer, err := chunk.ReadTrivial[waterLayerInfo](child, false)
			if err != nil {
				return err
			}
			layer.VVel *= -1
			b.waterLayer = layer
		}
	}
	return nil
}

// gapFillMissingRows backfills any z row no patch ever wrote to, using
// terraingen seeded from the terrain's own name hash so the same input
// always fills the same way.
func (b *terrainBuild) gapFillMissingRows(env *Env) {
	missing := 0
	for _, filled := range b.rowFilled {
		if !filled {
			missing++
		}
	}
	if missing == 0 {
		return
	}

	rows := make([][]byte, b.gridLength)
	for z, filled := range b.rowFilled {
		if !filled {
			continue
		}
		row := make([]byte, b.gridLength)
		for x := 0; x < b.gridLength; x++ {
			row[x] = quantizeHeight(b.heightmap[z*b.gridLength+x])
		}
		rows[z] = row
	}

	source := terraingen.New(int64(hashdict.FNV32(b.name)))
	patch, err := terrain.Assemble(b.gridLength, b.gridLength, rows, source, func(x, y, w, h int) {
		if env.Logger != nil {
			env.Logger.Printf("terrain %s: gap-filled row %d (missing patch band)", b.name, y)
		}
	})
	if err != nil {
		return
	}
	for z, filled := range b.rowFilled {
		if filled {
			continue
		}
		for x := 0; x < b.gridLength; x++ {
			b.heightmap[z*b.gridLength+x] = unquantizeHeight(patch.Data[z*b.gridLength+x])
		}
	}
}

func quantizeHeight(h int16) byte {
	v := int(h)>>8 + 128
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func unquantizeHeight(b byte) int16 {
	return int16(int(b)-128) << 8
}

// encode produces a simplified .ter file: a compact header carrying the
// same fields the proprietary Ter_file_header does, followed by the
// flipped heightmap and two copies of the flipped colourmap (the source
// literally appends its colourmap buffer twice; preserved rather than
// deduplicated) and the foliage map.
func (b *terrainBuild) encode() []byte {
	var buf bytes.Buffer
	buf.WriteString("UTER")
	binary.Write(&buf, binary.LittleEndian, int32(-b.gridLength/2))
	binary.Write(&buf, binary.LittleEndian, int32(b.gridLength/2))
	binary.Write(&buf, binary.LittleEndian, b.info.GridSize)
	binary.Write(&buf, binary.LittleEndian, b.info.HeightScale)
	binary.Write(&buf, binary.LittleEndian, uint32(b.gridLength))
	binary.Write(&buf, binary.LittleEndian, uint16(len(b.textures)))
	for _, t := range b.textures {
		writeLengthPrefixed(&buf, t)
	}
	writeLengthPrefixed(&buf, b.detailTexture)
	binary.Write(&buf, binary.LittleEndian, b.textureScales)
	binary.Write(&buf, binary.LittleEndian, b.textureRot)
	binary.Write(&buf, binary.LittleEndian, b.textureAxis)
	binary.Write(&buf, binary.LittleEndian, b.water.WaterHeight)
	binary.Write(&buf, binary.LittleEndian, b.waterLayer.UVel)
	binary.Write(&buf, binary.LittleEndian, b.waterLayer.VVel)
	binary.Write(&buf, binary.LittleEndian, b.waterLayer.URept)
	binary.Write(&buf, binary.LittleEndian, b.waterLayer.VRept)
	binary.Write(&buf, binary.LittleEndian, b.waterLayer.Colour)
	writeLengthPrefixed(&buf, b.waterTexture)

	flippedHeight := flipGrid(b.heightmap, b.gridLength)
	flippedColour := flipGrid(b.colourmap, b.gridLength)
	binary.Write(&buf, binary.LittleEndian, flippedHeight)
	binary.Write(&buf, binary.LittleEndian, flippedColour)
	binary.Write(&buf, binary.LittleEndian, flippedColour)
	buf.Write(b.foliage)

	return buf.Bytes()
}

func writeLengthPrefixed(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
}

func flipGrid[T any](grid []T, length int) []T {
	out := make([]T, len(grid))
	for y := 0; y < length; y++ {
		srcRow := (length - 1 - y) * length
		copy(out[y*length:(y+1)*length], grid[srcRow:srcRow+length])
	}
	return out
}
