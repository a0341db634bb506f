// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"encoding/binary"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/imagefmt"
)

var (
	tagFMT  = mustTag("FMT_")
	tagFACE = mustTag("FACE")
	tagLVL  = mustTag("LVL_")
)

// textureFormatInfo is FMT_'s 16-byte INFO record naming the pixel
// format and top-level mip dimensions.
type textureFormatInfo struct {
	D3DFormat    uint32
	Width        uint16
	Height       uint16
	Unknown      uint16
	MipmapCount  uint16
	Unknown1     uint32
}

// D3DFMT ordinals this port can turn into actual pixels, rather than an
// opaque raw dump. Compressed (DXT/BC) formats are read but never
// decompressed: decompression is out of scope, so they always fall back
// to a reconstructed raw .dds.
const (
	d3dfmtA8R8G8B8 = 21
	d3dfmtX8R8G8B8 = 22
	d3dfmtA8B8G8R8 = 32
	d3dfmtX8B8G8R8 = 33
)

// Texture handles tex_ chunks: the source reads every FMT_/FACE/LVL_
// alternative the container offers and keeps only the first of each,
// reasoning that the highest-quality variant is listed first; this port
// does the same rather than attempting to pick among compression levels.
func Texture(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	name, err := readStringChild(r, tagNAME)
	if err != nil {
		return err
	}
	if _, err := r.ReadChildStrict(tagINFO, false); err != nil { // format count array, unused
		return err
	}
	fmtChild, err := r.ReadChildStrict(tagFMT, false)
	if err != nil {
		return err
	}

	infoChild, err := fmtChild.ReadChildStrict(tagINFO, false)
	if err != nil {
		return err
	}
	info, err := chunk.ReadTrivial[textureFormatInfo](infoChild, false)
	if err != nil {
		return err
	}

	faceChild, err := fmtChild.ReadChildStrict(tagFACE, false)
	if err != nil {
		return err
	}
	lvlChild, err := faceChild.ReadChildStrict(tagLVL, false)
	if err != nil {
		return err
	}
	if _, err := lvlChild.ReadChildStrict(tagINFO, false); err != nil { // per-mip info, unused
		return err
	}
	bodyChild, err := lvlChild.ReadChildStrict(tagBODY, false)
	if err != nil {
		return err
	}
	pixels, err := bodyChild.ReadArrayBorrow(bodyChild.Remaining())
	if err != nil {
		return err
	}

	env := FromContext(ctx)
	out, extension := encodeTexture(env.ImageFormat, info, pixels)
	return env.Files.SaveFile("textures/"+name+"."+extension, out)
}

// encodeTexture produces the bytes to save for a texture, and the
// extension they should be saved under. Only the small set of
// straightforward uncompressed pixel formats is actually re-encoded
// through internal/imagefmt; everything else (every DXT/BC variant) is
// written back out as a self-contained raw DDS, the same fallback the
// source effectively always uses before its DirectXTex decode step.
func encodeTexture(format imagefmt.ImageFormat, info textureFormatInfo, pixels []byte) ([]byte, string) {
	if decoded, ok := decodeUncompressed(info, pixels); ok {
		if out, err := imagefmt.Encode(format, decoded); err == nil {
			return out, format.String()
		}
	}
	return rawDDS(info, pixels), "dds"
}

// decodeUncompressed converts one of the four plain 32-bit-per-pixel
// D3DFMT layouts directly into top-down RGBA; any other format (in
// particular every block-compressed one) is left to rawDDS.
func decodeUncompressed(info textureFormatInfo, pixels []byte) (imagefmt.DecodedImage, bool) {
	width, height := int(info.Width), int(info.Height)
	if width <= 0 || height <= 0 || len(pixels) < width*height*4 {
		return imagefmt.DecodedImage{}, false
	}
	rgba := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		p := pixels[i*4 : i*4+4]
		var r, g, b, a byte
		switch info.D3DFormat {
		case d3dfmtA8R8G8B8, d3dfmtX8R8G8B8:
			b, g, r, a = p[0], p[1], p[2], p[3]
		case d3dfmtA8B8G8R8, d3dfmtX8B8G8R8:
			r, g, b, a = p[0], p[1], p[2], p[3]
		default:
			return imagefmt.DecodedImage{}, false
		}
		if info.D3DFormat == d3dfmtX8R8G8B8 || info.D3DFormat == d3dfmtX8B8G8R8 {
			a = 0xff
		}
		out := rgba[i*4 : i*4+4]
		out[0], out[1], out[2], out[3] = r, g, b, a
	}
	return imagefmt.DecodedImage{Width: width, Height: height, RGBA: rgba}, true
}

// rawDDS wraps pixels in a minimal "DDS " magic plus 124-byte DDS_HEADER,
// enough for any DDS-aware viewer to recognize the format and dimensions
// even though this port never decompresses the block-compressed payload
// itself.
func rawDDS(info textureFormatInfo, pixels []byte) []byte {
	out := make([]byte, 0, 128+len(pixels))
	out = append(out, "DDS "...)

	header := make([]byte, 124)
	binary.LittleEndian.PutUint32(header[0:4], 124)
	binary.LittleEndian.PutUint32(header[4:8], 0x1|0x2|0x4|0x1000)
	binary.LittleEndian.PutUint32(header[8:12], uint32(info.Height))
	binary.LittleEndian.PutUint32(header[12:16], uint32(info.Width))
	// ddspf (32 bytes) at offset 72: size, flags(fourCC), fourCC = the raw
	// D3DFMT ordinal, reused verbatim as the closest available descriptor.
	binary.LittleEndian.PutUint32(header[72:76], 32)
	binary.LittleEndian.PutUint32(header[76:80], 0x4)
	binary.LittleEndian.PutUint32(header[80:84], info.D3DFormat)
	binary.LittleEndian.PutUint32(header[88:92], 0x1000) // dwCaps
	out = append(out, header...)
	out = append(out, pixels...)
	return out
}
