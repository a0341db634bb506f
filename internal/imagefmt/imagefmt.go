// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package imagefmt re-encodes a decoded texture into an on-disk image
// format. Only TGA is implemented; PNG and DDS are named but left as
// documented stubs, since full image-codec support is out of scope for
// this tool (the texture handler only needs somewhere to put bytes that
// round-trip a human-viewable image).
package imagefmt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ImageFormat is the on-disk image format requested for a decoded
// texture.
type ImageFormat uint8

const (
	FormatTGA ImageFormat = iota
	FormatPNG
	FormatDDS
)

func (f ImageFormat) String() string {
	switch f {
	case FormatTGA:
		return "tga"
	case FormatPNG:
		return "png"
	case FormatDDS:
		return "dds"
	default:
		return "invalid"
	}
}

// ErrUnsupportedImageFormat is returned by Encode for any format it has
// no encoder for.
var ErrUnsupportedImageFormat = errors.New("imagefmt: unsupported image format")

// DecodedImage is a fully decompressed, top-to-bottom RGBA image: the
// common currency the texture handler (PC only) decodes into before
// handing off to Encode.
type DecodedImage struct {
	Width, Height int
	RGBA          []byte // 4 bytes per pixel, row-major, top-to-bottom
}

// Encode re-encodes img in the requested format.
func Encode(format ImageFormat, img DecodedImage) ([]byte, error) {
	switch format {
	case FormatTGA:
		return encodeTGA(img), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImageFormat, format)
	}
}

// encodeTGA writes an uncompressed 32-bit TGA (image type 2, bottom-to-top
// per the TGA convention, so rows are emitted in reverse order).
func encodeTGA(img DecodedImage) []byte {
	var buf bytes.Buffer

	header := [18]byte{}
	header[2] = 2 // uncompressed true-color
	binary.LittleEndian.PutUint16(header[12:14], uint16(img.Width))
	binary.LittleEndian.PutUint16(header[14:16], uint16(img.Height))
	header[16] = 32 // bits per pixel
	header[17] = 8  // 8 alpha bits, origin bit (0x20) left clear: bottom-left origin
	buf.Write(header[:])

	stride := img.Width * 4
	for y := img.Height - 1; y >= 0; y-- {
		row := img.RGBA[y*stride : (y+1)*stride]
		for x := 0; x < img.Width; x++ {
			r, g, b, a := row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]
			buf.WriteByte(b)
			buf.WriteByte(g)
			buf.WriteByte(r)
			buf.WriteByte(a)
		}
	}
	return buf.Bytes()
}
