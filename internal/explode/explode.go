// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package explode

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/ucfb-tools/unmunge/internal/chunk"
)

const minContainerPayload = 8

// splitHeader reads a chunk's 4-byte tag and little-endian u32 size from
// the start of raw, the same 8-byte layout chunk.Reader parses.
func splitHeader(raw []byte) (tag chunk.Tag, size int, ok bool) {
	if len(raw) < 8 {
		return 0, 0, false
	}
	tag = chunk.TagFromBytes([4]byte(raw[0:4]))
	size = int(binary.LittleEndian.Uint32(raw[4:8]))
	if size < 0 || size > len(raw)-8 {
		return 0, 0, false
	}
	return tag, size, true
}

// childRanges splits payload into a sequence of complete child chunks
// (header+body each), each 4-byte aligned from the previous. It succeeds
// only if the whole payload is consumed save for at most 3 trailing
// padding bytes.
func childRanges(payload []byte) ([][]byte, bool) {
	var out [][]byte
	pos := 0
	for pos < len(payload) {
		tag, size, ok := splitHeader(payload[pos:])
		if !ok {
			return nil, false
		}
		_ = tag
		end := pos + 8 + size
		out = append(out, payload[pos:end])
		pos = end
		if pad := (4 - pos%4) % 4; pad > 0 {
			pos += pad
		}
	}
	if len(payload)-pos > 3 {
		return nil, false
	}
	return out, true
}

// looksLikeContainer reports whether raw's tag is printable, its payload
// is at least big enough to hold one child header, and that payload
// cleanly decomposes into a sequence of child chunks.
func looksLikeContainer(raw []byte) ([][]byte, bool) {
	tag, size, ok := splitHeader(raw)
	if !ok || !tag.Printable() || size < minContainerPayload {
		return nil, false
	}
	return childRanges(raw[8 : 8+size])
}

// Explode writes raw (a complete chunk: 8-byte header plus payload) under
// dir, recursing into directories for anything that looks like a
// container and writing a "<index>_<tag>_<size>.chunk" leaf file
// (header included) for anything that does not.
func Explode(raw []byte, index int, dir string) error {
	tag, size, ok := splitHeader(raw)
	if !ok {
		return os.WriteFile(filepath.Join(dir, leafFileName(index, 0, len(raw))), raw, 0o644)
	}

	if children, isContainer := looksLikeContainer(raw); isContainer {
		subdir := filepath.Join(dir, entryName(index, tag, size))
		if err := os.MkdirAll(subdir, 0o755); err != nil {
			return err
		}
		for i, child := range children {
			if err := Explode(child, i, subdir); err != nil {
				return err
			}
		}
		return nil
	}

	return os.WriteFile(filepath.Join(dir, leafFileName(index, tag, size)), raw, 0o644)
}

// ExplodeRoot explodes rootRaw (a complete root chunk: 8-byte header plus
// payload, the same bytes chunk.Open accepts) into dir as entry index 0.
func ExplodeRoot(rootRaw []byte, dir string) error {
	return Explode(rootRaw, 0, dir)
}
