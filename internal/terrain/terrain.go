// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package terrain assembles a decoded heightmap chunk's declared rows into
// a single contiguous patch. The per-pixel encoding the original game uses
// (nibble-packed height values, platform-specific stride padding) is out
// of scope here: a handler decodes raw pixel bytes first, and Assemble
// just stitches the result into one buffer, gap-filling with a fallback
// Source when a platform variant's declared region undershoots its bounds.
package terrain

import "fmt"

// Source generates heightmap data for a region, the same shape
// server/terrain/terrain.go's own Source interface uses for the live
// game's procedural fallback.
type Source interface {
	Generate(x, y, width, height int) []byte
}

// Patch is one assembled heightmap region, row-major, one byte per pixel.
type Patch struct {
	Width, Height int
	Data          []byte
}

// GapFillFunc is called once per gap-filled row, so a caller can log
// when synthetic data had to stand in for truncated input.
type GapFillFunc func(x, y, width, height int)

// Assemble stitches rows (each a platform-decoded pixel row, which may be
// shorter than width if the source chunk truncated it) into a Patch sized
// width x height. Any row shorter than width, or any row index beyond
// len(rows), is gap-filled from fallback; onGapFill, if non-nil, is
// invoked once per such row with the pixel range that was synthesized.
func Assemble(width, height int, rows [][]byte, fallback Source, onGapFill GapFillFunc) (*Patch, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("terrain: invalid patch dimensions %dx%d", width, height)
	}
	data := make([]byte, width*height)

	for y := 0; y < height; y++ {
		var row []byte
		if y < len(rows) {
			row = rows[y]
		}
		n := copy(data[y*width:(y+1)*width], row)
		if n < width {
			missing := width - n
			if fallback == nil {
				return nil, fmt.Errorf("terrain: row %d short by %d pixels and no gap-fill source configured", y, missing)
			}
			fill := fallback.Generate(n, y, missing, 1)
			copy(data[y*width+n:(y+1)*width], fill)
			if onGapFill != nil {
				onGapFill(n, y, missing, 1)
			}
		}
	}

	return &Patch{Width: width, Height: height, Data: data}, nil
}
