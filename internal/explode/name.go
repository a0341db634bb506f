// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package explode recursively decomposes a chunk tree to a directory of
// named files (one per leaf) and directories (one per container), and
// reassembles that layout back into chunk bytes.
package explode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ucfb-tools/unmunge/internal/chunk"
)

// entryName formats the canonical "<index>_<tag>_<size>" basename shared
// by both leaf files (with a ".chunk" suffix) and container directories
// (without one).
func entryName(index int, tag chunk.Tag, size int) string {
	return fmt.Sprintf("%d_%s_%d", index, tag, size)
}

// leafFileName is entryName with the ".chunk" extension explode gives
// non-container chunks.
func leafFileName(index int, tag chunk.Tag, size int) string {
	return entryName(index, tag, size) + ".chunk"
}

// parseEntryName splits a basename (with or without the ".chunk" suffix
// already stripped) back into its index, tag, and declared size. The tag
// substring is recovered by taking everything between the first and last
// underscore, since the index and size portions are always pure digits
// but a printable tag may itself contain underscores (e.g. "scr_").
func parseEntryName(base string) (index int, tag chunk.Tag, size int, err error) {
	first := strings.IndexByte(base, '_')
	last := strings.LastIndexByte(base, '_')
	if first < 0 || last <= first {
		return 0, 0, 0, fmt.Errorf("explode: malformed entry name %q", base)
	}
	index, err = strconv.Atoi(base[:first])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("explode: malformed index in %q: %w", base, err)
	}
	size, err = strconv.Atoi(base[last+1:])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("explode: malformed size in %q: %w", base, err)
	}
	tag, err = parseTagLabel(base[first+1 : last])
	if err != nil {
		return 0, 0, 0, err
	}
	return index, tag, size, nil
}

// parseTagLabel inverts chunk.Tag.String(): either four printable ASCII
// bytes, or the little-endian hex-escaped "aa-bb-cc-dd" form.
func parseTagLabel(label string) (chunk.Tag, error) {
	if len(label) == 4 {
		return chunk.TagFromBytes([4]byte{label[0], label[1], label[2], label[3]}), nil
	}
	parts := strings.Split(label, "-")
	if len(parts) != 4 {
		return 0, fmt.Errorf("explode: malformed tag label %q", label)
	}
	var b [4]byte
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("explode: malformed tag label %q: %w", label, err)
		}
		b[i] = byte(v)
	}
	return chunk.TagFromBytes(b), nil
}
