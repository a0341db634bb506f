// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package vertex

import "errors"

// ErrNoBuffers is returned by SelectBuffer when given an empty candidate
// list.
var ErrNoBuffers = errors.New("vertex: no candidate buffers")

// SelectBuffer picks the best vertex buffer among several alternative
// compression levels for the same segment: it prefers an uncompressed
// buffer (no compression bits set) with the most attributes, then falls
// back to the most-attributed compressed buffer, then to the last buffer
// offered.
func SelectBuffer(buffers [][]byte) ([]byte, error) {
	if len(buffers) == 0 {
		return nil, ErrNoBuffers
	}

	var bestUncompressed []byte
	bestUncompressedAttrs := -1
	var bestCompressed []byte
	bestCompressedAttrs := -1

	for _, buf := range buffers {
		flags, _, _, err := parseHeader(buf)
		if err != nil {
			continue
		}
		attrs := flags.attributeCount()
		if flags&compressionBits == 0 {
			if attrs > bestUncompressedAttrs {
				bestUncompressedAttrs = attrs
				bestUncompressed = buf
			}
			continue
		}
		if attrs > bestCompressedAttrs {
			bestCompressedAttrs = attrs
			bestCompressed = buf
		}
	}

	if bestUncompressed != nil {
		return bestUncompressed, nil
	}
	if bestCompressed != nil {
		return bestCompressed, nil
	}
	return buffers[len(buffers)-1], nil
}
