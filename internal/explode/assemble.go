// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package explode

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ucfb-tools/unmunge/internal/chunk"
)

// wrapHeader prepends a chunk header (tag, little-endian u32 size) to
// payload.
func wrapHeader(tag chunk.Tag, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	b := tag.Bytes()
	copy(out[0:4], b[:])
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[8:], payload)
	return out
}

func padLen(n int) int {
	if rem := n % 4; rem != 0 {
		return 4 - rem
	}
	return 0
}

// Assemble inverts Explode: dir is a directory named
// "<index>_<tag>_<size>" (as Explode produces for the root entry), and
// the returned bytes are the reassembled chunk (header plus payload).
func Assemble(dir string) ([]byte, error) {
	tag, payload, err := assembleNode(dir)
	if err != nil {
		return nil, err
	}
	return wrapHeader(tag, payload), nil
}

// assembleNode recursively reconstructs one entry (file or directory)
// into its tag and payload bytes, without the outer header — the caller
// wraps it.
func assembleNode(path string) (chunk.Tag, []byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, nil, err
	}

	if info.IsDir() {
		_, tag, _, err := parseEntryName(filepath.Base(path))
		if err != nil {
			return 0, nil, err
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return 0, nil, err
		}

		type child struct {
			index int
			name  string
		}
		var ordered []child
		for _, e := range entries {
			base := strings.TrimSuffix(e.Name(), ".chunk")
			idx, _, _, err := parseEntryName(base)
			if err != nil {
				return 0, nil, fmt.Errorf("explode: entry %q: %w", e.Name(), err)
			}
			ordered = append(ordered, child{index: idx, name: e.Name()})
		}
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })

		var payload []byte
		for _, c := range ordered {
			childTag, childPayload, err := assembleNode(filepath.Join(path, c.name))
			if err != nil {
				return 0, nil, err
			}
			payload = append(payload, wrapHeader(childTag, childPayload)...)
			if pad := padLen(len(payload)); pad > 0 {
				payload = append(payload, make([]byte, pad)...)
			}
		}
		return tag, payload, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, err
	}
	if len(content) < 8 {
		return 0, nil, fmt.Errorf("explode: leaf file %q shorter than a chunk header", path)
	}
	base := strings.TrimSuffix(filepath.Base(path), ".chunk")
	_, tag, _, err := parseEntryName(base)
	if err != nil {
		return 0, nil, err
	}
	return tag, content[8:], nil
}
