// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
)

// ErrUnsupportedTopologyConversion is returned by ConvertTopology for any
// (from, to) pair it does not know how to convert.
var ErrUnsupportedTopologyConversion = errors.New("model: unsupported topology conversion")

// Topology enumerates the primitive topologies a geometry node can use.
type Topology uint8

const (
	TopologyInvalid Topology = iota
	PointList
	LineList
	LineLoop
	LineStrip
	TriangleList
	TriangleStrip
	TriangleStripPS2
	TriangleFan
)

var topologyStrings = [...]string{
	TopologyInvalid:   "invalid",
	PointList:         "point_list",
	LineList:          "line_list",
	LineLoop:          "line_loop",
	LineStrip:         "line_strip",
	TriangleList:      "triangle_list",
	TriangleStrip:     "triangle_strip",
	TriangleStripPS2:  "triangle_strip_ps2",
	TriangleFan:       "triangle_fan",
}

func (t Topology) String() string {
	if int(t) < len(topologyStrings) {
		return topologyStrings[t]
	}
	return "invalid"
}

// restartBit is the PS2 primitive-restart flag OR'd onto an index.
const restartBit uint16 = 0x8000

// ConvertTopology converts indices between two primitive topologies. It
// returns ErrUnsupportedTopologyConversion for any pair it has no
// conversion for.
func ConvertTopology(indices []uint16, from, to Topology) ([]uint16, error) {
	if from == to {
		return indices, nil
	}

	switch {
	case from == TriangleList && to == TriangleStrip:
		return stripifyList(indices, false), nil
	case from == TriangleList && to == TriangleStripPS2:
		return stripifyList(indices, true), nil
	case from == TriangleStrip && to == TriangleStripPS2:
		return stripToPS2(indices), nil
	case from == TriangleStripPS2 && to == TriangleStrip:
		return ps2ToStrip(indices), nil
	case from == TriangleStrip && to == TriangleList:
		return stripToList(indices, false), nil
	case from == TriangleStripPS2 && to == TriangleList:
		return stripToList(indices, true), nil
	case from == TriangleFan && to == TriangleList:
		return fanToList(indices), nil
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedTopologyConversion, from, to)
}

// fanToList implements "(v0, vi-1, vi) for i = 2..n".
func fanToList(fan []uint16) []uint16 {
	if len(fan) < 3 {
		return nil
	}
	out := make([]uint16, 0, (len(fan)-2)*3)
	v0 := fan[0]
	for i := 2; i < len(fan); i++ {
		out = append(out, v0, fan[i-1], fan[i])
	}
	return out
}

// stripToList converts a strip (optionally PS2-restart-encoded) to a
// triangle list, determining winding by the parity of the triangle's
// position within its own strip, skipping degenerate triangles. A PS2
// strip is a concatenation of independent strip segments (see
// splitPS2Strips): it is decoded by splitting on the restart markers
// first and converting each segment on its own, not by sliding one
// window with a restart flag over the whole buffer — a window that
// merely overlaps a segment boundary is not itself a valid triangle.
func stripToList(strip []uint16, ps2 bool) []uint16 {
	if !ps2 {
		return stripSegmentToList(strip)
	}
	var out []uint16
	for _, seg := range splitPS2Strips(strip) {
		out = append(out, stripSegmentToList(seg)...)
	}
	return out
}

// stripSegmentToList converts one plain (non-restart-encoded) strip
// segment to a triangle list, alternating winding by triangle position
// so strip orientation round-trips correctly.
func stripSegmentToList(strip []uint16) []uint16 {
	out := make([]uint16, 0, len(strip)*3)
	for i := 0; i+2 < len(strip); i++ {
		a, b, c := strip[i], strip[i+1], strip[i+2]
		if a == b || b == c || a == c {
			continue
		}
		if i%2 == 0 {
			out = append(out, a, b, c)
		} else {
			out = append(out, a, c, b)
		}
	}
	return out
}

// splitPS2Strips splits a PS2 index buffer into its independent strip
// segments, mirroring the source's read_vertex_strip_ps2: the first two
// indices of a segment are read (and unmasked) unconditionally, then
// indices are appended until one carrying the restart bit is reached —
// that flagged index is left in place to start the next segment rather
// than being consumed.
func splitPS2Strips(strip []uint16) [][]uint16 {
	var segs [][]uint16
	pos := 0
	for pos+1 < len(strip) {
		seg := []uint16{strip[pos] &^ restartBit, strip[pos+1] &^ restartBit}
		pos += 2
		for pos < len(strip) && strip[pos]&restartBit == 0 {
			seg = append(seg, strip[pos])
			pos++
		}
		segs = append(segs, seg)
	}
	return segs
}

// ps2ToStrip masks off the PS2 restart bits, leaving plain strip indices:
// the two encodings describe the same strip topology.
func ps2ToStrip(ps2 []uint16) []uint16 {
	out := make([]uint16, len(ps2))
	for i, idx := range ps2 {
		out[i] = idx &^ restartBit
	}
	return out
}

// stripToPS2 re-encodes a plain strip (with degenerate-index joins) as a
// PS2 strip by detecting degenerate bridge pairs and OR-ing the restart
// bit onto the first two indices of the strip that follows.
func stripToPS2(strip []uint16) []uint16 {
	out := make([]uint16, len(strip))
	copy(out, strip)
	for i := 0; i+3 < len(strip); i++ {
		// A degenerate bridge is two repeated indices joining two strips:
		// ..., a, b, b, c, ... where the real strips are [..a,b] [b,c,..].
		if strip[i+1] == strip[i+2] {
			out[i+2] |= restartBit
			out[i+3] |= restartBit
		}
	}
	return out
}

// stripifyList greedily stripifies a triangle list: it emits triangles,
// extending the current strip whenever the trailing edge of the strip
// matches the next triangle's leading edge (respecting winding parity),
// and glues independent strips together with two-index degenerate
// bridges. When ps2 is true, subsequent strips are joined by OR-ing the
// restart bit onto their first two indices instead of gluing with
// degenerates.
func stripifyList(list []uint16, ps2 bool) []uint16 {
	triCount := len(list) / 3
	if triCount == 0 {
		return nil
	}
	used := make([]bool, triCount)

	type strip struct {
		indices []uint16
		// parity of the last emitted triangle, used to keep winding
		// consistent when extending.
		parity int
	}

	var strips []strip

	for start := 0; start < triCount; start++ {
		if used[start] {
			continue
		}
		used[start] = true
		a, b, c := list[start*3], list[start*3+1], list[start*3+2]
		cur := strip{indices: []uint16{a, b, c}, parity: 0}

		// Greedily extend: look for any unused triangle whose leading
		// edge matches the strip's current trailing edge.
		for {
			tail1, tail2 := cur.indices[len(cur.indices)-2], cur.indices[len(cur.indices)-1]
			extended := false
			for t := 0; t < triCount; t++ {
				if used[t] {
					continue
				}
				ta, tb, tc := list[t*3], list[t*3+1], list[t*3+2]
				// Expected leading edge alternates with parity to
				// preserve consistent winding down the strip.
				var wantA, wantB uint16
				if cur.parity%2 == 0 {
					wantA, wantB = tail2, tail1
				} else {
					wantA, wantB = tail1, tail2
				}
				next, ok := matchTriangle(ta, tb, tc, wantA, wantB)
				if !ok {
					continue
				}
				used[t] = true
				cur.indices = append(cur.indices, next)
				cur.parity++
				extended = true
				break
			}
			if !extended {
				break
			}
		}
		strips = append(strips, cur)
	}

	var out []uint16
	for i, s := range strips {
		if i == 0 {
			out = append(out, s.indices...)
			continue
		}
		if ps2 {
			first := s.indices[0] | restartBit
			second := s.indices[1]
			if len(s.indices) > 1 {
				second |= restartBit
			}
			out = append(out, first, second)
			out = append(out, s.indices[2:]...)
		} else {
			// Glue with a two-index degenerate bridge from the previous
			// strip's last index to this strip's first index.
			out = append(out, out[len(out)-1], s.indices[0])
			out = append(out, s.indices...)
		}
	}
	return out
}

// matchTriangle reports whether triangle (a,b,c) has a vertex pair equal
// to (wantA, wantB) in cyclic order, and if so returns the third vertex.
func matchTriangle(a, b, c, wantA, wantB uint16) (third uint16, ok bool) {
	switch {
	case a == wantA && b == wantB:
		return c, true
	case b == wantA && c == wantB:
		return a, true
	case c == wantA && a == wantB:
		return b, true
	}
	return 0, false
}
