// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"sort"
	"testing"
)

func triangleSet(indices []uint16) map[[3]uint16]bool {
	set := make(map[[3]uint16]bool)
	for i := 0; i+2 < len(indices); i += 3 {
		tri := [3]uint16{indices[i], indices[i+1], indices[i+2]}
		sort.Slice(tri[:], func(a, b int) bool { return tri[a] < tri[b] })
		set[tri] = true
	}
	return set
}

// TestTopologyRoundTrip_S3 verifies that a triangle_list round tripped
// through triangle_strip and back yields exactly the original set of
// triangles.
func TestTopologyRoundTrip_S3(t *testing.T) {
	list := []uint16{0, 1, 2, 2, 1, 3, 2, 3, 4}

	strip, err := ConvertTopology(list, TriangleList, TriangleStrip)
	if err != nil {
		t.Fatalf("list->strip: %v", err)
	}
	back, err := ConvertTopology(strip, TriangleStrip, TriangleList)
	if err != nil {
		t.Fatalf("strip->list: %v", err)
	}

	want := triangleSet(list)
	got := triangleSet(back)
	if len(got) != len(want) {
		t.Fatalf("got %d triangles, want %d (got=%v want=%v)", len(got), len(want), got, want)
	}
	for tri := range want {
		if !got[tri] {
			t.Errorf("missing triangle %v after round trip", tri)
		}
	}
}

func TestConvertTopologyIdentity(t *testing.T) {
	for _, topo := range []Topology{PointList, LineList, TriangleList, TriangleStrip, TriangleStripPS2, TriangleFan} {
		in := []uint16{1, 2, 3, 4, 5, 6}
		out, err := ConvertTopology(in, topo, topo)
		if err != nil {
			t.Fatalf("identity conversion for %s: %v", topo, err)
		}
		if len(out) != len(in) {
			t.Fatalf("identity conversion changed length for %s", topo)
		}
		for i := range in {
			if out[i] != in[i] {
				t.Errorf("identity conversion changed data for %s", topo)
			}
		}
	}
}

func TestConvertTopologyUnsupported(t *testing.T) {
	_, err := ConvertTopology([]uint16{0, 1, 2}, LineLoop, TriangleFan)
	if !errors.Is(err, ErrUnsupportedTopologyConversion) {
		t.Errorf("err = %v, want ErrUnsupportedTopologyConversion", err)
	}
}

func TestFanToList(t *testing.T) {
	fan := []uint16{0, 1, 2, 3, 4}
	list, err := ConvertTopology(fan, TriangleFan, TriangleList)
	if err != nil {
		t.Fatalf("fan->list: %v", err)
	}
	want := []uint16{0, 1, 2, 0, 2, 3, 0, 3, 4}
	if len(list) != len(want) {
		t.Fatalf("len(list) = %d, want %d", len(list), len(want))
	}
	for i := range want {
		if list[i] != want[i] {
			t.Errorf("list[%d] = %d, want %d", i, list[i], want[i])
		}
	}
}

// TestNoDegenerateTrianglesFromStripConversion verifies that no output
// triangle of a list conversion is degenerate.
func TestNoDegenerateTrianglesFromStripConversion(t *testing.T) {
	strip := []uint16{0, 1, 2, 2, 2, 3, 3, 4, 5} // contains a degenerate bridge
	list, err := ConvertTopology(strip, TriangleStrip, TriangleList)
	if err != nil {
		t.Fatalf("strip->list: %v", err)
	}
	for i := 0; i+2 < len(list); i += 3 {
		a, b, c := list[i], list[i+1], list[i+2]
		if a == b || b == c || a == c {
			t.Errorf("degenerate triangle at %d: (%d,%d,%d)", i, a, b, c)
		}
	}
}

func TestPS2RestartRoundTrip(t *testing.T) {
	list := []uint16{0, 1, 2, 2, 1, 3, 4, 5, 6}
	ps2, err := ConvertTopology(list, TriangleList, TriangleStripPS2)
	if err != nil {
		t.Fatalf("list->ps2: %v", err)
	}
	strip := ps2ToStrip(ps2)
	for _, idx := range strip {
		if idx&restartBit != 0 {
			t.Errorf("ps2ToStrip left a restart bit set: %v", strip)
		}
	}
	back, err := ConvertTopology(ps2, TriangleStripPS2, TriangleList)
	if err != nil {
		t.Fatalf("ps2->list: %v", err)
	}
	want := triangleSet(list)
	got := triangleSet(back)
	if len(got) != len(want) {
		t.Fatalf("got %d triangles, want %d", len(got), len(want))
	}
}
