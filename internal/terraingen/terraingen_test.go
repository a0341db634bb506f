// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package terraingen

import "testing"

func TestGenerateProducesRequestedSize(t *testing.T) {
	s := New(1)
	buf := s.Generate(0, 0, 4, 3)
	if len(buf) != 4*3 {
		t.Errorf("Generate len = %d, want %d", len(buf), 4*3)
	}
}

func TestGenerateIsDeterministicForSameSeed(t *testing.T) {
	a := New(42).Generate(10, 10, 8, 8)
	b := New(42).Generate(10, 10, 8, 8)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Generate not deterministic at index %d: %d != %d", i, a[i], b[i])
		}
	}
}
