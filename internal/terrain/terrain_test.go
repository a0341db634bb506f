// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package terrain

import (
	"bytes"
	"testing"
)

type constSource struct{ value byte }

func (s constSource) Generate(x, y, width, height int) []byte {
	buf := make([]byte, width*height)
	for i := range buf {
		buf[i] = s.value
	}
	return buf
}

func TestAssembleCopiesCompleteRows(t *testing.T) {
	rows := [][]byte{
		{1, 2, 3},
		{4, 5, 6},
	}
	p, err := Assemble(3, 2, rows, nil, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6}
	if !bytes.Equal(p.Data, want) {
		t.Errorf("Assemble data = %v, want %v", p.Data, want)
	}
}

func TestAssembleGapFillsShortRow(t *testing.T) {
	rows := [][]byte{
		{1, 2}, // short by one pixel
	}
	var fired bool
	p, err := Assemble(3, 1, rows, constSource{value: 9}, func(x, y, w, h int) {
		fired = true
		if x != 2 || y != 0 || w != 1 || h != 1 {
			t.Errorf("onGapFill(%d, %d, %d, %d), want (2, 0, 1, 1)", x, y, w, h)
		}
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !fired {
		t.Error("onGapFill was not called for a short row")
	}
	want := []byte{1, 2, 9}
	if !bytes.Equal(p.Data, want) {
		t.Errorf("Assemble data = %v, want %v", p.Data, want)
	}
}

func TestAssembleFailsWithoutFallback(t *testing.T) {
	rows := [][]byte{{1}}
	if _, err := Assemble(3, 1, rows, nil, nil); err == nil {
		t.Error("Assemble should fail on a short row with no gap-fill source")
	}
}

func TestAssembleMissingRowUsesFallback(t *testing.T) {
	rows := [][]byte{{1, 2, 3}}
	p, err := Assemble(3, 2, rows, constSource{value: 7}, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []byte{1, 2, 3, 7, 7, 7}
	if !bytes.Equal(p.Data, want) {
		t.Errorf("Assemble data = %v, want %v", p.Data, want)
	}
}
