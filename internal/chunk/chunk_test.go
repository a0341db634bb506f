// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package chunk

import (
	"errors"
	"testing"
)

func buildSample(t *testing.T) []byte {
	t.Helper()
	w := NewWriter()
	root := w.OpenRoot(TagUCFB)
	child := root.OpenChild(TagMODL)
	if err := Write(child, uint32(42)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	child.WriteString("hello", false)
	if err := child.Close(false); err != nil {
		t.Fatalf("Close child: %v", err)
	}
	if err := root.Close(false); err != nil {
		t.Fatalf("Close root: %v", err)
	}
	return w.Bytes()
}

func TestWriterReaderRoundTrip(t *testing.T) {
	raw := buildSample(t)

	r, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Tag() != TagUCFB {
		t.Fatalf("tag = %v, want ucfb", r.Tag())
	}

	child, err := r.ReadChildStrict(TagMODL, false)
	if err != nil {
		t.Fatalf("ReadChildStrict: %v", err)
	}

	n, err := ReadTrivial[uint32](child, false)
	if err != nil {
		t.Fatalf("ReadTrivial: %v", err)
	}
	if n != 42 {
		t.Errorf("n = %d, want 42", n)
	}

	s, err := child.ReadString(false)
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if string(s) != "hello" {
		t.Errorf("s = %q, want %q", s, "hello")
	}

	if r.HasMore() {
		t.Errorf("root has unexpected trailing bytes: head=%d size=%d", r.Head(), r.Size())
	}
}

func TestReadChildStrict_MismatchRestoresHead(t *testing.T) {
	raw := buildSample(t)
	r, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	save := r.Head()
	_, err = r.ReadChildStrict(TagSKEL, false)
	if !errors.Is(err, ErrTagMismatch) {
		t.Fatalf("err = %v, want ErrTagMismatch", err)
	}
	if r.Head() != save {
		t.Errorf("head = %d, want restored to %d", r.Head(), save)
	}

	// The real child should still be readable after the failed strict read.
	child, err := r.ReadChildStrict(TagMODL, false)
	if err != nil {
		t.Fatalf("ReadChildStrict after mismatch: %v", err)
	}
	if child.Tag() != TagMODL {
		t.Errorf("child tag = %v, want modl", child.Tag())
	}
}

func TestReadChildOpt(t *testing.T) {
	raw := buildSample(t)
	r, err := Open(raw)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	save := r.Head()
	_, ok, err := r.ReadChildOpt(TagSKEL, false)
	if err != nil {
		t.Fatalf("ReadChildOpt: %v", err)
	}
	if ok {
		t.Fatalf("ReadChildOpt matched a tag that isn't next")
	}
	if r.Head() != save {
		t.Errorf("head moved on a non-match: %d != %d", r.Head(), save)
	}

	child, ok, err := r.ReadChildOpt(TagMODL, false)
	if err != nil || !ok {
		t.Fatalf("ReadChildOpt(modl) ok=%v err=%v", ok, err)
	}
	if child.Tag() != TagMODL {
		t.Errorf("child tag = %v", child.Tag())
	}
}

func TestReaderNeverOverrunsChunk(t *testing.T) {
	// Fuzz-style: many small truncated/garbage inputs must only ever
	// fail with a declared error, never panic or read out of bounds.
	cases := [][]byte{
		{},
		{1, 2, 3},
		{'m', 'o', 'd', 'l', 0xff, 0xff, 0xff, 0x7f},
		{'m', 'o', 'd', 'l', 4, 0, 0, 0, 1, 2},
	}
	for i, raw := range cases {
		r, err := Open(raw)
		if err != nil {
			continue
		}
		for j := 0; j < 8; j++ {
			if !r.HasMore() {
				break
			}
			if _, err := r.ReadChild(false); err != nil {
				break
			}
		}
		_ = i
	}
}

func TestAlignmentPadding(t *testing.T) {
	w := NewWriter()
	root := w.OpenRoot(TagUCFB)
	child := root.OpenChild(TagTEX)
	child.WriteBytes([]byte{1, 2, 3}) // unaligned length, needs 1 byte pad
	if err := child.Close(false); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := root.OpenChild(TagSKEL)
	if err := second.Close(false); err != nil {
		t.Fatalf("Close second: %v", err)
	}
	if err := root.Close(false); err != nil {
		t.Fatalf("Close root: %v", err)
	}

	r, err := Open(w.Bytes())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	first, err := r.ReadChildStrict(TagTEX, false)
	if err != nil {
		t.Fatalf("ReadChildStrict: %v", err)
	}
	if first.Size() != 3 {
		t.Errorf("size = %d, want 3", first.Size())
	}
	second2, err := r.ReadChildStrict(TagSKEL, false)
	if err != nil {
		t.Fatalf("second child not 4-byte aligned after padding: %v", err)
	}
	if second2.Tag() != TagSKEL {
		t.Errorf("tag = %v", second2.Tag())
	}
}

func TestTagString(t *testing.T) {
	if got := TagUCFB.String(); got != "ucfb" {
		t.Errorf("TagUCFB.String() = %q, want %q", got, "ucfb")
	}
	weird := TagFromBytes([4]byte{0xaa, 0xbb, 0xcc, 0xdd})
	if got, want := weird.String(), "aa-bb-cc-dd"; got != want {
		t.Errorf("weird.String() = %q, want %q", got, want)
	}
}

func TestPadding(t *testing.T) {
	cases := map[int]int{0: 0, 1: 3, 2: 2, 3: 1, 4: 0, 5: 3}
	for n, want := range cases {
		if got := padding(n); got != want {
			t.Errorf("padding(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestOpenRejectsTruncatedHeader(t *testing.T) {
	if _, err := Open([]byte("abc")); !errors.Is(err, ErrTooSmall) {
		t.Errorf("err = %v, want ErrTooSmall", err)
	}
}

func TestOpenRejectsOversizedDeclaration(t *testing.T) {
	raw := []byte{'u', 'c', 'f', 'b', 0xff, 0xff, 0xff, 0x00}
	if _, err := Open(raw); !errors.Is(err, ErrDeclaredSizeOverrun) {
		t.Errorf("err = %v, want ErrDeclaredSizeOverrun", err)
	}
}
