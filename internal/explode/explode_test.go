// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package explode

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ucfb-tools/unmunge/internal/chunk"
)

func buildNestedContainer(t *testing.T) []byte {
	t.Helper()
	w := chunk.NewWriter()
	root := w.OpenRoot(chunk.TagUCFB)

	lvl1 := root.OpenChild(chunk.TagLVL)
	lvl2 := lvl1.OpenChild(chunk.TagMODL)
	if err := chunk.Write(lvl2, uint32(0xdeadbeef)); err != nil {
		t.Fatalf("write: %v", err)
	}
	leaf := lvl2.OpenChild(chunk.TagSKEL)
	leaf.WriteBytes([]byte("bonebonebone"))
	if err := leaf.Close(false); err != nil {
		t.Fatalf("close leaf: %v", err)
	}
	if err := lvl2.Close(false); err != nil {
		t.Fatalf("close lvl2: %v", err)
	}

	sibling := lvl1.OpenChild(chunk.TagTEX)
	sibling.WriteBytes([]byte{1, 2, 3, 4, 5, 6, 7})
	if err := sibling.Close(false); err != nil {
		t.Fatalf("close sibling: %v", err)
	}
	if err := lvl1.Close(false); err != nil {
		t.Fatalf("close lvl1: %v", err)
	}
	// The outermost chunk has no sibling to align against, so close it
	// unaligned to avoid trailing padding the header's declared size
	// would not account for.
	if err := root.Close(true); err != nil {
		t.Fatalf("close root: %v", err)
	}
	return w.Bytes()
}

// TestExplodeAssembleRoundTrip is scenario S6: explode a 3-level nested
// ucfb to a temp directory, assemble it back, byte-compare to the
// original.
func TestExplodeAssembleRoundTrip(t *testing.T) {
	original := buildNestedContainer(t)

	dir := t.TempDir()
	if err := Explode(original, 0, dir); err != nil {
		t.Fatalf("Explode: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one root entry, got %d", len(entries))
	}
	rootPath := filepath.Join(dir, entries[0].Name())

	info, err := os.Stat(rootPath)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("root entry %q was not exploded into a directory", rootPath)
	}

	reassembled, err := Assemble(rootPath)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if !bytes.Equal(original, reassembled) {
		t.Fatalf("round trip mismatch:\noriginal:     % x\nreassembled:  % x", original, reassembled)
	}
}

func TestLooksLikeContainerRejectsNonPrintableTag(t *testing.T) {
	raw := []byte{0xff, 0xfe, 0xfd, 0xfc, 4, 0, 0, 0, 1, 2, 3, 4}
	if _, ok := looksLikeContainer(raw); ok {
		t.Errorf("non-printable tag was accepted as a container")
	}
}

func TestParseEntryNameRoundTrip(t *testing.T) {
	name := entryName(3, chunk.TagSKEL, 128)
	idx, tag, size, err := parseEntryName(name)
	if err != nil {
		t.Fatalf("parseEntryName: %v", err)
	}
	if idx != 3 || tag != chunk.TagSKEL || size != 128 {
		t.Errorf("got (%d, %v, %d), want (3, %v, 128)", idx, tag, size, chunk.TagSKEL)
	}
}
